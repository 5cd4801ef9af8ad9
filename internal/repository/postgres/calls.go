package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/investigate/case-graph/internal/domain"
)

const callRecordColumns = `id, case_id, evidence_id, device_id, device_owner, device_number,
	partner_number, partner_name, call_type, start_time, end_time, duration_seconds, cell_id,
	gps_lat, gps_lon, is_suspect_call, is_deleted, notes, created_at`

const callEntityColumns = `id, case_id, generation_id, entity_type, label, phone_number, person_name,
	total_calls, total_duration, incoming_calls, outgoing_calls, unique_contacts, risk_level,
	risk_score, cluster_id, role, is_device, is_suspect, first_seen, last_seen`

const callLinkColumns = `id, case_id, generation_id, source_entity_id, target_entity_id,
	source_identifier, target_identifier, link_type, call_count, total_duration, first_contact,
	last_contact, weight, call_types`

// InsertCallRecords bulk loads records with COPY
func (s *Store) InsertCallRecords(ctx context.Context, caseID int64, records []domain.CallRecord) (int, error) {
	columns := []string{
		"case_id", "evidence_id", "device_id", "device_owner", "device_number",
		"partner_number", "partner_name", "call_type", "start_time", "end_time", "duration_seconds",
		"cell_id", "gps_lat", "gps_lon", "is_suspect_call", "is_deleted", "notes",
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"call_records"}, columns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{
				caseID, r.EvidenceID, r.DeviceID, r.DeviceOwner, r.DeviceNumber,
				r.PartnerNumber, r.PartnerName, string(r.CallType), r.StartTime, r.EndTime, r.DurationSeconds,
				r.CellID, r.GPSLat, r.GPSLon, r.IsSuspect, r.IsDeleted, r.Notes,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy call records: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListCallRecords(ctx context.Context, caseID int64) ([]domain.CallRecord, error) {
	records, err := selectAll[domain.CallRecord](ctx, s.pool,
		`SELECT `+callRecordColumns+` FROM call_records WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}
	return records, nil
}

// DeleteCallRecords removes the case's records together with the network derived from them
func (s *Store) DeleteCallRecords(ctx context.Context, caseID int64) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM call_links WHERE case_id = $1`, caseID); err != nil {
			return fmt.Errorf("failed to clear call links: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM call_entities WHERE case_id = $1`, caseID); err != nil {
			return fmt.Errorf("failed to clear call entities: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM call_records WHERE case_id = $1`, caseID)
		if err != nil {
			return fmt.Errorf("failed to delete call records: %w", err)
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ReplaceCallNetwork swaps the case's entities and links inside one transaction
func (s *Store) ReplaceCallNetwork(ctx context.Context, caseID int64, network domain.CallNetwork) (domain.CallNetwork, error) {
	out := domain.CallNetwork{
		GenerationID: network.GenerationID,
		Entities:     make([]domain.CallEntity, len(network.Entities)),
		Links:        make([]domain.CallLink, len(network.Links)),
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM call_links WHERE case_id = $1`, caseID); err != nil {
			return fmt.Errorf("failed to clear call links: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM call_entities WHERE case_id = $1`, caseID); err != nil {
			return fmt.Errorf("failed to clear call entities: %w", err)
		}

		const insertEntity = `
			INSERT INTO call_entities (
				case_id, generation_id, entity_type, label, phone_number, person_name,
				total_calls, total_duration, incoming_calls, outgoing_calls, unique_contacts,
				risk_level, risk_score, cluster_id, role, is_device, is_suspect, first_seen, last_seen
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11,
				$12, $13, $14, $15, $16, $17, $18, $19
			)
			RETURNING id
		`
		ids := make(map[string]int64, len(network.Entities))
		for i, e := range network.Entities {
			e.CaseID = caseID
			e.GenerationID = network.GenerationID
			err := tx.QueryRow(ctx, insertEntity,
				caseID, e.GenerationID, e.EntityType, e.Label, e.PhoneNumber, e.PersonName,
				e.TotalCalls, e.TotalDuration, e.IncomingCalls, e.OutgoingCalls, e.UniqueContacts,
				string(e.RiskLevel), e.RiskScore, e.ClusterID, e.Role, e.IsDevice, e.IsSuspect, e.FirstSeen, e.LastSeen,
			).Scan(&e.ID)
			if err != nil {
				return fmt.Errorf("failed to insert call entity: %w", err)
			}
			ids[e.PhoneNumber] = e.ID
			out.Entities[i] = e
		}

		const insertLink = `
			INSERT INTO call_links (
				case_id, generation_id, source_entity_id, target_entity_id, source_identifier,
				target_identifier, link_type, call_count, total_duration, first_contact,
				last_contact, weight, call_types
			) VALUES (
				$1, $2, $3, $4, $5,
				$6, $7, $8, $9, $10,
				$11, $12, $13
			)
			RETURNING id
		`
		for i, l := range network.Links {
			src, ok := ids[l.SourceIdentifier]
			if !ok {
				return domain.ValidationError("link source %s has no entity", l.SourceIdentifier)
			}
			dst, ok := ids[l.TargetIdentifier]
			if !ok {
				return domain.ValidationError("link target %s has no entity", l.TargetIdentifier)
			}
			l.CaseID = caseID
			l.GenerationID = network.GenerationID
			l.SourceEntityID, l.TargetEntityID = src, dst

			types := make([]string, len(l.CallTypes))
			for j, t := range l.CallTypes {
				types[j] = string(t)
			}
			err := tx.QueryRow(ctx, insertLink,
				caseID, l.GenerationID, src, dst, l.SourceIdentifier,
				l.TargetIdentifier, l.LinkType, l.CallCount, l.TotalDuration, l.FirstContact,
				l.LastContact, l.Weight, types,
			).Scan(&l.ID)
			if err != nil {
				return fmt.Errorf("failed to insert call link: %w", err)
			}
			out.Links[i] = l
		}
		return nil
	})
	if err != nil {
		return domain.CallNetwork{}, err
	}
	return out, nil
}

func (s *Store) ListCallEntities(ctx context.Context, caseID int64) ([]domain.CallEntity, error) {
	entities, err := selectAll[domain.CallEntity](ctx, s.pool,
		`SELECT `+callEntityColumns+` FROM call_entities WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call entities: %w", err)
	}
	return entities, nil
}

func (s *Store) ListCallLinks(ctx context.Context, caseID int64) ([]domain.CallLink, error) {
	links, err := selectAll[domain.CallLink](ctx, s.pool,
		`SELECT `+callLinkColumns+` FROM call_links WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call links: %w", err)
	}
	return links, nil
}

func (s *Store) CallStats(ctx context.Context, caseID int64) (domain.CallStats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM call_records WHERE case_id = $1),
			(SELECT COALESCE(SUM(duration_seconds), 0) FROM call_records WHERE case_id = $1),
			(SELECT COUNT(*) FROM call_entities WHERE case_id = $1),
			(SELECT COUNT(*) FROM call_links WHERE case_id = $1)
	`
	var stats domain.CallStats
	var records, entities, links int64
	err := s.pool.QueryRow(ctx, query, caseID).Scan(&records, &stats.TotalDurationSeconds, &entities, &links)
	if err != nil {
		return domain.CallStats{}, fmt.Errorf("failed to compute call stats: %w", err)
	}
	stats.TotalRecords = int(records)
	stats.TotalEntities = int(entities)
	stats.TotalLinks = int(links)
	stats.TotalDurationHours = math.Round(float64(stats.TotalDurationSeconds)/3600*100) / 100
	return stats, nil
}
