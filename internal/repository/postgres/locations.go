package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/investigate/case-graph/internal/domain"
)

const pointColumns = `id, case_id, evidence_id, suspect_id, suspect_name, device_id, latitude, longitude,
	accuracy_meters, source, cell_id, location_name, location_type, address, timestamp,
	duration_minutes, notes, created_at`

const clusterColumns = `id, case_id, name, cluster_type, center_lat, center_lon, radius_meters,
	visit_count, total_duration_minutes, unique_visitors, is_suspicious, risk_score, detected,
	first_visit, last_visit`

const insertCluster = `
	INSERT INTO location_clusters (
		case_id, name, cluster_type, center_lat, center_lon, radius_meters, visit_count,
		total_duration_minutes, unique_visitors, is_suspicious, risk_score, detected,
		first_visit, last_visit
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12,
		$13, $14
	)
	RETURNING id
`

func (s *Store) InsertLocationPoints(ctx context.Context, caseID int64, points []domain.LocationPoint) (int, error) {
	columns := []string{
		"case_id", "evidence_id", "suspect_id", "suspect_name", "device_id", "latitude", "longitude",
		"accuracy_meters", "source", "cell_id", "location_name", "location_type", "address",
		"timestamp", "duration_minutes", "notes",
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"location_points"}, columns,
		pgx.CopyFromSlice(len(points), func(i int) ([]any, error) {
			p := points[i]
			return []any{
				caseID, p.EvidenceID, p.SuspectID, p.SuspectName, p.DeviceID, p.Latitude, p.Longitude,
				p.AccuracyMeters, string(p.Source), p.CellID, p.LocationName, p.LocationType, p.Address,
				p.Timestamp, p.DurationMinutes, p.Notes,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy location points: %w", err)
	}
	return int(n), nil
}

func (s *Store) ListLocationPoints(ctx context.Context, caseID int64) ([]domain.LocationPoint, error) {
	points, err := selectAll[domain.LocationPoint](ctx, s.pool,
		`SELECT `+pointColumns+` FROM location_points WHERE case_id = $1 ORDER BY timestamp ASC NULLS LAST, id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list location points: %w", err)
	}
	return points, nil
}

func (s *Store) DeleteLocationPoints(ctx context.Context, caseID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM location_points WHERE case_id = $1`, caseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete location points: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CreateLocationCluster(ctx context.Context, c *domain.LocationCluster) error {
	return createCluster(ctx, s.pool, c)
}

func createCluster(ctx context.Context, q querier, c *domain.LocationCluster) error {
	err := q.QueryRow(ctx, insertCluster,
		c.CaseID, c.Name, c.ClusterType, c.CenterLat, c.CenterLon, c.RadiusMeters, c.VisitCount,
		c.TotalDurationMinutes, c.UniqueVisitors, c.IsSuspicious, c.RiskScore, c.Detected,
		c.FirstVisit, c.LastVisit,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert location cluster: %w", err)
	}
	return nil
}

func (s *Store) ListLocationClusters(ctx context.Context, caseID int64) ([]domain.LocationCluster, error) {
	clusters, err := selectAll[domain.LocationCluster](ctx, s.pool,
		`SELECT `+clusterColumns+` FROM location_clusters WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list location clusters: %w", err)
	}
	return clusters, nil
}

// ReplaceDetectedClusters swaps detected clusters inside one transaction; manual clusters stay
func (s *Store) ReplaceDetectedClusters(ctx context.Context, caseID int64, clusters []domain.LocationCluster) ([]domain.LocationCluster, error) {
	out := make([]domain.LocationCluster, len(clusters))
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM location_clusters WHERE case_id = $1 AND detected`, caseID); err != nil {
			return fmt.Errorf("failed to clear detected clusters: %w", err)
		}
		for i, c := range clusters {
			c.CaseID = caseID
			c.Detected = true
			if err := createCluster(ctx, tx, &c); err != nil {
				return err
			}
			out[i] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
