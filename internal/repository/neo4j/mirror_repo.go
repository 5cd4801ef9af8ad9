// Package neo4j mirrors generated call networks into Neo4j for ad-hoc graph queries
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/config"
	"github.com/investigate/case-graph/internal/domain"
)

const maxPathHops = 15

// MirrorRepository writes each generation as (:Phone)-[:CALLED]-(:Phone) per case
type MirrorRepository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewMirrorRepository connects to Neo4j and prepares the schema
func NewMirrorRepository(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*MirrorRepository, error) {
	logger.Info("Connecting to Neo4j", zap.String("uri", cfg.URI))

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionAcquisitionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionAcquisitionTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	r := &MirrorRepository{driver: driver, database: cfg.Database, logger: logger}
	r.setupSchema(ctx)
	return r, nil
}

// Close closes the driver
func (r *MirrorRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *MirrorRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database, AccessMode: mode})
}

func (r *MirrorRepository) setupSchema(ctx context.Context) {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT phone_case_number IF NOT EXISTS FOR (p:Phone) REQUIRE (p.case_id, p.phone_number) IS UNIQUE",
		"CREATE INDEX phone_case IF NOT EXISTS FOR (p:Phone) ON (p.case_id)",
	}
	for _, stmt := range statements {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, stmt, nil)
		})
		if err != nil {
			r.logger.Warn("Failed to apply neo4j schema", zap.String("statement", stmt), zap.Error(err))
		}
	}
}

// MirrorNetwork replaces the case subgraph with the given generation in one write transaction
func (r *MirrorRepository) MirrorNetwork(ctx context.Context, caseID int64, network domain.CallNetwork) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	params := map[string]any{
		"case_id":       caseID,
		"generation_id": network.GenerationID.String(),
		"entities":      entityParams(network.Entities),
		"links":         linkParams(network.Links),
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MATCH (p:Phone {case_id: $case_id}) DETACH DELETE p`, params); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			UNWIND $entities AS e
			CREATE (p:Phone {case_id: $case_id, generation_id: $generation_id})
			SET p += e
		`, params); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			UNWIND $links AS l
			MATCH (a:Phone {case_id: $case_id, phone_number: l.source})
			MATCH (b:Phone {case_id: $case_id, phone_number: l.target})
			CREATE (a)-[c:CALLED]->(b)
			SET c.call_count = l.call_count,
				c.total_duration = l.total_duration,
				c.weight = l.weight,
				c.call_types = l.call_types,
				c.first_contact = l.first_contact,
				c.last_contact = l.last_contact
		`, params)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to mirror call network: %w", err)
	}
	return nil
}

// ShortestPath returns the phone numbers on the shortest call chain between two numbers,
// ignoring call direction. An empty result means the numbers are not connected.
func (r *MirrorRepository) ShortestPath(ctx context.Context, caseID int64, from, to string) ([]string, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a:Phone {case_id: $case_id, phone_number: $from}),
		      (b:Phone {case_id: $case_id, phone_number: $to})
		MATCH p = shortestPath((a)-[:CALLED*..%d]-(b))
		RETURN [n IN nodes(p) | n.phone_number] AS phones
	`, maxPathHops)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"case_id": caseID, "from": from, "to": to})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return []string{}, res.Err()
		}
		raw, _ := res.Record().Get("phones")
		values, _ := raw.([]any)
		phones := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				phones = append(phones, s)
			}
		}
		return phones, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find call path: %w", err)
	}
	return result.([]string), nil
}

func entityParams(entities []domain.CallEntity) []map[string]any {
	out := make([]map[string]any, 0, len(entities))
	for _, e := range entities {
		m := map[string]any{
			"entity_id":       e.ID,
			"phone_number":    e.PhoneNumber,
			"label":           e.Label,
			"person_name":     e.PersonName,
			"role":            e.Role,
			"risk_level":      string(e.RiskLevel),
			"risk_score":      e.RiskScore,
			"cluster_id":      e.ClusterID,
			"total_calls":     e.TotalCalls,
			"total_duration":  e.TotalDuration,
			"unique_contacts": e.UniqueContacts,
			"is_device":       e.IsDevice,
			"is_suspect":      e.IsSuspect,
		}
		setTime(m, "first_seen", e.FirstSeen)
		setTime(m, "last_seen", e.LastSeen)
		out = append(out, m)
	}
	return out
}

func linkParams(links []domain.CallLink) []map[string]any {
	out := make([]map[string]any, 0, len(links))
	for _, l := range links {
		types := make([]string, len(l.CallTypes))
		for i, t := range l.CallTypes {
			types[i] = string(t)
		}
		m := map[string]any{
			"source":         l.SourceIdentifier,
			"target":         l.TargetIdentifier,
			"call_count":     l.CallCount,
			"total_duration": l.TotalDuration,
			"weight":         l.Weight,
			"call_types":     types,
		}
		setTime(m, "first_contact", l.FirstContact)
		setTime(m, "last_contact", l.LastContact)
		out = append(out, m)
	}
	return out
}

// Neo4j has no null properties; absent timestamps are left unset
func setTime(m map[string]any, key string, t *time.Time) {
	if t != nil {
		m[key] = t.UTC()
	}
}
