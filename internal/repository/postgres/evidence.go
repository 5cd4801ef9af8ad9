package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/investigate/case-graph/internal/domain"
)

const evidenceColumns = `id, case_id, file_name, file_type, file_size, sha256_hash, signature,
	evidence_type, evidence_source, records_count, description, collected_by, collected_at`

// CreateEvidence appends a custody record. Evidence rows are never updated or deleted.
func (s *Store) CreateEvidence(ctx context.Context, e *domain.Evidence) error {
	const query = `
		INSERT INTO evidence (
			id, case_id, file_name, file_type, file_size, sha256_hash, signature,
			evidence_type, evidence_source, records_count, description, collected_by, collected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13
		)
	`
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.CaseID, e.FileName, e.FileType, e.FileSize, e.SHA256, e.Signature,
		string(e.EvidenceType), e.Source, e.RecordsCount, e.Description, e.CollectedBy, e.CollectedAt,
	)
	if isUniqueViolation(err) {
		return domain.ValidationError("evidence %s already registered", e.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}
	return nil
}

func (s *Store) GetEvidence(ctx context.Context, caseID int64, id uuid.UUID) (*domain.Evidence, error) {
	return selectOne[domain.Evidence](ctx, s.pool, "evidence", id,
		`SELECT `+evidenceColumns+` FROM evidence WHERE case_id = $1 AND id = $2`, caseID, id)
}

// FindEvidenceByHash returns the earliest record with the digest
func (s *Store) FindEvidenceByHash(ctx context.Context, sha256Hex string) (*domain.Evidence, error) {
	return selectOne[domain.Evidence](ctx, s.pool, "evidence with hash", sha256Hex,
		`SELECT `+evidenceColumns+` FROM evidence WHERE lower(sha256_hash) = lower($1)
		ORDER BY collected_at LIMIT 1`, sha256Hex)
}

func (s *Store) ListEvidence(ctx context.Context, caseID int64) ([]domain.Evidence, error) {
	evidence, err := selectAll[domain.Evidence](ctx, s.pool,
		`SELECT `+evidenceColumns+` FROM evidence WHERE case_id = $1 ORDER BY collected_at`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	return evidence, nil
}
