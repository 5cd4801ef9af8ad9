package postgres

import (
	"context"
	"fmt"

	"github.com/investigate/case-graph/internal/domain"
)

const caseColumns = `id, case_number, title, description, status, currency, created_by, created_at, updated_at`

// CreateCase inserts a case; a duplicate case number is a validation error
func (s *Store) CreateCase(ctx context.Context, c *domain.Case) error {
	const query = `
		INSERT INTO cases (case_number, title, description, status, currency, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		c.CaseNumber, c.Title, c.Description, string(c.Status), c.Currency, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ValidationError("case number %s already exists", c.CaseNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to insert case: %w", err)
	}
	return nil
}

func (s *Store) GetCase(ctx context.Context, id int64) (*domain.Case, error) {
	return selectOne[domain.Case](ctx, s.pool, "case", id,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
}

func (s *Store) ListCases(ctx context.Context) ([]domain.Case, error) {
	cases, err := selectAll[domain.Case](ctx, s.pool, `SELECT `+caseColumns+` FROM cases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, nil
}
