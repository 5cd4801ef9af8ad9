package postgres

import (
	"context"
	"fmt"

	"github.com/investigate/case-graph/internal/domain"
)

const nodeColumns = `id, case_id, node_type, label, identifier, bank_name, account_name, phone_number,
	blockchain, wallet_address, risk_score, is_suspect, is_victim, x_position, y_position,
	color, size, notes, source, created_at, updated_at`

const edgeColumns = `id, case_id, from_node_id, to_node_id, amount, currency, transaction_date,
	transaction_ref, label, edge_type, notes, created_at`

func (s *Store) CreateNode(ctx context.Context, n *domain.Node) error {
	const query = `
		INSERT INTO money_flow_nodes (
			case_id, node_type, label, identifier, bank_name, account_name, phone_number,
			blockchain, wallet_address, risk_score, is_suspect, is_victim, x_position, y_position,
			color, size, notes, source
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18
		)
		RETURNING id, created_at, updated_at
	`
	err := s.pool.QueryRow(ctx, query,
		n.CaseID, string(n.Type), n.Label, n.Identifier, n.BankName, n.AccountName, n.PhoneNumber,
		n.Blockchain, n.WalletAddress, n.RiskScore, n.IsSuspect, n.IsVictim, n.PositionX, n.PositionY,
		n.Color, n.Size, n.Notes, n.Source,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, caseID, id int64) (*domain.Node, error) {
	return selectOne[domain.Node](ctx, s.pool, "node", id,
		`SELECT `+nodeColumns+` FROM money_flow_nodes WHERE case_id = $1 AND id = $2`, caseID, id)
}

func (s *Store) ListNodes(ctx context.Context, caseID int64) ([]domain.Node, error) {
	nodes, err := selectAll[domain.Node](ctx, s.pool,
		`SELECT `+nodeColumns+` FROM money_flow_nodes WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) UpdateNode(ctx context.Context, n *domain.Node) error {
	const query = `
		UPDATE money_flow_nodes SET
			node_type = $3, label = $4, identifier = $5, bank_name = $6, account_name = $7,
			phone_number = $8, blockchain = $9, wallet_address = $10, risk_score = $11,
			is_suspect = $12, is_victim = $13, x_position = $14, y_position = $15,
			color = $16, size = $17, notes = $18, updated_at = now()
		WHERE case_id = $1 AND id = $2
		RETURNING created_at, updated_at
	`
	rows, err := s.pool.Query(ctx, query,
		n.CaseID, n.ID,
		string(n.Type), n.Label, n.Identifier, n.BankName, n.AccountName,
		n.PhoneNumber, n.Blockchain, n.WalletAddress, n.RiskScore,
		n.IsSuspect, n.IsVictim, n.PositionX, n.PositionY,
		n.Color, n.Size, n.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to update node: %w", err)
		}
		return domain.NotFoundError("node", n.ID)
	}
	return rows.Scan(&n.CreatedAt, &n.UpdatedAt)
}

// DeleteNode removes the node; incident edges go with it through the foreign key cascade
func (s *Store) DeleteNode(ctx context.Context, caseID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM money_flow_nodes WHERE case_id = $1 AND id = $2`, caseID, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return expectOne(tag, "node", id)
}

// CreateEdge inserts an edge whose endpoints both belong to the edge's case
func (s *Store) CreateEdge(ctx context.Context, e *domain.Edge) error {
	const query = `
		INSERT INTO money_flow_edges (
			case_id, from_node_id, to_node_id, amount, currency, transaction_date,
			transaction_ref, label, edge_type, notes
		)
		SELECT $1::BIGINT, $2::BIGINT, $3::BIGINT, $4::DOUBLE PRECISION, $5::TEXT, $6::TIMESTAMPTZ,
			$7::TEXT, $8::TEXT, $9::TEXT, $10::TEXT
		WHERE (SELECT COUNT(*) FROM money_flow_nodes WHERE case_id = $1 AND id IN ($2, $3))
			= CASE WHEN $2::BIGINT = $3::BIGINT THEN 1 ELSE 2 END
		RETURNING id, created_at
	`
	rows, err := s.pool.Query(ctx, query,
		e.CaseID, e.FromNodeID, e.ToNodeID, e.Amount, e.Currency, e.TransactionDate,
		e.TransactionRef, e.Label, e.EdgeType, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
		return domain.ValidationError("edge endpoints %d and %d must belong to case %d", e.FromNodeID, e.ToNodeID, e.CaseID)
	}
	return rows.Scan(&e.ID, &e.CreatedAt)
}

func (s *Store) GetEdge(ctx context.Context, caseID, id int64) (*domain.Edge, error) {
	return selectOne[domain.Edge](ctx, s.pool, "edge", id,
		`SELECT `+edgeColumns+` FROM money_flow_edges WHERE case_id = $1 AND id = $2`, caseID, id)
}

func (s *Store) UpdateEdge(ctx context.Context, e *domain.Edge) error {
	const query = `
		UPDATE money_flow_edges SET
			amount = $3, currency = $4, transaction_date = $5, transaction_ref = $6,
			label = $7, edge_type = $8, notes = $9
		WHERE case_id = $1 AND id = $2
	`
	tag, err := s.pool.Exec(ctx, query,
		e.CaseID, e.ID,
		e.Amount, e.Currency, e.TransactionDate, e.TransactionRef,
		e.Label, e.EdgeType, e.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update edge: %w", err)
	}
	return expectOne(tag, "edge", e.ID)
}

func (s *Store) ListEdges(ctx context.Context, caseID int64) ([]domain.Edge, error) {
	edges, err := selectAll[domain.Edge](ctx, s.pool,
		`SELECT `+edgeColumns+` FROM money_flow_edges WHERE case_id = $1 ORDER BY id`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return edges, nil
}

func (s *Store) DeleteEdge(ctx context.Context, caseID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM money_flow_edges WHERE case_id = $1 AND id = $2`, caseID, id)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return expectOne(tag, "edge", id)
}
