package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/graph"
	"github.com/investigate/case-graph/internal/repository"
)

// NodePatch carries the fields of a partial node update. Nil fields are left unchanged.
type NodePatch struct {
	Type          *domain.NodeType `json:"node_type"`
	Label         *string          `json:"label"`
	Identifier    *string          `json:"identifier"`
	BankName      *string          `json:"bank_name"`
	AccountName   *string          `json:"account_name"`
	PhoneNumber   *string          `json:"phone_number"`
	Blockchain    *string          `json:"blockchain"`
	WalletAddress *string          `json:"wallet_address"`
	RiskScore     *int             `json:"risk_score" validate:"omitempty,min=0,max=100"`
	IsSuspect     *bool            `json:"is_suspect"`
	IsVictim      *bool            `json:"is_victim"`
	PositionX     *float64         `json:"x_position"`
	PositionY     *float64         `json:"y_position"`
	Color         *string          `json:"color"`
	Size          *int             `json:"size"`
	Notes         *string          `json:"notes"`
}

func (p NodePatch) apply(n *domain.Node) {
	setIf(&n.Type, p.Type)
	setIf(&n.Label, p.Label)
	setIf(&n.Identifier, p.Identifier)
	setIf(&n.BankName, p.BankName)
	setIf(&n.AccountName, p.AccountName)
	setIf(&n.PhoneNumber, p.PhoneNumber)
	setIf(&n.Blockchain, p.Blockchain)
	setIf(&n.WalletAddress, p.WalletAddress)
	setIf(&n.RiskScore, p.RiskScore)
	setIf(&n.IsSuspect, p.IsSuspect)
	setIf(&n.IsVictim, p.IsVictim)
	setIf(&n.Color, p.Color)
	setIf(&n.Size, p.Size)
	setIf(&n.Notes, p.Notes)
	if p.PositionX != nil {
		n.PositionX = p.PositionX
	}
	if p.PositionY != nil {
		n.PositionY = p.PositionY
	}
}

// EdgePatch carries the fields of a partial edge update. Endpoints cannot be moved.
type EdgePatch struct {
	Amount          *float64   `json:"amount" validate:"omitempty,min=0"`
	Currency        *string    `json:"currency"`
	TransactionDate *time.Time `json:"transaction_date"`
	TransactionRef  *string    `json:"transaction_ref"`
	Label           *string    `json:"label"`
	EdgeType        *string    `json:"edge_type"`
	Notes           *string    `json:"notes"`
}

func (p EdgePatch) apply(e *domain.Edge) {
	setIf(&e.Amount, p.Amount)
	setIf(&e.Currency, p.Currency)
	setIf(&e.TransactionRef, p.TransactionRef)
	setIf(&e.Label, p.Label)
	setIf(&e.EdgeType, p.EdgeType)
	setIf(&e.Notes, p.Notes)
	if p.TransactionDate != nil {
		e.TransactionDate = p.TransactionDate
	}
}

// NodePosition is a layout update for one node
type NodePosition struct {
	ID int64   `json:"id" validate:"required"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// MoneyFlowService manages the manually curated money-flow graph of a case
type MoneyFlowService struct {
	cases  repository.CaseStore
	store  repository.MoneyFlowStore
	logger *zap.Logger
}

// NewMoneyFlowService creates a money-flow service
func NewMoneyFlowService(cases repository.CaseStore, store repository.MoneyFlowStore, logger *zap.Logger) *MoneyFlowService {
	return &MoneyFlowService{cases: cases, store: store, logger: logger}
}

// CreateNodes validates and stores nodes in one case
func (s *MoneyFlowService) CreateNodes(ctx context.Context, caseID int64, nodes []domain.Node) ([]domain.Node, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	for i := range nodes {
		if err := nodes[i].Validate(); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i].CaseID = caseID
		if nodes[i].Source == "" {
			nodes[i].Source = "manual"
		}
	}
	for i := range nodes {
		if err := s.store.CreateNode(ctx, &nodes[i]); err != nil {
			return nil, fmt.Errorf("failed to create node: %w", err)
		}
	}
	return nodes, nil
}

// GetNode returns one node of the case
func (s *MoneyFlowService) GetNode(ctx context.Context, caseID, id int64) (*domain.Node, error) {
	return s.store.GetNode(ctx, caseID, id)
}

// ListNodes returns the nodes of a case
func (s *MoneyFlowService) ListNodes(ctx context.Context, caseID int64) ([]domain.Node, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListNodes(ctx, caseID)
}

// UpdateNode applies a partial update
func (s *MoneyFlowService) UpdateNode(ctx context.Context, caseID, id int64, patch NodePatch) (*domain.Node, error) {
	n, err := s.store.GetNode(ctx, caseID, id)
	if err != nil {
		return nil, err
	}
	patch.apply(n)
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateNode(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}
	return n, nil
}

// UpdatePositions stores layout coordinates for several nodes
func (s *MoneyFlowService) UpdatePositions(ctx context.Context, caseID int64, positions []NodePosition) ([]domain.Node, error) {
	out := make([]domain.Node, 0, len(positions))
	for _, p := range positions {
		x, y := p.X, p.Y
		n, err := s.UpdateNode(ctx, caseID, p.ID, NodePatch{PositionX: &x, PositionY: &y})
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// DeleteNode removes a node and its incident edges
func (s *MoneyFlowService) DeleteNode(ctx context.Context, caseID, id int64) error {
	return s.store.DeleteNode(ctx, caseID, id)
}

// CreateEdges validates and stores edges. Both endpoints must be nodes of the same case.
func (s *MoneyFlowService) CreateEdges(ctx context.Context, caseID int64, edges []domain.Edge) ([]domain.Edge, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	for i := range edges {
		e := &edges[i]
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		e.CaseID = caseID
		for _, nid := range []int64{e.FromNodeID, e.ToNodeID} {
			if _, err := s.store.GetNode(ctx, caseID, nid); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, domain.ValidationError("edge %d: node %d is not part of case %d", i, nid, caseID)
				}
				return nil, fmt.Errorf("failed to load node: %w", err)
			}
		}
	}
	for i := range edges {
		if err := s.store.CreateEdge(ctx, &edges[i]); err != nil {
			return nil, fmt.Errorf("failed to create edge: %w", err)
		}
	}
	return edges, nil
}

// GetEdge returns one edge of the case
func (s *MoneyFlowService) GetEdge(ctx context.Context, caseID, id int64) (*domain.Edge, error) {
	return s.store.GetEdge(ctx, caseID, id)
}

// UpdateEdge applies a partial update
func (s *MoneyFlowService) UpdateEdge(ctx context.Context, caseID, id int64, patch EdgePatch) (*domain.Edge, error) {
	e, err := s.store.GetEdge(ctx, caseID, id)
	if err != nil {
		return nil, err
	}
	patch.apply(e)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEdge(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to update edge: %w", err)
	}
	return e, nil
}

// ListEdges returns the edges of a case
func (s *MoneyFlowService) ListEdges(ctx context.Context, caseID int64) ([]domain.Edge, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListEdges(ctx, caseID)
}

// DeleteEdge removes one edge
func (s *MoneyFlowService) DeleteEdge(ctx context.Context, caseID, id int64) error {
	return s.store.DeleteEdge(ctx, caseID, id)
}

// Graph returns the stored nodes and edges with their summary
func (s *MoneyFlowService) Graph(ctx context.Context, caseID int64) (domain.MoneyFlowGraph, error) {
	nodes, edges, err := s.load(ctx, caseID)
	if err != nil {
		return domain.MoneyFlowGraph{}, err
	}
	return domain.MoneyFlowGraph{
		Nodes:   nodes,
		Edges:   edges,
		Summary: graph.SummarizeMoneyFlow(nodes, edges),
	}, nil
}

// View returns the visualization projection of the money-flow graph
func (s *MoneyFlowService) View(ctx context.Context, caseID int64) (domain.MoneyFlowView, error) {
	nodes, edges, err := s.load(ctx, caseID)
	if err != nil {
		return domain.MoneyFlowView{}, err
	}
	return graph.ProjectMoneyFlow(nodes, edges), nil
}

func (s *MoneyFlowService) load(ctx context.Context, caseID int64) ([]domain.Node, []domain.Edge, error) {
	nodes, err := s.ListNodes(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.store.ListEdges(ctx, caseID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return nodes, edges, nil
}
