package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/repository/memory"
)

func newMoneyFlowService(t *testing.T) (*MoneyFlowService, *memory.Store, int64) {
	t.Helper()
	store := memory.New()
	return NewMoneyFlowService(store, store, zap.NewNop()), store, newCase(t, store)
}

func seedFlow(t *testing.T, svc *MoneyFlowService, caseID int64) ([]domain.Node, []domain.Edge) {
	t.Helper()
	ctx := context.Background()
	nodes, err := svc.CreateNodes(ctx, caseID, []domain.Node{
		{Type: domain.NodeTypePerson, Label: "Victim", IsVictim: true},
		{Type: domain.NodeTypeBankAccount, Label: "Mule account", RiskScore: 85, IsSuspect: true},
		{Type: domain.NodeTypeCryptoWallet, Label: "Exit wallet", RiskScore: 40},
	})
	require.NoError(t, err)

	edges, err := svc.CreateEdges(ctx, caseID, []domain.Edge{
		{FromNodeID: nodes[0].ID, ToNodeID: nodes[1].ID, Amount: 500000},
		{FromNodeID: nodes[1].ID, ToNodeID: nodes[2].ID, Amount: 450000},
	})
	require.NoError(t, err)
	return nodes, edges
}

func TestMoneyFlowService_CreateDefaults(t *testing.T) {
	svc, _, caseID := newMoneyFlowService(t)
	nodes, edges := seedFlow(t, svc, caseID)

	assert.Equal(t, "manual", nodes[0].Source)
	assert.Equal(t, caseID, nodes[0].CaseID)
	assert.Equal(t, "THB", edges[0].Currency)
	assert.Equal(t, "transfer", edges[0].EdgeType)
}

func TestMoneyFlowService_EdgeMustStayInCase(t *testing.T) {
	ctx := context.Background()
	svc, store, caseID := newMoneyFlowService(t)
	nodes, _ := seedFlow(t, svc, caseID)

	other := newCase(t, store)
	foreign, err := svc.CreateNodes(ctx, other, []domain.Node{{Type: domain.NodeTypePerson, Label: "Unrelated"}})
	require.NoError(t, err)

	_, err = svc.CreateEdges(ctx, caseID, []domain.Edge{{FromNodeID: nodes[0].ID, ToNodeID: foreign[0].ID, Amount: 1}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateNodes(ctx, caseID, []domain.Node{{Type: domain.NodeTypePerson, Label: "x", RiskScore: 101}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMoneyFlowService_PatchAndPositions(t *testing.T) {
	ctx := context.Background()
	svc, _, caseID := newMoneyFlowService(t)
	nodes, edges := seedFlow(t, svc, caseID)

	label := "Mule account (KBank)"
	n, err := svc.UpdateNode(ctx, caseID, nodes[1].ID, NodePatch{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, label, n.Label)
	assert.Equal(t, 85, n.RiskScore, "unset fields are kept")

	moved, err := svc.UpdatePositions(ctx, caseID, []NodePosition{{ID: nodes[0].ID, X: 10, Y: 20}, {ID: nodes[2].ID, X: 300, Y: 20}})
	require.NoError(t, err)
	require.Len(t, moved, 2)
	require.NotNil(t, moved[0].PositionX)
	assert.Equal(t, 10.0, *moved[0].PositionX)

	amount := 440000.0
	e, err := svc.UpdateEdge(ctx, caseID, edges[1].ID, EdgePatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, amount, e.Amount)

	negative := -1.0
	_, err = svc.UpdateEdge(ctx, caseID, edges[1].ID, EdgePatch{Amount: &negative})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMoneyFlowService_DeleteNodeCascades(t *testing.T) {
	ctx := context.Background()
	svc, _, caseID := newMoneyFlowService(t)
	nodes, _ := seedFlow(t, svc, caseID)

	require.NoError(t, svc.DeleteNode(ctx, caseID, nodes[1].ID))

	g, err := svc.Graph(ctx, caseID)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)
	assert.Zero(t, g.Summary.TotalAmount)
}

func TestMoneyFlowService_GraphAndView(t *testing.T) {
	ctx := context.Background()
	svc, _, caseID := newMoneyFlowService(t)
	seedFlow(t, svc, caseID)

	g, err := svc.Graph(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Summary.NodeCount)
	assert.Equal(t, 2, g.Summary.EdgeCount)
	assert.Equal(t, 950000.0, g.Summary.TotalAmount)

	view, err := svc.View(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, view.Nodes, 3)
	require.Len(t, view.Edges, 2)
	assert.Equal(t, domain.RiskCritical, view.Nodes[1].Risk)

	_, err = svc.View(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCaseService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewCaseService(memory.New(), zap.NewNop())

	c := &domain.Case{CaseNumber: "CASE-2024-100", Title: "Romance scam"}
	require.NoError(t, svc.Create(ctx, c, "officer.k"))
	assert.NotZero(t, c.ID)
	assert.Equal(t, "officer.k", c.CreatedBy)
	assert.Equal(t, "THB", c.Currency)

	assert.ErrorIs(t, svc.Create(ctx, &domain.Case{Title: "No number"}, "officer.k"), domain.ErrValidation)

	cases, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}
