package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investigate/case-graph/internal/domain"
)

func TestStore_DeleteNodeCascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &domain.Node{CaseID: 1, Label: "A"}
	b := &domain.Node{CaseID: 1, Label: "B"}
	require.NoError(t, s.CreateNode(ctx, a))
	require.NoError(t, s.CreateNode(ctx, b))
	require.NoError(t, s.CreateEdge(ctx, &domain.Edge{CaseID: 1, FromNodeID: a.ID, ToNodeID: b.ID, Amount: 10}))
	require.NoError(t, s.CreateEdge(ctx, &domain.Edge{CaseID: 1, FromNodeID: b.ID, ToNodeID: b.ID, Amount: 5}))

	require.NoError(t, s.DeleteNode(ctx, 1, a.ID))

	edges, err := s.ListEdges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, b.ID, edges[0].FromNodeID)

	assert.ErrorIs(t, s.DeleteNode(ctx, 1, a.ID), domain.ErrNotFound)
}

func TestStore_EdgeRequiresNodesInCase(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &domain.Node{CaseID: 1, Label: "A"}
	other := &domain.Node{CaseID: 2, Label: "B"}
	require.NoError(t, s.CreateNode(ctx, a))
	require.NoError(t, s.CreateNode(ctx, other))

	err := s.CreateEdge(ctx, &domain.Edge{CaseID: 1, FromNodeID: a.ID, ToNodeID: other.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStore_ReplaceCallNetwork(t *testing.T) {
	ctx := context.Background()
	s := New()
	gen := uuid.New()

	stored, err := s.ReplaceCallNetwork(ctx, 7, domain.CallNetwork{
		GenerationID: gen,
		Entities:     []domain.CallEntity{{PhoneNumber: "A"}, {PhoneNumber: "B"}},
		Links:        []domain.CallLink{{SourceIdentifier: "A", TargetIdentifier: "B", CallCount: 2}},
	})
	require.NoError(t, err)
	require.Len(t, stored.Links, 1)
	assert.Equal(t, stored.Entities[0].ID, stored.Links[0].SourceEntityID)
	assert.Equal(t, stored.Entities[1].ID, stored.Links[0].TargetEntityID)
	assert.Equal(t, gen, stored.Links[0].GenerationID)

	_, err = s.ReplaceCallNetwork(ctx, 7, domain.CallNetwork{
		GenerationID: uuid.New(),
		Entities:     []domain.CallEntity{{PhoneNumber: "A"}},
		Links:        []domain.CallLink{{SourceIdentifier: "A", TargetIdentifier: "missing"}},
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	entities, err := s.ListCallEntities(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, entities, 2, "failed replacement leaves the previous generation visible")
	assert.Equal(t, gen, entities[0].GenerationID)
}

func TestStore_DeleteCallRecordsClearsNetwork(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.InsertCallRecords(ctx, 7, []domain.CallRecord{{DeviceNumber: "A", PartnerNumber: "B"}})
	require.NoError(t, err)
	_, err = s.InsertCallRecords(ctx, 8, []domain.CallRecord{{DeviceNumber: "C", PartnerNumber: "D"}})
	require.NoError(t, err)
	_, err = s.ReplaceCallNetwork(ctx, 7, domain.CallNetwork{
		GenerationID: uuid.New(),
		Entities:     []domain.CallEntity{{PhoneNumber: "A"}, {PhoneNumber: "B"}},
		Links:        []domain.CallLink{{SourceIdentifier: "A", TargetIdentifier: "B"}},
	})
	require.NoError(t, err)

	n, err := s.DeleteCallRecords(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entities, err := s.ListCallEntities(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, entities)
	links, err := s.ListCallLinks(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, links)

	others, err := s.ListCallRecords(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, others, 1, "other cases keep their records")
}

func TestStore_CallStats(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.InsertCallRecords(ctx, 3, []domain.CallRecord{
		{PartnerNumber: "A", DurationSeconds: 3600},
		{PartnerNumber: "B", DurationSeconds: 1234},
	})
	require.NoError(t, err)

	stats, err := s.CallStats(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, int64(4834), stats.TotalDurationSeconds)
	assert.Equal(t, 1.34, stats.TotalDurationHours)
}

func TestStore_LocationPointsOrderedByTime(t *testing.T) {
	ctx := context.Background()
	s := New()
	t1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Hour)

	_, err := s.InsertLocationPoints(ctx, 1, []domain.LocationPoint{
		{Latitude: 1, Timestamp: &t1},
		{Latitude: 2},
		{Latitude: 3, Timestamp: &t0},
	})
	require.NoError(t, err)

	points, err := s.ListLocationPoints(ctx, 1)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 3.0, points[0].Latitude)
	assert.Equal(t, 1.0, points[1].Latitude)
	assert.Equal(t, 2.0, points[2].Latitude)
}

func TestStore_ReplaceDetectedClustersKeepsManual(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateLocationCluster(ctx, &domain.LocationCluster{CaseID: 1, Name: "Home"}))
	_, err := s.ReplaceDetectedClusters(ctx, 1, []domain.LocationCluster{{Name: "Detected 1"}})
	require.NoError(t, err)
	_, err = s.ReplaceDetectedClusters(ctx, 1, []domain.LocationCluster{{Name: "Detected 2"}})
	require.NoError(t, err)

	clusters, err := s.ListLocationClusters(ctx, 1)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Equal(t, "Home", clusters[0].Name)
	assert.Equal(t, "Detected 2", clusters[1].Name)
}
