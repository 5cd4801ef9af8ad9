package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investigate/case-graph/internal/domain"
)

func TestProjectNetwork(t *testing.T) {
	entities := []domain.CallEntity{
		{ID: 1, EntityType: "phone", Label: "Boss", PhoneNumber: "0811111111", Role: domain.RoleDeviceOwner, RiskLevel: domain.RiskCritical, ClusterID: 1, TotalCalls: 63, TotalDuration: 12270},
		{ID: 2, EntityType: "phone", Label: "0822222222", PhoneNumber: "0822222222", Role: domain.RoleContact, RiskLevel: domain.RiskHigh, ClusterID: 4, TotalCalls: 60},
		{ID: 3, EntityType: "phone", Label: "0833333333", PhoneNumber: "0833333333", Role: domain.RoleContact, RiskLevel: domain.RiskUnknown, ClusterID: 4, TotalCalls: 3},
		{ID: 4, EntityType: "phone", Label: "orphan", RiskLevel: domain.RiskLow},
	}
	links := []domain.CallLink{
		{ID: 10, SourceEntityID: 1, TargetEntityID: 2, LinkType: "call", CallCount: 60, TotalDuration: 12000, Weight: 60},
		{ID: 11, SourceEntityID: 1, TargetEntityID: 3, LinkType: "call", CallCount: 3, TotalDuration: 270, Weight: 3},
	}

	g := ProjectNetwork(entities, links)

	require.Len(t, g.Entities, 4)
	assert.Equal(t, "E1", g.Entities[0].ID)
	assert.Equal(t, domain.RoleDeviceOwner, g.Entities[0].SubLabel)
	assert.Equal(t, domain.EntityMetadata{Phone: "0811111111", Calls: 63, Duration: 12270}, g.Entities[0].Metadata)

	require.Len(t, g.Links, 2)
	assert.Equal(t, "L10", g.Links[0].ID)
	assert.Equal(t, "E1", g.Links[0].Source)
	assert.Equal(t, "E2", g.Links[0].Target)
	assert.Equal(t, domain.LinkMetadata{Calls: 60, Duration: 12000}, g.Links[0].Metadata)

	require.Len(t, g.Clusters, 2, "entities without a cluster id form no cluster")
	assert.Equal(t, domain.GraphCluster{ID: 1, Name: "Network Boss", Color: "#ef4444", Entities: []string{"E1"}, Risk: domain.RiskHigh, Size: 1}, g.Clusters[0])
	assert.Equal(t, "Coordinator", g.Clusters[1].Name)
	assert.Equal(t, "#f97316", g.Clusters[1].Color)
	assert.Equal(t, []string{"E2", "E3"}, g.Clusters[1].Entities)

	assert.Equal(t, domain.NetworkSummary{TotalEntities: 4, TotalLinks: 2, TotalClusters: 2, HighRiskCount: 2}, g.Summary)
}

func TestProjectNetwork_PaletteWraps(t *testing.T) {
	var entities []domain.CallEntity
	for i := 1; i <= 8; i++ {
		entities = append(entities, domain.CallEntity{ID: int64(i), ClusterID: i * 10})
	}

	g := ProjectNetwork(entities, nil)

	require.Len(t, g.Clusters, 8)
	assert.Equal(t, "Unknown", g.Clusters[5].Name)
	assert.Equal(t, "Cluster 70", g.Clusters[6].Name)
	assert.Equal(t, "#ef4444", g.Clusters[6].Color)
	assert.Equal(t, "#f97316", g.Clusters[7].Color)
	assert.Equal(t, domain.RiskHigh, g.Clusters[1].Risk)
	assert.Equal(t, domain.RiskMedium, g.Clusters[2].Risk)
	assert.NotNil(t, g.Links)
}

func TestProjectMoneyFlow(t *testing.T) {
	x, y := 10.0, 20.0
	nodes := []domain.Node{
		{ID: 1, Type: domain.NodeTypePerson, Label: "Scammer", RiskScore: 85, IsSuspect: true, PositionX: &x, PositionY: &y, Size: 40},
		{ID: 2, Type: domain.NodeTypeBankAccount, Label: "Victim account", RiskScore: 10, IsVictim: true, Size: 40},
		{ID: 3, Type: domain.NodeTypeMuleAccount, Label: "Mule", RiskScore: 65, Size: 40},
	}
	edges := []domain.Edge{
		{ID: 7, FromNodeID: 2, ToNodeID: 3, Amount: 50000, Currency: "THB", EdgeType: "transfer"},
		{ID: 8, FromNodeID: 3, ToNodeID: 1, Amount: 45000, Currency: "THB", EdgeType: "transfer"},
		{ID: 9, FromNodeID: 3, ToNodeID: 1, Amount: 5000, Currency: "THB", EdgeType: "transfer"},
	}

	v := ProjectMoneyFlow(nodes, edges)

	require.Len(t, v.Nodes, 3)
	assert.Equal(t, "N1", v.Nodes[0].ID)
	assert.Equal(t, domain.RiskCritical, v.Nodes[0].Risk)
	assert.Equal(t, &x, v.Nodes[0].X)
	assert.Equal(t, domain.RiskHigh, v.Nodes[2].Risk)

	require.Len(t, v.Edges, 3)
	assert.Equal(t, "T8", v.Edges[1].ID)
	assert.Equal(t, "N3", v.Edges[1].Source)
	assert.Equal(t, "N1", v.Edges[1].Target)

	assert.Equal(t, domain.MoneyFlowSummary{
		TotalAmount:   100000,
		NodeCount:     3,
		EdgeCount:     3,
		SuspectsCount: 1,
		VictimsCount:  1,
	}, v.Summary)
}
