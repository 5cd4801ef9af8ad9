package graph

import (
	"fmt"
	"sort"

	"github.com/investigate/case-graph/internal/domain"
)

var (
	clusterColors = []string{"#ef4444", "#f97316", "#22c55e", "#8b5cf6", "#3b82f6", "#ec4899"}
	clusterNames  = []string{"Network Boss", "Coordinator", "Small Dealers", "Myanmar Production", "Transport/Logistics", "Unknown"}
)

// EntityID is the display id of a call entity
func EntityID(id int64) string { return fmt.Sprintf("E%d", id) }

// LinkID is the display id of a call link
func LinkID(id int64) string { return fmt.Sprintf("L%d", id) }

// NodeID is the display id of a money-flow node
func NodeID(id int64) string { return fmt.Sprintf("N%d", id) }

// EdgeID is the display id of a money-flow edge
func EdgeID(id int64) string { return fmt.Sprintf("T%d", id) }

// ProjectNetwork converts stored call entities and links into the visualization payload.
// Clusters are ordered by id; names and colors are taken from fixed palettes by position.
func ProjectNetwork(entities []domain.CallEntity, links []domain.CallLink) domain.NetworkGraph {
	g := domain.NetworkGraph{
		Entities: make([]domain.GraphEntity, 0, len(entities)),
		Links:    make([]domain.GraphLink, 0, len(links)),
		Clusters: []domain.GraphCluster{},
	}

	members := make(map[int][]string)
	for _, e := range entities {
		id := EntityID(e.ID)
		g.Entities = append(g.Entities, domain.GraphEntity{
			ID:        id,
			Type:      e.EntityType,
			Label:     e.Label,
			SubLabel:  e.Role,
			Risk:      e.RiskLevel,
			ClusterID: e.ClusterID,
			Metadata: domain.EntityMetadata{
				Phone:    e.PhoneNumber,
				Calls:    e.TotalCalls,
				Duration: e.TotalDuration,
			},
		})
		if e.ClusterID != 0 {
			members[e.ClusterID] = append(members[e.ClusterID], id)
		}
		if e.RiskLevel.IsHighRisk() {
			g.Summary.HighRiskCount++
		}
	}

	for _, l := range links {
		g.Links = append(g.Links, domain.GraphLink{
			ID:        LinkID(l.ID),
			Source:    EntityID(l.SourceEntityID),
			Target:    EntityID(l.TargetEntityID),
			Type:      l.LinkType,
			Weight:    l.Weight,
			FirstSeen: l.FirstContact,
			LastSeen:  l.LastContact,
			Metadata: domain.LinkMetadata{
				Calls:    l.CallCount,
				Duration: l.TotalDuration,
			},
		})
	}

	ids := make([]int, 0, len(members))
	for cid := range members {
		ids = append(ids, cid)
	}
	sort.Ints(ids)

	for i, cid := range ids {
		name := fmt.Sprintf("Cluster %d", cid)
		if i < len(clusterNames) {
			name = clusterNames[i]
		}
		level := domain.RiskMedium
		if i < 2 {
			level = domain.RiskHigh
		}
		g.Clusters = append(g.Clusters, domain.GraphCluster{
			ID:       cid,
			Name:     name,
			Color:    clusterColors[i%len(clusterColors)],
			Entities: members[cid],
			Risk:     level,
			Size:     len(members[cid]),
		})
	}

	g.Summary.TotalEntities = len(g.Entities)
	g.Summary.TotalLinks = len(g.Links)
	g.Summary.TotalClusters = len(g.Clusters)
	return g
}

// SummarizeMoneyFlow totals a case's money-flow graph
func SummarizeMoneyFlow(nodes []domain.Node, edges []domain.Edge) domain.MoneyFlowSummary {
	s := domain.MoneyFlowSummary{
		NodeCount: len(nodes),
		EdgeCount: len(edges),
	}
	for _, n := range nodes {
		if n.IsSuspect {
			s.SuspectsCount++
		}
		if n.IsVictim {
			s.VictimsCount++
		}
	}
	for _, e := range edges {
		s.TotalAmount += e.Amount
	}
	return s
}

// ProjectMoneyFlow converts stored nodes and edges into the visualization payload
func ProjectMoneyFlow(nodes []domain.Node, edges []domain.Edge) domain.MoneyFlowView {
	v := domain.MoneyFlowView{
		Nodes:   make([]domain.MoneyFlowGraphNode, 0, len(nodes)),
		Edges:   make([]domain.MoneyFlowGraphEdge, 0, len(edges)),
		Summary: SummarizeMoneyFlow(nodes, edges),
	}
	for _, n := range nodes {
		v.Nodes = append(v.Nodes, domain.MoneyFlowGraphNode{
			ID:         NodeID(n.ID),
			Type:       n.Type,
			Label:      n.Label,
			Identifier: n.Identifier,
			Risk:       domain.LevelForScore(n.RiskScore),
			RiskScore:  n.RiskScore,
			IsSuspect:  n.IsSuspect,
			IsVictim:   n.IsVictim,
			X:          n.PositionX,
			Y:          n.PositionY,
			Color:      n.Color,
			Size:       n.Size,
		})
	}
	for _, e := range edges {
		v.Edges = append(v.Edges, domain.MoneyFlowGraphEdge{
			ID:       EdgeID(e.ID),
			Source:   NodeID(e.FromNodeID),
			Target:   NodeID(e.ToNodeID),
			Type:     e.EdgeType,
			Label:    e.Label,
			Amount:   e.Amount,
			Currency: e.Currency,
			Date:     e.TransactionDate,
		})
	}
	return v
}
