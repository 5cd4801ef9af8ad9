package domain

import "time"

// GraphEntity is a display-ready call network vertex. ID carries the "E" prefix.
type GraphEntity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Label     string         `json:"label"`
	SubLabel  string         `json:"subLabel"`
	Risk      RiskLevel      `json:"risk"`
	ClusterID int            `json:"clusterId"`
	Metadata  EntityMetadata `json:"metadata"`
}

// EntityMetadata carries the aggregated stats shown next to an entity
type EntityMetadata struct {
	Phone    string `json:"phone"`
	Calls    int    `json:"calls"`
	Duration int    `json:"duration"`
}

// GraphLink is a display-ready call network edge. ID carries the "L" prefix.
type GraphLink struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	Target    string       `json:"target"`
	Type      string       `json:"type"`
	Weight    int          `json:"weight"`
	FirstSeen *time.Time   `json:"firstSeen"`
	LastSeen  *time.Time   `json:"lastSeen"`
	Metadata  LinkMetadata `json:"metadata"`
}

// LinkMetadata carries the aggregated stats shown on a link
type LinkMetadata struct {
	Calls    int `json:"calls"`
	Duration int `json:"duration"`
}

// GraphCluster is a named, colored group of entities
type GraphCluster struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Entities    []string  `json:"entities"`
	Risk        RiskLevel `json:"risk"`
	Size        int       `json:"size"`
	Description string    `json:"description"`
}

// NetworkSummary holds integer totals of a projected network
type NetworkSummary struct {
	TotalEntities int `json:"totalEntities"`
	TotalLinks    int `json:"totalLinks"`
	TotalClusters int `json:"totalClusters"`
	HighRiskCount int `json:"highRiskCount"`
}

// NetworkGraph is the call network visualization payload of a case
type NetworkGraph struct {
	Entities []GraphEntity  `json:"entities"`
	Links    []GraphLink    `json:"links"`
	Clusters []GraphCluster `json:"clusters"`
	Summary  NetworkSummary `json:"summary"`
}

// MoneyFlowGraphNode is a display-ready money-flow vertex. ID carries the "N" prefix.
type MoneyFlowGraphNode struct {
	ID         string    `json:"id"`
	Type       NodeType  `json:"type"`
	Label      string    `json:"label"`
	Identifier string    `json:"identifier,omitempty"`
	Risk       RiskLevel `json:"risk"`
	RiskScore  int       `json:"riskScore"`
	IsSuspect  bool      `json:"isSuspect"`
	IsVictim   bool      `json:"isVictim"`
	X          *float64  `json:"x,omitempty"`
	Y          *float64  `json:"y,omitempty"`
	Color      string    `json:"color,omitempty"`
	Size       int       `json:"size"`
}

// MoneyFlowGraphEdge is a display-ready money-flow edge. ID carries the "T" prefix.
type MoneyFlowGraphEdge struct {
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Type     string     `json:"type"`
	Label    string     `json:"label,omitempty"`
	Amount   float64    `json:"amount"`
	Currency string     `json:"currency"`
	Date     *time.Time `json:"date,omitempty"`
}

// MoneyFlowView is the money-flow visualization payload of a case
type MoneyFlowView struct {
	Nodes   []MoneyFlowGraphNode `json:"nodes"`
	Edges   []MoneyFlowGraphEdge `json:"edges"`
	Summary MoneyFlowSummary     `json:"summary"`
}
