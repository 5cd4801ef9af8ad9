package domain

import (
	"strings"
	"time"
)

// NodeType represents the kind of party in a money-flow graph
type NodeType string

const (
	NodeTypePerson       NodeType = "person"
	NodeTypeBankAccount  NodeType = "bank_account"
	NodeTypePhone        NodeType = "phone"
	NodeTypeCryptoWallet NodeType = "crypto_wallet"
	NodeTypeCompany      NodeType = "company"
	NodeTypeMuleAccount  NodeType = "mule_account"
	NodeTypeGamblingSite NodeType = "gambling_site"
	NodeTypeExchange     NodeType = "exchange"
	NodeTypePromptPay    NodeType = "promptpay"
	NodeTypeTrueMoney    NodeType = "truemoney"
	NodeTypeUnknown      NodeType = "unknown"
)

var nodeTypes = map[string]NodeType{
	"person":        NodeTypePerson,
	"bank_account":  NodeTypeBankAccount,
	"phone":         NodeTypePhone,
	"crypto_wallet": NodeTypeCryptoWallet,
	"company":       NodeTypeCompany,
	"mule_account":  NodeTypeMuleAccount,
	"gambling_site": NodeTypeGamblingSite,
	"exchange":      NodeTypeExchange,
	"promptpay":     NodeTypePromptPay,
	"truemoney":     NodeTypeTrueMoney,
}

// ParseNodeType maps free text onto a NodeType, falling back to unknown
func ParseNodeType(s string) NodeType {
	if t, ok := nodeTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return NodeTypeUnknown
}

const (
	DefaultEdgeCurrency = "THB"
	DefaultEdgeType     = "transfer"
)

// Node is a manually curated vertex of a case's money-flow graph
type Node struct {
	ID            int64     `json:"id" db:"id"`
	CaseID        int64     `json:"case_id" db:"case_id"`
	Type          NodeType  `json:"node_type" db:"node_type"`
	Label         string    `json:"label" db:"label"`
	Identifier    string    `json:"identifier,omitempty" db:"identifier"`
	BankName      string    `json:"bank_name,omitempty" db:"bank_name"`
	AccountName   string    `json:"account_name,omitempty" db:"account_name"`
	PhoneNumber   string    `json:"phone_number,omitempty" db:"phone_number"`
	Blockchain    string    `json:"blockchain,omitempty" db:"blockchain"`
	WalletAddress string    `json:"wallet_address,omitempty" db:"wallet_address"`
	RiskScore     int       `json:"risk_score" db:"risk_score"` // 0-100
	IsSuspect     bool      `json:"is_suspect" db:"is_suspect"`
	IsVictim      bool      `json:"is_victim" db:"is_victim"`
	PositionX     *float64  `json:"x_position,omitempty" db:"x_position"`
	PositionY     *float64  `json:"y_position,omitempty" db:"y_position"`
	Color         string    `json:"color,omitempty" db:"color"`
	Size          int       `json:"size" db:"size"`
	Notes         string    `json:"notes,omitempty" db:"notes"`
	Source        string    `json:"source,omitempty" db:"source"` // manual, import
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks field ranges and fills defaults
func (n *Node) Validate() error {
	if strings.TrimSpace(n.Label) == "" {
		return ValidationError("node label is required")
	}
	if n.RiskScore < 0 || n.RiskScore > 100 {
		return ValidationError("node risk_score %d out of range 0-100", n.RiskScore)
	}
	n.Type = ParseNodeType(string(n.Type))
	if n.Size == 0 {
		n.Size = 40
	}
	return nil
}

// Edge is a transfer between two nodes of the same case. Duplicates and self-loops are allowed.
type Edge struct {
	ID              int64      `json:"id" db:"id"`
	CaseID          int64      `json:"case_id" db:"case_id"`
	FromNodeID      int64      `json:"from_node_id" db:"from_node_id"`
	ToNodeID        int64      `json:"to_node_id" db:"to_node_id"`
	Amount          float64    `json:"amount" db:"amount"`
	Currency        string     `json:"currency" db:"currency"`
	TransactionDate *time.Time `json:"transaction_date,omitempty" db:"transaction_date"`
	TransactionRef  string     `json:"transaction_ref,omitempty" db:"transaction_ref"`
	Label           string     `json:"label,omitempty" db:"label"`
	EdgeType        string     `json:"edge_type" db:"edge_type"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks field ranges and fills defaults
func (e *Edge) Validate() error {
	if e.FromNodeID == 0 || e.ToNodeID == 0 {
		return ValidationError("edge requires from_node_id and to_node_id")
	}
	if e.Amount < 0 {
		return ValidationError("edge amount must not be negative")
	}
	if e.Currency == "" {
		e.Currency = DefaultEdgeCurrency
	}
	if e.EdgeType == "" {
		e.EdgeType = DefaultEdgeType
	}
	return nil
}

// MoneyFlowSummary aggregates a case's money-flow graph
type MoneyFlowSummary struct {
	TotalAmount   float64 `json:"total_amount"`
	NodeCount     int     `json:"node_count"`
	EdgeCount     int     `json:"edge_count"`
	SuspectsCount int     `json:"suspects_count"`
	VictimsCount  int     `json:"victims_count"`
}

// MoneyFlowGraph is the full money-flow view of a case
type MoneyFlowGraph struct {
	Nodes   []Node           `json:"nodes"`
	Edges   []Edge           `json:"edges"`
	Summary MoneyFlowSummary `json:"summary"`
}
