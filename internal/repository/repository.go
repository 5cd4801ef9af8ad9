// Package repository defines the case-scoped stores the services depend on.
// The postgres package is the production implementation; the memory package backs tests
// and the memory driver.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/investigate/case-graph/internal/domain"
)

// CaseStore holds investigation cases
type CaseStore interface {
	CreateCase(ctx context.Context, c *domain.Case) error
	GetCase(ctx context.Context, id int64) (*domain.Case, error)
	ListCases(ctx context.Context) ([]domain.Case, error)
}

// MoneyFlowStore holds the manually curated money-flow graph
type MoneyFlowStore interface {
	CreateNode(ctx context.Context, n *domain.Node) error
	GetNode(ctx context.Context, caseID, id int64) (*domain.Node, error)
	ListNodes(ctx context.Context, caseID int64) ([]domain.Node, error)
	UpdateNode(ctx context.Context, n *domain.Node) error
	// DeleteNode removes the node and every edge incident to it
	DeleteNode(ctx context.Context, caseID, id int64) error
	CreateEdge(ctx context.Context, e *domain.Edge) error
	GetEdge(ctx context.Context, caseID, id int64) (*domain.Edge, error)
	UpdateEdge(ctx context.Context, e *domain.Edge) error
	ListEdges(ctx context.Context, caseID int64) ([]domain.Edge, error)
	DeleteEdge(ctx context.Context, caseID, id int64) error
}

// CallStore holds raw call records and the network derived from them
type CallStore interface {
	InsertCallRecords(ctx context.Context, caseID int64, records []domain.CallRecord) (int, error)
	ListCallRecords(ctx context.Context, caseID int64) ([]domain.CallRecord, error)
	// DeleteCallRecords removes the case's records and its derived entities and links in one step.
	DeleteCallRecords(ctx context.Context, caseID int64) (int64, error)
	// ReplaceCallNetwork atomically swaps the case's derived entities and links for the given
	// network. Readers see either the previous generation or the new one, never a mix.
	// The returned network carries storage ids and resolved link endpoints.
	ReplaceCallNetwork(ctx context.Context, caseID int64, network domain.CallNetwork) (domain.CallNetwork, error)
	ListCallEntities(ctx context.Context, caseID int64) ([]domain.CallEntity, error)
	ListCallLinks(ctx context.Context, caseID int64) ([]domain.CallLink, error)
	CallStats(ctx context.Context, caseID int64) (domain.CallStats, error)
}

// CryptoStore holds imported transactions and the wallets aggregated from them
type CryptoStore interface {
	InsertCryptoTransactions(ctx context.Context, caseID int64, txs []domain.CryptoTransaction) (int, error)
	ListCryptoTransactions(ctx context.Context, caseID int64) ([]domain.CryptoTransaction, error)
	DeleteCryptoTransactions(ctx context.Context, caseID int64) (int64, error)
	ReplaceCryptoWallets(ctx context.Context, caseID int64, wallets []domain.CryptoWallet) ([]domain.CryptoWallet, error)
	ListCryptoWallets(ctx context.Context, caseID int64) ([]domain.CryptoWallet, error)
}

// LocationStore holds location points and clusters
type LocationStore interface {
	InsertLocationPoints(ctx context.Context, caseID int64, points []domain.LocationPoint) (int, error)
	// ListLocationPoints returns points ordered by timestamp, undated points last
	ListLocationPoints(ctx context.Context, caseID int64) ([]domain.LocationPoint, error)
	DeleteLocationPoints(ctx context.Context, caseID int64) (int64, error)
	CreateLocationCluster(ctx context.Context, c *domain.LocationCluster) error
	ListLocationClusters(ctx context.Context, caseID int64) ([]domain.LocationCluster, error)
	// ReplaceDetectedClusters swaps detected clusters and leaves manual ones untouched
	ReplaceDetectedClusters(ctx context.Context, caseID int64, clusters []domain.LocationCluster) ([]domain.LocationCluster, error)
}

// EvidenceStore is the append-only chain-of-custody log
type EvidenceStore interface {
	CreateEvidence(ctx context.Context, e *domain.Evidence) error
	GetEvidence(ctx context.Context, caseID int64, id uuid.UUID) (*domain.Evidence, error)
	FindEvidenceByHash(ctx context.Context, sha256Hex string) (*domain.Evidence, error)
	ListEvidence(ctx context.Context, caseID int64) ([]domain.Evidence, error)
}

// CredentialStore holds encrypted provider API keys
type CredentialStore interface {
	GetCredential(ctx context.Context, provider domain.ProviderName) (*domain.ProviderCredential, error)
	UpsertCredential(ctx context.Context, c *domain.ProviderCredential) error
	DeleteCredential(ctx context.Context, provider domain.ProviderName) error
	ListCredentials(ctx context.Context) ([]domain.ProviderCredential, error)
}

// Store is the full persistence surface
type Store interface {
	CaseStore
	MoneyFlowStore
	CallStore
	CryptoStore
	LocationStore
	EvidenceStore
	CredentialStore
	Close()
}
