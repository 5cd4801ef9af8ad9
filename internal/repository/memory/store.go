// Package memory is an in-process Store used by tests and the memory database driver
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/investigate/case-graph/internal/domain"
)

// Store keeps every table in maps guarded by one lock
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	cases       map[int64]domain.Case
	nodes       map[int64]domain.Node
	edges       map[int64]domain.Edge
	calls       map[int64]domain.CallRecord
	entities    map[int64][]domain.CallEntity
	links       map[int64][]domain.CallLink
	cryptoTxs   map[int64]domain.CryptoTransaction
	wallets     map[int64][]domain.CryptoWallet
	points      map[int64]domain.LocationPoint
	clusters    map[int64]domain.LocationCluster
	evidence    map[uuid.UUID]domain.Evidence
	credentials map[domain.ProviderName]domain.ProviderCredential
}

// New creates an empty store
func New() *Store {
	return &Store{
		now:         time.Now,
		cases:       make(map[int64]domain.Case),
		nodes:       make(map[int64]domain.Node),
		edges:       make(map[int64]domain.Edge),
		calls:       make(map[int64]domain.CallRecord),
		entities:    make(map[int64][]domain.CallEntity),
		links:       make(map[int64][]domain.CallLink),
		cryptoTxs:   make(map[int64]domain.CryptoTransaction),
		wallets:     make(map[int64][]domain.CryptoWallet),
		points:      make(map[int64]domain.LocationPoint),
		clusters:    make(map[int64]domain.LocationCluster),
		evidence:    make(map[uuid.UUID]domain.Evidence),
		credentials: make(map[domain.ProviderName]domain.ProviderCredential),
	}
}

// Close implements repository.Store
func (s *Store) Close() {}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// sortedByID returns the values of m accepted by keep, ordered by id
func sortedByID[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// Cases

func (s *Store) CreateCase(_ context.Context, c *domain.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cases {
		if existing.CaseNumber == c.CaseNumber {
			return domain.ValidationError("case number %s already exists", c.CaseNumber)
		}
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now().UTC()
	c.UpdatedAt = c.CreatedAt
	s.cases[c.ID] = *c
	return nil
}

func (s *Store) GetCase(_ context.Context, id int64) (*domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, domain.NotFoundError("case", id)
	}
	return &c, nil
}

func (s *Store) ListCases(context.Context) ([]domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.cases, func(domain.Case) bool { return true }), nil
}

// Money flow

func (s *Store) CreateNode(_ context.Context, n *domain.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID()
	n.CreatedAt = s.now().UTC()
	n.UpdatedAt = n.CreatedAt
	s.nodes[n.ID] = *n
	return nil
}

func (s *Store) GetNode(_ context.Context, caseID, id int64) (*domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok || n.CaseID != caseID {
		return nil, domain.NotFoundError("node", id)
	}
	return &n, nil
}

func (s *Store) ListNodes(_ context.Context, caseID int64) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.nodes, func(n domain.Node) bool { return n.CaseID == caseID }), nil
}

func (s *Store) UpdateNode(_ context.Context, n *domain.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.nodes[n.ID]
	if !ok || existing.CaseID != n.CaseID {
		return domain.NotFoundError("node", n.ID)
	}
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = s.now().UTC()
	s.nodes[n.ID] = *n
	return nil
}

func (s *Store) DeleteNode(_ context.Context, caseID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok || n.CaseID != caseID {
		return domain.NotFoundError("node", id)
	}
	delete(s.nodes, id)
	for eid, e := range s.edges {
		if e.FromNodeID == id || e.ToNodeID == id {
			delete(s.edges, eid)
		}
	}
	return nil
}

func (s *Store) CreateEdge(_ context.Context, e *domain.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nid := range []int64{e.FromNodeID, e.ToNodeID} {
		if n, ok := s.nodes[nid]; !ok || n.CaseID != e.CaseID {
			return domain.ValidationError("node %d does not belong to case %d", nid, e.CaseID)
		}
	}
	e.ID = s.nextID()
	e.CreatedAt = s.now().UTC()
	s.edges[e.ID] = *e
	return nil
}

func (s *Store) GetEdge(_ context.Context, caseID, id int64) (*domain.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok || e.CaseID != caseID {
		return nil, domain.NotFoundError("edge", id)
	}
	return &e, nil
}

func (s *Store) UpdateEdge(_ context.Context, e *domain.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.edges[e.ID]
	if !ok || existing.CaseID != e.CaseID {
		return domain.NotFoundError("edge", e.ID)
	}
	e.CreatedAt = existing.CreatedAt
	s.edges[e.ID] = *e
	return nil
}

func (s *Store) ListEdges(_ context.Context, caseID int64) ([]domain.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.edges, func(e domain.Edge) bool { return e.CaseID == caseID }), nil
}

func (s *Store) DeleteEdge(_ context.Context, caseID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok || e.CaseID != caseID {
		return domain.NotFoundError("edge", id)
	}
	delete(s.edges, id)
	return nil
}

// Calls

func (s *Store) InsertCallRecords(_ context.Context, caseID int64, records []domain.CallRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, r := range records {
		r.ID = s.nextID()
		r.CaseID = caseID
		r.CreatedAt = now
		s.calls[r.ID] = r
	}
	return len(records), nil
}

func (s *Store) ListCallRecords(_ context.Context, caseID int64) ([]domain.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.calls, func(r domain.CallRecord) bool { return r.CaseID == caseID }), nil
}

func (s *Store) DeleteCallRecords(_ context.Context, caseID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.calls {
		if r.CaseID == caseID {
			delete(s.calls, id)
			n++
		}
	}
	delete(s.entities, caseID)
	delete(s.links, caseID)
	return n, nil
}

func (s *Store) ReplaceCallNetwork(_ context.Context, caseID int64, network domain.CallNetwork) (domain.CallNetwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.CallNetwork{
		GenerationID: network.GenerationID,
		Entities:     make([]domain.CallEntity, len(network.Entities)),
		Links:        make([]domain.CallLink, len(network.Links)),
	}
	ids := make(map[string]int64, len(network.Entities))
	for i, e := range network.Entities {
		e.ID = s.nextID()
		e.CaseID = caseID
		e.GenerationID = network.GenerationID
		ids[e.PhoneNumber] = e.ID
		out.Entities[i] = e
	}
	for i, l := range network.Links {
		src, ok := ids[l.SourceIdentifier]
		if !ok {
			return domain.CallNetwork{}, domain.ValidationError("link source %s has no entity", l.SourceIdentifier)
		}
		dst, ok := ids[l.TargetIdentifier]
		if !ok {
			return domain.CallNetwork{}, domain.ValidationError("link target %s has no entity", l.TargetIdentifier)
		}
		l.ID = s.nextID()
		l.CaseID = caseID
		l.GenerationID = network.GenerationID
		l.SourceEntityID = src
		l.TargetEntityID = dst
		out.Links[i] = l
	}

	s.entities[caseID] = out.Entities
	s.links[caseID] = out.Links
	return out, nil
}

func (s *Store) ListCallEntities(_ context.Context, caseID int64) ([]domain.CallEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CallEntity{}, s.entities[caseID]...), nil
}

func (s *Store) ListCallLinks(_ context.Context, caseID int64) ([]domain.CallLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CallLink{}, s.links[caseID]...), nil
}

func (s *Store) CallStats(_ context.Context, caseID int64) (domain.CallStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.CallStats{
		TotalEntities: len(s.entities[caseID]),
		TotalLinks:    len(s.links[caseID]),
	}
	for _, r := range s.calls {
		if r.CaseID == caseID {
			stats.TotalRecords++
			stats.TotalDurationSeconds += int64(r.DurationSeconds)
		}
	}
	stats.TotalDurationHours = math.Round(float64(stats.TotalDurationSeconds)/3600*100) / 100
	return stats, nil
}

// Crypto

func (s *Store) InsertCryptoTransactions(_ context.Context, caseID int64, txs []domain.CryptoTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, t := range txs {
		t.ID = s.nextID()
		t.CaseID = caseID
		t.CreatedAt = now
		s.cryptoTxs[t.ID] = t
	}
	return len(txs), nil
}

func (s *Store) ListCryptoTransactions(_ context.Context, caseID int64) ([]domain.CryptoTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.cryptoTxs, func(t domain.CryptoTransaction) bool { return t.CaseID == caseID }), nil
}

func (s *Store) DeleteCryptoTransactions(_ context.Context, caseID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.cryptoTxs {
		if t.CaseID == caseID {
			delete(s.cryptoTxs, id)
			n++
		}
	}
	delete(s.wallets, caseID)
	return n, nil
}

func (s *Store) ReplaceCryptoWallets(_ context.Context, caseID int64, wallets []domain.CryptoWallet) ([]domain.CryptoWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	out := make([]domain.CryptoWallet, len(wallets))
	for i, w := range wallets {
		w.ID = s.nextID()
		w.CaseID = caseID
		w.UpdatedAt = now
		out[i] = w
	}
	s.wallets[caseID] = out
	return append([]domain.CryptoWallet{}, out...), nil
}

func (s *Store) ListCryptoWallets(_ context.Context, caseID int64) ([]domain.CryptoWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CryptoWallet{}, s.wallets[caseID]...), nil
}

// Locations

func (s *Store) InsertLocationPoints(_ context.Context, caseID int64, points []domain.LocationPoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	for _, p := range points {
		p.ID = s.nextID()
		p.CaseID = caseID
		p.CreatedAt = now
		s.points[p.ID] = p
	}
	return len(points), nil
}

func (s *Store) ListLocationPoints(_ context.Context, caseID int64) ([]domain.LocationPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortedByID(s.points, func(p domain.LocationPoint) bool { return p.CaseID == caseID })
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Timestamp, out[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out, nil
}

func (s *Store) DeleteLocationPoints(_ context.Context, caseID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.points {
		if p.CaseID == caseID {
			delete(s.points, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateLocationCluster(_ context.Context, c *domain.LocationCluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID()
	s.clusters[c.ID] = *c
	return nil
}

func (s *Store) ListLocationClusters(_ context.Context, caseID int64) ([]domain.LocationCluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.clusters, func(c domain.LocationCluster) bool { return c.CaseID == caseID }), nil
}

func (s *Store) ReplaceDetectedClusters(_ context.Context, caseID int64, clusters []domain.LocationCluster) ([]domain.LocationCluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clusters {
		if c.CaseID == caseID && c.Detected {
			delete(s.clusters, id)
		}
	}
	out := make([]domain.LocationCluster, len(clusters))
	for i, c := range clusters {
		c.ID = s.nextID()
		c.CaseID = caseID
		c.Detected = true
		s.clusters[c.ID] = c
		out[i] = c
	}
	return out, nil
}

// Evidence

func (s *Store) CreateEvidence(_ context.Context, e *domain.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.evidence[e.ID]; ok {
		return domain.ValidationError("evidence %s already registered", e.ID)
	}
	s.evidence[e.ID] = *e
	return nil
}

func (s *Store) GetEvidence(_ context.Context, caseID int64, id uuid.UUID) (*domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evidence[id]
	if !ok || e.CaseID != caseID {
		return nil, domain.NotFoundError("evidence", id)
	}
	return &e, nil
}

func (s *Store) FindEvidenceByHash(_ context.Context, sha256Hex string) (*domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *domain.Evidence
	for _, e := range s.evidence {
		if strings.EqualFold(e.SHA256, sha256Hex) && (found == nil || e.CollectedAt.Before(found.CollectedAt)) {
			found = &e
		}
	}
	if found == nil {
		return nil, domain.NotFoundError("evidence with hash", sha256Hex)
	}
	return found, nil
}

func (s *Store) ListEvidence(_ context.Context, caseID int64) ([]domain.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Evidence, 0)
	for _, e := range s.evidence {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CollectedAt.Before(out[j].CollectedAt) })
	return out, nil
}

// Credentials

func (s *Store) GetCredential(_ context.Context, provider domain.ProviderName) (*domain.ProviderCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[provider]
	if !ok {
		return nil, domain.NotFoundError("credential", provider)
	}
	return &c, nil
}

func (s *Store) UpsertCredential(_ context.Context, c *domain.ProviderCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = s.now().UTC()
	s.credentials[c.Provider] = *c
	return nil
}

func (s *Store) DeleteCredential(_ context.Context, provider domain.ProviderName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[provider]; !ok {
		return domain.NotFoundError("credential", provider)
	}
	delete(s.credentials, provider)
	return nil
}

func (s *Store) ListCredentials(context.Context) ([]domain.ProviderCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ProviderCredential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}
