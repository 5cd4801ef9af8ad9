package network

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/graph"
	"github.com/investigate/case-graph/internal/repository"
)

const (
	sideEffectTimeout = 5 * time.Second
	maxSearchResults  = 100
)

// Indexer makes generated entities searchable
type Indexer interface {
	IndexNetwork(ctx context.Context, caseID int64, network domain.CallNetwork) error
}

// Archiver stores signed network snapshots and returns the object key
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, snapshot domain.NetworkSnapshot) (string, error)
}

// SnapshotLister is implemented by archivers that can enumerate what they stored
type SnapshotLister interface {
	ListSnapshots(ctx context.Context, caseID int64) ([]string, error)
}

// Mirror copies a generated network into a graph database
type Mirror interface {
	MirrorNetwork(ctx context.Context, caseID int64, network domain.CallNetwork) error
}

// Searcher finds generated entities by free text
type Searcher interface {
	SearchEntities(ctx context.Context, caseID int64, text string, limit int) ([]domain.CallEntity, error)
}

// PathFinder is implemented by mirrors that can answer path queries
type PathFinder interface {
	ShortestPath(ctx context.Context, caseID int64, from, to string) ([]string, error)
}

// Publisher announces domain events
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Sinks are the optional destinations notified after a generation commits. Nil sinks are skipped.
type Sinks struct {
	Indexer   Indexer
	Archiver  Archiver
	Mirror    Mirror
	Publisher Publisher
}

func (k Sinks) empty() bool {
	return k.Indexer == nil && k.Archiver == nil && k.Mirror == nil && k.Publisher == nil
}

// Service owns call records and the call network derived from them
type Service struct {
	cases    repository.CaseStore
	store    repository.CallStore
	signer   *crypto.Signer
	sinks    Sinks
	searcher Searcher
	logger   *zap.Logger
	now      func() time.Time

	locks sync.Map // case id -> *sync.Mutex
	wg    sync.WaitGroup
}

// NewService creates the network service
func NewService(cases repository.CaseStore, store repository.CallStore, signer *crypto.Signer, sinks Sinks, logger *zap.Logger) *Service {
	return &Service{
		cases:  cases,
		store:  store,
		signer: signer,
		sinks:  sinks,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) lock(caseID int64) func() {
	m, _ := s.locks.LoadOrStore(caseID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ImportRecords validates and stores raw call records. The derived network is not touched;
// it is regenerated on demand or lazily on the next network read.
func (s *Service) ImportRecords(ctx context.Context, caseID int64, evidenceID *uuid.UUID, records []domain.CallRecord) (int, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if evidenceID != nil && records[i].EvidenceID == nil {
			records[i].EvidenceID = evidenceID
		}
	}

	n, err := s.store.InsertCallRecords(ctx, caseID, records)
	if err != nil {
		return 0, fmt.Errorf("failed to insert call records: %w", err)
	}

	s.logger.Info("Call records imported", zap.Int64("case_id", caseID), zap.Int("count", n))
	return n, nil
}

// ListRecords returns the raw call records of a case
func (s *Service) ListRecords(ctx context.Context, caseID int64) ([]domain.CallRecord, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListCallRecords(ctx, caseID)
}

// DeleteRecords removes every raw record of a case and clears the derived network with it
func (s *Service) DeleteRecords(ctx context.Context, caseID int64) (int64, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	unlock := s.lock(caseID)
	defer unlock()

	n, err := s.store.DeleteCallRecords(ctx, caseID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete call records: %w", err)
	}
	return n, nil
}

// Regenerate rebuilds the case's entities and links from its current call records.
// Regenerations of one case are serialized; the swap itself is atomic in the store.
func (s *Service) Regenerate(ctx context.Context, caseID int64) (domain.CallNetwork, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return domain.CallNetwork{}, err
	}
	unlock := s.lock(caseID)
	defer unlock()

	return s.regenerate(ctx, caseID)
}

func (s *Service) regenerate(ctx context.Context, caseID int64) (domain.CallNetwork, error) {
	records, err := s.store.ListCallRecords(ctx, caseID)
	if err != nil {
		return domain.CallNetwork{}, fmt.Errorf("failed to list call records: %w", err)
	}

	network := Generate(records)
	network.GenerationID = uuid.New()

	stored, err := s.store.ReplaceCallNetwork(ctx, caseID, network)
	if err != nil {
		s.logger.Error("Call network regeneration failed",
			zap.Int64("case_id", caseID),
			zap.String("generation_id", network.GenerationID.String()),
			zap.Error(err),
		)
		return domain.CallNetwork{}, fmt.Errorf("failed to replace call network: %w", err)
	}

	s.logger.Info("Call network regenerated",
		zap.Int64("case_id", caseID),
		zap.String("generation_id", stored.GenerationID.String()),
		zap.Int("records", len(records)),
		zap.Int("entities", len(stored.Entities)),
		zap.Int("links", len(stored.Links)),
	)

	s.notify(caseID, stored)
	return stored, nil
}

// Network returns the visualization graph of a case. When no entities exist yet but raw
// records do, the network is generated first.
func (s *Service) Network(ctx context.Context, caseID int64) (domain.NetworkGraph, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return domain.NetworkGraph{}, err
	}

	entities, err := s.store.ListCallEntities(ctx, caseID)
	if err != nil {
		return domain.NetworkGraph{}, fmt.Errorf("failed to list call entities: %w", err)
	}
	if len(entities) == 0 {
		network, err := s.materialize(ctx, caseID)
		if err != nil {
			return domain.NetworkGraph{}, err
		}
		return graph.ProjectNetwork(network.Entities, network.Links), nil
	}

	links, err := s.store.ListCallLinks(ctx, caseID)
	if err != nil {
		return domain.NetworkGraph{}, fmt.Errorf("failed to list call links: %w", err)
	}
	return graph.ProjectNetwork(entities, links), nil
}

// materialize generates the network under the case lock unless another request already did
func (s *Service) materialize(ctx context.Context, caseID int64) (domain.CallNetwork, error) {
	unlock := s.lock(caseID)
	defer unlock()

	entities, err := s.store.ListCallEntities(ctx, caseID)
	if err != nil {
		return domain.CallNetwork{}, fmt.Errorf("failed to list call entities: %w", err)
	}
	if len(entities) > 0 {
		links, err := s.store.ListCallLinks(ctx, caseID)
		if err != nil {
			return domain.CallNetwork{}, fmt.Errorf("failed to list call links: %w", err)
		}
		return domain.CallNetwork{GenerationID: entities[0].GenerationID, Entities: entities, Links: links}, nil
	}

	stats, err := s.store.CallStats(ctx, caseID)
	if err != nil {
		return domain.CallNetwork{}, fmt.Errorf("failed to count call records: %w", err)
	}
	if stats.TotalRecords == 0 {
		return domain.CallNetwork{}, nil
	}

	s.logger.Debug("Materializing call network on first read", zap.Int64("case_id", caseID))
	return s.regenerate(ctx, caseID)
}

// Stats summarizes the call data of a case
func (s *Service) Stats(ctx context.Context, caseID int64) (domain.CallStats, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return domain.CallStats{}, err
	}
	return s.store.CallStats(ctx, caseID)
}

// Snapshots lists the archived snapshot keys of a case. Without a listing archiver the
// list is empty.
func (s *Service) Snapshots(ctx context.Context, caseID int64) ([]string, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	lister, ok := s.sinks.Archiver.(SnapshotLister)
	if !ok {
		return []string{}, nil
	}
	keys, err := lister.ListSnapshots(ctx, caseID)
	if err != nil {
		return nil, domain.UpstreamError("snapshot archive", err)
	}
	return keys, nil
}

// Path returns the shortest call chain between two identifiers of a case. The graph mirror
// answers when it can; otherwise the stored links are searched directly.
func (s *Service) Path(ctx context.Context, caseID int64, from, to string) ([]string, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, domain.ValidationError("both from and to are required")
	}

	if finder, ok := s.sinks.Mirror.(PathFinder); ok {
		path, err := finder.ShortestPath(ctx, caseID, from, to)
		if err == nil {
			return path, nil
		}
		s.logger.Warn("Graph mirror path query failed, searching stored links",
			zap.Int64("case_id", caseID),
			zap.Error(err),
		)
	}

	links, err := s.store.ListCallLinks(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call links: %w", err)
	}
	path := graph.ShortestPath(links, from, to)
	if path == nil {
		path = []string{}
	}
	return path, nil
}

// WithSearcher routes entity search to an external index
func (s *Service) WithSearcher(searcher Searcher) *Service {
	s.searcher = searcher
	return s
}

// SearchEntities finds entities of a case whose phone number, label or name contains text.
// Without an external index, or when it fails, the stored entities are filtered in memory.
func (s *Service) SearchEntities(ctx context.Context, caseID int64, text string, limit int) ([]domain.CallEntity, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ValidationError("search text is required")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}

	if s.searcher != nil {
		found, err := s.searcher.SearchEntities(ctx, caseID, text, limit)
		if err == nil {
			return found, nil
		}
		s.logger.Warn("Entity index search failed, filtering stored entities",
			zap.Int64("case_id", caseID),
			zap.Error(err),
		)
	}

	entities, err := s.store.ListCallEntities(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call entities: %w", err)
	}
	needle := strings.ToLower(text)
	found := []domain.CallEntity{}
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.PhoneNumber), needle) ||
			strings.Contains(strings.ToLower(e.Label), needle) ||
			strings.Contains(strings.ToLower(e.PersonName), needle) {
			found = append(found, e)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].RiskScore != found[j].RiskScore {
			return found[i].RiskScore > found[j].RiskScore
		}
		return found[i].TotalCalls > found[j].TotalCalls
	})
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

// Wait blocks until every pending side effect has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// notify runs the configured sinks in the background with panic protection.
// Sink failures are logged; the generation is already committed.
func (s *Service) notify(caseID int64, network domain.CallNetwork) {
	if s.sinks.empty() {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in network side effects", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		log := s.logger.With(
			zap.Int64("case_id", caseID),
			zap.String("generation_id", network.GenerationID.String()),
		)

		if s.sinks.Indexer != nil {
			if err := s.sinks.Indexer.IndexNetwork(ctx, caseID, network); err != nil {
				log.Error("Failed to index call network", zap.Error(err))
			}
		}
		if s.sinks.Mirror != nil {
			if err := s.sinks.Mirror.MirrorNetwork(ctx, caseID, network); err != nil {
				log.Error("Failed to mirror call network", zap.Error(err))
			}
		}
		if s.sinks.Archiver != nil {
			snapshot, err := s.Snapshot(caseID, network)
			if err != nil {
				log.Error("Failed to build network snapshot", zap.Error(err))
			} else if key, err := s.sinks.Archiver.ArchiveSnapshot(ctx, snapshot); err != nil {
				log.Error("Failed to archive network snapshot", zap.Error(err))
			} else {
				log.Info("Network snapshot archived", zap.String("key", key))
			}
		}
		if s.sinks.Publisher != nil {
			event := domain.NetworkRegenerated{
				CaseID:       caseID,
				GenerationID: network.GenerationID,
				Entities:     len(network.Entities),
				Links:        len(network.Links),
				GeneratedAt:  s.now().UTC(),
			}
			for _, e := range network.Entities {
				if e.RiskLevel.IsHighRisk() {
					event.HighRisk++
				}
			}
			if err := s.sinks.Publisher.Publish(ctx, domain.SubjectNetworkRegenerated, event); err != nil {
				log.Warn("Failed to publish network event", zap.Error(err))
			}
		}
	}()
}

// Snapshot builds the signed archive form of a generation
func (s *Service) Snapshot(caseID int64, network domain.CallNetwork) (domain.NetworkSnapshot, error) {
	snapshot := domain.NetworkSnapshot{
		CaseID:       caseID,
		GenerationID: network.GenerationID,
		GeneratedAt:  s.now().UTC(),
		Entities:     network.Entities,
		Links:        network.Links,
	}

	content, err := json.Marshal(struct {
		Entities []domain.CallEntity `json:"entities"`
		Links    []domain.CallLink   `json:"links"`
	}{network.Entities, network.Links})
	if err != nil {
		return domain.NetworkSnapshot{}, fmt.Errorf("failed to marshal network: %w", err)
	}

	snapshot.Digest = crypto.SHA256Hex(content)
	if s.signer != nil {
		snapshot.Signature = s.signer.SignSnapshot(caseID, network.GenerationID.String(), snapshot.Digest)
	}
	return snapshot, nil
}
