package network

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/repository/memory"
)

type recordingSinks struct {
	mu        sync.Mutex
	indexed   []domain.CallNetwork
	snapshots []domain.NetworkSnapshot
	subjects  []string
	payloads  []any
	archErr   error
}

func (r *recordingSinks) IndexNetwork(_ context.Context, _ int64, n domain.CallNetwork) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = append(r.indexed, n)
	return nil
}

func (r *recordingSinks) ArchiveSnapshot(_ context.Context, s domain.NetworkSnapshot) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.archErr != nil {
		return "", r.archErr
	}
	r.snapshots = append(r.snapshots, s)
	return "snapshots/key.json", nil
}

func (r *recordingSinks) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, payload)
	return nil
}

type failingStore struct {
	*memory.Store
}

func (failingStore) ReplaceCallNetwork(context.Context, int64, domain.CallNetwork) (domain.CallNetwork, error) {
	return domain.CallNetwork{}, errors.New("connection reset")
}

func newTestService(t *testing.T, sinks Sinks) (*Service, *memory.Store, int64) {
	t.Helper()
	store := memory.New()
	c := &domain.Case{CaseNumber: "CASE-2024-001", Title: "Call center scam"}
	require.NoError(t, c.Validate())
	require.NoError(t, store.CreateCase(context.Background(), c))

	signer, err := crypto.NewSigner("test-secret")
	require.NoError(t, err)
	return NewService(store, store, signer, sinks, zap.NewNop()), store, c.ID
}

func TestService_LazyMaterialization(t *testing.T) {
	ctx := context.Background()
	svc, store, caseID := newTestService(t, Sinks{})

	g, err := svc.Network(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, g.Entities, "no records, nothing generated")

	_, err = svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)

	entities, err := store.ListCallEntities(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, entities, "import does not generate")

	g, err = svc.Network(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Summary.TotalEntities)
	assert.Equal(t, 2, g.Summary.TotalLinks)
	assert.Equal(t, 2, g.Summary.HighRiskCount)

	again, err := svc.Network(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, g, again, "second read serves the stored generation")
}

func TestService_RegenerateReplaces(t *testing.T) {
	ctx := context.Background()
	svc, store, caseID := newTestService(t, Sinks{})

	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)

	first, err := svc.Regenerate(ctx, caseID)
	require.NoError(t, err)
	second, err := svc.Regenerate(ctx, caseID)
	require.NoError(t, err)

	assert.NotEqual(t, first.GenerationID, second.GenerationID)
	require.Len(t, second.Entities, len(first.Entities))
	for i := range first.Entities {
		a, b := first.Entities[i], second.Entities[i]
		assert.Equal(t, a.PhoneNumber, b.PhoneNumber)
		assert.Equal(t, a.TotalCalls, b.TotalCalls)
		assert.Equal(t, a.ClusterID, b.ClusterID)
		assert.Equal(t, a.RiskScore, b.RiskScore)
	}

	entities, err := store.ListCallEntities(ctx, caseID)
	require.NoError(t, err)
	assert.Len(t, entities, 3, "regeneration is not additive")
	for _, e := range entities {
		assert.Equal(t, second.GenerationID, e.GenerationID)
	}
}

func TestService_ConcurrentRegenerate(t *testing.T) {
	ctx := context.Background()
	svc, store, caseID := newTestService(t, Sinks{})
	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Regenerate(ctx, caseID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entities, err := store.ListCallEntities(ctx, caseID)
	require.NoError(t, err)
	links, err := store.ListCallLinks(ctx, caseID)
	require.NoError(t, err)
	assert.Len(t, entities, 3)
	assert.Len(t, links, 2)
	assert.Equal(t, entities[0].GenerationID, links[0].GenerationID)
}

func TestService_FailedRegenerationKeepsPreviousGeneration(t *testing.T) {
	ctx := context.Background()
	svc, store, caseID := newTestService(t, Sinks{})
	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)
	prev, err := svc.Regenerate(ctx, caseID)
	require.NoError(t, err)

	broken := NewService(store, failingStore{store}, nil, Sinks{}, zap.NewNop())
	_, err = broken.Regenerate(ctx, caseID)
	require.Error(t, err)

	entities, err := store.ListCallEntities(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, prev.GenerationID, entities[0].GenerationID)
}

func TestService_SinksReceiveGeneration(t *testing.T) {
	ctx := context.Background()
	sinks := &recordingSinks{}
	svc, _, caseID := newTestService(t, Sinks{Indexer: sinks, Archiver: sinks, Publisher: sinks})
	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)

	network, err := svc.Regenerate(ctx, caseID)
	require.NoError(t, err)
	svc.Wait()

	sinks.mu.Lock()
	defer sinks.mu.Unlock()
	require.Len(t, sinks.indexed, 1)
	assert.Equal(t, network.GenerationID, sinks.indexed[0].GenerationID)

	require.Len(t, sinks.snapshots, 1)
	snap := sinks.snapshots[0]
	signer, _ := crypto.NewSigner("test-secret")
	assert.True(t, signer.Verify(snap.Signature, "1", network.GenerationID.String(), snap.Digest))
	assert.Len(t, snap.Digest, 64)

	require.Equal(t, []string{domain.SubjectNetworkRegenerated}, sinks.subjects)
	event := sinks.payloads[0].(domain.NetworkRegenerated)
	assert.Equal(t, 3, event.Entities)
	assert.Equal(t, 2, event.HighRisk)
}

func TestService_SinkFailureDoesNotFailRegeneration(t *testing.T) {
	ctx := context.Background()
	sinks := &recordingSinks{archErr: errors.New("bucket missing")}
	svc, _, caseID := newTestService(t, Sinks{Archiver: sinks, Publisher: sinks})
	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)

	_, err = svc.Regenerate(ctx, caseID)
	require.NoError(t, err)
	svc.Wait()

	sinks.mu.Lock()
	defer sinks.mu.Unlock()
	assert.Empty(t, sinks.snapshots)
	assert.Len(t, sinks.subjects, 1)
}

func TestService_SnapshotDigestIsStable(t *testing.T) {
	svc, _, _ := newTestService(t, Sinks{})
	n := Generate(scenarioRecords())
	svc.now = func() time.Time { return time.Unix(0, 0) }

	a, err := svc.Snapshot(1, n)
	require.NoError(t, err)
	b, err := svc.Snapshot(1, n)
	require.NoError(t, err)
	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, a.Signature, b.Signature)

	c, err := svc.Snapshot(2, n)
	require.NoError(t, err)
	assert.Equal(t, a.Digest, c.Digest)
	assert.NotEqual(t, a.Signature, c.Signature)
}

func TestService_UnknownCase(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, Sinks{})

	_, err := svc.Network(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.ImportRecords(ctx, 999, nil, scenarioRecords())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ImportValidatesAndDeleteClears(t *testing.T) {
	ctx := context.Background()
	svc, _, caseID := newTestService(t, Sinks{})

	_, err := svc.ImportRecords(ctx, caseID, nil, []domain.CallRecord{{DeviceNumber: "D", PartnerNumber: "  "}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)
	_, err = svc.Regenerate(ctx, caseID)
	require.NoError(t, err)

	n, err := svc.DeleteRecords(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, int64(63), n)

	g, err := svc.Network(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, g.Entities)

	stats, err := svc.Stats(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStats{}, stats)
}

func TestService_DeleteRecordsIsOneStoreStep(t *testing.T) {
	ctx := context.Background()
	svc, store, caseID := newTestService(t, Sinks{})

	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)
	_, err = svc.Regenerate(ctx, caseID)
	require.NoError(t, err)

	signer, err := crypto.NewSigner("test-secret")
	require.NoError(t, err)
	broken := failingStore{store}
	n, err := NewService(store, broken, signer, Sinks{}, zap.NewNop()).DeleteRecords(ctx, caseID)
	require.NoError(t, err, "deleting records does not need a network replacement")
	assert.Equal(t, int64(63), n)

	entities, err := store.ListCallEntities(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, entities)
	records, err := store.ListCallRecords(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

type brokenSearcher struct{ calls int }

func (b *brokenSearcher) SearchEntities(context.Context, int64, string, int) ([]domain.CallEntity, error) {
	b.calls++
	return nil, errors.New("index unavailable")
}

func TestService_SearchEntitiesFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	searcher := &brokenSearcher{}
	svc, _, caseID := newTestService(t, Sinks{})
	svc.WithSearcher(searcher)

	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)
	_, err = svc.Regenerate(ctx, caseID)
	require.NoError(t, err)

	found, err := svc.SearchEntities(ctx, caseID, "p", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.calls)
	require.Len(t, found, 2)
	assert.Equal(t, "P2", found[0].PhoneNumber, "riskier entities first")
	assert.Equal(t, "P1", found[1].PhoneNumber)

	found, err = svc.SearchEntities(ctx, caseID, "P", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = svc.SearchEntities(ctx, caseID, "  ", 10)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

type listingArchiver struct {
	recordingSinks
	keys []string
}

func (l *listingArchiver) ListSnapshots(context.Context, int64) ([]string, error) {
	return l.keys, nil
}

func TestService_Snapshots(t *testing.T) {
	ctx := context.Background()

	svc, _, caseID := newTestService(t, Sinks{Archiver: &recordingSinks{}})
	keys, err := svc.Snapshots(ctx, caseID)
	require.NoError(t, err)
	assert.Empty(t, keys)

	svc, _, caseID = newTestService(t, Sinks{Archiver: &listingArchiver{keys: []string{"cases/1/networks/a.json"}}})
	keys, err = svc.Snapshots(ctx, caseID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cases/1/networks/a.json"}, keys)
}

func TestService_PathOverStoredLinks(t *testing.T) {
	ctx := context.Background()
	svc, _, caseID := newTestService(t, Sinks{})
	_, err := svc.ImportRecords(ctx, caseID, nil, scenarioRecords())
	require.NoError(t, err)
	_, err = svc.Regenerate(ctx, caseID)
	require.NoError(t, err)

	path, err := svc.Path(ctx, caseID, "P1", "P2")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "D1", "P2"}, path)

	path, err = svc.Path(ctx, caseID, "P1", "nobody")
	require.NoError(t, err)
	assert.Empty(t, path)

	_, err = svc.Path(ctx, caseID, "", "P2")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
