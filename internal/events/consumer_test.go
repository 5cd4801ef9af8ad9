package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/config"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/repository/memory"
	"github.com/investigate/case-graph/internal/resolver"
	"github.com/investigate/case-graph/internal/service"
)

var testTopics = config.KafkaConfig{
	CallTopic:     "case.calls",
	CryptoTopic:   "case.crypto",
	LocationTopic: "case.locations",
	MaxRetries:    3,
}

type fakeImporters struct {
	caseID     int64
	evidenceID *uuid.UUID
	calls      []domain.CallRecord
	txs        []domain.CryptoTransaction
	points     []domain.LocationPoint
	attempts   int
	err        error
	attachErr  error
}

func (f *fakeImporters) ImportRecords(_ context.Context, caseID int64, ev *uuid.UUID, r []domain.CallRecord) (int, error) {
	f.attempts++
	if f.err != nil {
		return 0, f.err
	}
	f.caseID, f.evidenceID, f.calls = caseID, ev, r
	return len(r), nil
}

func (f *fakeImporters) ImportTransactions(_ context.Context, caseID int64, ev *uuid.UUID, t []domain.CryptoTransaction) (int, error) {
	f.caseID, f.evidenceID, f.txs = caseID, ev, t
	return len(t), nil
}

func (f *fakeImporters) ImportPoints(_ context.Context, caseID int64, ev *uuid.UUID, p []domain.LocationPoint) (int, error) {
	f.caseID, f.evidenceID, f.points = caseID, ev, p
	return len(p), nil
}

func (f *fakeImporters) Attachable(context.Context, int64, *uuid.UUID) error {
	return f.attachErr
}

func newDispatcher(f *fakeImporters) *Dispatcher {
	return NewDispatcher(testTopics, f, f, f, f)
}

func TestDispatch_RoutesByTopic(t *testing.T) {
	ctx := context.Background()
	f := &fakeImporters{}
	d := newDispatcher(f)
	ev := uuid.New()

	n, err := d.Dispatch(ctx, "case.calls", []byte(`{"case_id":4,"evidence_id":"`+ev.String()+`","records":[
		{"device_number":"D1","partner_number":"P1","call_type":"outgoing","duration_seconds":30}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(4), f.caseID)
	require.NotNil(t, f.evidenceID)
	assert.Equal(t, ev, *f.evidenceID)
	assert.Equal(t, "P1", f.calls[0].PartnerNumber)

	n, err = d.Dispatch(ctx, "case.crypto", []byte(`{"case_id":5,"records":[
		{"blockchain":"ethereum","from_address":"0xa","to_address":"0xb","amount":1.5},
		{"blockchain":"bitcoin","from_address":"1a","to_address":"1b","amount":0.1}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Nil(t, f.evidenceID)
	assert.Equal(t, 1.5, f.txs[0].Amount)

	n, err = d.Dispatch(ctx, "case.locations", []byte(`{"case_id":6,"records":[{"latitude":13.75,"longitude":100.5,"source":"gps"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 13.75, f.points[0].Latitude)
}

func TestDispatch_RejectsMalformedMessages(t *testing.T) {
	ctx := context.Background()
	d := newDispatcher(&fakeImporters{})

	cases := map[string]struct {
		topic string
		value string
	}{
		"not json":          {"case.calls", `{"case_id":`},
		"missing case":      {"case.calls", `{"records":[]}`},
		"bad evidence":      {"case.calls", `{"case_id":1,"evidence_id":"nope","records":[]}`},
		"records not array": {"case.calls", `{"case_id":1,"records":{}}`},
		"wrong record type": {"case.calls", `{"case_id":1,"records":[{"duration_seconds":"long"}]}`},
		"unknown topic":     {"case.other", `{"case_id":1,"records":[]}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.Dispatch(ctx, tc.topic, []byte(tc.value))
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestDispatch_ChecksEvidence(t *testing.T) {
	f := &fakeImporters{attachErr: domain.NotFoundError("evidence", "x")}
	_, err := newDispatcher(f).Dispatch(context.Background(), "case.calls",
		[]byte(`{"case_id":1,"evidence_id":"`+uuid.NewString()+`","records":[]}`))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.attempts)
}

func TestIngestHandler_RetriesOnlyTransientFailures(t *testing.T) {
	msg := &sarama.ConsumerMessage{
		Topic: "case.calls",
		Value: []byte(`{"case_id":1,"records":[{"partner_number":"P1"}]}`),
	}

	transient := &fakeImporters{err: errors.New("connection refused")}
	h := &ingestHandler{dispatcher: newDispatcher(transient), maxRetries: 3, logger: zap.NewNop()}
	assert.True(t, h.process(context.Background(), msg))
	assert.Equal(t, 3, transient.attempts)

	missing := &fakeImporters{err: domain.NotFoundError("case", 1)}
	h = &ingestHandler{dispatcher: newDispatcher(missing), maxRetries: 3, logger: zap.NewNop()}
	assert.True(t, h.process(context.Background(), msg))
	assert.Equal(t, 1, missing.attempts)
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(msgs ...*sarama.ConsumerMessage) fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return fakeClaim{messages: ch}
}

func TestIngestHandler_MarksSettledMessages(t *testing.T) {
	ok := &fakeImporters{}
	h := &ingestHandler{dispatcher: newDispatcher(ok), maxRetries: 3, logger: zap.NewNop()}
	session := &fakeSession{ctx: context.Background()}

	err := h.ConsumeClaim(session, claimOf(
		&sarama.ConsumerMessage{Topic: "case.calls", Offset: 7, Value: []byte(`{"case_id":1,"records":[{"partner_number":"P1"}]}`)},
		&sarama.ConsumerMessage{Topic: "case.calls", Offset: 8, Value: []byte(`not json`)},
	))
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, session.marked, "ingested and unprocessable messages both advance the offset")
}

func TestIngestHandler_CancelledDuringBackoffKeepsOffset(t *testing.T) {
	msg := &sarama.ConsumerMessage{
		Topic:  "case.calls",
		Offset: 42,
		Value:  []byte(`{"case_id":1,"records":[{"partner_number":"P1"}]}`),
	}
	transient := &fakeImporters{err: errors.New("connection refused")}
	h := &ingestHandler{dispatcher: newDispatcher(transient), maxRetries: 3, logger: zap.NewNop(), backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	assert.False(t, h.process(ctx, msg))
	assert.Equal(t, 1, transient.attempts)

	session := &fakeSession{ctx: ctx}
	require.NoError(t, h.ConsumeClaim(session, claimOf(msg)))
	assert.Empty(t, session.marked)
}

// flakyWalletStore fails the next wallet replacement after the transactions are stored
type flakyWalletStore struct {
	*memory.Store
	failures int
}

func (f *flakyWalletStore) ReplaceCryptoWallets(ctx context.Context, caseID int64, wallets []domain.CryptoWallet) ([]domain.CryptoWallet, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.Store.ReplaceCryptoWallets(ctx, caseID, wallets)
}

type noScreener struct{}

func (noScreener) SanctionsScreener(context.Context) (resolver.Screener, bool) { return nil, false }

func TestIngestHandler_CryptoImportNotRepeatedAfterWalletFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyWalletStore{Store: memory.New(), failures: 1}
	c := &domain.Case{CaseNumber: "K-1", Title: "Kafka import"}
	require.NoError(t, c.Validate())
	require.NoError(t, store.CreateCase(ctx, c))

	logger := zap.NewNop()
	res := resolver.New(resolver.DefaultRegistry(), noScreener{}, cache.NewTTL[string, domain.ScreeningResult](time.Hour, nil), logger)
	crypto := service.NewCryptoService(store, store, nil, nil, res, nil, logger)
	f := &fakeImporters{}
	h := &ingestHandler{
		dispatcher: NewDispatcher(testTopics, f, crypto, f, f),
		maxRetries: 3,
		logger:     logger,
	}

	msg := &sarama.ConsumerMessage{Topic: "case.crypto", Value: []byte(`{"case_id":` + fmt.Sprint(c.ID) + `,"records":[
		{"blockchain":"eth","tx_hash":"0xa1","from_address":"0x1111111111111111111111111111111111111111","to_address":"0x2222222222222222222222222222222222222222","amount":1}
	]}`)}
	assert.True(t, h.process(ctx, msg))

	txs, err := store.ListCryptoTransactions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "investigate.network.regenerated", Subject("investigate", domain.SubjectNetworkRegenerated))
	assert.Equal(t, "investigate.wallet.screened", Subject("investigate.", domain.SubjectWalletScreened))
	assert.Equal(t, "wallet.screened", Subject("", domain.SubjectWalletScreened))
}
