package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/provider"
	"github.com/investigate/case-graph/internal/repository/memory"
	"github.com/investigate/case-graph/internal/resolver"
)

func newCase(t *testing.T, store *memory.Store) int64 {
	t.Helper()
	c := &domain.Case{CaseNumber: "CASE-2024-042", Title: "Investment scam"}
	require.NoError(t, c.Validate())
	require.NoError(t, store.CreateCase(context.Background(), c))
	return c.ID
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

// stubProvider serves canned wallet data
type stubProvider struct {
	name      string
	available bool
	wallet    domain.WalletInfo
	walletErr error
	screening domain.ScreeningResult
	screenErr error
	calls     int
	mu        sync.Mutex
}

func (p *stubProvider) Name() string                   { return p.name }
func (p *stubProvider) Available(context.Context) bool { return p.available }
func (p *stubProvider) Capabilities() []string         { return []string{provider.CapabilityWalletInfo} }

func (p *stubProvider) WalletInfo(_ context.Context, address string, chain domain.Blockchain) (domain.WalletInfo, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.walletErr != nil {
		return domain.WalletInfo{}, p.walletErr
	}
	w := p.wallet
	w.Address, w.Blockchain, w.Provider = address, chain, p.name
	return w, nil
}

func (p *stubProvider) Transactions(context.Context, string, domain.Blockchain, int) ([]domain.TransactionInfo, error) {
	return []domain.TransactionInfo{{Hash: "0xabc", Amount: 1}}, nil
}

func (p *stubProvider) ScreenAddress(_ context.Context, address string, _ domain.Blockchain) (domain.ScreeningResult, error) {
	if p.screenErr != nil {
		return domain.ScreeningResult{}, p.screenErr
	}
	r := p.screening
	r.Address, r.Provider = address, p.name
	return r, nil
}

type fixedPrices map[domain.Blockchain]float64

func (f fixedPrices) QuoteChain(_ context.Context, chain domain.Blockchain) (float64, bool) {
	return f[chain], true
}

type capturedEvents struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
}

func (c *capturedEvents) Publish(_ context.Context, subject string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, payload)
	return nil
}

type cryptoFixture struct {
	svc     *CryptoService
	store   *memory.Store
	caseID  int64
	premium *stubProvider
	free    *stubProvider
	events  *capturedEvents
}

func newCryptoFixture(t *testing.T) *cryptoFixture {
	t.Helper()
	store := memory.New()
	f := &cryptoFixture{
		store:   store,
		caseID:  newCase(t, store),
		premium: &stubProvider{name: "chainalysis"},
		free:    &stubProvider{name: "free_api", available: true, wallet: domain.WalletInfo{Balance: 1, TotalReceived: 3, TotalSent: 2, TxCount: 12}},
		events:  &capturedEvents{},
	}
	logger := zap.NewNop()
	providers := provider.NewService(f.premium, f.free, cache.NewTTL[provider.WalletKey, domain.WalletInfo](5*time.Minute, nil), logger)
	res := resolver.New(resolver.DefaultRegistry(), providers, cache.NewTTL[string, domain.ScreeningResult](time.Hour, nil), logger)
	prices := fixedPrices{domain.BlockchainETH: 2000, domain.BlockchainUSDTTRC20: 1}
	f.svc = NewCryptoService(store, store, providers, prices, res, f.events, logger)
	return f
}
