package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/repository/memory"
)

const (
	victimAddr  = "0x1111111111111111111111111111111111111111"
	tornadoAddr = "0x8589427373d6d84e98730d7795d8f6f8731fda16"
	binanceAddr = "0x28C6c06298d514Db089934071355E5743bf21d60"
)

func scamTransactions() []domain.CryptoTransaction {
	return []domain.CryptoTransaction{
		{Blockchain: "ethereum", TxHash: "0xa1", FromAddress: victimAddr, ToAddress: tornadoAddr, Amount: 1, Timestamp: ts("2024-01-10T10:00:00Z"), RiskScore: 80, RiskFlag: "tornado_cash"},
		{Blockchain: "eth", TxHash: "0xa2", FromAddress: tornadoAddr, ToAddress: binanceAddr, Amount: 60, AmountUSD: 120000, Timestamp: ts("2024-01-12T10:00:00Z")},
	}
}

func walletByAddress(t *testing.T, wallets []domain.CryptoWallet, addr string) domain.CryptoWallet {
	t.Helper()
	for _, w := range wallets {
		if w.Address == addr {
			return w
		}
	}
	t.Fatalf("wallet %s not found", addr)
	return domain.CryptoWallet{}
}

func TestCryptoService_ImportAggregatesWallets(t *testing.T) {
	ctx := context.Background()
	f := newCryptoFixture(t)

	n, err := f.svc.ImportTransactions(ctx, f.caseID, nil, scamTransactions())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	wallets, err := f.svc.ListWallets(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, wallets, 3)

	victim := walletByAddress(t, wallets, victimAddr)
	assert.Equal(t, 1.0, victim.TotalSent)
	assert.Equal(t, 2000.0, victim.TotalSentUSD, "missing USD amount is priced")
	assert.Equal(t, 0, victim.RiskScore)

	tornado := walletByAddress(t, wallets, tornadoAddr)
	assert.True(t, tornado.IsSanctioned)
	assert.True(t, tornado.IsMixer)
	assert.Equal(t, 100, tornado.RiskScore)
	assert.Equal(t, 2, tornado.TransactionCount)
	assert.Equal(t, "Tornado Cash", tornado.Label)
	require.NotNil(t, tornado.FirstTxDate)
	require.NotNil(t, tornado.LastTxDate)
	assert.True(t, tornado.FirstTxDate.Before(*tornado.LastTxDate))

	binance := walletByAddress(t, wallets, binanceAddr)
	assert.True(t, binance.IsExchange)
	assert.False(t, binance.IsSanctioned)
	assert.Equal(t, "Binance Hot Wallet", binance.Label)
	assert.Equal(t, 15, binance.RiskScore, "only the high volume factor applies")
}

func TestCryptoService_ReimportRebuildsWallets(t *testing.T) {
	ctx := context.Background()
	f := newCryptoFixture(t)

	_, err := f.svc.ImportTransactions(ctx, f.caseID, nil, scamTransactions())
	require.NoError(t, err)
	_, err = f.svc.ImportTransactions(ctx, f.caseID, nil, scamTransactions()[:1])
	require.NoError(t, err)

	wallets, err := f.svc.ListWallets(ctx, f.caseID)
	require.NoError(t, err)
	assert.Len(t, wallets, 3, "wallets are replaced, not appended")
	assert.Equal(t, 2.0, walletByAddress(t, wallets, victimAddr).TotalSent)
}

func TestCryptoService_ImportRejectsInvalidRows(t *testing.T) {
	f := newCryptoFixture(t)

	_, err := f.svc.ImportTransactions(context.Background(), f.caseID, nil, []domain.CryptoTransaction{{FromAddress: victimAddr}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.ImportTransactions(context.Background(), 999, nil, scamTransactions())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCryptoService_DataAndStats(t *testing.T) {
	ctx := context.Background()
	f := newCryptoFixture(t)
	_, err := f.svc.ImportTransactions(ctx, f.caseID, nil, scamTransactions())
	require.NoError(t, err)

	data, err := f.svc.Data(ctx, f.caseID)
	require.NoError(t, err)
	require.Len(t, data.Transactions, 2)
	assert.Equal(t, "0xa2", data.Transactions[0].TxHash, "newest first")
	assert.Equal(t, 2, data.Summary.TotalTransactions)
	assert.Equal(t, 3, data.Summary.TotalWallets)
	assert.Equal(t, 1, data.Summary.HighRiskTransactions)
	assert.InDelta(t, 122000.0, data.Summary.TotalValueUSD, 0.001)
	assert.Equal(t, []domain.Blockchain{domain.BlockchainETH}, data.Summary.Blockchains)

	stats, err := f.svc.Stats(ctx, f.caseID)
	require.NoError(t, err)
	assert.Equal(t, map[domain.Blockchain]int{domain.BlockchainETH: 2}, stats.Blockchains)
	assert.Equal(t, 1, stats.HighRiskCount)
}

func TestCryptoService_DeleteClearsWallets(t *testing.T) {
	ctx := context.Background()
	f := newCryptoFixture(t)
	_, err := f.svc.ImportTransactions(ctx, f.caseID, nil, scamTransactions())
	require.NoError(t, err)

	n, err := f.svc.DeleteTransactions(ctx, f.caseID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	data, err := f.svc.Data(ctx, f.caseID)
	require.NoError(t, err)
	assert.Empty(t, data.Transactions)
	assert.Empty(t, data.Wallets)
	assert.Empty(t, data.Summary.Blockchains)
}

func TestCryptoService_LookupSanctionedWalletDegraded(t *testing.T) {
	f := newCryptoFixture(t)

	report, err := f.svc.LookupWallet(context.Background(), tornadoAddr, domain.BlockchainETH)
	require.NoError(t, err)

	assert.Equal(t, 100, report.Risk.Score)
	assert.Equal(t, domain.RiskCritical, report.Risk.Level)
	assert.True(t, report.Resolution.IsSanctioned)
	assert.True(t, report.Degraded, "no premium provider, screening is static only")
	assert.Equal(t, "free_api", report.Wallet.Provider)
	assert.Contains(t, report.Wallet.Labels, "Tornado Cash")

	require.Len(t, f.events.subjects, 1)
	assert.Equal(t, domain.SubjectWalletScreened, f.events.subjects[0])
	event := f.events.payloads[0].(domain.WalletScreened)
	assert.True(t, event.IsSanctioned)
	assert.True(t, event.Degraded)
}

func TestCryptoService_LookupWithPremiumScreening(t *testing.T) {
	f := newCryptoFixture(t)
	f.premium.available = true
	f.premium.wallet = domain.WalletInfo{TotalReceived: 10, TxCount: 3}

	report, err := f.svc.LookupWallet(context.Background(), victimAddr, domain.BlockchainETH)
	require.NoError(t, err)

	assert.False(t, report.Degraded)
	assert.False(t, report.Resolution.IsSanctioned)
	assert.Equal(t, "chainalysis", report.Wallet.Provider)
	assert.Equal(t, 0, report.Risk.Score)
}

func TestCryptoService_LookupErrors(t *testing.T) {
	f := newCryptoFixture(t)

	_, err := f.svc.LookupWallet(context.Background(), "not-an-address", domain.BlockchainETH)
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.free.walletErr = errors.New("etherscan returned 502")
	_, err = f.svc.LookupWallet(context.Background(), victimAddr, domain.BlockchainETH)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Empty(t, f.events.subjects)
}

func TestCryptoService_LookupIsCached(t *testing.T) {
	f := newCryptoFixture(t)

	for range 3 {
		_, err := f.svc.LookupWallet(context.Background(), victimAddr, domain.BlockchainETH)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.free.calls)
}

func TestCryptoService_LookupLeavesCachedLabelsAlone(t *testing.T) {
	f := newCryptoFixture(t)
	labels := make([]string, 1, 4)
	labels[0] = "Mixer"
	f.free.wallet.Labels = labels

	for range 2 {
		report, err := f.svc.LookupWallet(context.Background(), tornadoAddr, domain.BlockchainETH)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mixer", "Tornado Cash"}, report.Wallet.Labels)
	}
	assert.Equal(t, 1, f.free.calls)
	assert.Equal(t, []string{"Mixer", "", "", ""}, labels[:cap(labels)], "resolver labels never land in the cached array")
}

// flakyWallets fails the next wallet replacement
type flakyWallets struct {
	*memory.Store
	failures int
}

func (f *flakyWallets) ReplaceCryptoWallets(ctx context.Context, caseID int64, wallets []domain.CryptoWallet) ([]domain.CryptoWallet, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	return f.Store.ReplaceCryptoWallets(ctx, caseID, wallets)
}

func TestCryptoService_ImportSucceedsWhenWalletRebuildFails(t *testing.T) {
	ctx := context.Background()
	f := newCryptoFixture(t)
	store := &flakyWallets{Store: f.store, failures: 1}
	svc := NewCryptoService(store, store, nil, fixedPrices{domain.BlockchainETH: 2000}, f.svc.resolver, nil, zap.NewNop())

	n, err := svc.ImportTransactions(ctx, f.caseID, nil, scamTransactions())
	require.NoError(t, err, "stored rows must not be reported as a failed import")
	assert.Equal(t, 2, n)

	txs, err := svc.ListTransactions(ctx, f.caseID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	wallets, err := svc.ListWallets(ctx, f.caseID)
	require.NoError(t, err)
	assert.Empty(t, wallets)

	wallets, err = svc.RebuildWallets(ctx, f.caseID)
	require.NoError(t, err)
	assert.Len(t, wallets, 3)
}
