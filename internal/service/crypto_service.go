package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/investigate/case-graph/internal/chainaddr"
	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/provider"
	"github.com/investigate/case-graph/internal/repository"
	"github.com/investigate/case-graph/internal/resolver"
	"github.com/investigate/case-graph/internal/risk"
)

const resolveConcurrency = 4

// Publisher announces domain events
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Pricer quotes the USD value of one unit of a chain's asset; live is false for fallback prices
type Pricer interface {
	QuoteChain(ctx context.Context, chain domain.Blockchain) (price float64, live bool)
}

// CryptoService imports on-chain activity, aggregates wallets and screens addresses
type CryptoService struct {
	cases     repository.CaseStore
	store     repository.CryptoStore
	providers *provider.Service
	prices    Pricer
	resolver  *resolver.Resolver
	publisher Publisher
	logger    *zap.Logger
}

// NewCryptoService creates a crypto service. publisher may be nil.
func NewCryptoService(
	cases repository.CaseStore,
	store repository.CryptoStore,
	providers *provider.Service,
	prices Pricer,
	res *resolver.Resolver,
	publisher Publisher,
	logger *zap.Logger,
) *CryptoService {
	return &CryptoService{
		cases:     cases,
		store:     store,
		providers: providers,
		prices:    prices,
		resolver:  res,
		publisher: publisher,
		logger:    logger,
	}
}

// ImportTransactions validates and stores transactions, fills missing USD amounts and
// rebuilds the case's wallets. It succeeds once the transactions are stored.
func (s *CryptoService) ImportTransactions(ctx context.Context, caseID int64, evidenceID *uuid.UUID, txs []domain.CryptoTransaction) (int, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return 0, err
	}

	quotes := make(map[domain.Blockchain]float64)
	for i := range txs {
		t := &txs[i]
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("transaction %d: %w", i, err)
		}
		if evidenceID != nil && t.EvidenceID == nil {
			t.EvidenceID = evidenceID
		}
		if t.AmountUSD == 0 && t.Amount > 0 && s.prices != nil {
			price, ok := quotes[t.Blockchain]
			if !ok {
				price, _ = s.prices.QuoteChain(ctx, t.Blockchain)
				quotes[t.Blockchain] = price
			}
			t.AmountUSD = t.Amount * price
		}
	}

	n, err := s.store.InsertCryptoTransactions(ctx, caseID, txs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crypto transactions: %w", err)
	}
	s.logger.Info("Crypto transactions imported", zap.Int64("case_id", caseID), zap.Int("count", n))

	// The rows are committed; a failed rebuild must not make callers retry the insert.
	// Wallets catch up on the next import or an explicit rebuild.
	if _, err := s.RebuildWallets(ctx, caseID); err != nil {
		s.logger.Error("Failed to rebuild wallets after import",
			zap.Int64("case_id", caseID),
			zap.Error(err),
		)
	}
	return n, nil
}

// ListTransactions returns the transactions of a case, newest first
func (s *CryptoService) ListTransactions(ctx context.Context, caseID int64) ([]domain.CryptoTransaction, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	txs, err := s.store.ListCryptoTransactions(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto transactions: %w", err)
	}
	sortNewestFirst(txs)
	return txs, nil
}

// DeleteTransactions removes every transaction and wallet of a case
func (s *CryptoService) DeleteTransactions(ctx context.Context, caseID int64) (int64, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return 0, err
	}
	return s.store.DeleteCryptoTransactions(ctx, caseID)
}

// ListWallets returns the aggregated wallets of a case
func (s *CryptoService) ListWallets(ctx context.Context, caseID int64) ([]domain.CryptoWallet, error) {
	if _, err := s.cases.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListCryptoWallets(ctx, caseID)
}

type walletKey struct {
	chain   domain.Blockchain
	address string
}

// RebuildWallets aggregates every address seen in the case's transactions into a wallet and
// scores it through the resolver and risk engine
func (s *CryptoService) RebuildWallets(ctx context.Context, caseID int64) ([]domain.CryptoWallet, error) {
	txs, err := s.store.ListCryptoTransactions(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crypto transactions: %w", err)
	}

	byKey := make(map[walletKey]*domain.CryptoWallet)
	touch := func(chain domain.Blockchain, address, label string, ts *time.Time) *domain.CryptoWallet {
		k := walletKey{chain: chain, address: chainaddr.Normalize(address)}
		w, ok := byKey[k]
		if !ok {
			w = &domain.CryptoWallet{Address: address, Blockchain: chain}
			byKey[k] = w
		}
		if w.Label == "" {
			w.Label = label
		}
		w.TransactionCount++
		w.FirstTxDate, w.LastTxDate = widenTime(w.FirstTxDate, w.LastTxDate, ts)
		return w
	}

	for _, t := range txs {
		from := touch(t.Blockchain, t.FromAddress, t.FromLabel, t.Timestamp)
		from.TotalSent += t.Amount
		from.TotalSentUSD += t.AmountUSD

		to := touch(t.Blockchain, t.ToAddress, t.ToLabel, t.Timestamp)
		to.TotalReceived += t.Amount
		to.TotalReceivedUSD += t.AmountUSD
	}

	wallets := make([]domain.CryptoWallet, 0, len(byKey))
	for _, w := range byKey {
		wallets = append(wallets, *w)
	}
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].Blockchain != wallets[j].Blockchain {
			return wallets[i].Blockchain < wallets[j].Blockchain
		}
		return chainaddr.Normalize(wallets[i].Address) < chainaddr.Normalize(wallets[j].Address)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i := range wallets {
		w := &wallets[i]
		g.Go(func() error {
			s.scoreWallet(gctx, w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stored, err := s.store.ReplaceCryptoWallets(ctx, caseID, wallets)
	if err != nil {
		return nil, fmt.Errorf("failed to store wallets: %w", err)
	}
	return stored, nil
}

func (s *CryptoService) scoreWallet(ctx context.Context, w *domain.CryptoWallet) {
	res := s.resolver.Resolve(ctx, w.Address, w.Blockchain)
	assessment := risk.ScoreWallet(risk.WalletStats{
		TotalReceivedUSD: w.TotalReceivedUSD,
		TotalSentUSD:     w.TotalSentUSD,
		TxCount:          w.TransactionCount,
	}, res)

	w.RiskScore = assessment.Score
	w.RiskFactors = assessment.Factors
	w.IsSanctioned = res.IsSanctioned
	w.IsExchange = res.Category == domain.CategoryExchange
	w.IsMixer = res.Category == domain.CategoryMixer
	if w.Label == "" {
		w.Label = res.EntityName
	}
	switch {
	case w.IsMixer:
		w.OwnerType = "mixer"
	case w.IsExchange:
		w.OwnerType = "exchange"
	}
}

// Data returns the crypto visualization payload of a case
func (s *CryptoService) Data(ctx context.Context, caseID int64) (domain.CryptoData, error) {
	txs, err := s.ListTransactions(ctx, caseID)
	if err != nil {
		return domain.CryptoData{}, err
	}
	wallets, err := s.store.ListCryptoWallets(ctx, caseID)
	if err != nil {
		return domain.CryptoData{}, fmt.Errorf("failed to list wallets: %w", err)
	}

	summary := domain.CryptoSummary{
		TotalTransactions: len(txs),
		TotalWallets:      len(wallets),
		Blockchains:       []domain.Blockchain{},
	}
	seen := make(map[domain.Blockchain]bool)
	for _, t := range txs {
		summary.TotalValueUSD += t.AmountUSD
		if t.RiskScore >= domain.HighRiskTransactionScore {
			summary.HighRiskTransactions++
		}
		if !seen[t.Blockchain] {
			seen[t.Blockchain] = true
			summary.Blockchains = append(summary.Blockchains, t.Blockchain)
		}
	}
	sort.Slice(summary.Blockchains, func(i, j int) bool { return summary.Blockchains[i] < summary.Blockchains[j] })

	return domain.CryptoData{Transactions: txs, Wallets: wallets, Summary: summary}, nil
}

// Stats counts the crypto data of a case grouped by blockchain
func (s *CryptoService) Stats(ctx context.Context, caseID int64) (domain.CryptoStats, error) {
	data, err := s.Data(ctx, caseID)
	if err != nil {
		return domain.CryptoStats{}, err
	}
	stats := domain.CryptoStats{
		TotalTransactions: data.Summary.TotalTransactions,
		TotalWallets:      data.Summary.TotalWallets,
		TotalValueUSD:     data.Summary.TotalValueUSD,
		HighRiskCount:     data.Summary.HighRiskTransactions,
		Blockchains:       make(map[domain.Blockchain]int),
	}
	for _, t := range data.Transactions {
		stats.Blockchains[t.Blockchain]++
	}
	return stats, nil
}

// LookupWallet fetches live wallet data, resolves the address and scores it.
// A provider failure with nothing cached is terminal; a screening that could not be confirmed
// externally is returned with Degraded set.
func (s *CryptoService) LookupWallet(ctx context.Context, address string, chain domain.Blockchain) (domain.WalletReport, error) {
	address = strings.TrimSpace(address)
	if err := chainaddr.Validate(address, chain); err != nil {
		return domain.WalletReport{}, err
	}

	info, err := s.providers.WalletInfo(ctx, address, chain)
	if err != nil {
		return domain.WalletReport{}, fmt.Errorf("failed to fetch wallet: %w", err)
	}

	res := s.resolver.Resolve(ctx, address, chain)
	price, _ := s.priceOf(ctx, chain)
	assessment := risk.ScoreWallet(risk.WalletStats{
		TotalReceivedUSD: info.TotalReceived * price,
		TotalSentUSD:     info.TotalSent * price,
		TxCount:          info.TxCount,
	}, res)

	// info may share its label array with the provider cache.
	info.Labels = append([]string(nil), info.Labels...)
	for _, l := range res.Labels {
		info.Labels = appendLabel(info.Labels, l)
	}

	report := domain.WalletReport{
		Wallet:     info,
		Resolution: res,
		Risk:       assessment,
		Degraded:   res.Degraded,
	}

	s.logger.Info("Wallet screened",
		zap.String("address", crypto.MaskPII(address, crypto.PIIAddress)),
		zap.String("blockchain", string(chain)),
		zap.Int("risk_score", assessment.Score),
		zap.Bool("sanctioned", res.IsSanctioned),
		zap.Bool("degraded", res.Degraded),
	)

	if s.publisher != nil {
		event := domain.WalletScreened{
			Address:      address,
			Blockchain:   chain,
			RiskScore:    assessment.Score,
			RiskLevel:    assessment.Level,
			IsSanctioned: res.IsSanctioned,
			Degraded:     res.Degraded,
			Provider:     info.Provider,
		}
		if err := s.publisher.Publish(ctx, domain.SubjectWalletScreened, event); err != nil {
			s.logger.Warn("Failed to publish wallet event", zap.Error(err))
		}
	}
	return report, nil
}

// Transactions lists recent on-chain transactions of an address
func (s *CryptoService) Transactions(ctx context.Context, address string, chain domain.Blockchain, limit int) ([]domain.TransactionInfo, error) {
	address = strings.TrimSpace(address)
	if err := chainaddr.Validate(address, chain); err != nil {
		return nil, err
	}
	return s.providers.Transactions(ctx, address, chain, limit)
}

// ProviderStatus reports the provider strategies
func (s *CryptoService) ProviderStatus(ctx context.Context) []domain.ProviderStatus {
	return s.providers.Status(ctx)
}

func (s *CryptoService) priceOf(ctx context.Context, chain domain.Blockchain) (float64, bool) {
	if s.prices == nil {
		return 0, false
	}
	return s.prices.QuoteChain(ctx, chain)
}

func appendLabel(labels []string, label string) []string {
	for _, l := range labels {
		if l == label {
			return labels
		}
	}
	return append(labels, label)
}

func sortNewestFirst(txs []domain.CryptoTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i].Timestamp, txs[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func widenTime(first, last, t *time.Time) (*time.Time, *time.Time) {
	if t == nil {
		return first, last
	}
	if first == nil || t.Before(*first) {
		v := *t
		first = &v
	}
	if last == nil || t.After(*last) {
		v := *t
		last = &v
	}
	return first, last
}
