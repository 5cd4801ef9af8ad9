package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/chainaddr"
	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/resolver"
)

// WalletKey identifies a cached wallet lookup
type WalletKey struct {
	Chain   domain.Blockchain
	Address string
}

// Service selects a provider per call: the premium strategy when its credential is configured,
// the free strategy otherwise. Wallet lookups are cached and concurrent identical lookups share
// one upstream call.
type Service struct {
	premium Provider
	free    Provider
	wallets *cache.TTL[WalletKey, domain.WalletInfo]
	group   singleflight.Group
	logger  *zap.Logger
}

// NewService creates the provider factory
func NewService(premium, free Provider, wallets *cache.TTL[WalletKey, domain.WalletInfo], logger *zap.Logger) *Service {
	return &Service{
		premium: premium,
		free:    free,
		wallets: wallets,
		logger:  logger,
	}
}

// Active returns the provider that serves screening right now
func (s *Service) Active(ctx context.Context) Provider {
	if s.premium != nil && s.premium.Available(ctx) {
		return s.premium
	}
	return s.free
}

// SanctionsScreener implements resolver.ScreenerSource. Only the premium strategy counts as
// external confirmation; the free strategy is the static registry the resolver already holds.
func (s *Service) SanctionsScreener(ctx context.Context) (resolver.Screener, bool) {
	if s.premium != nil && s.premium.Available(ctx) {
		return s.premium, true
	}
	return nil, false
}

// WalletInfo returns live wallet data, served from cache within the wallet TTL
func (s *Service) WalletInfo(ctx context.Context, address string, chain domain.Blockchain) (domain.WalletInfo, error) {
	key := WalletKey{Chain: chain, Address: chainaddr.Key(address, chain)}
	if info, ok := s.wallets.Get(key); ok {
		return info, nil
	}

	v, err, _ := s.group.Do(key.Address, func() (any, error) {
		if info, ok := s.wallets.Get(key); ok {
			return info, nil
		}
		info, err := s.fetchWallet(ctx, address, chain)
		if err != nil {
			return domain.WalletInfo{}, err
		}
		s.wallets.Set(key, info)
		return info, nil
	})
	if err != nil {
		return domain.WalletInfo{}, err
	}
	return v.(domain.WalletInfo), nil
}

func (s *Service) fetchWallet(ctx context.Context, address string, chain domain.Blockchain) (domain.WalletInfo, error) {
	var lastErr error
	for _, p := range s.candidates(ctx) {
		info, err := p.WalletInfo(ctx, address, chain)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrNotSupported) {
			s.logger.Warn("Wallet lookup failed",
				zap.String("provider", p.Name()),
				zap.String("address", crypto.MaskPII(address, crypto.PIIAddress)),
				zap.Error(err),
			)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no provider configured")
	}
	if errors.Is(lastErr, domain.ErrUpstreamUnavailable) {
		return domain.WalletInfo{}, lastErr
	}
	return domain.WalletInfo{}, domain.UpstreamError("wallet lookup", lastErr)
}

// Transactions lists recent transactions from the first provider that supports the chain
func (s *Service) Transactions(ctx context.Context, address string, chain domain.Blockchain, limit int) ([]domain.TransactionInfo, error) {
	var lastErr error
	for _, p := range s.candidates(ctx) {
		txs, err := p.Transactions(ctx, address, chain, limit)
		if err == nil {
			return txs, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to list transactions: %w", lastErr)
}

// ScreenAddress screens with the active provider, falling back to the free strategy on failure
func (s *Service) ScreenAddress(ctx context.Context, address string, chain domain.Blockchain) (domain.ScreeningResult, error) {
	active := s.Active(ctx)
	result, err := active.ScreenAddress(ctx, address, chain)
	if err == nil || active == s.free {
		return result, err
	}
	s.logger.Warn("Premium screening failed, falling back to free provider",
		zap.String("provider", active.Name()),
		zap.Error(err),
	)
	return s.free.ScreenAddress(ctx, address, chain)
}

// Status reports every strategy and which one is active
func (s *Service) Status(ctx context.Context) []domain.ProviderStatus {
	active := s.Active(ctx)
	statuses := make([]domain.ProviderStatus, 0, 2)
	for _, p := range []Provider{s.premium, s.free} {
		if p == nil {
			continue
		}
		statuses = append(statuses, domain.ProviderStatus{
			Name:         p.Name(),
			Available:    p.Available(ctx),
			Active:       p == active,
			Capabilities: p.Capabilities(),
		})
	}
	return statuses
}

// candidates lists the usable providers, premium first
func (s *Service) candidates(ctx context.Context) []Provider {
	out := make([]Provider, 0, 2)
	if s.premium != nil && s.premium.Available(ctx) {
		out = append(out, s.premium)
	}
	if s.free != nil {
		out = append(out, s.free)
	}
	return out
}
