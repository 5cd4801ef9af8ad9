package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/chainaddr"
	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
)

// Screener performs external sanctions screening for one address
type Screener interface {
	ScreenAddress(ctx context.Context, address string, chain domain.Blockchain) (domain.ScreeningResult, error)
}

// ScreenerSource yields the sanctions screener when a credential is configured.
// It is consulted on every call so credential changes apply without restart.
type ScreenerSource interface {
	SanctionsScreener(ctx context.Context) (Screener, bool)
}

// Resolver classifies addresses as clean, known service or sanctioned
type Resolver struct {
	registry  *Registry
	screeners ScreenerSource
	cache     *cache.TTL[string, domain.ScreeningResult]
	logger    *zap.Logger
}

// New creates a resolver. sanctionsCache holds screening verdicts keyed by chainaddr.Key.
func New(registry *Registry, screeners ScreenerSource, sanctionsCache *cache.TTL[string, domain.ScreeningResult], logger *zap.Logger) *Resolver {
	return &Resolver{
		registry:  registry,
		screeners: screeners,
		cache:     sanctionsCache,
		logger:    logger,
	}
}

// Registry exposes the static table the resolver falls back to
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve classifies an address. It never fails: when external screening is unavailable
// the result comes from the static registry alone and is marked Degraded.
func (r *Resolver) Resolve(ctx context.Context, address string, chain domain.Blockchain) domain.Resolution {
	address = strings.TrimSpace(address)
	res := domain.Resolution{
		Address:    address,
		Blockchain: chain,
		Labels:     []string{},
		RiskTier:   domain.RiskUnknown,
		Category:   domain.CategoryUnknown,
	}

	if known, ok := r.registry.Lookup(address); ok {
		applyKnownEntity(&res, known)
	}

	screening, ok := r.screen(ctx, address, chain)
	if !ok {
		res.Degraded = true
		return res
	}
	applyScreening(&res, screening)
	return res
}

// screen asks the provider about the address exactly as given
func (r *Resolver) screen(ctx context.Context, address string, chain domain.Blockchain) (domain.ScreeningResult, bool) {
	key := chainaddr.Key(address, chain)
	if cached, ok := r.cache.Get(key); ok {
		return cached, true
	}

	screener, ok := r.screeners.SanctionsScreener(ctx)
	if !ok {
		return domain.ScreeningResult{}, false
	}

	result, err := screener.ScreenAddress(ctx, address, chain)
	if err != nil {
		r.logger.Warn("Sanctions screening unavailable, using static registry",
			zap.String("address", crypto.MaskPII(address, crypto.PIIAddress)),
			zap.Error(err),
		)
		return domain.ScreeningResult{}, false
	}

	// Clean verdicts, including provider not-found responses, are cached like hits.
	r.cache.Set(key, result)
	return result, true
}

func applyKnownEntity(res *domain.Resolution, known KnownEntity) {
	res.EntityName = known.Name
	res.Category = known.Category
	res.RiskTier = known.Tier
	res.Labels = appendUnique(res.Labels, known.Name)
	if known.Sanctioned {
		res.IsSanctioned = true
		res.SanctionSource = known.SanctionSource
		res.RiskTier = domain.RiskCritical
	}
}

func applyScreening(res *domain.Resolution, s domain.ScreeningResult) {
	for _, l := range s.Labels {
		res.Labels = appendUnique(res.Labels, l)
	}
	if !s.IsSanctioned {
		return
	}
	res.IsSanctioned = true
	res.RiskTier = domain.RiskCritical
	if s.SanctionSource != "" {
		res.SanctionSource = s.SanctionSource
	}
	res.Factors = append(res.Factors, s.Factors...)
	if len(res.Factors) == 0 {
		res.Factors = append(res.Factors, domain.RiskFactor{
			Code:        "sanctioned",
			Description: fmt.Sprintf("Sanctioned address (%s)", res.SanctionSource),
			Severity:    domain.RiskCritical,
			Points:      100,
		})
	}
}

func appendUnique(labels []string, label string) []string {
	if label == "" {
		return labels
	}
	for _, l := range labels {
		if l == label {
			return labels
		}
	}
	return append(labels, label)
}
