package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/investigate/case-graph/internal/cache"
	"github.com/investigate/case-graph/internal/crypto"
	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/provider"
	"github.com/investigate/case-graph/internal/repository"
)

const credentialCacheTTL = 30 * time.Second

// ErrVaultDisabled is returned when keys are managed without an encryption key configured
var ErrVaultDisabled = errors.New("credential vault is not configured")

// CredentialStatus is the admin view of one provider key. The plaintext is never returned.
type CredentialStatus struct {
	Provider   domain.ProviderName `json:"provider"`
	Configured bool                `json:"configured"`
	Source     string              `json:"source"` // vault, config, none
	Hint       string              `json:"hint,omitempty"`
	KeyVersion int                 `json:"key_version,omitempty"`
	UpdatedBy  string              `json:"updated_by,omitempty"`
	UpdatedAt  *time.Time          `json:"updated_at,omitempty"`
}

// CredentialService stores provider API keys encrypted at rest and serves them to the providers.
// It implements provider.KeySource: a vault key wins over the configured fallback.
type CredentialService struct {
	store     repository.CredentialStore
	vault     *crypto.Vault
	fallback  provider.KeySource
	plaintext *cache.TTL[domain.ProviderName, string]
	logger    *zap.Logger
}

var _ provider.KeySource = (*CredentialService)(nil)

// NewCredentialService creates a credential service. vault may be nil, in which case only the
// fallback keys are served and updates are rejected.
func NewCredentialService(store repository.CredentialStore, vault *crypto.Vault, fallback provider.KeySource, logger *zap.Logger) *CredentialService {
	if fallback == nil {
		fallback = provider.StaticKeys{}
	}
	return &CredentialService{
		store:     store,
		vault:     vault,
		fallback:  fallback,
		plaintext: cache.NewTTL[domain.ProviderName, string](credentialCacheTTL, nil),
		logger:    logger,
	}
}

// APIKey implements provider.KeySource
func (s *CredentialService) APIKey(ctx context.Context, p domain.ProviderName) string {
	if key, ok := s.plaintext.Get(p); ok {
		return key
	}
	key, err := s.open(ctx, p)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("Failed to read stored credential", zap.String("provider", string(p)), zap.Error(err))
	}
	if key == "" {
		key = s.fallback.APIKey(ctx, p)
	}
	s.plaintext.Set(p, key)
	return key
}

func (s *CredentialService) open(ctx context.Context, p domain.ProviderName) (string, error) {
	if s.vault == nil {
		return "", nil
	}
	c, err := s.store.GetCredential(ctx, p)
	if err != nil {
		return "", err
	}
	return s.vault.Open(c.Ciphertext, c.KeyVersion)
}

// Set encrypts and stores a provider key
func (s *CredentialService) Set(ctx context.Context, p domain.ProviderName, apiKey, updatedBy string) (*CredentialStatus, error) {
	if s.vault == nil {
		return nil, ErrVaultDisabled
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, domain.ValidationError("api_key is required")
	}

	ciphertext, version, err := s.vault.Seal(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credential: %w", err)
	}
	c := &domain.ProviderCredential{
		Provider:   p,
		Ciphertext: ciphertext,
		KeyVersion: version,
		Hint:       crypto.MaskPII(apiKey, crypto.PIISecret),
		UpdatedBy:  updatedBy,
	}
	if err := s.store.UpsertCredential(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	s.plaintext.Delete(p)

	s.logger.Info("Provider credential updated",
		zap.String("provider", string(p)),
		zap.String("hint", c.Hint),
		zap.String("updated_by", updatedBy),
	)
	return storedStatus(c), nil
}

// Clear removes the stored key; the configured fallback applies again
func (s *CredentialService) Clear(ctx context.Context, p domain.ProviderName) error {
	if err := s.store.DeleteCredential(ctx, p); err != nil {
		return err
	}
	s.plaintext.Delete(p)
	s.logger.Info("Provider credential cleared", zap.String("provider", string(p)))
	return nil
}

// List reports every provider key without revealing it
func (s *CredentialService) List(ctx context.Context) ([]CredentialStatus, error) {
	stored, err := s.store.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	byProvider := make(map[domain.ProviderName]domain.ProviderCredential, len(stored))
	for _, c := range stored {
		byProvider[c.Provider] = c
	}

	out := make([]CredentialStatus, 0, 3)
	for _, p := range []domain.ProviderName{domain.ProviderChainalysis, domain.ProviderEtherscan, domain.ProviderBlockchair} {
		if c, ok := byProvider[p]; ok {
			out = append(out, *storedStatus(&c))
			continue
		}
		st := CredentialStatus{Provider: p, Source: "none"}
		if key := s.fallback.APIKey(ctx, p); key != "" {
			st.Configured = true
			st.Source = "config"
			st.Hint = crypto.MaskPII(key, crypto.PIISecret)
		}
		out = append(out, st)
	}
	return out, nil
}

// ResealAll re-encrypts every stored key that is not under the current vault key version
func (s *CredentialService) ResealAll(ctx context.Context) (int, error) {
	if s.vault == nil {
		return 0, ErrVaultDisabled
	}
	stored, err := s.store.ListCredentials(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list credentials: %w", err)
	}
	current := s.vault.CurrentKeyVersion()
	resealed := 0
	for _, c := range stored {
		if c.KeyVersion == current {
			continue
		}
		ciphertext, version, err := s.vault.Reseal(c.Ciphertext, c.KeyVersion)
		if err != nil {
			return resealed, fmt.Errorf("failed to reseal %s credential: %w", c.Provider, err)
		}
		c.Ciphertext, c.KeyVersion = ciphertext, version
		if err := s.store.UpsertCredential(ctx, &c); err != nil {
			return resealed, fmt.Errorf("failed to store credential: %w", err)
		}
		resealed++
	}
	if resealed > 0 {
		s.logger.Info("Provider credentials resealed", zap.Int("count", resealed), zap.Int("key_version", current))
	}
	return resealed, nil
}

func storedStatus(c *domain.ProviderCredential) *CredentialStatus {
	updatedAt := c.UpdatedAt
	return &CredentialStatus{
		Provider:   c.Provider,
		Configured: true,
		Source:     "vault",
		Hint:       c.Hint,
		KeyVersion: c.KeyVersion,
		UpdatedBy:  c.UpdatedBy,
		UpdatedAt:  &updatedAt,
	}
}
