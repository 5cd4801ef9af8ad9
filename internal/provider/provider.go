package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/ratelimit"
)

// Capability names reported in provider status
const (
	CapabilityWalletInfo   = "wallet_info"
	CapabilityTransactions = "transactions"
	CapabilitySanctions    = "sanctions_screening"
	CapabilityKYT          = "kyt"
)

var (
	// ErrNotSupported marks an operation the provider cannot serve; callers move on to the next provider.
	ErrNotSupported = errors.New("operation not supported by provider")
	// ErrMissingCredential marks a provider whose API key is not configured.
	ErrMissingCredential = errors.New("api key not configured")
)

// Provider is a blockchain data source
type Provider interface {
	Name() string
	Available(ctx context.Context) bool
	Capabilities() []string
	WalletInfo(ctx context.Context, address string, chain domain.Blockchain) (domain.WalletInfo, error)
	Transactions(ctx context.Context, address string, chain domain.Blockchain, limit int) ([]domain.TransactionInfo, error)
	ScreenAddress(ctx context.Context, address string, chain domain.Blockchain) (domain.ScreeningResult, error)
}

// KeySource returns the current API key of a provider, or "" when none is configured.
// Implementations are read on every call so key changes apply without restart.
type KeySource interface {
	APIKey(ctx context.Context, provider domain.ProviderName) string
}

// StaticKeys is a fixed KeySource, used for configuration defaults and tests
type StaticKeys map[domain.ProviderName]string

// APIKey implements KeySource
func (k StaticKeys) APIKey(_ context.Context, p domain.ProviderName) string {
	return k[p]
}

const maxResponseBytes = 4 << 20

// upstream performs paced, bounded GET requests against one provider
type upstream struct {
	name   string
	client *http.Client
	gate   ratelimit.Gate
}

func newUpstream(name string, client *http.Client, gate ratelimit.Gate) *upstream {
	if gate == nil {
		gate = ratelimit.Unlimited{}
	}
	return &upstream{name: name, client: client, gate: gate}
}

// get returns the status code and body. Transport failures are wrapped as upstream errors;
// non-2xx statuses are returned to the caller to interpret.
func (u *upstream) get(ctx context.Context, url string, header http.Header) (int, []byte, error) {
	if err := u.gate.Wait(ctx); err != nil {
		return 0, nil, domain.UpstreamError(u.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build %s request: %w", u.name, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, nil, domain.UpstreamError(u.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, domain.UpstreamError(u.name, fmt.Errorf("failed to read body: %w", err))
	}
	return resp.StatusCode, body, nil
}

func unexpectedStatus(name string, status int) error {
	return domain.UpstreamError(name, fmt.Errorf("unexpected status %d", status))
}
