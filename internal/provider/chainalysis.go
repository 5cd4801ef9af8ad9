package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/investigate/case-graph/internal/domain"
	"github.com/investigate/case-graph/internal/ratelimit"
)

const chainalysisProvider = "chainalysis"

// Chainalysis screens addresses against sanctions lists through the free Chainalysis
// sanctions API. Transaction-level KYT needs a paid license and is not wired.
type Chainalysis struct {
	up      *upstream
	keys    KeySource
	baseURL string
}

// NewChainalysis creates the premium strategy. It is available only while a key is configured.
func NewChainalysis(client *http.Client, gate ratelimit.Gate, keys KeySource, baseURL string) *Chainalysis {
	return &Chainalysis{
		up:      newUpstream(chainalysisProvider, client, gate),
		keys:    keys,
		baseURL: baseURL,
	}
}

// Name implements Provider
func (c *Chainalysis) Name() string { return chainalysisProvider }

// Available implements Provider
func (c *Chainalysis) Available(ctx context.Context) bool {
	return c.keys.APIKey(ctx, domain.ProviderChainalysis) != ""
}

// Capabilities implements Provider
func (c *Chainalysis) Capabilities() []string {
	return []string{CapabilitySanctions}
}

// WalletInfo implements Provider. Balance data requires KYT.
func (c *Chainalysis) WalletInfo(context.Context, string, domain.Blockchain) (domain.WalletInfo, error) {
	return domain.WalletInfo{}, fmt.Errorf("%s wallet info requires KYT: %w", chainalysisProvider, ErrNotSupported)
}

// Transactions implements Provider. Transaction listing requires KYT.
func (c *Chainalysis) Transactions(context.Context, string, domain.Blockchain, int) ([]domain.TransactionInfo, error) {
	return nil, fmt.Errorf("%s transactions require KYT: %w", chainalysisProvider, ErrNotSupported)
}

// ScreenAddress implements Provider. A 404 from the API is a definitive clean verdict.
func (c *Chainalysis) ScreenAddress(ctx context.Context, address string, _ domain.Blockchain) (domain.ScreeningResult, error) {
	key := c.keys.APIKey(ctx, domain.ProviderChainalysis)
	if key == "" {
		return domain.ScreeningResult{}, domain.UpstreamError(chainalysisProvider, ErrMissingCredential)
	}

	header := http.Header{}
	header.Set("X-API-Key", key)

	status, body, err := c.up.get(ctx, c.baseURL+"/address/"+url.PathEscape(address), header)
	if err != nil {
		return domain.ScreeningResult{}, err
	}

	result := domain.ScreeningResult{
		Address:  address,
		Labels:   []string{},
		Provider: chainalysisProvider,
	}

	switch status {
	case http.StatusNotFound:
		return result, nil
	case http.StatusOK:
	default:
		return domain.ScreeningResult{}, unexpectedStatus(chainalysisProvider, status)
	}

	gjson.GetBytes(body, "identifications").ForEach(func(_, id gjson.Result) bool {
		name := id.Get("name").String()
		category := id.Get("category").String()
		result.Labels = append(result.Labels, fmt.Sprintf("%s (%s)", name, category))
		result.Factors = append(result.Factors, domain.RiskFactor{
			Code:        "sanctioned",
			Description: fmt.Sprintf("OFAC Sanctioned: %s - %s", name, id.Get("description").String()),
			Severity:    domain.RiskCritical,
			Points:      100,
		})
		return true
	})

	if len(result.Factors) > 0 {
		result.IsSanctioned = true
		result.SanctionSource = "OFAC"
		result.RiskScore = 100
	}
	return result, nil
}
