package domain

import (
	"strings"
	"time"
)

// ProviderName identifies an external data provider that accepts an API key
type ProviderName string

const (
	ProviderChainalysis ProviderName = "chainalysis"
	ProviderEtherscan   ProviderName = "etherscan"
	ProviderBlockchair  ProviderName = "blockchair"
)

// ParseProviderName validates a provider name from user input
func ParseProviderName(s string) (ProviderName, error) {
	switch p := ProviderName(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderChainalysis, ProviderEtherscan, ProviderBlockchair:
		return p, nil
	default:
		return "", ValidationError("unknown provider %q", s)
	}
}

// ProviderCredential is an encrypted API key. The plaintext never leaves the credential service.
type ProviderCredential struct {
	Provider   ProviderName `json:"provider" db:"provider"`
	Ciphertext string       `json:"-" db:"ciphertext"`
	KeyVersion int          `json:"key_version" db:"key_version"`
	Hint       string       `json:"hint" db:"hint"` // masked key for display
	UpdatedBy  string       `json:"updated_by" db:"updated_by"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// ProviderStatus describes one provider strategy and whether it can serve calls right now
type ProviderStatus struct {
	Name         string   `json:"name"`
	Available    bool     `json:"available"`
	Active       bool     `json:"active"`
	Capabilities []string `json:"capabilities"`
}
