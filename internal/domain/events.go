package domain

// Notification subjects, relative to the configured prefix
const (
	SubjectNetworkRegenerated = "network.regenerated"
	SubjectWalletScreened     = "wallet.screened"
)

// WalletScreened is published after an on-demand wallet lookup
type WalletScreened struct {
	Address      string     `json:"address"`
	Blockchain   Blockchain `json:"blockchain"`
	RiskScore    int        `json:"risk_score"`
	RiskLevel    RiskLevel  `json:"risk_level"`
	IsSanctioned bool       `json:"is_sanctioned"`
	Degraded     bool       `json:"degraded"`
	Provider     string     `json:"provider"`
}
