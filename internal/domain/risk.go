package domain

// RiskLevel is the qualitative risk classification, also used as the tier of a known entity
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskUnknown  RiskLevel = "unknown"
)

// LevelForScore maps a 0-100 score onto the display level
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// IsHighRisk reports whether the level counts toward high-risk summaries
func (l RiskLevel) IsHighRisk() bool {
	return l == RiskCritical || l == RiskHigh
}

// RiskFactor is one labeled contribution to a risk score
type RiskFactor struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Severity    RiskLevel `json:"severity"`
	Points      int       `json:"points"`
}

// RiskAssessment is the outcome of scoring a wallet or identifier
type RiskAssessment struct {
	Score   int          `json:"risk_score"` // 0-100
	Level   RiskLevel    `json:"risk_level"`
	Factors []RiskFactor `json:"risk_factors"`
}
