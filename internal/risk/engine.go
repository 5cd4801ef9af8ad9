package risk

import (
	"fmt"

	"github.com/investigate/case-graph/internal/domain"
)

// Wallet thresholds
const (
	HighVolumeUSD     = 100_000
	HighActivityCount = 500

	highVolumePoints   = 15
	highActivityPoints = 10
	maxScore           = 100
)

var tierPoints = map[domain.RiskLevel]int{
	domain.RiskCritical: 90,
	domain.RiskHigh:     60,
	domain.RiskMedium:   30,
}

// WalletStats is the aggregate activity of a wallet in USD terms
type WalletStats struct {
	TotalReceivedUSD float64
	TotalSentUSD     float64
	TxCount          int
}

// ScoreWallet computes a wallet's risk from its activity and resolver classification.
// A sanctioned address always scores exactly 100 with a single critical factor.
func ScoreWallet(stats WalletStats, res domain.Resolution) domain.RiskAssessment {
	if res.IsSanctioned {
		return domain.RiskAssessment{
			Score:   maxScore,
			Level:   domain.RiskCritical,
			Factors: []domain.RiskFactor{sanctionFactor(res)},
		}
	}

	score := 0
	factors := []domain.RiskFactor{}

	if points, ok := tierPoints[res.RiskTier]; ok {
		score += points
		factors = append(factors, domain.RiskFactor{
			Code:        "known_entity",
			Description: fmt.Sprintf("Known %s: %s", res.Category, res.EntityName),
			Severity:    res.RiskTier,
			Points:      points,
		})
	}

	if stats.TotalReceivedUSD+stats.TotalSentUSD > HighVolumeUSD {
		score += highVolumePoints
		factors = append(factors, domain.RiskFactor{
			Code:        "high_volume",
			Description: "high transaction volume",
			Severity:    domain.RiskMedium,
			Points:      highVolumePoints,
		})
	}

	if stats.TxCount > HighActivityCount {
		score += highActivityPoints
		factors = append(factors, domain.RiskFactor{
			Code:        "high_activity",
			Description: "high activity",
			Severity:    domain.RiskLow,
			Points:      highActivityPoints,
		})
	}

	if score > maxScore {
		score = maxScore
	}

	return domain.RiskAssessment{
		Score:   score,
		Level:   domain.LevelForScore(score),
		Factors: factors,
	}
}

func sanctionFactor(res domain.Resolution) domain.RiskFactor {
	source := res.SanctionSource
	if source == "" {
		source = "sanctions list"
	}
	name := res.EntityName
	if name == "" && len(res.Labels) > 0 {
		name = res.Labels[0]
	}
	desc := fmt.Sprintf("Sanctioned by %s", source)
	if name != "" {
		desc = fmt.Sprintf("Sanctioned by %s: %s", source, name)
	}
	return domain.RiskFactor{
		Code:        "sanctioned",
		Description: desc,
		Severity:    domain.RiskCritical,
		Points:      maxScore,
	}
}
