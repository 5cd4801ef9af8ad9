package risk

import "github.com/investigate/case-graph/internal/domain"

// CallActivity is the aggregated call behaviour of one identifier
type CallActivity struct {
	Calls           int
	DurationSeconds int
	IsSuspect       bool
}

// ClassifyCalls rates an identifier's call activity. Rules are ordered; the first match wins.
func ClassifyCalls(a CallActivity) (domain.RiskLevel, int) {
	switch {
	case a.IsSuspect:
		return domain.RiskCritical, 90
	case a.Calls > 50 || a.DurationSeconds > 10000:
		return domain.RiskHigh, 75
	case a.Calls > 20 || a.DurationSeconds > 5000:
		return domain.RiskMedium, 50
	case a.Calls > 5:
		return domain.RiskLow, 25
	default:
		return domain.RiskUnknown, 0
	}
}
