package underwriting

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
)

// Summarize writes the plain-language rationale for an underwriting
// assessment. Signals must already be sorted by severity.
func Summarize(a *domain.UnderwritingAssessment) string {
	if len(a.TriggeredSignals) == 0 {
		return fmt.Sprintf("No underwriting concerns were identified. The applicant qualifies for %s terms at the base premium of %s.",
			a.RiskTier, engine.Money(a.BasePremium))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Risk tier is %s (risk %d/100, profitability %d/100). ",
		strings.ToUpper(a.RiskTier), a.OverallRiskScore, a.ProfitabilityScore)

	factors := engine.Plural(len(a.TriggeredSignals), "factor", "factors")
	verb := "were"
	if len(a.TriggeredSignals) == 1 {
		verb = "was"
	}
	fmt.Fprintf(&b, "%s %s identified (%s). ", factors, verb,
		engine.SeverityPhrase(domain.CountSeverities(a.TriggeredSignals)))
	fmt.Fprintf(&b, "The most significant is %s. ", a.TriggeredSignals[0].Name)

	switch {
	case a.AdjustmentPercentage > 0:
		fmt.Fprintf(&b, "The premium is loaded by %d%% to %s. ", a.AdjustmentPercentage, engine.Money(a.RecommendedPremium))
	case a.AdjustmentPercentage < 0:
		fmt.Fprintf(&b, "The premium is discounted by %d%% to %s. ", -a.AdjustmentPercentage, engine.Money(a.RecommendedPremium))
	default:
		fmt.Fprintf(&b, "The premium stays at %s. ", engine.Money(a.RecommendedPremium))
	}
	b.WriteString(recommendation(a.RiskTier))
	return b.String()
}

func recommendation(tier string) string {
	switch tier {
	case domain.TierPreferred:
		return "Approve at preferred rates."
	case domain.TierStandard:
		return "Approve at standard rates."
	case domain.TierSubstandard:
		return "Approve with a premium loading and consider exclusions for the flagged factors."
	case domain.TierDecline:
		return "Decline the application or refer it to a senior underwriter."
	default:
		return "Refer the application for manual review."
	}
}
