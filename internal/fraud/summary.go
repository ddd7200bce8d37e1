package fraud

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
)

// Summarize writes the plain-language rationale for a fraud assessment.
// signals must already be sorted by severity.
func Summarize(level string, score int, signals []domain.Signal) string {
	if len(signals) == 0 {
		return "No fraud indicators were detected. The claim is consistent with the policy terms and can proceed through standard processing."
	}

	counts := domain.CountSeverities(signals)
	var b strings.Builder
	fmt.Fprintf(&b, "Fraud risk is %s (score %d/100). ", strings.ToUpper(level), score)
	verb := "were"
	if len(signals) == 1 {
		verb = "was"
	}
	fmt.Fprintf(&b, "%s %s detected (%s). ",
		engine.Plural(len(signals), "indicator", "indicators"), verb, engine.SeverityPhrase(counts))
	fmt.Fprintf(&b, "The most significant is %s: %s. ", signals[0].Name, strings.TrimSuffix(signals[0].Description, "."))
	b.WriteString(recommendation(level))
	return b.String()
}

func recommendation(level string) string {
	switch level {
	case domain.RiskHigh:
		return "Refer the claim to special investigations before any payment is made."
	case domain.RiskMedium:
		return "Request supporting documentation and review the claim manually before approval."
	case domain.RiskLow:
		return "Proceed with standard processing and keep the flagged items on file."
	default:
		return "Review the flagged items before deciding on the claim."
	}
}
