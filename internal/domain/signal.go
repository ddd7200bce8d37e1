package domain

// Severity is the presentation priority of a signal. It does not affect
// the score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities for display: critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Dimension is the sub-score a rule feeds.
type Dimension string

const (
	DimensionRisk          Dimension = "risk"
	DimensionProfitability Dimension = "profitability"
)

// Signal is one triggered rule inside an assessment.
type Signal struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Severity        Severity  `json:"severity"`
	Dimension       Dimension `json:"dimension,omitempty"`
	Confidence      int       `json:"confidence"`
	ImpactedFields  []string  `json:"impactedFields"`
	ScoreImpact     int       `json:"scoreImpact"`
	RemediationHint string    `json:"remediationHint,omitempty"`
}

// SeverityCounts tallies signals by severity.
type SeverityCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// CountSeverities tallies the given signals.
func CountSeverities(signals []Signal) SeverityCounts {
	var c SeverityCounts
	for _, s := range signals {
		switch s.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityWarning:
			c.Warning++
		default:
			c.Info++
		}
	}
	return c
}
