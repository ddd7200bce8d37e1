package domain

import (
	"time"
)

// Fraud risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Underwriting tiers.
const (
	TierPreferred   = "preferred"
	TierStandard    = "standard"
	TierSubstandard = "substandard"
	TierDecline     = "decline"
)

// FraudAssessment is the fraud scoring result for one claim.
type FraudAssessment struct {
	ID               string     `json:"id"`
	OverallScore     int        `json:"overallScore"`
	RiskLevel        string     `json:"riskLevel"`
	TriggeredSignals []Signal   `json:"triggeredSignals"`
	EvaluatedAt      time.Time  `json:"evaluatedAt"`
	InputData        ClaimInput `json:"inputData"`
	Summary          string     `json:"summary"`

	// DerivedPriorClaims is the stored claim history used for scoring when
	// InputData omits priorClaimsCount.
	DerivedPriorClaims *int `json:"derivedPriorClaimsCount,omitempty"`
}

// UnderwritingAssessment is the underwriting result for one application.
type UnderwritingAssessment struct {
	ID                   string           `json:"id"`
	OverallRiskScore     int              `json:"overallRiskScore"`
	ProfitabilityScore   int              `json:"profitabilityScore"`
	RiskTier             string           `json:"riskTier"`
	TriggeredSignals     []Signal         `json:"triggeredSignals"`
	EvaluatedAt          time.Time        `json:"evaluatedAt"`
	InputData            ApplicationInput `json:"inputData"`
	Summary              string           `json:"summary"`
	BasePremium          float64          `json:"basePremium"`
	AdjustmentPercentage int              `json:"adjustmentPercentage"`
	RecommendedPremium   float64          `json:"recommendedPremium"`
	ProjectedLossRatio   int              `json:"projectedLossRatio"`
	IsApproved           bool             `json:"isApproved"`
	DeclineReason        string           `json:"declineReason,omitempty"`
}

// FraudBatchSummary aggregates a fraud batch.
type FraudBatchSummary struct {
	LowRisk      int     `json:"lowRisk"`
	MediumRisk   int     `json:"mediumRisk"`
	HighRisk     int     `json:"highRisk"`
	AverageScore float64 `json:"averageScore"`
	TotalSignals int     `json:"totalSignals"`
}

// TierCounts returns the per-level counts in ascending risk order.
func (s FraudBatchSummary) TierCounts() map[string]int {
	return map[string]int{RiskLow: s.LowRisk, RiskMedium: s.MediumRisk, RiskHigh: s.HighRisk}
}

// FraudBulkResult is the result of scoring a batch of claims.
type FraudBulkResult struct {
	TotalCount    int               `json:"totalCount"`
	RejectedCount int               `json:"rejectedCount"`
	AnalyzedAt    time.Time         `json:"analyzedAt"`
	Summary       FraudBatchSummary `json:"summary"`
	Results       []FraudAssessment `json:"results"`
}

// UnderwritingBatchSummary aggregates an underwriting batch.
type UnderwritingBatchSummary struct {
	Preferred                 int     `json:"preferred"`
	Standard                  int     `json:"standard"`
	Substandard               int     `json:"substandard"`
	Decline                   int     `json:"decline"`
	Approved                  int     `json:"approved"`
	AverageRiskScore          float64 `json:"averageRiskScore"`
	AverageProfitabilityScore float64 `json:"averageProfitabilityScore"`
	TotalRecommendedPremium   float64 `json:"totalRecommendedPremium"`
}

// TierCounts returns the per-tier counts.
func (s UnderwritingBatchSummary) TierCounts() map[string]int {
	return map[string]int{
		TierPreferred:   s.Preferred,
		TierStandard:    s.Standard,
		TierSubstandard: s.Substandard,
		TierDecline:     s.Decline,
	}
}

// UnderwritingBulkResult is the result of scoring a batch of applications.
type UnderwritingBulkResult struct {
	TotalCount    int                      `json:"totalCount"`
	RejectedCount int                      `json:"rejectedCount"`
	AnalyzedAt    time.Time                `json:"analyzedAt"`
	Summary       UnderwritingBatchSummary `json:"summary"`
	Results       []UnderwritingAssessment `json:"results"`
}

// Assessment kinds used by stored records and events.
const (
	KindFraud        = "fraud"
	KindUnderwriting = "underwriting"
)

// AssessmentRecord is the stored form of an assessment of either kind.
type AssessmentRecord struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId"`
	Kind        string    `json:"kind"`
	Subject     string    `json:"subject"`
	SourceID    string    `json:"sourceId,omitempty"`
	Tier        string    `json:"tier"`
	Score       int       `json:"score"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
	Payload     []byte    `json:"-"`
}

// SubjectQuery selects a subject's earlier assessments of one kind.
// Assessments sharing a SourceID (the claim or application ID) count once;
// those without one count individually. ExcludeSource drops one source,
// usually the record being scored.
type SubjectQuery struct {
	Kind          string
	Subject       string
	Since         time.Time
	ExcludeSource string
}
