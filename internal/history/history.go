// Package history fills claim history from stored assessments.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Counter is the slice of the repository history needs.
type Counter interface {
	CountAssessmentsBySubject(ctx context.Context, tenantID string, q domain.SubjectQuery) (int64, error)
}

// Service counts a claimant's earlier claims from stored fraud assessments.
type Service struct {
	store  Counter
	window time.Duration
	now    func() time.Time
}

// NewService creates a history service looking back over window.
func NewService(store Counter, window time.Duration) *Service {
	if window <= 0 {
		window = 365 * 24 * time.Hour
	}
	return &Service{store: store, window: window, now: time.Now}
}

// PriorClaims returns how many distinct claims the subject has within the
// window. The claim with claimID, when set, is left out so re-scoring a
// claim never counts itself.
func (s *Service) PriorClaims(ctx context.Context, tenantID, subject, claimID string) (int, error) {
	if tenantID == "" || subject == "" {
		return 0, fmt.Errorf("tenantID and subject are required")
	}

	n, err := s.store.CountAssessmentsBySubject(ctx, tenantID, domain.SubjectQuery{
		Kind:          domain.KindFraud,
		Subject:       subject,
		Since:         s.now().Add(-s.window),
		ExcludeSource: claimID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count prior claims: %w", err)
	}
	return int(n), nil
}

// Enrich returns the claim to score: a copy with PriorClaimsCount taken from
// history when the caller omitted it, plus the derived count. The derived
// count is nil when the claim already carries one or names no claimant. The
// caller's claim is never modified.
func (s *Service) Enrich(ctx context.Context, tenantID string, claim domain.ClaimInput) (domain.ClaimInput, *int, error) {
	if claim.PriorClaimsCount != nil {
		return claim, nil, nil
	}
	subject := claim.Subject()
	if subject == "" {
		return claim, nil, nil
	}

	n, err := s.PriorClaims(ctx, tenantID, subject, claim.ClaimID)
	if err != nil {
		return claim, nil, err
	}
	derived := domain.Ptr(n)
	claim.PriorClaimsCount = derived
	return claim, derived, nil
}
