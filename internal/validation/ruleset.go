package validation

import (
	"sort"
	"sync"

	"github.com/opensource-finance/harrier/internal/domain"
)

// RuleSet holds the stored validation rules per tenant in memory.
// It is refreshed from the repository on demand and by the scheduler.
type RuleSet struct {
	mu       sync.RWMutex
	byTenant map[string][]domain.ValidationRule
}

// NewRuleSet creates an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{byTenant: make(map[string][]domain.ValidationRule)}
}

// Replace swaps the rules of one tenant. Rules are ordered by creation time.
// An empty list forgets the tenant.
func (s *RuleSet) Replace(tenantID string, rules []*domain.ValidationRule) {
	list := make([]domain.ValidationRule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			list = append(list, *r)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(list) == 0 {
		delete(s.byTenant, tenantID)
		return
	}
	s.byTenant[tenantID] = list
}

// Rules returns a copy of a tenant's rules.
func (s *RuleSet) Rules(tenantID string) []domain.ValidationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ValidationRule(nil), s.byTenant[tenantID]...)
}

// Count returns the number of rules loaded across tenants.
func (s *RuleSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rules := range s.byTenant {
		n += len(rules)
	}
	return n
}

// Tenants returns the tenants with loaded rules, sorted.
func (s *RuleSet) Tenants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenants := make([]string, 0, len(s.byTenant))
	for t := range s.byTenant {
		tenants = append(tenants, t)
	}
	sort.Strings(tenants)
	return tenants
}
