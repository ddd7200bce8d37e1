package domain

import (
	"encoding/json"
	"time"
)

// Operator is a comparison used by a validation condition.
type Operator string

const (
	OpGreaterThan        Operator = "greaterThan"
	OpLessThan           Operator = "lessThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "notContains"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
	OpEquals, OpNotEquals, OpContains, OpNotContains,
}

// RuleLogic combines a rule's conditions.
type RuleLogic string

const (
	LogicAll RuleLogic = "all"
	LogicAny RuleLogic = "any"
)

// RuleAction decides how a match maps to pass/fail.
type RuleAction string

const (
	// ActionFail fails the rule when its conditions match.
	ActionFail RuleAction = "fail"
	// ActionPass passes the rule only when its conditions match.
	ActionPass RuleAction = "pass"
)

// Verdict statuses.
const (
	VerdictPending = "pending"
	VerdictPass    = "pass"
	VerdictFail    = "fail"
)

// NotAvailable is the actual value reported for a missing field.
const NotAvailable = "N/A"

// FieldDefinition describes a field users expect to extract from documents.
type FieldDefinition struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenantId,omitempty"`
	Name        string    `json:"name" validate:"required,max=100"`
	Label       string    `json:"label" validate:"required,max=100"`
	Type        string    `json:"type" validate:"required,oneof=text number currency percent date"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty" validate:"max=500"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Condition is one field comparison inside a validation rule.
type Condition struct {
	Field    string   `json:"field" validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=greaterThan lessThan greaterThanOrEqual lessThanOrEqual equals notEquals contains notContains"`
	Value    string   `json:"value"`
}

// ValidationRule is a user-authored rule over extracted fields.
type ValidationRule struct {
	ID          string      `json:"id"`
	TenantID    string      `json:"tenantId,omitempty"`
	Name        string      `json:"name" validate:"required,max=100"`
	Description string      `json:"description,omitempty" validate:"max=500"`
	Conditions  []Condition `json:"conditions" validate:"dive"`
	Logic       RuleLogic   `json:"logic" validate:"required,oneof=all any"`
	Action      RuleAction  `json:"action" validate:"required,oneof=fail pass"`
	Message     string      `json:"message,omitempty"`
	Expression  string      `json:"expression,omitempty"`
	Enabled     bool        `json:"enabled"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// UnmarshalJSON treats a missing "enabled" key as true, so rules written
// without the flag take effect.
func (r *ValidationRule) UnmarshalJSON(data []byte) error {
	type plain ValidationRule
	rule := plain{Enabled: true}
	if err := json.Unmarshal(data, &rule); err != nil {
		return err
	}
	*r = ValidationRule(rule)
	return nil
}

// ConditionResult is the outcome of one condition.
type ConditionResult struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Expected string   `json:"expected"`
	Actual   string   `json:"actual"`
	Matched  bool     `json:"matched"`
}

// RuleResult is the outcome of one validation rule.
type RuleResult struct {
	RuleID     string            `json:"ruleId"`
	RuleName   string            `json:"ruleName"`
	Action     RuleAction        `json:"action"`
	Matched    bool              `json:"matched"`
	Passed     bool              `json:"passed"`
	Message    string            `json:"message"`
	Conditions []ConditionResult `json:"conditions"`
	Error      string            `json:"error,omitempty"`
}

// Verdict is the outcome of a rule set over one record.
type Verdict struct {
	Status      string       `json:"status"`
	Results     []RuleResult `json:"results"`
	EvaluatedAt time.Time    `json:"evaluatedAt"`
}
