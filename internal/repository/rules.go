package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// SaveFieldDefinition inserts or replaces a field definition.
func (r *SQLRepository) SaveFieldDefinition(ctx context.Context, tenantID string, field *domain.FieldDefinition) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if field == nil || field.ID == "" {
		return fmt.Errorf("%w: field id is required", ErrInvalidInput)
	}
	if field.CreatedAt.IsZero() {
		field.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO field_definitions (id, tenant_id, name, label, type, required, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, tenant_id) DO UPDATE SET
			name = excluded.name,
			label = excluded.label,
			type = excluded.type,
			required = excluded.required,
			description = excluded.description
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		field.ID, tenantID, field.Name, field.Label, field.Type,
		boolInt(field.Required), field.Description, field.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save field definition: %w", err)
	}
	field.TenantID = tenantID
	return nil
}

// ListFieldDefinitions returns the tenant's field definitions, oldest first.
func (r *SQLRepository) ListFieldDefinitions(ctx context.Context, tenantID string) ([]*domain.FieldDefinition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, name, label, type, required, description, created_at
		FROM field_definitions
		WHERE tenant_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []*domain.FieldDefinition
	for rows.Next() {
		var f domain.FieldDefinition
		var required int
		var description sql.NullString
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Name, &f.Label, &f.Type, &required, &description, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Required = required != 0
		f.Description = description.String
		fields = append(fields, &f)
	}
	return fields, rows.Err()
}

// DeleteFieldDefinition removes a field definition.
func (r *SQLRepository) DeleteFieldDefinition(ctx context.Context, tenantID string, fieldID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM field_definitions WHERE tenant_id = ? AND id = ?`),
		tenantID, fieldID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SaveValidationRule inserts or replaces a validation rule. Conditions are
// stored as JSON.
func (r *SQLRepository) SaveValidationRule(ctx context.Context, tenantID string, rule *domain.ValidationRule) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	conditions := rule.Conditions
	if conditions == nil {
		conditions = []domain.Condition{}
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}

	query := `
		INSERT INTO validation_rules (
			id, tenant_id, name, description, conditions, logic, action,
			message, expression, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			conditions = excluded.conditions,
			logic = excluded.logic,
			action = excluded.action,
			message = excluded.message,
			expression = excluded.expression,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description, string(condJSON),
		string(rule.Logic), string(rule.Action), rule.Message, rule.Expression,
		boolInt(rule.Enabled), rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save validation rule: %w", err)
	}
	rule.TenantID = tenantID
	return nil
}

const selectValidationRule = `
	SELECT id, tenant_id, name, description, conditions, logic, action,
		   message, expression, enabled, created_at, updated_at
	FROM validation_rules
`

// GetValidationRule retrieves a rule by ID with tenant isolation.
func (r *SQLRepository) GetValidationRule(ctx context.Context, tenantID string, ruleID string) (*domain.ValidationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx,
		r.rebind(selectValidationRule+` WHERE tenant_id = ? AND id = ?`),
		tenantID, ruleID,
	)
	rule, err := scanValidationRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListValidationRules returns all of a tenant's rules in creation order.
func (r *SQLRepository) ListValidationRules(ctx context.Context, tenantID string) ([]*domain.ValidationRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		r.rebind(selectValidationRule+` WHERE tenant_id = ? ORDER BY created_at, id`),
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ValidationRule
	for rows.Next() {
		rule, err := scanValidationRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteValidationRule removes a rule.
func (r *SQLRepository) DeleteValidationRule(ctx context.Context, tenantID string, ruleID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM validation_rules WHERE tenant_id = ? AND id = ?`),
		tenantID, ruleID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListRuleTenants returns every tenant that owns at least one rule.
func (r *SQLRepository) ListRuleTenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT tenant_id FROM validation_rules ORDER BY tenant_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanValidationRule(s scanner) (*domain.ValidationRule, error) {
	var rule domain.ValidationRule
	var description, message, expression sql.NullString
	var conditions, logic, action string
	var enabled int

	err := s.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &description, &conditions,
		&logic, &action, &message, &expression, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
		return nil, fmt.Errorf("rule %s: decode conditions: %w", rule.ID, err)
	}
	rule.Description = description.String
	rule.Message = message.String
	rule.Expression = expression.String
	rule.Logic = domain.RuleLogic(logic)
	rule.Action = domain.RuleAction(action)
	rule.Enabled = enabled != 0
	return &rule, nil
}
