package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
)

func (h *Handler) requireRepo(w http.ResponseWriter) bool {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return false
	}
	return true
}

// ListFields handles GET /fields.
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	fields, err := h.repo.ListFieldDefinitions(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": fields,
		"count":  len(fields),
	})
}

// CreateField handles POST /fields.
func (h *Handler) CreateField(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	var field domain.FieldDefinition
	if !decodeBody(w, r, &field) {
		return
	}
	if field.ID == "" {
		field.ID = uuid.NewString()
	}

	tenantID := tenantFrom(r.Context())
	if err := h.repo.SaveFieldDefinition(r.Context(), tenantID, &field); err != nil {
		writeFailure(w, r, err)
		return
	}
	field.TenantID = tenantID
	writeJSON(w, http.StatusCreated, field)
}

// DeleteField handles DELETE /fields/{id}.
func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	if err := h.repo.DeleteFieldDefinition(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListValidationRules handles GET /validation-rules. It lists the stored
// rules; the loaded count shows whether a reload is pending.
func (h *Handler) ListValidationRules(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	tenantID := tenantFrom(r.Context())
	rules, err := h.repo.ListValidationRules(r.Context(), tenantID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  rules,
		"count":  len(rules),
		"loaded": len(h.pipeline.Rules().Rules(tenantID)),
	})
}

// GetValidationRule handles GET /validation-rules/{id}.
func (h *Handler) GetValidationRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	rule, err := h.repo.GetValidationRule(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// checkRule rejects an expression that does not compile, so broken rules
// never reach the store.
func (h *Handler) checkRule(w http.ResponseWriter, rule *domain.ValidationRule) bool {
	if err := h.pipeline.Validator().CheckExpression(rule.Expression); err != nil {
		writeError(w, http.StatusBadRequest, "invalid expression: "+err.Error())
		return false
	}
	return true
}

// CreateValidationRule handles POST /validation-rules. The tenant's rules
// are reloaded so the rule applies immediately on this replica.
func (h *Handler) CreateValidationRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	var rule domain.ValidationRule
	if !decodeBody(w, r, &rule) || !h.checkRule(w, &rule) {
		return
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	h.saveRule(w, r, &rule, http.StatusCreated)
}

// UpdateValidationRule handles PUT /validation-rules/{id}.
func (h *Handler) UpdateValidationRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := h.repo.GetValidationRule(ctx, tenantFrom(ctx), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	var rule domain.ValidationRule
	if !decodeBody(w, r, &rule) || !h.checkRule(w, &rule) {
		return
	}
	rule.ID = id
	rule.CreatedAt = existing.CreatedAt
	h.saveRule(w, r, &rule, http.StatusOK)
}

func (h *Handler) saveRule(w http.ResponseWriter, r *http.Request, rule *domain.ValidationRule, status int) {
	ctx := r.Context()
	tenantID := tenantFrom(ctx)

	if err := h.repo.SaveValidationRule(ctx, tenantID, rule); err != nil {
		writeFailure(w, r, err)
		return
	}
	rule.TenantID = tenantID
	h.reload(r)

	slog.Info("validation rule saved", "tenant_id", tenantID, "rule_id", rule.ID, "name", rule.Name)
	writeJSON(w, status, rule)
}

// DeleteValidationRule handles DELETE /validation-rules/{id}.
func (h *Handler) DeleteValidationRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	if err := h.repo.DeleteValidationRule(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, err)
		return
	}
	h.reload(r)
	w.WriteHeader(http.StatusNoContent)
}

// ReloadValidationRules handles POST /validation-rules/reload.
func (h *Handler) ReloadValidationRules(w http.ResponseWriter, r *http.Request) {
	n, err := h.pipeline.ReloadRules(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   n,
	})
}

// reload refreshes the tenant's rules after a write. The write already
// succeeded, so a failure here is logged and left to the scheduled reload.
func (h *Handler) reload(r *http.Request) {
	tenantID := tenantFrom(r.Context())
	if _, err := h.pipeline.ReloadRules(r.Context(), tenantID); err != nil {
		slog.Error("failed to reload validation rules", "tenant_id", tenantID, "error", err)
	}
}

// ValidateRequest is the request body for POST /validate. Without Rules the
// tenant's loaded rules are used.
type ValidateRequest struct {
	Fields []domain.ExtractedField `json:"fields" validate:"required"`
	Rules  []domain.ValidationRule `json:"rules,omitempty" validate:"omitempty,dive"`
}

// Validate handles POST /validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	for i := range req.Rules {
		if !h.checkRule(w, &req.Rules[i]) {
			return
		}
	}
	writeJSON(w, http.StatusOK, h.pipeline.Validate(tenantFrom(r.Context()), req.Fields, req.Rules))
}
