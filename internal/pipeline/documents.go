package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/intake"
	"github.com/opensource-finance/harrier/internal/metrics"
)

// ProcessDocument checks an upload, extracts the tenant's fields, validates
// them against the loaded rules and stores the document.
func (p *Pipeline) ProcessDocument(ctx context.Context, tenantID, filename string, data []byte) (*domain.Document, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ProcessDocument", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.Int("document.size", len(data)),
	))
	defer span.End()

	upload, err := intake.CheckUpload(p.uploadSpec, filename, data)
	if err != nil {
		return nil, err
	}
	if p.extractor == nil {
		return nil, extraction.ErrDisabled
	}

	var defs []domain.FieldDefinition
	if p.repo != nil {
		list, err := p.repo.ListFieldDefinitions(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("load field definitions: %w", err)
		}
		for _, f := range list {
			defs = append(defs, *f)
		}
	}

	result, err := p.extractor.Extract(ctx, upload, defs)
	metrics.ObserveExtraction(err)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	verdict := p.Validate(tenantID, result.Fields, nil)
	doc := &domain.Document{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Size:        len(upload.Data),
		Fields:      result.Fields,
		Verdict:     &verdict,
		UploadedAt:  p.now().UTC(),
	}
	span.SetAttributes(attribute.String("document.verdict", verdict.Status))

	if p.repo != nil {
		if err := p.repo.SaveDocument(ctx, tenantID, doc); err != nil {
			return nil, fmt.Errorf("save document: %w", err)
		}
	}

	if b, err := json.Marshal(doc); err == nil {
		p.publish(ctx, tenantID, domain.TopicDocumentExtracted, b)
	}

	p.logger.Info("document processed",
		"tenant_id", tenantID,
		"document_id", doc.ID,
		"fields", len(doc.Fields),
		"verdict", verdict.Status,
	)
	return doc, nil
}

// Validate evaluates fields against inline rules, or the tenant's loaded
// rules when inline is nil.
func (p *Pipeline) Validate(tenantID string, fields []domain.ExtractedField, inline []domain.ValidationRule) domain.Verdict {
	rules := inline
	if rules == nil {
		rules = p.rules.Rules(tenantID)
	}
	verdict := p.validator.Evaluate(fields, rules)
	metrics.ObserveVerdict(verdict.Status)
	return verdict
}

// Document returns a stored document.
func (p *Pipeline) Document(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	if p.repo == nil {
		return nil, ErrNotFound
	}
	return p.repo.GetDocument(ctx, tenantID, id)
}

// RevalidateDocument re-runs the current rules over a stored document and
// saves the new verdict.
func (p *Pipeline) RevalidateDocument(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	doc, err := p.Document(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	verdict := p.Validate(tenantID, doc.Fields, nil)
	doc.Verdict = &verdict
	if err := p.repo.SaveDocument(ctx, tenantID, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// ReloadRules refreshes one tenant's rules from the store and returns how
// many were loaded.
func (p *Pipeline) ReloadRules(ctx context.Context, tenantID string) (int, error) {
	if p.repo == nil {
		return 0, nil
	}
	rules, err := p.repo.ListValidationRules(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("load validation rules: %w", err)
	}
	p.rules.Replace(tenantID, rules)
	return len(rules), nil
}

// ReloadAllRules refreshes every tenant known to the store or already
// loaded, so tenants whose rules were all deleted are cleared.
func (p *Pipeline) ReloadAllRules(ctx context.Context) (int, error) {
	if p.repo == nil {
		return 0, nil
	}
	stored, err := p.repo.ListRuleTenants(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rule tenants: %w", err)
	}

	seen := make(map[string]bool)
	total := 0
	for _, tenantID := range append(stored, p.rules.Tenants()...) {
		if seen[tenantID] {
			continue
		}
		seen[tenantID] = true
		n, err := p.ReloadRules(ctx, tenantID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
