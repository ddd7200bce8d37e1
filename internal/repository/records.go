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

// SaveDocument inserts or replaces an uploaded document and its verdict.
func (r *SQLRepository) SaveDocument(ctx context.Context, tenantID string, doc *domain.Document) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}

	fields := doc.Fields
	if fields == nil {
		fields = []domain.ExtractedField{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	var verdict sql.NullString
	if doc.Verdict != nil {
		b, err := json.Marshal(doc.Verdict)
		if err != nil {
			return fmt.Errorf("marshal verdict: %w", err)
		}
		verdict = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO documents (id, tenant_id, filename, content_type, size, fields, verdict, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			fields = excluded.fields,
			verdict = excluded.verdict
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		doc.ID, tenantID, doc.Filename, doc.ContentType, doc.Size,
		string(fieldsJSON), verdict, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	doc.TenantID = tenantID
	return nil
}

// GetDocument retrieves a document by ID with tenant isolation.
func (r *SQLRepository) GetDocument(ctx context.Context, tenantID string, docID string) (*domain.Document, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, filename, content_type, size, fields, verdict, uploaded_at
		FROM documents
		WHERE tenant_id = ? AND id = ?
	`

	var doc domain.Document
	var fields string
	var verdict sql.NullString
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, docID).Scan(
		&doc.ID, &doc.TenantID, &doc.Filename, &doc.ContentType, &doc.Size,
		&fields, &verdict, &doc.UploadedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		return nil, fmt.Errorf("document %s: decode fields: %w", doc.ID, err)
	}
	if verdict.Valid && verdict.String != "" {
		doc.Verdict = &domain.Verdict{}
		if err := json.Unmarshal([]byte(verdict.String), doc.Verdict); err != nil {
			return nil, fmt.Errorf("document %s: decode verdict: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

// SaveAssessment stores a scored assessment. Records are immutable; saving
// an existing ID is an error.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, rec *domain.AssessmentRecord) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" || rec.Kind == "" {
		return fmt.Errorf("%w: assessment id and kind are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO assessments (id, tenant_id, kind, subject, source_id, tier, score, evaluated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, rec.Kind, rec.Subject, rec.SourceID, rec.Tier, rec.Score,
		rec.EvaluatedAt.UnixMilli(), string(rec.Payload),
	)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	rec.TenantID = tenantID
	return nil
}

// GetAssessment retrieves a stored assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.AssessmentRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, kind, subject, source_id, tier, score, evaluated_at, payload
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	var rec domain.AssessmentRecord
	var evaluatedAt int64
	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id).Scan(
		&rec.ID, &rec.TenantID, &rec.Kind, &rec.Subject, &rec.SourceID, &rec.Tier, &rec.Score,
		&evaluatedAt, &payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.EvaluatedAt = time.UnixMilli(evaluatedAt).UTC()
	rec.Payload = []byte(payload)
	return &rec, nil
}

// CountAssessmentsBySubject counts the distinct sources behind a subject's
// assessments of one kind evaluated at or after q.Since. Re-scoring the same
// claim therefore counts once.
func (r *SQLRepository) CountAssessmentsBySubject(ctx context.Context, tenantID string, q domain.SubjectQuery) (int64, error) {
	if err := requireTenant(tenantID); err != nil {
		return 0, err
	}
	if q.Subject == "" {
		return 0, nil
	}

	query := `
		SELECT COUNT(DISTINCT CASE WHEN source_id = '' THEN id ELSE source_id END)
		FROM assessments
		WHERE tenant_id = ? AND kind = ? AND subject = ? AND evaluated_at >= ?
	`
	args := []any{tenantID, q.Kind, q.Subject, q.Since.UnixMilli()}
	if q.ExcludeSource != "" {
		query += " AND source_id <> ?"
		args = append(args, q.ExcludeSource)
	}

	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), args...).Scan(&count)
	return count, err
}

// PruneAssessments deletes assessments evaluated before the cutoff across
// all tenants and reports how many were removed.
func (r *SQLRepository) PruneAssessments(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM assessments WHERE evaluated_at < ?`),
		before.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
