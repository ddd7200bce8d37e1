package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/opensource-finance/harrier/internal/domain"
)

// assessmentEntry is the msgpack form of a cached assessment record.
type assessmentEntry struct {
	ID          string    `msgpack:"id"`
	Kind        string    `msgpack:"kind"`
	Subject     string    `msgpack:"subject"`
	SourceID    string    `msgpack:"source_id,omitempty"`
	Tier        string    `msgpack:"tier"`
	Score       int       `msgpack:"score"`
	EvaluatedAt time.Time `msgpack:"evaluated_at"`
	Payload     []byte    `msgpack:"payload"`
}

func assessmentKey(id string) string {
	return "assessment:" + id
}

// PutAssessment caches rec under its ID.
func PutAssessment(ctx context.Context, c domain.Cache, tenantID string, rec *domain.AssessmentRecord, ttl time.Duration) error {
	b, err := msgpack.Marshal(&assessmentEntry{
		ID:          rec.ID,
		Kind:        rec.Kind,
		Subject:     rec.Subject,
		SourceID:    rec.SourceID,
		Tier:        rec.Tier,
		Score:       rec.Score,
		EvaluatedAt: rec.EvaluatedAt,
		Payload:     rec.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode assessment %s: %w", rec.ID, err)
	}
	return c.Set(ctx, tenantID, assessmentKey(rec.ID), b, ttl)
}

// GetAssessment returns nil, nil on a miss.
func GetAssessment(ctx context.Context, c domain.Cache, tenantID string, id string) (*domain.AssessmentRecord, error) {
	b, err := c.Get(ctx, tenantID, assessmentKey(id))
	if err != nil || b == nil {
		return nil, err
	}

	var e assessmentEntry
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode assessment %s: %w", id, err)
	}
	return &domain.AssessmentRecord{
		ID:          e.ID,
		TenantID:    tenantID,
		Kind:        e.Kind,
		Subject:     e.Subject,
		SourceID:    e.SourceID,
		Tier:        e.Tier,
		Score:       e.Score,
		EvaluatedAt: e.EvaluatedAt,
		Payload:     e.Payload,
	}, nil
}
