package domain

import (
	"context"
	"time"
)

// ExtractedField is one field returned by document extraction.
type ExtractedField struct {
	Label      string  `json:"label"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ExtractionResult is the response of the extraction service.
type ExtractionResult struct {
	Fields []ExtractedField `json:"fields"`
	Error  string           `json:"error,omitempty"`
}

// Upload is a document accepted at the upload boundary.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Extractor turns an uploaded document into structured fields.
// Implementations call an external model and may be slow.
type Extractor interface {
	Extract(ctx context.Context, upload Upload, fields []FieldDefinition) (*ExtractionResult, error)
}

// Document is an uploaded document with its extracted fields.
type Document struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenantId"`
	Filename    string           `json:"filename"`
	ContentType string           `json:"contentType"`
	Size        int              `json:"size"`
	Fields      []ExtractedField `json:"fields"`
	Verdict     *Verdict         `json:"verdict,omitempty"`
	UploadedAt  time.Time        `json:"uploadedAt"`
}
