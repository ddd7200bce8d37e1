// Package extraction calls the external document extraction service.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrDisabled is returned when no extraction endpoint is configured.
var ErrDisabled = errors.New("extraction is not configured")

// StatusError is a non-2xx response from the extraction service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("extraction service returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether the call may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client posts documents to an HTTP extraction endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// request is the body sent to the extraction service.
type request struct {
	Filename    string        `json:"filename"`
	ContentType string        `json:"contentType"`
	Data        []byte        `json:"data"`
	Fields      []fieldPrompt `json:"fields"`
}

type fieldPrompt struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// NewClient builds a client from configuration. An empty endpoint yields a
// client whose calls fail with ErrDisabled.
func NewClient(cfg domain.ExtractionConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Extract sends the upload and the wanted fields and returns the fields
// the service found. A result carrying an error message is returned as an
// error.
func (c *Client) Extract(ctx context.Context, upload domain.Upload, fields []domain.FieldDefinition) (*domain.ExtractionResult, error) {
	if c.endpoint == "" {
		return nil, ErrDisabled
	}

	prompts := make([]fieldPrompt, len(fields))
	for i, f := range fields {
		prompts[i] = fieldPrompt{Name: f.Name, Label: f.Label, Type: f.Type, Description: f.Description}
	}
	body, err := json.Marshal(request{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		Data:        upload.Data,
		Fields:      prompts,
	})
	if err != nil {
		return nil, fmt.Errorf("encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var result domain.ExtractionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("extraction failed: %s", result.Error)
	}
	if result.Fields == nil {
		result.Fields = []domain.ExtractedField{}
	}
	return &result, nil
}

var _ domain.Extractor = (*Client)(nil)
