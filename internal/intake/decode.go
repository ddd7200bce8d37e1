package intake

import (
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DecodeClaim validates raw against the claim schema and decodes it.
func DecodeClaim(raw []byte) (domain.ClaimInput, error) {
	var claim domain.ClaimInput
	if err := validateRaw(claimSchema, raw); err != nil {
		return claim, err
	}
	if err := json.Unmarshal(raw, &claim); err != nil {
		return domain.ClaimInput{}, &RecordError{Problems: []string{err.Error()}}
	}
	return claim, nil
}

// DecodeApplication validates raw against the application schema and
// decodes it.
func DecodeApplication(raw []byte) (domain.ApplicationInput, error) {
	var app domain.ApplicationInput
	if err := validateRaw(applicationSchema, raw); err != nil {
		return app, err
	}
	if err := json.Unmarshal(raw, &app); err != nil {
		return domain.ApplicationInput{}, &RecordError{Problems: []string{err.Error()}}
	}
	return app, nil
}

// Decoded pairs a record with its position in the submitted batch.
type Decoded[T any] struct {
	Index int
	Value T
}

// DecodeAll decodes every record with decode, dropping invalid ones.
// rejected receives the index and error of each dropped record.
func DecodeAll[T any](records []json.RawMessage, decode func([]byte) (T, error), rejected func(int, error)) []Decoded[T] {
	out := make([]Decoded[T], 0, len(records))
	for i, raw := range records {
		v, err := decode(raw)
		if err != nil {
			if rejected != nil {
				rejected(i, fmt.Errorf("record %d: %w", i, err))
			}
			continue
		}
		out = append(out, Decoded[T]{Index: i, Value: v})
	}
	return out
}
