package pipeline

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/validation"
)

// Field validation statuses in exports.
const (
	FieldPassed    = "passed"
	FieldFailed    = "failed"
	FieldUnchecked = "unchecked"
)

// ExportCSV writes one row per extracted field with the validation status
// of the rules that reference it.
func ExportCSV(w io.Writer, doc *domain.Document) error {
	status := fieldStatuses(doc.Verdict)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "value", "confidence", "status"}); err != nil {
		return err
	}
	for _, f := range doc.Fields {
		s, ok := status[validation.LabelKey(f.Label)]
		if !ok {
			s = FieldUnchecked
		}
		row := []string{f.Label, f.Value, strconv.FormatFloat(f.Confidence, 'f', 2, 64), s}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// fieldStatuses marks a field failed when any failing rule checks it and
// passed when it is checked only by passing rules.
func fieldStatuses(v *domain.Verdict) map[string]string {
	status := make(map[string]string)
	if v == nil {
		return status
	}
	for _, r := range v.Results {
		for _, c := range r.Conditions {
			key := validation.LabelKey(c.Field)
			if !r.Passed {
				status[key] = FieldFailed
			} else if status[key] != FieldFailed {
				status[key] = FieldPassed
			}
		}
	}
	return status
}
