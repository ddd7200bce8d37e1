package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/intake"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/underwriting"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a domain error to a status code. Anything unknown is a
// 500 and its text stays in the log.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var recErr *intake.RecordError
	var statusErr *extraction.StatusError

	switch {
	case errors.As(err, &recErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "invalid record",
			"problems": recErr.Problems,
		})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, pipeline.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, underwriting.ErrUnknownApplicantType),
		errors.Is(err, intake.ErrEmptyUpload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, intake.ErrUploadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, intake.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, extraction.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, "document extraction is not configured")
	case errors.As(err, &statusErr):
		slog.Warn("extraction service error", "status", statusErr.Code, "path", r.URL.Path)
		writeError(w, http.StatusBadGateway, "extraction service unavailable")
	default:
		slog.Error("request failed",
			"path", r.URL.Path,
			"tenant_id", tenantFrom(r.Context()),
			"request_id", requestIDFrom(r.Context()),
			"trace_id", traceIDFrom(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody decodes a JSON request body into dst and validates its tags.
// It writes the 400 itself and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "validation failed",
			"problems": validationProblems(err),
		})
		return false
	}
	return true
}

func validationProblems(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, len(ve))
	for i, fe := range ve {
		if fe.Param() != "" {
			out[i] = fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		} else {
			out[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
		}
	}
	return out
}
