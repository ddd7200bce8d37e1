package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/harrier/internal/pipeline"
)

// formFile is the multipart field carrying the document.
const formFile = "file"

// UploadDocument handles POST /documents: a multipart upload that is
// extracted, validated against the tenant's rules and stored.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	limit := h.upload.MaxBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile(formFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	doc, err := h.pipeline.ProcessDocument(r.Context(), tenantFrom(r.Context()), header.Filename, data)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.pipeline.Document(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RevalidateDocument handles POST /documents/{id}/revalidate.
func (h *Handler) RevalidateDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.pipeline.RevalidateDocument(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ExportDocument handles GET /documents/{id}/export as CSV.
func (h *Handler) ExportDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.pipeline.Document(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	// Render first so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := pipeline.ExportCSV(&buf, doc); err != nil {
		writeFailure(w, r, err)
		return
	}

	name := strings.TrimSuffix(doc.Filename, path.Ext(doc.Filename))
	if name == "" {
		name = doc.ID
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
