package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/intake"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/synthetic"
)

const (
	defaultSyntheticCount = 10

	submitWindow     = time.Minute
	submitCounterKey = "submit-rate"

	// maxRecordBytes bounds a single scoring request body.
	maxRecordBytes = 1 << 20
)

// Handler holds dependencies for API handlers.
type Handler struct {
	pipeline *pipeline.Pipeline
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus

	maxBatchSize int
	submitLimit  int
	upload       domain.UploadConfig
	version      string
	now          func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, version string) *Handler {
	maxBatch := deps.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = domain.DefaultConfig().Scoring.MaxBatchSize
	}
	upload := deps.Upload
	if len(upload.AllowedTypes) == 0 {
		upload = domain.DefaultConfig().Upload
	}
	return &Handler{
		pipeline:     deps.Pipeline,
		repo:         deps.Repo,
		cache:        deps.Cache,
		bus:          deps.Bus,
		maxBatchSize: maxBatch,
		submitLimit:  deps.SubmitRateLimit,
		upload:       upload,
		version:      version,
		now:          time.Now,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	checks := map[string]string{}

	check := func(name string, ping func() error) {
		if err := ping(); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if h.repo != nil {
		check("repository", func() error { return h.repo.Ping(ctx) })
	}
	if h.cache != nil {
		check("cache", func() error { return h.cache.Ping(ctx) })
	}
	if h.bus != nil {
		check("eventBus", func() error { return h.bus.Ping(ctx) })
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"ready": "false"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"ready": "true"})
}

func readRecord(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	return raw, true
}

// ScoreClaim handles POST /fraud/score.
func (h *Handler) ScoreClaim(w http.ResponseWriter, r *http.Request) {
	raw, ok := readRecord(w, r)
	if !ok {
		return
	}
	claim, err := intake.DecodeClaim(raw)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	a, err := h.pipeline.ScoreClaim(r.Context(), tenantFrom(r.Context()), claim)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ScoreApplication handles POST /underwriting/score.
func (h *Handler) ScoreApplication(w http.ResponseWriter, r *http.Request) {
	raw, ok := readRecord(w, r)
	if !ok {
		return
	}
	app, err := intake.DecodeApplication(raw)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	a, err := h.pipeline.ScoreApplication(r.Context(), tenantFrom(r.Context()), app)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// BatchRequest is the request body for the batch endpoints. Records are
// validated one by one; invalid ones are counted and skipped.
type BatchRequest struct {
	Records []json.RawMessage `json:"records" validate:"required"`
}

func (h *Handler) readBatch(w http.ResponseWriter, r *http.Request) ([]json.RawMessage, bool) {
	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	if len(req.Records) > h.maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			"batch exceeds "+strconv.Itoa(h.maxBatchSize)+" records")
		return nil, false
	}
	return req.Records, true
}

// ScoreClaimBatch handles POST /fraud/batch.
func (h *Handler) ScoreClaimBatch(w http.ResponseWriter, r *http.Request) {
	records, ok := h.readBatch(w, r)
	if !ok {
		return
	}
	res, err := h.pipeline.ScoreClaimBatch(r.Context(), records)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ScoreApplicationBatch handles POST /underwriting/batch.
func (h *Handler) ScoreApplicationBatch(w http.ResponseWriter, r *http.Request) {
	records, ok := h.readBatch(w, r)
	if !ok {
		return
	}
	res, err := h.pipeline.ScoreApplicationBatch(r.Context(), records)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SubmitResponse acknowledges an asynchronous submission.
type SubmitResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	TraceID  string `json:"traceId"`
	Accepted int64  `json:"acceptedAt"`
}

// allowSubmit counts the submission against the tenant's per-minute limit.
// A cache failure lets the request through.
func (h *Handler) allowSubmit(w http.ResponseWriter, r *http.Request) bool {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return false
	}
	if h.submitLimit <= 0 || h.cache == nil {
		return true
	}

	tenantID := tenantFrom(r.Context())
	n, err := h.cache.IncrementCounter(r.Context(), tenantID, submitCounterKey, submitWindow)
	if err != nil {
		slog.Warn("submit rate counter unavailable", "tenant_id", tenantID, "error", err)
		return true
	}
	if n > int64(h.submitLimit) {
		w.Header().Set("Retry-After", strconv.Itoa(int(submitWindow.Seconds())))
		writeError(w, http.StatusTooManyRequests, "submission rate limit exceeded")
		return false
	}
	return true
}

// SubmitClaim handles POST /claims/submit. The claim is checked now and
// scored by the worker.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	if !h.allowSubmit(w, r) {
		return
	}
	raw, ok := readRecord(w, r)
	if !ok {
		return
	}
	claim, err := intake.DecodeClaim(raw)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if claim.ClaimID == "" {
		claim.ClaimID = "CLM-" + uuid.NewString()
	}
	h.submit(w, r, domain.TopicClaimSubmitted, claim.ClaimID, claim)
}

// SubmitApplication handles POST /applications/submit.
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	if !h.allowSubmit(w, r) {
		return
	}
	raw, ok := readRecord(w, r)
	if !ok {
		return
	}
	app, err := intake.DecodeApplication(raw)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if app.ApplicationID == "" {
		app.ApplicationID = "APP-" + uuid.NewString()
	}
	h.submit(w, r, domain.TopicApplicationSubmitted, app.ApplicationID, app)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, topic, id string, record any) {
	ctx := r.Context()
	tenantID := tenantFrom(ctx)

	payload, err := json.Marshal(record)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if err := h.bus.Publish(ctx, tenantID, topic, payload); err != nil {
		slog.Error("failed to publish submission",
			"tenant_id", tenantID,
			"topic", topic,
			"id", id,
			"error", err,
		)
		writeError(w, http.StatusServiceUnavailable, "failed to queue submission")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		ID:       id,
		Status:   "accepted",
		TraceID:  traceIDFrom(ctx),
		Accepted: h.now().UnixMilli(),
	})
}

// AssessmentResponse is a stored assessment with its full result.
type AssessmentResponse struct {
	*domain.AssessmentRecord
	Assessment json.RawMessage `json:"assessment"`
}

// GetAssessment handles GET /assessments/{id}.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pipeline.Assessment(r.Context(), tenantFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AssessmentResponse{
		AssessmentRecord: rec,
		Assessment:       rec.Payload,
	})
}

// syntheticParams reads count and seed. A missing seed is drawn from the
// clock and echoed back so the batch can be reproduced.
func (h *Handler) syntheticParams(r *http.Request) (count int, seed int64, err error) {
	q := r.URL.Query()

	count = defaultSyntheticCount
	if v := q.Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count < 1 {
			return 0, 0, errors.New("count must be a positive integer")
		}
	}
	if count > h.maxBatchSize {
		return 0, 0, errors.New("count exceeds " + strconv.Itoa(h.maxBatchSize))
	}

	seed = h.now().UnixNano()
	if v := q.Get("seed"); v != "" {
		seed, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, errors.New("seed must be an integer")
		}
	}
	return count, seed, nil
}

// SyntheticClaims handles GET /synthetic/claims.
func (h *Handler) SyntheticClaims(w http.ResponseWriter, r *http.Request) {
	count, seed, err := h.syntheticParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	claims := synthetic.Claims(rand.New(rand.NewSource(seed)), count, h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"seed":   seed,
		"count":  len(claims),
		"claims": claims,
	})
}

// SyntheticApplications handles GET /synthetic/applications.
func (h *Handler) SyntheticApplications(w http.ResponseWriter, r *http.Request) {
	count, seed, err := h.syntheticParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	apps := synthetic.Applications(rand.New(rand.NewSource(seed)), count)
	writeJSON(w, http.StatusOK, map[string]any{
		"seed":         seed,
		"count":        len(apps),
		"applications": apps,
	})
}
