// Package metrics exposes Prometheus metrics for scoring, validation and
// the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opensource-finance/harrier/internal/domain"
)

const namespace = "harrier"

// Batch record outcomes.
const (
	OutcomeScored   = "scored"
	OutcomeRejected = "rejected"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "assessments_total",
			Help:      "Assessments produced by kind and tier",
		},
		[]string{"kind", "tier"},
	)

	assessmentScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "score",
			Help:      "Distribution of composite scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"kind"},
	)

	signalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "signals_total",
			Help:      "Triggered signals by rule code",
		},
		[]string{"kind", "code"},
	)

	batchRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "batch_records_total",
			Help:      "Batch records by outcome",
		},
		[]string{"kind", "outcome"},
	)

	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "verdicts_total",
			Help:      "Validation verdicts by status",
		},
		[]string{"status"},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Extraction calls by outcome",
		},
		[]string{"outcome"},
	)

	prunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "pruned_assessments_total",
			Help:      "Assessment records removed by retention",
		},
	)
)

// ObserveFraud records one fraud assessment.
func ObserveFraud(a *domain.FraudAssessment) {
	observe(domain.KindFraud, a.RiskLevel, a.OverallScore, a.TriggeredSignals)
}

// ObserveUnderwriting records one underwriting assessment.
func ObserveUnderwriting(a *domain.UnderwritingAssessment) {
	observe(domain.KindUnderwriting, a.RiskTier, a.OverallRiskScore, a.TriggeredSignals)
}

func observe(kind, tier string, score int, signals []domain.Signal) {
	assessmentsTotal.WithLabelValues(kind, tier).Inc()
	assessmentScore.WithLabelValues(kind).Observe(float64(score))
	for _, s := range signals {
		signalsTotal.WithLabelValues(kind, s.Code).Inc()
	}
}

// ObserveBatch records the scored and rejected record counts of a batch.
func ObserveBatch(kind string, scored, rejected int) {
	batchRecordsTotal.WithLabelValues(kind, OutcomeScored).Add(float64(scored))
	batchRecordsTotal.WithLabelValues(kind, OutcomeRejected).Add(float64(rejected))
}

// ObserveVerdict records a validation verdict.
func ObserveVerdict(status string) {
	verdictsTotal.WithLabelValues(status).Inc()
}

// ObserveExtraction records an extraction call.
func ObserveExtraction(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	extractionsTotal.WithLabelValues(outcome).Inc()
}

// ObservePruned adds to the pruned record count.
func ObservePruned(n int64) {
	prunedTotal.Add(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts requests and their duration by chi route pattern, so
// path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
