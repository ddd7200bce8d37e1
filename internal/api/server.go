package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/pipeline"
)

// Deps are the collaborators the handlers use. Only Pipeline is required.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Repo     domain.Repository
	Cache    domain.Cache
	Bus      domain.EventBus

	MaxBatchSize int
	Upload       domain.UploadConfig

	// SubmitRateLimit is per tenant per minute; zero means unlimited. It
	// needs Cache.
	SubmitRateLimit int
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps, version string) *Server {
	handler := NewHandler(deps, version)
	router := chi.NewRouter()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TenantIDHeader, RequestIDHeader, TraceIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, TraceIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	router.Use(RecoverMiddleware)
	router.Use(metrics.Middleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// No tenant required
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Handle("/metrics", metrics.Handler())

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Post("/fraud/score", handler.ScoreClaim)
		r.Post("/fraud/batch", handler.ScoreClaimBatch)
		r.Post("/underwriting/score", handler.ScoreApplication)
		r.Post("/underwriting/batch", handler.ScoreApplicationBatch)

		r.Post("/claims/submit", handler.SubmitClaim)
		r.Post("/applications/submit", handler.SubmitApplication)

		r.Get("/assessments/{id}", handler.GetAssessment)

		r.Get("/synthetic/claims", handler.SyntheticClaims)
		r.Get("/synthetic/applications", handler.SyntheticApplications)

		r.Get("/fields", handler.ListFields)
		r.Post("/fields", handler.CreateField)
		r.Delete("/fields/{id}", handler.DeleteField)

		r.Get("/validation-rules", handler.ListValidationRules)
		r.Post("/validation-rules", handler.CreateValidationRule)
		r.Post("/validation-rules/reload", handler.ReloadValidationRules)
		r.Get("/validation-rules/{id}", handler.GetValidationRule)
		r.Put("/validation-rules/{id}", handler.UpdateValidationRule)
		r.Delete("/validation-rules/{id}", handler.DeleteValidationRule)

		r.Post("/validate", handler.Validate)

		r.Post("/documents", handler.UploadDocument)
		r.Get("/documents/{id}", handler.GetDocument)
		r.Post("/documents/{id}/revalidate", handler.RevalidateDocument)
		r.Get("/documents/{id}/export", handler.ExportDocument)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
