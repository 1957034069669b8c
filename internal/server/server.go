package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/maheshwarisharman/sih-ayurveda/internal/ratelimit"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/analysis"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/batches"
	"github.com/maheshwarisharman/sih-ayurveda/internal/storage"
)

// Server is the provenance HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): AnalysisSvc, Limiter.
type ServerConfig struct {
	// Required dependencies.
	DB       *storage.DB
	BatchSvc *batches.Service
	Logger   *slog.Logger

	// Optional dependencies (nil = disabled).
	AnalysisSvc *analysis.Service
	Limiter     ratelimit.Limiter

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	MaxUploadBytes      int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		BatchSvc:            cfg.BatchSvc,
		AnalysisSvc:         cfg.AnalysisSvc,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		MaxUploadBytes:      cfg.MaxUploadBytes,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Rate limit rules, keyed by client IP. Writes to the ledger and
	// calls to the AI provider are the expensive paths.
	writeRL := ratelimit.Middleware(cfg.Limiter, "write", ratelimit.IPKeyFunc, reqIDFunc)
	aiRL := ratelimit.Middleware(cfg.Limiter, "ai", ratelimit.IPKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Batch lifecycle.
	mux.Handle("POST /api/batches/create", writeRL(http.HandlerFunc(h.HandleCreateBatch)))
	mux.Handle("POST /api/batches/add-stage-event", writeRL(http.HandlerFunc(h.HandleAddStageEvent)))
	mux.HandleFunc("GET /api/batches/batch-stages/{formatted_batch_id}", h.HandleBatchStages)

	// Lab reports.
	mux.Handle("POST /api/batches/upload-report", writeRL(http.HandlerFunc(h.HandleUploadReport)))
	mux.HandleFunc("GET /api/batches/reports/{report_id}", h.HandleGetReport)

	// AI quality rating.
	mux.Handle("POST /api/ai/analyse-pdf", aiRL(http.HandlerFunc(h.HandleAnalysePDF)))

	// Health (no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
