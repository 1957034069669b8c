package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/analysis"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/batches"
	"github.com/maheshwarisharman/sih-ayurveda/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	batchSvc            *batches.Service
	analysisSvc         *analysis.Service
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	maxUploadBytes      int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): AnalysisSvc.
type HandlersDeps struct {
	DB                  *storage.DB
	BatchSvc            *batches.Service
	AnalysisSvc         *analysis.Service
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	MaxUploadBytes      int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		batchSvc:            d.BatchSvc,
		analysisSvc:         d.AnalysisSvc,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		maxUploadBytes:      d.MaxUploadBytes,
	}
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pgStatus,
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	})
}
