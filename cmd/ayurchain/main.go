package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maheshwarisharman/sih-ayurveda/internal/config"
	"github.com/maheshwarisharman/sih-ayurveda/internal/ledger"
	"github.com/maheshwarisharman/sih-ayurveda/internal/ratelimit"
	"github.com/maheshwarisharman/sih-ayurveda/internal/server"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/analysis"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/batches"
	"github.com/maheshwarisharman/sih-ayurveda/internal/storage"
	"github.com/maheshwarisharman/sih-ayurveda/internal/telemetry"
	"github.com/maheshwarisharman/sih-ayurveda/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("AYUR_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("ayurchain starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database and apply pending migrations.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Connect to the provenance contract.
	ledgerClient, err := ledger.Dial(ctx, cfg.LedgerRPCURL, cfg.LedgerContractAddr, cfg.LedgerPrivateKey)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer ledgerClient.Close()

	// Start the background mirror worker. Stage events are acknowledged
	// from Postgres; the on-chain copy is appended here, best-effort.
	// The worker gets its own context so a shutdown signal does not kill
	// it mid-queue; it stops via Close below, after the HTTP drain.
	mirrorCtx, mirrorCancel := context.WithCancel(context.Background())
	defer mirrorCancel()
	mirror := batches.NewMirrorWorker(ledgerClient, logger, cfg.MirrorQueueSize, cfg.MirrorTimeout)
	mirror.Start(mirrorCtx)

	batchSvc := batches.New(db, ledgerClient, mirror, logger, cfg.PublicBaseURL)

	// PDF analysis (optional — disabled if GEMINI_API_KEY is empty).
	var analysisSvc *analysis.Service
	if cfg.GeminiAPIKey != "" {
		rater, err := analysis.NewGeminiRater(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		analysisSvc = analysis.New(http.DefaultClient, rater, logger, cfg.MaxUploadBytes)
		logger.Info("pdf analysis: enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("pdf analysis: disabled (no GEMINI_API_KEY)")
	}

	// Create rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = limiter.Close() }()
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	srv := server.New(server.ServerConfig{
		DB:                  db,
		BatchSvc:            batchSvc,
		AnalysisSvc:         analysisSvc,
		Logger:              logger,
		Limiter:             limiter,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		MaxUploadBytes:      cfg.MaxUploadBytes,
	})

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	// Graceful shutdown: stop accepting HTTP first (in-flight requests may
	// still enqueue mirror jobs), then drain the mirror queue.
	slog.Info("ayurchain shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	mirror.Close()

	slog.Info("ayurchain stopped")
	return nil
}
