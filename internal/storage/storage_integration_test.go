//go:build integration

// Run with: go test -tags integration ./internal/storage/
// Requires Docker; starts a throwaway Postgres container.

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
	"github.com/maheshwarisharman/sih-ayurveda/migrations"
)

// testDB is the shared database for all integration tests in this file.
var testDB *DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "ayurveda",
			"POSTGRES_PASSWORD": "ayurveda",
			"POSTGRES_DB":       "ayurveda",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("postgres://ayurveda:ayurveda@%s:%s/ayurveda?sslmode=disable", host, port.Port())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testDB, err = New(ctx, dsn, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}

	if err := testDB.RunMigrations(ctx, migrations.FS); err != nil {
		fmt.Fprintf(os.Stderr, "migrations failed: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestStageEvents_RoundTrip(t *testing.T) {
	ctx := context.Background()
	batchID := uuid.NewString() // unique per run; batch ids are opaque text here

	first := model.StageEvent{
		ID:           uuid.New(),
		BatchID:      batchID,
		EventType:    model.StageCollection,
		Metadata:     map[string]any{"moisture": float64(12), "farm": map[string]any{"district": "Wayanad"}},
		MetadataHash: "aaaa",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	second := model.StageEvent{
		ID:           uuid.New(),
		BatchID:      batchID,
		EventType:    model.StageQualityTest,
		Metadata:     map[string]any{},
		MetadataHash: "bbbb",
		CreatedAt:    first.CreatedAt.Add(time.Second),
	}

	// Insert out of order; the read must come back created_at ascending.
	require.NoError(t, testDB.InsertStageEvent(ctx, second))
	require.NoError(t, testDB.InsertStageEvent(ctx, first))

	events, err := testDB.GetStageEventsByBatch(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, model.StageCollection, events[0].EventType)
	assert.Equal(t, first.Metadata, events[0].Metadata)
	// TIMESTAMPTZ drops the wall clock's zone; compare instants.
	assert.True(t, first.CreatedAt.Equal(events[0].CreatedAt))

	assert.Equal(t, second.ID, events[1].ID)
	require.NotNil(t, events[1].Metadata, "empty jsonb object must not scan to nil")
	assert.Empty(t, events[1].Metadata)
}

func TestStageEvents_NilMetadataViolatesNotNull(t *testing.T) {
	// The service layer normalizes omitted metadata to an empty map; this
	// pins the constraint that makes that normalization load-bearing.
	err := testDB.InsertStageEvent(context.Background(), model.StageEvent{
		ID:        uuid.New(),
		BatchID:   uuid.NewString(),
		EventType: model.StageProcessing,
		Metadata:  nil,
		CreatedAt: time.Now().UTC(),
	})
	require.Error(t, err, "nil metadata encodes as SQL NULL and the column is NOT NULL")
}

func TestStageEvents_UnknownBatchIsEmpty(t *testing.T) {
	events, err := testDB.GetStageEventsByBatch(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReports_RoundTrip(t *testing.T) {
	ctx := context.Background()
	report := model.Report{
		ID:          uuid.New(),
		BatchID:     "77",
		Filename:    "assay.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 assay"),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, testDB.InsertReport(ctx, report))

	got, err := testDB.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Filename, got.Filename)
	assert.Equal(t, report.ContentType, got.ContentType)
	assert.Equal(t, report.Data, got.Data)
}

func TestReports_UnknownIDIsNotFound(t *testing.T) {
	_, err := testDB.GetReport(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	// TestMain already ran them once; a second pass must be a no-op.
	require.NoError(t, testDB.RunMigrations(context.Background(), migrations.FS))
}
