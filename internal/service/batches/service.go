// Package batches orchestrates stage-event recording and dual-source
// verification: the relational store is the source of truth the caller is
// acknowledged against, the ledger is a best-effort tamper-evidence mirror,
// and reconciliation between the two happens only on read.
package batches

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/maheshwarisharman/sih-ayurveda/internal/integrity"
	"github.com/maheshwarisharman/sih-ayurveda/internal/ledger"
	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
)

// ErrInvalidStageKind is returned by RecordStage for a stage type outside
// the fixed enumeration. No store write happens in that case.
var ErrInvalidStageKind = errors.New("batches: invalid stage kind")

// Store is the persistence surface the service needs. *storage.DB satisfies
// it; tests substitute an in-memory double.
type Store interface {
	InsertStageEvent(ctx context.Context, e model.StageEvent) error
	GetStageEventsByBatch(ctx context.Context, batchID string) ([]model.StageEvent, error)
	InsertReport(ctx context.Context, r model.Report) error
	GetReport(ctx context.Context, id uuid.UUID) (model.Report, error)
}

// Ledger is the smart-contract surface the service needs. *ledger.Client
// satisfies it; tests substitute a double.
type Ledger interface {
	CreateBatch(ctx context.Context, name string) (string, error)
	AppendStage(ctx context.Context, batchID string, kind model.StageKind, metadataHash string) error
	BatchSummary(ctx context.Context, batchID string) (ledger.BatchSummary, error)
}

// Service coordinates the store, the ledger mirror and report uploads.
type Service struct {
	store   Store
	ledger  Ledger
	mirror  *MirrorWorker
	logger  *slog.Logger
	baseURL string
}

// New creates the batch service. baseURL is the externally reachable prefix
// used to build report download URLs. The caller owns the mirror worker's
// lifecycle (Start/Close).
func New(store Store, ldg Ledger, mirror *MirrorWorker, logger *slog.Logger, baseURL string) *Service {
	return &Service{
		store:   store,
		ledger:  ldg,
		mirror:  mirror,
		logger:  logger,
		baseURL: baseURL,
	}
}

// CreateBatch creates a batch on the ledger and returns its assigned id as
// a decimal string. Ledger failure surfaces directly; nothing is retried.
func (s *Service) CreateBatch(ctx context.Context, name string) (string, error) {
	id, err := s.ledger.CreateBatch(ctx, name)
	if err != nil {
		return "", fmt.Errorf("batches: create batch: %w", err)
	}
	s.logger.Info("batch created", "batch_id", id, "batch_name", name)
	return id, nil
}

// RecordStage validates the stage type, hashes the metadata, persists the
// event and acknowledges it to the caller. Only then is the ledger mirror
// enqueued — it runs in the background and its failures are logged, never
// reported. Concurrent calls for the same batch may therefore land on the
// ledger in a different relative order than in the store; the read-time
// verification tolerates that because matching is by kind and hash, not
// position.
func (s *Service) RecordStage(ctx context.Context, batchID, stageType string, metadata map[string]any) (model.StageEvent, error) {
	kind, err := model.ParseStageKind(stageType)
	if err != nil {
		return model.StageEvent{}, fmt.Errorf("%w: %v", ErrInvalidStageKind, err)
	}

	// Omitted metadata is an empty object, both for the hash and for the
	// stored row: a nil map would encode as SQL NULL and violate the
	// NOT NULL jsonb column.
	if metadata == nil {
		metadata = map[string]any{}
	}

	hash, err := integrity.HashMetadata(metadata)
	if err != nil {
		return model.StageEvent{}, fmt.Errorf("batches: hash metadata: %w", err)
	}

	event := model.StageEvent{
		ID:           uuid.New(),
		BatchID:      batchID,
		EventType:    kind,
		Metadata:     metadata,
		MetadataHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.InsertStageEvent(ctx, event); err != nil {
		return model.StageEvent{}, fmt.Errorf("batches: record stage: %w", err)
	}

	// The store write is acknowledged first; the mirror is at-most-effort.
	if !s.mirror.Enqueue(mirrorJob{BatchID: batchID, Kind: kind, MetadataHash: hash}) {
		s.logger.Warn("ledger mirror queue full, stage not mirrored",
			"batch_id", batchID, "stage_kind", kind.String(), "metadata_hash", hash)
	}

	return event, nil
}

// GetBatchStages fetches the batch's events from the store and its stage
// list from the ledger, then verifies each event. A ledger fetch failure
// degrades to an empty ledger list rather than failing the request: every
// stage then reports on_chain_verified=false but the response still carries
// the stored events.
func (s *Service) GetBatchStages(ctx context.Context, batchID string) ([]model.VerifiedStage, model.BatchSummary, error) {
	events, err := s.store.GetStageEventsByBatch(ctx, batchID)
	if err != nil {
		return nil, model.BatchSummary{}, fmt.Errorf("batches: fetch stages: %w", err)
	}

	var ledgerStages []model.LedgerStage
	if summary, lerr := s.ledger.BatchSummary(ctx, batchID); lerr != nil {
		s.logger.Warn("ledger fetch failed, verifying against empty ledger",
			"batch_id", batchID, "error", lerr)
	} else {
		ledgerStages = summary.Stages
	}

	// Each check is independent and read-only, so fan out. Results land in
	// positional slots; completion order is irrelevant.
	verified := make([]model.VerifiedStage, len(events))
	g, _ := errgroup.WithContext(ctx)
	for i, ev := range events {
		g.Go(func() error {
			verified[i] = verifyStage(ev, ledgerStages)
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, v := range verified {
		if v.Verified {
			count++
		}
	}
	summary := model.BatchSummary{
		TotalStages:        len(verified),
		VerifiedStages:     count,
		VerificationStatus: model.SummarizeVerification(verified),
	}
	return verified, summary, nil
}

// verifyStage runs the two-step check: data integrity (recomputed hash
// equals stored hash), and only if that passes, on-chain verification
// (ledger holds a stage of the same kind with the same hash). A failed
// integrity check short-circuits the on-chain check.
func verifyStage(ev model.StageEvent, ledgerStages []model.LedgerStage) model.VerifiedStage {
	out := model.VerifiedStage{StageEvent: ev}

	out.DataIntegrity = integrity.Matches(ev.MetadataHash, ev.Metadata)
	if !out.DataIntegrity {
		return out
	}

	for i := range ledgerStages {
		ls := &ledgerStages[i]
		if ls.EventType != ev.EventType {
			continue
		}
		if out.LedgerStage == nil {
			out.LedgerStage = ls
		}
		if ls.MetadataHash == ev.MetadataHash {
			out.LedgerStage = ls
			out.OnChainVerified = true
			break
		}
	}

	out.Verified = out.DataIntegrity && out.OnChainVerified
	return out
}

// UploadReport stores a lab-report blob namespaced by batch and returns the
// URL it can be fetched back from. The report is not linked to any stage
// event; callers record a QualityTest stage referencing the URL themselves.
func (s *Service) UploadReport(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error) {
	report := model.Report{
		ID:          uuid.New(),
		BatchID:     batchID,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.InsertReport(ctx, report); err != nil {
		return "", fmt.Errorf("batches: upload report: %w", err)
	}

	url := fmt.Sprintf("%s/api/batches/reports/%s", s.baseURL, report.ID)
	s.logger.Info("report uploaded", "batch_id", batchID, "report_id", report.ID, "bytes", len(data))
	return url, nil
}

// GetReport fetches a stored report blob.
func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	return s.store.GetReport(ctx, id)
}
