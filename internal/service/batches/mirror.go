package batches

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
)

// mirrorJob is one pending ledger append.
type mirrorJob struct {
	BatchID      string
	Kind         model.StageKind
	MetadataHash string
}

// MirrorWorker drains a buffered queue of ledger appends on a single
// goroutine. Stage recording acknowledges the store write and then hands
// the mirror here; a failed append is logged and dropped. This is
// at-most-effort on purpose — there is no outbox and no retry, the
// read-time hash reconciliation is the mechanism that exposes gaps.
type MirrorWorker struct {
	ledger  Ledger
	logger  *slog.Logger
	jobs    chan mirrorJob
	timeout time.Duration
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
}

// NewMirrorWorker creates a worker with the given queue capacity and
// per-append timeout.
func NewMirrorWorker(ldg Ledger, logger *slog.Logger, capacity int, timeout time.Duration) *MirrorWorker {
	if capacity <= 0 {
		capacity = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MirrorWorker{
		ledger:  ldg,
		logger:  logger,
		jobs:    make(chan mirrorJob, capacity),
		timeout: timeout,
	}
}

// Start launches the drain goroutine. Close finishes whatever is already
// queued before the goroutine exits; cancelling ctx stops it immediately
// and abandons queued jobs. Callers that want queued appends flushed on
// shutdown must therefore call Close before cancelling ctx.
func (w *MirrorWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-w.jobs:
				if !ok {
					return
				}
				w.append(ctx, job)
			}
		}
	}()
}

// Enqueue hands a mirror job to the worker without blocking. Returns false
// when the queue is full or the worker is closed; the caller logs and
// moves on either way.
func (w *MirrorWorker) Enqueue(job mirrorJob) bool {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.jobs <- job:
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for the drain goroutine to finish
// whatever is already queued. Safe to call multiple times; Enqueue after
// Close reports false.
func (w *MirrorWorker) Close() {
	w.closeOnce.Do(func() {
		w.closeMu.Lock()
		w.closed = true
		w.closeMu.Unlock()
		close(w.jobs)
	})
	w.wg.Wait()
}

// Pending reports the current queue depth, for health reporting.
func (w *MirrorWorker) Pending() int {
	return len(w.jobs)
}

func (w *MirrorWorker) append(ctx context.Context, job mirrorJob) {
	appendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.ledger.AppendStage(appendCtx, job.BatchID, job.Kind, job.MetadataHash); err != nil {
		// The caller was already acknowledged; the gap will show up as
		// on_chain_verified=false when the batch is next read.
		w.logger.Error("ledger mirror failed",
			"batch_id", job.BatchID,
			"stage_kind", job.Kind.String(),
			"metadata_hash", job.MetadataHash,
			"error", err)
		return
	}
	w.logger.Debug("stage mirrored to ledger",
		"batch_id", job.BatchID, "stage_kind", job.Kind.String())
}
