package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
)

// InsertStageEvent appends a stage event. Events are never updated or
// deleted; tampering is detected by hash verification, not prevented here.
func (db *DB) InsertStageEvent(ctx context.Context, e model.StageEvent) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO stage_events (id, batch_id, event_type, metadata, metadata_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.BatchID, int(e.EventType), e.Metadata, e.MetadataHash, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert stage event: %w", err)
	}
	return nil
}

// GetStageEventsByBatch retrieves all stage events for a batch, ordered by
// creation time ascending. An unknown batch yields an empty slice, not an error.
func (db *DB) GetStageEventsByBatch(ctx context.Context, batchID string) ([]model.StageEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, batch_id, event_type, metadata, metadata_hash, created_at
		 FROM stage_events WHERE batch_id = $1
		 ORDER BY created_at ASC`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get stage events: %w", err)
	}
	defer rows.Close()

	return scanStageEvents(rows)
}

func scanStageEvents(rows pgx.Rows) ([]model.StageEvent, error) {
	events := make([]model.StageEvent, 0)
	for rows.Next() {
		var e model.StageEvent
		var eventType int
		if err := rows.Scan(&e.ID, &e.BatchID, &eventType, &e.Metadata, &e.MetadataHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan stage event: %w", err)
		}
		e.EventType = model.StageKind(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}
