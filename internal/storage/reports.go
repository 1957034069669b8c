package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
)

// InsertReport stores an uploaded lab-report blob namespaced by batch.
func (db *DB) InsertReport(ctx context.Context, r model.Report) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO reports (id, batch_id, filename, content_type, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.BatchID, r.Filename, r.ContentType, r.Data, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert report: %w", err)
	}
	return nil
}

// GetReport fetches a stored report blob by ID. Returns ErrNotFound for an
// unknown ID so the handler can map it to 404.
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (model.Report, error) {
	var r model.Report
	err := db.pool.QueryRow(ctx,
		`SELECT id, batch_id, filename, content_type, data, created_at
		 FROM reports WHERE id = $1`, id,
	).Scan(&r.ID, &r.BatchID, &r.Filename, &r.ContentType, &r.Data, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("storage: get report: %w", err)
	}
	return r, nil
}
