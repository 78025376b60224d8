package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newswatch/monitor/internal/database"
	"newswatch/monitor/internal/models"
)

// RecordRepository defines read operations for inspecting the archive.
type RecordRepository interface {
	FetchRecords(ctx context.Context, limit int, cursorFirstSeen *time.Time, cursorID *int64) ([]models.Record, error)
}

// sqlxRepository implements RecordRepository using sqlx.
type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) RecordRepository {
	return &sqlxRepository{db: db}
}

// FetchRecords retrieves archived records most-recent-first. The cursor
// carries the first-seen timestamp and row ID of the last record of the
// previous page; ordering must stay consistent for it to work.
func (r *sqlxRepository) FetchRecords(ctx context.Context, limit int, cursorFirstSeen *time.Time, cursorID *int64) ([]models.Record, error) {
	var records []models.Record
	var query string
	var args []any

	const baseQuery = `SELECT id, identity, title, link, summary, published_at, raw_payload, first_seen_at FROM records `
	const orderBy = ` ORDER BY first_seen_at DESC, id DESC LIMIT ?`

	if cursorFirstSeen != nil && cursorID != nil {
		query = baseQuery + `WHERE (first_seen_at < ?) OR (first_seen_at = ? AND id < ?)` + orderBy
		args = append(args, cursorFirstSeen.UTC(), cursorFirstSeen.UTC(), *cursorID, limit)
	} else {
		query = baseQuery + orderBy
		args = append(args, limit)
	}

	err := r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Record{}, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return records, nil
}
