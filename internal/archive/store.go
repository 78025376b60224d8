package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"newswatch/monitor/internal/database"
	"newswatch/monitor/internal/models"
)

// Store is the authoritative table of every record ever archived.
// InsertIfAbsent is the only write path; entries are never updated or
// deleted.
type Store interface {
	Exists(ctx context.Context, identity string) (bool, error)
	InsertIfAbsent(ctx context.Context, rec *models.Record) (bool, error)
	ListAll(ctx context.Context, limit int) ([]models.Record, error)
	Count(ctx context.Context) (int64, error)
}

// SQLiteStore implements Store on top of the archive database.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a Store backed by an already-opened database.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Exists reports whether a committed entry holds the given identity.
func (s *SQLiteStore) Exists(ctx context.Context, identity string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one,
		"SELECT 1 FROM records WHERE identity = ? LIMIT 1", identity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check identity %q: %w", identity, err)
	}
	return true, nil
}

// InsertIfAbsent atomically inserts the record unless its identity is
// already held. It returns true when this call performed the insert.
// A duplicate identity is an expected outcome, not an error.
func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, rec *models.Record) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (identity, title, link, summary, published_at, raw_payload, first_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO NOTHING;`,
		rec.Identity, rec.Title, rec.Link, rec.Summary,
		rec.PublishedAt, rec.RawPayload, rec.FirstSeenAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert record %q: %w", rec.Identity, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for %q: %w", rec.Identity, err)
	}
	return rowsAffected > 0, nil
}

// ListAll returns archived records most-recent-first, ties broken by
// identity for determinism. A limit <= 0 returns everything. Rows that
// fail to scan or carry an unreadable first_seen_at are reported and
// skipped so one bad row cannot hide the rest of the archive.
func (s *SQLiteStore) ListAll(ctx context.Context, limit int) ([]models.Record, error) {
	query := `
		SELECT id, identity, title, link, summary, published_at, raw_payload, first_seen_at
		FROM records
		ORDER BY first_seen_at DESC, identity ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.StructScan(&rec); err != nil {
			log.Warn().Err(err).Msg("Skipping malformed archive row")
			continue
		}
		// The driver swallows DATETIME parse failures and yields the
		// zero time, so unreadable first_seen_at text surfaces here
		// instead of as a scan error.
		if rec.FirstSeenAt.IsZero() {
			log.Warn().
				Str("identity", rec.Identity).
				Msg("Skipping archive row with unreadable first_seen_at")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, nil
}

// Count returns the number of archived records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM records"); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
