// Package ledger mirrors the archive to a human-diffable JSONL file.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"newswatch/monitor/internal/models"
)

// entry is the JSONL representation of one archived record.
type entry struct {
	Identity    string     `json:"identity"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     *string    `json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
}

// Writer maintains a JSONL copy of the full archive. An empty path
// disables it entirely.
type Writer struct {
	path string
}

// NewWriter creates a ledger writer for path. Pass "" to disable.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Enabled reports whether the ledger is configured to be written.
func (w *Writer) Enabled() bool {
	return w.path != ""
}

// Path returns the configured ledger location.
func (w *Writer) Path() string {
	return w.path
}

// Sync rewrites the ledger with the given snapshot, one JSON object per
// line, in snapshot order. The write goes through a temp file and an
// atomic rename so a concurrent reader never observes a partial ledger.
func (w *Writer) Sync(records []models.Record) error {
	if !w.Enabled() {
		return nil
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create ledger temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	buf := bufio.NewWriter(tmp)
	enc := json.NewEncoder(buf)
	for _, rec := range records {
		e := entry{
			Identity:    rec.Identity,
			Title:       rec.Title,
			Link:        rec.Link,
			Summary:     rec.Summary,
			PublishedAt: rec.PublishedAt,
			FirstSeenAt: rec.FirstSeenAt,
		}
		if err := enc.Encode(&e); err != nil {
			return fmt.Errorf("failed to encode ledger entry %q: %w", rec.Identity, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}
	return nil
}
