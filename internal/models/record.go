package models

import "time"

// Record represents a row in the 'records' table: one article as seen
// on the monitored news page.
type Record struct {
	ID          int64      `db:"id" json:"-"`
	Identity    string     `db:"identity" json:"identity"`
	Title       string     `db:"title" json:"title"`
	Link        string     `db:"link" json:"link"`
	Summary     *string    `db:"summary" json:"summary,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	RawPayload  []byte     `db:"raw_payload" json:"-"` // source JSON node, stored verbatim, never parsed
	FirstSeenAt time.Time  `db:"first_seen_at" json:"first_seen_at"`
}
