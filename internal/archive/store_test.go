package archive

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswatch/monitor/internal/database"
	"newswatch/monitor/internal/database/migrations"
	"newswatch/monitor/internal/models"
)

// openTestStore creates a migrated in-memory store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	sdb, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sdb.SetMaxOpenConns(1) // each pool connection would get its own :memory: db
	t.Cleanup(func() { sdb.Close() })

	require.NoError(t, migrations.Run(sdb.DB))
	return NewSQLiteStore(&database.DB{DB: sdb})
}

func testRecord(identity, title string) models.Record {
	return models.Record{
		Identity:    identity,
		Title:       title,
		Link:        "https://example.com/news/" + identity,
		RawPayload:  []byte(`{"id":"` + identity + `"}`),
		FirstSeenAt: time.Now().UTC(),
	}
}

func TestInsertIfAbsent_FirstInsertThenDuplicate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("a1", "First article")

	inserted, err := store.InsertIfAbsent(ctx, &rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same identity again: expected outcome, not an error.
	inserted, err = store.InsertIfAbsent(ctx, &rec)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestInsertIfAbsent_KeepsFirstSeenCopy(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := testRecord("a1", "Original title")
	later := testRecord("a1", "Reworded title")

	inserted, err := store.InsertIfAbsent(ctx, &first)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = store.InsertIfAbsent(ctx, &later)
	require.NoError(t, err)
	require.False(t, inserted)

	records, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Original title", records[0].Title)
}

func TestExists(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	rec := testRecord("a1", "First article")
	_, err = store.InsertIfAbsent(ctx, &rec)
	require.NoError(t, err)

	exists, err = store.Exists(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListAll_OrderingAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := testRecord("old", "Older")
	older.FirstSeenAt = base.Add(-time.Hour)

	// Two records share a first-seen timestamp; identity breaks the tie.
	tieB := testRecord("b-tie", "Tie B")
	tieB.FirstSeenAt = base
	tieA := testRecord("a-tie", "Tie A")
	tieA.FirstSeenAt = base

	newest := testRecord("new", "Newest")
	newest.FirstSeenAt = base.Add(time.Hour)

	for _, rec := range []models.Record{older, tieB, tieA, newest} {
		rec := rec
		_, err := store.InsertIfAbsent(ctx, &rec)
		require.NoError(t, err)
	}

	records, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 4)

	var identities []string
	for _, rec := range records {
		identities = append(identities, rec.Identity)
	}
	assert.Equal(t, []string{"new", "a-tie", "b-tie", "old"}, identities)

	limited, err := store.ListAll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "new", limited[0].Identity)
}

func TestListAll_SkipsCorruptRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	good := testRecord("good", "Intact record")
	_, err := store.InsertIfAbsent(ctx, &good)
	require.NoError(t, err)

	// Rows written outside the archive path can carry garbage. The
	// driver substitutes the zero time for an unparseable DATETIME
	// instead of failing the scan, so both shapes need covering.
	_, err = store.db.ExecContext(ctx, `
		INSERT INTO records (identity, title, link, first_seen_at)
		VALUES ('bad-stamp', 'Unreadable timestamp', 'https://example.com/bad', 'not-a-timestamp')`)
	require.NoError(t, err)

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO records (identity, title, link, published_at, first_seen_at)
		VALUES ('bad-published', 'Binary published_at', 'https://example.com/blob', X'DEADBEEF', '2026-03-01 10:00:00')`)
	require.NoError(t, err)

	records, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].Identity)
}

func TestRecordFieldsRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	summary := "A short summary."
	published := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

	rec := testRecord("a1", "Full record")
	rec.Summary = &summary
	rec.PublishedAt = &published
	rec.RawPayload = []byte(`{"id":"a1","extra":{"nested":true}}`)

	_, err := store.InsertIfAbsent(ctx, &rec)
	require.NoError(t, err)

	records, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "a1", got.Identity)
	assert.Equal(t, "Full record", got.Title)
	require.NotNil(t, got.Summary)
	assert.Equal(t, summary, *got.Summary)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(got.PublishedAt.UTC()))
	assert.JSONEq(t, string(rec.RawPayload), string(got.RawPayload))
	assert.False(t, got.FirstSeenAt.IsZero())
}

func TestRecordNullableFieldsStayNil(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := testRecord("bare", "Bare record")
	_, err := store.InsertIfAbsent(ctx, &rec)
	require.NoError(t, err)

	records, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Summary)
	assert.Nil(t, records[0].PublishedAt)
}
