package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newswatch/monitor/internal/models"
)

func makeRecords(n int) []models.Record {
	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		summary := "summary"
		records = append(records, models.Record{
			Identity:    string(rune('a' + i%26)),
			Title:       "Article",
			Link:        "https://example.com/a",
			Summary:     &summary,
			PublishedAt: &published,
		})
	}
	return records
}

func TestSend_ChunksAtTenEmbeds(t *testing.T) {
	var payloads []webhookPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		payloads = append(payloads, p)
	}))
	defer ts.Close()

	w := NewWebhook(ts.URL)
	require.NoError(t, w.Send(context.Background(), makeRecords(25)))

	require.Len(t, payloads, 3)
	assert.Len(t, payloads[0].Embeds, 10)
	assert.Len(t, payloads[1].Embeds, 10)
	assert.Len(t, payloads[2].Embeds, 5)
	assert.Equal(t, botUsername, payloads[0].Username)
}

func TestSend_EmptyBatchIsNoOp(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	w := NewWebhook(ts.URL)
	require.NoError(t, w.Send(context.Background(), nil))
	assert.Zero(t, calls)
}

func TestSend_ReportsRejectionAndKeepsGoing(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"message":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	w := NewWebhook(ts.URL)
	err := w.Send(context.Background(), makeRecords(15))

	// Both chunks were attempted, the failure is surfaced.
	assert.Equal(t, 2, calls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestBuildEmbed_TruncatesLongDescriptions(t *testing.T) {
	long := strings.Repeat("ä", maxDescriptionLength+100)
	rec := models.Record{Title: "T", Link: "https://example.com", Summary: &long}

	e := buildEmbed(rec)
	runes := []rune(e.Description)
	assert.Len(t, runes, maxDescriptionLength)
	assert.Equal(t, '…', runes[len(runes)-1])
}

func TestBuildEmbed_Fields(t *testing.T) {
	published := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	summary := "short"
	rec := models.Record{
		Title:       "Win in Munich",
		Link:        "https://example.com/news/win",
		Summary:     &summary,
		PublishedAt: &published,
	}

	e := buildEmbed(rec)
	assert.Equal(t, "Win in Munich", e.Title)
	assert.Equal(t, "https://example.com/news/win", e.URL)
	assert.Equal(t, "short", e.Description)
	assert.Equal(t, "2026-03-01T10:00:00Z", e.Timestamp)
	require.NotNil(t, e.Footer)
	assert.Equal(t, embedFooterText, e.Footer.Text)
}

func TestBuildEmbed_NoPublishedDate(t *testing.T) {
	e := buildEmbed(models.Record{Title: "T", Link: "https://example.com"})
	assert.Empty(t, e.Timestamp)
	assert.Empty(t, e.Description)
}
