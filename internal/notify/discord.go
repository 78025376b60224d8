// Package notify delivers freshly-archived records to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"newswatch/monitor/internal/models"
)

const (
	maxEmbedsPerRequest  = 10
	maxDescriptionLength = 2048

	botUsername     = "Newswatch"
	embedFooterText = "DP World Tour"
)

type embed struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Footer      *footer `json:"footer,omitempty"`
}

type footer struct {
	Text string `json:"text"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Webhook posts record batches to a Discord-compatible webhook URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a notifier for the given webhook URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts the records in order, at most ten embeds per request.
// Delivery is best-effort: a failed chunk is logged and the remaining
// chunks are still attempted; the records stay archived regardless.
func (w *Webhook) Send(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		log.Info().Msg("No new records to deliver")
		return nil
	}

	var firstErr error
	for start := 0; start < len(records); start += maxEmbedsPerRequest {
		end := start + maxEmbedsPerRequest
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := w.post(ctx, chunk); err != nil {
			log.Error().
				Err(err).
				Int("records", len(chunk)).
				Msg("Failed to deliver notification batch")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info().Int("records", len(chunk)).Msg("Delivered notification batch")
	}
	return firstErr
}

func (w *Webhook) post(ctx context.Context, records []models.Record) error {
	payload := webhookPayload{Username: botUsername}
	for _, rec := range records {
		payload.Embeds = append(payload.Embeds, buildEmbed(rec))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", botUsername+"/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook rejected request: status %d, body=%s",
			resp.StatusCode, string(respBody))
	}
	return nil
}

func buildEmbed(rec models.Record) embed {
	description := ""
	if rec.Summary != nil {
		description = *rec.Summary
	}
	if runes := []rune(description); len(runes) > maxDescriptionLength {
		description = string(runes[:maxDescriptionLength-1]) + "…"
	}

	e := embed{
		Title:       rec.Title,
		URL:         rec.Link,
		Description: description,
		Footer:      &footer{Text: embedFooterText},
	}
	if rec.PublishedAt != nil {
		e.Timestamp = rec.PublishedAt.UTC().Truncate(time.Second).Format(time.RFC3339)
	}
	return e
}
