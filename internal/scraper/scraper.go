// Package scraper retrieves the monitored news listing and extracts
// candidate records from the Next.js data payload embedded in the page.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"newswatch/monitor/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) NewswatchBot/1.0"
)

// Scraper fetches a news listing page and extracts article records.
type Scraper struct {
	client  *http.Client
	pageURL string
	baseURL *url.URL
}

// New creates a Scraper for the given listing page.
func New(pageURL string) (*Scraper, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid news page URL: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""

	return &Scraper{
		client:  &http.Client{Timeout: defaultTimeout},
		pageURL: pageURL,
		baseURL: base,
	}, nil
}

// Fetch retrieves the listing page and returns the candidate records in
// published-descending order. A network or extraction failure aborts
// the current run only; the archive is left untouched.
func (s *Scraper) Fetch(ctx context.Context) ([]models.Record, error) {
	html, err := s.fetchHTML(ctx)
	if err != nil {
		return nil, err
	}
	return s.extract(html)
}

func (s *Scraper) fetchHTML(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve news page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("failed to retrieve news page: status %d from %s",
			resp.StatusCode, s.pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read news page body: %w", err)
	}
	return string(body), nil
}

// extract pulls the __NEXT_DATA__ script out of the page and walks its
// JSON payload for anything that looks like an article.
func (s *Scraper) extract(html string) ([]models.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse news page: %w", err)
	}

	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("could not locate __NEXT_DATA__ payload in page")
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode __NEXT_DATA__ payload: %w", err)
	}

	var records []models.Record
	walk(payload, func(node map[string]any) {
		rec, ok := s.buildRecord(node)
		if !ok {
			return
		}
		records = append(records, rec)
	})

	records = collapseDuplicates(records)
	if len(records) == 0 {
		log.Warn().Msg("No news entries were extracted from the payload")
	}
	return records, nil
}

// walk visits every JSON object in the payload, depth first.
func walk(node any, visit func(map[string]any)) {
	switch v := node.(type) {
	case []any:
		for _, entry := range v {
			walk(entry, visit)
		}
	case map[string]any:
		visit(v)
		for _, value := range v {
			walk(value, visit)
		}
	}
}

// candidateNode reports whether the object carries the minimal set of
// article-shaped keys: a title, a link and a publication date.
func candidateNode(node map[string]any) bool {
	var hasTitle, hasURL, hasDate bool
	for key := range node {
		switch strings.ToLower(key) {
		case "title", "headline", "name":
			hasTitle = true
		case "url", "slug", "permalink", "path":
			hasURL = true
		case "date", "published", "publishdate", "publishdatetime":
			hasDate = true
		}
	}
	return hasTitle && hasURL && hasDate
}

func (s *Scraper) buildRecord(node map[string]any) (models.Record, bool) {
	if !candidateNode(node) {
		return models.Record{}, false
	}

	title := stringValue(extractFirst(node, "title", "headline", "name"))
	urlRaw := stringValue(extractFirst(node, "url", "permalink", "path", "slug"))
	dateRaw := stringValue(extractFirst(node, "publishDateTime", "publishDate", "published", "date"))
	if title == "" || urlRaw == "" || dateRaw == "" {
		return models.Record{}, false
	}

	published, err := parseTime(dateRaw)
	if err != nil {
		log.Debug().Err(err).Str("title", title).Msg("Skipping node with unparseable date")
		return models.Record{}, false
	}

	rawPayload, err := json.Marshal(node)
	if err != nil {
		log.Debug().Err(err).Str("title", title).Msg("Skipping node with unencodable payload")
		return models.Record{}, false
	}

	link := s.normalizeURL(urlRaw)
	rec := models.Record{
		Identity:    Identity(node, title, link),
		Title:       strings.TrimSpace(title),
		Link:        link,
		PublishedAt: &published,
		RawPayload:  rawPayload,
	}
	if summary := strings.TrimSpace(stringValue(extractFirst(node, "summary", "description", "standfirst"))); summary != "" {
		rec.Summary = &summary
	}
	return rec, true
}

// extractFirst returns the first non-empty value among the given keys.
func extractFirst(node map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := node[key]; ok && value != nil && value != "" {
			return value
		}
	}
	return nil
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// normalizeURL resolves site-relative links against the page's origin.
func (s *Scraper) normalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return s.baseURL.ResolveReference(ref).String()
}

var timeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses the site's assorted timestamp formats into UTC.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime value %q", value)
}

// collapseDuplicates keeps one record per identity, preferring the copy
// with the newest publication date, and orders the result newest first.
func collapseDuplicates(records []models.Record) []models.Record {
	unique := make(map[string]models.Record, len(records))
	for _, rec := range records {
		existing, seen := unique[rec.Identity]
		if !seen || laterPublished(rec, existing) {
			unique[rec.Identity] = rec
		}
	}

	out := make([]models.Record, 0, len(unique))
	for _, rec := range unique {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if laterPublished(out[i], out[j]) {
			return true
		}
		if laterPublished(out[j], out[i]) {
			return false
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

func laterPublished(a, b models.Record) bool {
	if a.PublishedAt == nil {
		return false
	}
	if b.PublishedAt == nil {
		return true
	}
	return a.PublishedAt.After(*b.PublishedAt)
}
