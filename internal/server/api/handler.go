package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"newswatch/monitor/internal/models"
	"newswatch/monitor/internal/server/pagination"
	"newswatch/monitor/internal/server/storage"
)

const defaultLimit = 100
const maxLimit = 1000

// Response structure for the records endpoint
type Response struct {
	Records    []models.Record `json:"records"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

// RecordsHandler holds dependencies for the API handler.
type RecordsHandler struct {
	repo storage.RecordRepository
}

// NewRecordsHandler creates a new handler instance.
func NewRecordsHandler(repo storage.RecordRepository) *RecordsHandler {
	return &RecordsHandler{
		repo: repo,
	}
}

// GetRecords handles requests to page through the archive,
// most-recent-first.
func (h *RecordsHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing records request")

	ctx := r.Context()

	query := r.URL.Query()
	limitStr := query.Get("limit")
	cursorStr := query.Get("cursor")

	limit := defaultLimit
	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > maxLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxLimit), http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	var cursorFirstSeen *time.Time
	var cursorID *int64

	if cursorStr != "" {
		firstSeen, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
		cursorFirstSeen = &firstSeen
		cursorID = &id
	}

	records, err := h.repo.FetchRecords(ctx, limit+1, cursorFirstSeen, cursorID) // Fetch one extra
	if err != nil {
		log.Error().Err(err).Str("cursor", cursorStr).Msg("Error fetching records from repository")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var nextCursorStr *string
	hasNextPage := len(records) > limit
	actualRecords := records
	if hasNextPage {
		actualRecords = records[:limit]
		if len(actualRecords) > 0 {
			lastRecord := actualRecords[len(actualRecords)-1]
			cursor := pagination.EncodeCursor(lastRecord.FirstSeenAt.UTC(), lastRecord.ID)
			nextCursorStr = &cursor
		}
	}

	response := Response{
		Records:    actualRecords,
		NextCursor: nextCursorStr,
	}

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write(jsonBytes); writeErr != nil {
		log.Error().Err(writeErr).Msg("Error writing JSON response body to client")
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
