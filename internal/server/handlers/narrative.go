// internal/server/handlers/narrative.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"narratrack/internal/domain/narrative"
)

// NarrativeHandler handles narrative-related HTTP requests
type NarrativeHandler struct {
	tracker narrative.Tracker
}

// NewNarrativeHandler creates a new narrative handler
func NewNarrativeHandler(tracker narrative.Tracker) *NarrativeHandler {
	return &NarrativeHandler{
		tracker: tracker,
	}
}

// occurrenceRequest is the ingest payload delivered by the extraction
// pipeline.
type occurrenceRequest struct {
	NarrativeName     string    `json:"narrative_name"`
	Content           string    `json:"content"`
	SourceID          string    `json:"source_id"`
	Platform          string    `json:"platform"`
	Timestamp         time.Time `json:"timestamp"`
	Sentiment         float64   `json:"sentiment"`
	Keywords          []string  `json:"keywords"`
	Entities          []string  `json:"entities"`
	CoordinationScore float64   `json:"coordination_score"`
	Locations         []string  `json:"locations"`
}

// TrackOccurrence ingests one occurrence and returns the narrative's state
// after the update.
func (h *NarrativeHandler) TrackOccurrence(w http.ResponseWriter, r *http.Request) {
	var req occurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ev, err := h.tracker.TrackOccurrence(r.Context(), narrative.Occurrence{
		NarrativeName:     req.NarrativeName,
		Content:           req.Content,
		SourceID:          req.SourceID,
		Platform:          req.Platform,
		Timestamp:         req.Timestamp,
		Sentiment:         req.Sentiment,
		Keywords:          req.Keywords,
		Entities:          req.Entities,
		CoordinationScore: req.CoordinationScore,
		Locations:         req.Locations,
	})
	if err != nil {
		switch {
		case errors.Is(err, narrative.ErrEmptyName):
			respondWithError(w, http.StatusBadRequest, "Narrative name is required", nil)
		case errors.Is(err, narrative.ErrOutOfOrder):
			// Rejected, state unchanged; the caller gets the warning.
			respondWithError(w, http.StatusConflict, "Occurrence timestamp out of order", err)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to track occurrence", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, ev)
}

// GetActiveNarratives returns narratives with recent activity
func (h *NarrativeHandler) GetActiveNarratives(w http.ResponseWriter, r *http.Request) {
	minVolume, _ := strconv.Atoi(r.URL.Query().Get("min_volume"))

	filter := narrative.Filter{
		MinVolume: minVolume,
	}

	if statuses := r.URL.Query().Get("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, narrative.Status(s))
		}
	}

	narratives, err := h.tracker.GetActiveNarratives(r.Context(), filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get narratives", err)
		return
	}

	respondWithJSON(w, http.StatusOK, narratives)
}

// GetEmergingNarratives returns fast-growing early-stage narratives
func (h *NarrativeHandler) GetEmergingNarratives(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	narratives, err := h.tracker.GetEmergingNarratives(r.Context(), limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get emerging narratives", err)
		return
	}

	respondWithJSON(w, http.StatusOK, narratives)
}

// GetNarrative returns a narrative's evolution by ID
func (h *NarrativeHandler) GetNarrative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing narrative ID", nil)
		return
	}

	ev, err := h.tracker.GetEvolution(r.Context(), id)
	if err != nil {
		respondNarrativeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ev)
}

// GetNarrativeByName returns a narrative's evolution by name
func (h *NarrativeHandler) GetNarrativeByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondWithError(w, http.StatusBadRequest, "Missing narrative name", nil)
		return
	}

	ev, err := h.tracker.GetEvolutionByName(r.Context(), name)
	if err != nil {
		respondNarrativeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ev)
}

// GetMutations returns a narrative's recorded mutation events
func (h *NarrativeHandler) GetMutations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	mutations, err := h.tracker.GetMutations(r.Context(), id)
	if err != nil {
		respondNarrativeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, mutations)
}

// GetSpread returns a narrative's cross-platform spread analysis
func (h *NarrativeHandler) GetSpread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	spread, err := h.tracker.GetCrossPlatformAnalysis(r.Context(), id)
	if err != nil {
		respondNarrativeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, spread)
}

// GetTimeline returns a narrative's snapshots within a trailing window
func (h *NarrativeHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Default to the last 24 hours
	hours := 24.0
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		parsed, err := strconv.ParseFloat(hoursStr, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid hours parameter", err)
			return
		}
		hours = parsed
	}

	timeline, err := h.tracker.GetTimeline(r.Context(), id, hours)
	if err != nil {
		respondNarrativeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, timeline)
}

// CompareNarratives returns the similarity breakdown of two narratives
func (h *NarrativeHandler) CompareNarratives(w http.ResponseWriter, r *http.Request) {
	first := r.URL.Query().Get("first")
	second := r.URL.Query().Get("second")
	if first == "" || second == "" {
		respondWithError(w, http.StatusBadRequest, "Missing comparison IDs", nil)
		return
	}

	result, err := h.tracker.CompareNarratives(r.Context(), first, second)
	if err != nil {
		respondNarrativeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GetStats returns aggregate statistics across all tracked narratives
func (h *NarrativeHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tracker.GetStats(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get stats", err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// respondNarrativeError maps tracker errors to HTTP status codes.
func respondNarrativeError(w http.ResponseWriter, err error) {
	if errors.Is(err, narrative.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Narrative not found", nil)
		return
	}
	respondWithError(w, http.StatusInternalServerError, "Failed to get narrative", err)
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.Error().Int("code", code).Str("message", message).Err(err).Msg("HTTP error")
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
