package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"narratrack/internal/domain/narrative"
	"narratrack/internal/service/tracking"
)

func newTestRouter(tracker narrative.Tracker) *chi.Mux {
	h := NewNarrativeHandler(tracker)

	router := chi.NewRouter()
	router.Post("/occurrences", h.TrackOccurrence)
	router.Get("/narratives", h.GetActiveNarratives)
	router.Get("/narratives/emerging", h.GetEmergingNarratives)
	router.Get("/narratives/by-name", h.GetNarrativeByName)
	router.Get("/narratives/compare", h.CompareNarratives)
	router.Get("/narratives/{id}", h.GetNarrative)
	router.Get("/narratives/{id}/mutations", h.GetMutations)
	router.Get("/narratives/{id}/spread", h.GetSpread)
	router.Get("/narratives/{id}/timeline", h.GetTimeline)
	router.Get("/stats", h.GetStats)
	return router
}

func postOccurrence(t *testing.T, router *chi.Mux, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/occurrences", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTrackOccurrenceEndpoint(t *testing.T) {
	router := newTestRouter(tracking.NewService(nil, nil, tracking.ServiceConfig{}))

	rec := postOccurrence(t, router, map[string]interface{}{
		"narrative_name": "power grid rumors",
		"platform":       "twitter",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"sentiment":      -0.4,
		"keywords":       []string{"blackout", "grid"},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var ev narrative.Evolution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "power grid rumors", ev.Name)
	assert.Equal(t, 1, ev.TotalVolume)
	assert.NotEmpty(t, ev.ID)
}

func TestTrackOccurrenceEndpointValidation(t *testing.T) {
	router := newTestRouter(tracking.NewService(nil, nil, tracking.ServiceConfig{}))

	rec := postOccurrence(t, router, map[string]interface{}{
		"narrative_name": "",
		"platform":       "twitter",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/occurrences", bytes.NewReader([]byte("{not json")))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackOccurrenceEndpointOutOfOrder(t *testing.T) {
	router := newTestRouter(tracking.NewService(nil, nil, tracking.ServiceConfig{}))

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := postOccurrence(t, router, map[string]interface{}{
		"narrative_name": "X",
		"platform":       "twitter",
		"timestamp":      base.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postOccurrence(t, router, map[string]interface{}{
		"narrative_name": "X",
		"platform":       "twitter",
		"timestamp":      base.Add(-2 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNarrativeReadEndpoints(t *testing.T) {
	svc := tracking.NewService(nil, nil, tracking.ServiceConfig{})
	router := newTestRouter(svc)

	ev, err := svc.TrackOccurrence(context.Background(), narrative.Occurrence{
		NarrativeName: "X",
		Platform:      "telegram",
		Timestamp:     time.Now().UTC(),
		Keywords:      []string{"blackout"},
	})
	require.NoError(t, err)

	paths := []string{
		"/narratives",
		"/narratives/emerging",
		"/narratives/by-name?name=X",
		fmt.Sprintf("/narratives/%s", ev.ID),
		fmt.Sprintf("/narratives/%s/mutations", ev.ID),
		fmt.Sprintf("/narratives/%s/spread", ev.ID),
		fmt.Sprintf("/narratives/%s/timeline?hours=24", ev.ID),
		"/stats",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestNarrativeNotFoundEndpoints(t *testing.T) {
	router := newTestRouter(tracking.NewService(nil, nil, tracking.ServiceConfig{}))

	for _, path := range []string{
		"/narratives/missing",
		"/narratives/missing/mutations",
		"/narratives/missing/spread",
		"/narratives/by-name?name=missing",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestCompareEndpoint(t *testing.T) {
	svc := tracking.NewService(nil, nil, tracking.ServiceConfig{})
	router := newTestRouter(svc)

	now := time.Now().UTC()
	a, err := svc.TrackOccurrence(context.Background(), narrative.Occurrence{
		NarrativeName: "A", Platform: "twitter", Timestamp: now, Keywords: []string{"k1"},
	})
	require.NoError(t, err)
	b, err := svc.TrackOccurrence(context.Background(), narrative.Occurrence{
		NarrativeName: "B", Platform: "twitter", Timestamp: now, Keywords: []string{"k1"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/narratives/compare?first=%s&second=%s", a.ID, b.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result narrative.ComparisonResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, a.ID, result.FirstID)

	// Missing parameters are rejected.
	req = httptest.NewRequest(http.MethodGet, "/narratives/compare?first=only", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
