// Package api provides the HTTP handlers for the search service's
// inbound surface (spec §6). This is thin plumbing over the core search
// pipeline in internal/search.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/internal/searchcrawl/internal/cache"
	"github.com/internal/searchcrawl/internal/logger"
	"github.com/internal/searchcrawl/internal/search"
	"github.com/internal/searchcrawl/internal/state"
	"github.com/internal/searchcrawl/internal/stream"
	"github.com/internal/searchcrawl/internal/stream/wspush"
)

// StartSearchRequest is the JSON body for POST /search.
type StartSearchRequest struct {
	URL        string `json:"url"`
	SearchTerm string `json:"search_term"`
	MaxPages   int    `json:"max_pages"`
}

// StartSearchResponse is returned immediately; the crawl runs in the
// background.
type StartSearchResponse struct {
	SearchID string `json:"search_id"`
}

// ResultsResponse is returned by GET /results/{id}.
type ResultsResponse struct {
	Pending bool        `json:"pending"`
	Results interface{} `json:"results,omitempty"`
}

// Handler holds the dependencies for the search service's HTTP surface.
type Handler struct {
	Orchestrator *search.Orchestrator
	Tracker      state.Tracker
	Publisher    *stream.Publisher
	Cache        cache.Cache
	DefaultMax   int
}

// NewHandler creates a Handler.
func NewHandler(o *search.Orchestrator, tracker state.Tracker, pub *stream.Publisher, ch cache.Cache, defaultMaxPages int) *Handler {
	return &Handler{Orchestrator: o, Tracker: tracker, Publisher: pub, Cache: ch, DefaultMax: defaultMaxPages}
}

// HandleStartSearch implements POST /search — spec §6 call shape 1.
func (h *Handler) HandleStartSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST method is allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StartSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request payload: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	if req.SearchTerm == "" {
		http.Error(w, "search_term is required", http.StatusBadRequest)
		return
	}
	if req.MaxPages <= 0 {
		req.MaxPages = h.DefaultMax
	}

	searchID := uuid.NewString()

	// The crawl runs detached from the request context so a client
	// disconnect of the initiating POST never cancels the search itself;
	// only the progress-stream subscription is tied to its own request.
	go func() {
		ctx := context.Background()
		if _, err := h.Orchestrator.Search(ctx, searchID, req.URL, req.SearchTerm, req.MaxPages); err != nil {
			logger.LogError("search %s failed: %v", searchID, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(StartSearchResponse{SearchID: searchID})
}

// HandleGetState implements GET /state/{id} — spec §6 call shape 2.
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request, id string) {
	snap, found, err := h.Tracker.Get(r.Context(), id)
	if err != nil || !found {
		http.Error(w, "search not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

// HandleGetResults implements GET /results/{id} — spec §6 call shape 3.
func (h *Handler) HandleGetResults(w http.ResponseWriter, r *http.Request, id string) {
	snap, found, err := h.Tracker.Get(r.Context(), id)
	if err != nil || !found {
		http.Error(w, "search not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !snap.Status.IsTerminal() {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(ResultsResponse{Pending: true})
		return
	}

	results, _ := h.Orchestrator.GetResults(id)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ResultsResponse{Pending: false, Results: results})
}

// HandleStream implements the outbound push surface of spec §6: a raw
// WebSocket emitting one state_update frame per tick until the search
// terminates, or an error frame if the id is unknown.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request, id string) {
	sub := h.Publisher.Subscribe(r.Context(), id)
	if err := wspush.Serve(r.Context(), w, r, sub); err != nil {
		logger.LogError("stream %s: %v", id, err)
	}
}

// healthResponse is the verbose /health payload, surfacing cache stats so
// the size/eviction machinery in the cache package is externally
// observable (SPEC_FULL.md §5).
type healthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Cache     cache.Stats `json:"cache"`
}

// HandleHealth is a liveness probe, carried from the teacher's habit of a
// dependency-aware /health endpoint.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if h.Cache != nil {
		resp.Cache = h.Cache.Stats()
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.LogError("failed to write health check response: %v", err)
	}
}
