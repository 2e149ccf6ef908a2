package rest

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fortuna/crosse/internal/api/websocket"
	"github.com/fortuna/crosse/internal/ingest/usclublax"
	"github.com/fortuna/crosse/internal/publisher"
	"github.com/fortuna/crosse/internal/store"
	"github.com/fortuna/crosse/internal/store/repository"
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db        *store.Database
	repos     *repository.Store
	ingester  *usclublax.Ingester
	publisher *publisher.RedisPublisher // optional
	ws        *websocket.Server         // optional
	token     string
}

// NewHandler creates a new handler
func NewHandler(db *store.Database, repos *repository.Store, ingester *usclublax.Ingester, pub *publisher.RedisPublisher, ws *websocket.Server, token string) *Handler {
	return &Handler{
		db:        db,
		repos:     repos,
		ingester:  ingester,
		publisher: pub,
		ws:        ws,
		token:     token,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if err := h.db.HealthCheck(); err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]string{
		"status":  status,
		"service": "crosse",
	})
}

type scrapeRequest struct {
	URLs []string `json:"urls"`
}

type scrapeResponse struct {
	OK      bool                  `json:"ok"`
	Results []usclublax.URLResult `json:"results"`
}

// HandleScrape handles POST /api/v1/scrape.
// Per-URL failures are reported inside the result list; only a malformed
// request or an infrastructure failure fails the whole batch.
func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if len(req.URLs) == 0 {
		respondError(w, http.StatusBadRequest, "urls is required", nil)
		return
	}

	results, err := h.ingester.Run(r.Context(), req.URLs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ingestion failed", err)
		return
	}

	for _, res := range results {
		if h.publisher != nil {
			if err := h.publisher.PublishIngestResult(r.Context(), res); err != nil {
				log.Printf("⚠️  Failed to publish result for %s: %v", res.URL, err)
			}
		}
		if h.ws != nil {
			h.ws.BroadcastIngestResult(res)
		}
	}

	respondJSON(w, http.StatusOK, scrapeResponse{OK: true, Results: results})
}

// GetQueue returns the most recent scrape queue entries
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)

	entries, err := h.repos.Queue.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch queue", err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// GetTeams returns all active teams
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.repos.Teams.GetAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch teams", err)
		return
	}

	respondJSON(w, http.StatusOK, teams)
}

// GetTeam returns a single team
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.Atoi(mux.Vars(r)["teamID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid team ID", err)
		return
	}

	team, err := h.repos.Teams.GetByID(r.Context(), teamID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Team not found", err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// GetTeamGames returns a team's ingested games
func (h *Handler) GetTeamGames(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.Atoi(mux.Vars(r)["teamID"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid team ID", err)
		return
	}

	limit := parseLimit(r, 100, 500)

	games, err := h.repos.Games.GetByTeam(r.Context(), teamID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch games", err)
		return
	}

	respondJSON(w, http.StatusOK, games)
}

// parseLimit reads the limit query parameter with a default and a cap
func parseLimit(r *http.Request, def, max int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def
	}
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= max {
		return l
	}
	return def
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
