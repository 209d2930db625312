// Package handlers provides HTTP handlers for portfolio views.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/goals"
	"github.com/ozank/portfoy/internal/modules/portfolio"
	"github.com/ozank/portfoy/internal/modules/pricing"
	"github.com/ozank/portfoy/internal/session"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	service  *portfolio.Service
	pricing  *pricing.Service
	goalRepo *goals.Repository
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(service *portfolio.Service, pricingSvc *pricing.Service, goalRepo *goals.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		pricing:  pricingSvc,
		goalRepo: goalRepo,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns priced positions, portfolio totals, and goal
// progress - the summary page in one response.
// GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	valuations, summary, err := h.service.Valuations(owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load valuations")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if valuations == nil {
		valuations = []portfolio.Valuation{}
	}

	goal, err := h.goalRepo.Get(owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load goal")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": valuations,
		"summary":   summary,
		"goal": map[string]interface{}{
			"name":     goal.Name,
			"amount":   goal.Amount,
			"progress": goals.Progress(summary.TotalValue, goal.Amount),
		},
	})
}

// HandleHeatmap returns display tiles for the heat-map page.
// GET /api/portfolio/heatmap
func (h *Handler) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	cells, err := h.service.Heatmap(owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build heatmap")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cells == nil {
		cells = []portfolio.HeatmapCell{}
	}

	h.writeJSON(w, http.StatusOK, cells)
}

// refreshRequest optionally carries the free-market gram gold price the
// derived instruments should be priced from.
type refreshRequest struct {
	FreeMarketGram string `json:"free_market_gram,omitempty"`
}

// HandleRefreshPrices re-resolves current prices for every held symbol.
// POST /api/portfolio/refresh
func (h *Handler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	var req refreshRequest
	if r.Body != nil {
		// An empty body means "no override"; decode errors are not fatal here.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	rates := h.pricing.Snapshot(r.Context(), req.FreeMarketGram)
	updated, err := h.service.RefreshPrices(r.Context(), owner, rates)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to refresh prices")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"updated": updated,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
