package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/goals"
	"github.com/ozank/portfoy/internal/modules/watchlist"
	"github.com/ozank/portfoy/internal/session"
)

// writeJSON and writeError are shared by the handlers living in this package.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// SessionHandlers manages the login/logout lifecycle. Authentication happens
// upstream; the login endpoint trusts the owner identifier it receives.
type SessionHandlers struct {
	sessions *session.Manager
	log      zerolog.Logger
}

// NewSessionHandlers creates session handlers.
func NewSessionHandlers(sessions *session.Manager, log zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions,
		log:      log.With().Str("handler", "session").Logger(),
	}
}

// HandleLogin opens a session for an owner.
// POST /api/session
func (h *SessionHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Owner) == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	sess := h.sessions.Create(strings.TrimSpace(req.Owner))
	h.log.Info().Str("owner", sess.Owner).Msg("Session created")

	writeJSON(w, http.StatusCreated, map[string]string{"token": sess.Token})
}

// HandleLogout tears the session down.
// DELETE /api/session
func (h *SessionHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(r.Header.Get("X-Session-Token"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// GoalHandlers serves the savings goal endpoints.
type GoalHandlers struct {
	repo *goals.Repository
	log  zerolog.Logger
}

// NewGoalHandlers creates goal handlers.
func NewGoalHandlers(repo *goals.Repository, log zerolog.Logger) *GoalHandlers {
	return &GoalHandlers{
		repo: repo,
		log:  log.With().Str("handler", "goals").Logger(),
	}
}

// HandleGet returns the owner's goal (or the defaults).
// GET /api/goal
func (h *GoalHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	goal, err := h.repo.Get(owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load goal")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// HandleSet replaces the owner's goal.
// PUT /api/goal
func (h *GoalHandlers) HandleSet(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	var goal goals.Goal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(goal.Name) == "" || goal.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "goal needs a name and a positive amount")
		return
	}

	if err := h.repo.Set(owner, goal); err != nil {
		h.log.Error().Err(err).Msg("Failed to save goal")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// WatchlistHandlers serves the live-market panel endpoints.
type WatchlistHandlers struct {
	service *watchlist.Service
	log     zerolog.Logger
}

// NewWatchlistHandlers creates watchlist handlers.
func NewWatchlistHandlers(service *watchlist.Service, log zerolog.Logger) *WatchlistHandlers {
	return &WatchlistHandlers{
		service: service,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleList returns the tracked instrument list.
// GET /api/watchlist
func (h *WatchlistHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Entries()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load watchlist")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleQuotes returns live quotes for every tracked instrument.
// GET /api/watchlist/quotes
func (h *WatchlistHandlers) HandleQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.service.Quotes(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to quote watchlist")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}
