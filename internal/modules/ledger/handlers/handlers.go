// Package handlers provides HTTP handlers for the transaction ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ozank/portfoy/internal/modules/ledger"
	"github.com/ozank/portfoy/internal/session"
)

// Handler handles ledger HTTP requests.
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler.
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// recordRequest is the POST body for a new transaction.
type recordRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	ExecutedAt string  `json:"executed_at,omitempty"` // YYYY-MM-DD, defaults to today
}

// HandleRecord records a buy or sell transaction.
// POST /api/transactions
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := ledger.NewTransaction{
		Symbol:   req.Symbol,
		Side:     ledger.Side(req.Side),
		Quantity: req.Quantity,
		Price:    req.Price,
	}
	if req.ExecutedAt != "" {
		parsed, err := time.Parse("2006-01-02", req.ExecutedAt)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "executed_at must be YYYY-MM-DD")
			return
		}
		input.ExecutedAt = parsed
	}

	txn, err := h.service.Record(r.Context(), owner, input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, txn)
}

// HandleDelete deletes a transaction and replays the affected position.
// DELETE /api/transactions/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := h.service.Delete(r.Context(), owner, id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleHistory lists the owner's transactions, newest first.
// GET /api/transactions
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := session.OwnerFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "no active session")
		return
	}

	txns, err := h.service.History(r.Context(), owner)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load history")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if txns == nil {
		txns = []ledger.Transaction{}
	}

	h.writeJSON(w, http.StatusOK, txns)
}

// writeDomainError maps engine errors to client-facing status codes.
// Validation and balance errors are the user's to fix; everything else is a
// storage failure for this one operation.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var validation ledger.ValidationError
	switch {
	case errors.As(err, &validation):
		h.writeError(w, http.StatusBadRequest, validation.Reason)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		h.writeError(w, http.StatusUnprocessableEntity, "insufficient balance for this sale")
	default:
		h.log.Error().Err(err).Msg("Ledger operation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
