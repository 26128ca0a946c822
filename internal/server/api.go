package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytb/internal/models"
	"github.com/desertthunder/ytb/internal/services"
	"github.com/desertthunder/ytb/internal/shared"
)

// userHeader identifies the caller on every API request.
const userHeader = "X-User-ID"

// BulkService executes bulk playlist mutations on behalf of a user.
type BulkService interface {
	Add(ctx context.Context, userID string, payload models.AddPayload) (*models.AddResult, error)
	Remove(ctx context.Context, userID string, payload models.RemovePayload) (*models.RemoveResult, error)
	Move(ctx context.Context, userID string, payload models.MovePayload) (*models.MoveResult, error)
}

// QuotaService reports a user's usage against the daily budget.
type QuotaService interface {
	TodayQuota(userID string) (*models.QuotaSnapshot, error)
}

// APIHandler serves the JSON API for bulk mutations and quota reporting.
// Implements the [Handler] interface for registration with a [Router].
type APIHandler struct {
	engine BulkService
	quota  QuotaService
	logger *log.Logger
}

// NewAPIHandler creates an API handler backed by the given services.
func NewAPIHandler(engine BulkService, quota QuotaService, logger *log.Logger) *APIHandler {
	return &APIHandler{engine: engine, quota: quota, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"/api/bulk/add",
		"/api/bulk/remove",
		"/api/bulk/move",
		"/api/quota",
	}
}

// ServeHTTP dispatches API requests by path.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/bulk/add":
		h.post(w, r, h.handleAdd)
	case "/api/bulk/remove":
		h.post(w, r, h.handleRemove)
	case "/api/bulk/move":
		h.post(w, r, h.handleMove)
	case "/api/quota":
		if r.Method != http.MethodGet {
			h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleQuota(w, r)
	default:
		h.respondError(w, http.StatusNotFound, "not found")
	}
}

// post applies the method check and identity requirement shared by the
// mutation endpoints.
func (h *APIHandler) post(w http.ResponseWriter, r *http.Request, fn func(http.ResponseWriter, *http.Request, string)) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.Header.Get(userHeader)
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	fn(w, r, userID)
}

func (h *APIHandler) handleAdd(w http.ResponseWriter, r *http.Request, userID string) {
	var payload models.AddPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.Add(r.Context(), userID, payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleRemove(w http.ResponseWriter, r *http.Request, userID string) {
	var payload models.RemovePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.Remove(r.Context(), userID, payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleMove(w http.ResponseWriter, r *http.Request, userID string) {
	var payload models.MovePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.Move(r.Context(), userID, payload)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleQuota(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	snapshot, err := h.quota.TodayQuota(userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// respondServiceError maps a service error to an HTTP status. Per-item remote
// failures never reach here; an error at this level failed the whole request.
func (h *APIHandler) respondServiceError(w http.ResponseWriter, err error) {
	var providerErr *services.ProviderError

	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrNoTokens):
		h.respondError(w, http.StatusUnauthorized, "no stored credentials for user")
	case errors.As(err, &providerErr):
		h.respondError(w, providerErr.Reason.HTTPStatus(), providerErr.Message)
	default:
		h.logger.Error("request failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *APIHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
