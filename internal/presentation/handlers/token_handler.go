package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/application/services"
	"github.com/super-sh1z01d/ToTheMoon-sub001/internal/domain/entities"
)

// TokenHandler handles HTTP requests for tokens
type TokenHandler struct {
	service *services.TokenService
	logger  *zap.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(service *services.TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the token routes
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tokens", h.ListTokens)
	r.Get("/tokens/{address}", h.GetByAddress)
	r.Get("/tokens/{address}/history", h.GetHistory)
}

// ListTokens handles GET /api/v1/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 100
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			offset = o
		}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		tokens, err := h.service.ListByStatus(ctx, entities.TokenStatus(status), limit)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		h.respondJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
		return
	}

	tokens, total, err := h.service.ListTokens(ctx, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list tokens", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to list tokens")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": tokens,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetByAddress handles GET /api/v1/tokens/{address}
func (h *TokenHandler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	detail, err := h.service.GetToken(ctx, address)
	if err != nil {
		h.logger.Error("Failed to get token", zap.Error(err), zap.String("address", address))
		h.respondError(w, http.StatusInternalServerError, "Failed to get token")
		return
	}

	if detail == nil {
		h.respondError(w, http.StatusNotFound, "token not found")
		return
	}

	h.respondJSON(w, http.StatusOK, detail)
}

// GetHistory handles GET /api/v1/tokens/{address}/history
func (h *TokenHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := chi.URLParam(r, "address")

	if !isValidAddress(address) {
		h.respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	entries, err := h.service.GetHistory(ctx, address, limit)
	if err != nil {
		h.logger.Error("Failed to get history", zap.Error(err), zap.String("address", address))
		h.respondError(w, http.StatusInternalServerError, "Failed to get history")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

// isValidAddress checks for a plausible base58 Solana address.
func isValidAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	for _, c := range address {
		switch {
		case c >= '1' && c <= '9':
		case c >= 'A' && c <= 'H':
		case c >= 'J' && c <= 'N':
		case c >= 'P' && c <= 'Z':
		case c >= 'a' && c <= 'k':
		case c >= 'm' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

func (h *TokenHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *TokenHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
