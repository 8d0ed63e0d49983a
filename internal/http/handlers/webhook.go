package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

const maxBodyBytes = 64 << 10

// CallNotifier — то, что умеет доставить звонок в чат жильца.
type CallNotifier interface {
	Notify(ctx context.Context, deviceID, tenantRef string) error
}

// WebhookHandler принимает уведомления провайдера о звонке в домофон.
type WebhookHandler struct {
	relay CallNotifier
	log   *slog.Logger
}

func NewWebhookHandler(relay CallNotifier, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{relay: relay, log: log.With("component", "webhook")}
}

// callRequest is the body of POST /webhook/call
type callRequest struct {
	DomofonID domain.FlexString `json:"domofon_id"`
	TenantID  domain.FlexString `json:"tenant_id"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// HandleCall handles GET/POST /webhook/call
func (h *WebhookHandler) HandleCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.DomofonID = domain.FlexString(q.Get("domofon_id"))
		req.TenantID = domain.FlexString(q.Get("tenant_id"))
	case http.MethodPost:
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			h.log.Warn("invalid webhook body", "error", err)
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	default:
		respondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := h.relay.Notify(r.Context(), req.DomofonID.String(), req.TenantID.String())
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, successResponse{Success: true})
	case errors.Is(err, domain.ErrMissingFields):
		respondWithError(w, http.StatusBadRequest, "Missing required parameters")
	case errors.Is(err, domain.ErrMalformedCallback):
		respondWithError(w, http.StatusBadRequest, "invalid domofon_id")
	case errors.Is(err, domain.ErrChatNotFound):
		respondWithError(w, http.StatusNotFound, "User not found or no telegram chat ID")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}
