package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
	"github.com/servicedeskhq/notify/internal/pkg/presence"
	"github.com/servicedeskhq/notify/internal/service"
)

var validate = validator.New()

// Handler carries the core dependencies of the REST endpoints.
type Handler struct {
	dispatcher *service.Dispatcher
	registry   *presence.Registry
}

// NewHandler builds the endpoint set.
func NewHandler(dispatcher *service.Dispatcher, registry *presence.Registry) *Handler {
	return &Handler{dispatcher: dispatcher, registry: registry}
}

type dispatchRequest struct {
	ID              string         `json:"id"`
	Kind            string         `json:"kind" validate:"required"`
	RecipientUserID string         `json:"recipientUserId" validate:"required"`
	Payload         domain.Payload `json:"payload"`
	Locale          string         `json:"locale"`
}

// Dispatch triggers one fan-out and returns the aggregate outcome. Callers
// that do not care about the result publish to NATS instead.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := domain.NotificationEvent{
		ID:              req.ID,
		Kind:            domain.Kind(req.Kind),
		RecipientUserID: req.RecipientUserID,
		Payload:         req.Payload,
		Locale:          req.Locale,
		CreatedAt:       time.Now().UTC(),
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	outcome, err := h.dispatcher.Dispatch(r.Context(), event)
	if err != nil {
		var notFound *service.TemplateNotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.From(r.Context()).Error("dispatch failed",
			slog.String("event_id", event.ID),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// Presence reports whether a user has an open realtime connection.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      userID,
		"isOnline":    h.registry.IsOnline(userID),
		"connections": len(h.registry.ActiveConnections(userID)),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
