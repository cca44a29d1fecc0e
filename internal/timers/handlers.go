package timers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tss1979/timetracker/internal/metrics"
	"github.com/tss1979/timetracker/internal/middleware"
	"github.com/tss1979/timetracker/internal/utils"
)

type Handler struct {
	service *Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(service *Service, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{service: service, metrics: m, logger: logger}
}

func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	active := ParseActiveFilter(r.URL.Query().Get("isActive"))

	list, err := h.service.List(r.Context(), userID, active)
	if err != nil {
		h.serverError(w, r, "failed to list timers", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := utils.GetUserIDFromContext(r.Context())
	id, err := h.service.Start(r.Context(), userID, input.Description)
	if err != nil {
		h.serverError(w, r, "failed to start timer", err)
		return
	}
	h.metrics.TimersStarted.Inc()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(id); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) StopHandler(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	err := h.service.Stop(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrTimerNotFound):
		http.Error(w, "Timer not found", http.StatusNotFound)
		return
	case errors.Is(err, ErrTimerInactive):
		http.Error(w, "Timer already stopped", http.StatusConflict)
		return
	case err != nil:
		h.serverError(w, r, "failed to stop timer", err)
		return
	}
	h.metrics.TimersStopped.Inc()

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
