package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "qcpulse/internal/errors"
	"qcpulse/internal/services"
	apiv1 "qcpulse/pkg/contracts/api/v1"
)

// SeriesHandler handles the series query and update endpoints.
type SeriesHandler struct {
	service      *services.SeriesService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSeriesHandler creates a series handler.
func NewSeriesHandler(service *services.SeriesService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SeriesHandler {
	return &SeriesHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "series_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the series routes.
func (h *SeriesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSeries)
	r.Put("/", h.UpdateSeries)

	r.Route("/annotated/{channel}", func(r chi.Router) {
		r.Use(h.ChannelCtx)
		r.Get("/", h.GetAnnotated)
	})
	r.Route("/stats/{channel}", func(r chi.Router) {
		r.Use(h.ChannelCtx)
		r.Get("/", h.GetStats)
	})

	return r
}

// ChannelCtx validates presence of the channel parameter. Channel name
// validity is checked by the service.
func (h *SeriesHandler) ChannelCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "channel") == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("channel", "channel is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSeries handles GET /api/series.
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.GetSeries(r.Context()))
}

// GetAnnotated handles GET /api/series/annotated/{channel}.
func (h *SeriesHandler) GetAnnotated(w http.ResponseWriter, r *http.Request) {
	annotated, err := h.service.GetAnnotated(r.Context(), chi.URLParam(r, "channel"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, annotated)
}

// GetStats handles GET /api/series/stats/{channel}.
func (h *SeriesHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), chi.URLParam(r, "channel"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// UpdateSeries handles PUT /api/series. The whole series is replaced,
// last write wins.
func (h *SeriesHandler) UpdateSeries(w http.ResponseWriter, r *http.Request) {
	var req apiv1.SeriesUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if err := h.service.ApplyUpdate(r.Context(), req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
