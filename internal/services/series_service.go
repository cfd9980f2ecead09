package services

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	apierrors "qcpulse/internal/errors"
	"qcpulse/internal/coordinator"
	apiv1 "qcpulse/pkg/contracts/api/v1"
	"qcpulse/pkg/contracts/domain"
)

// SeriesService exposes the coordinator's query and update surface to the
// transport layer.
type SeriesService struct {
	coord    *coordinator.Coordinator
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSeriesService creates a series service.
func NewSeriesService(coord *coordinator.Coordinator, logger *slog.Logger) *SeriesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeriesService{
		coord:    coord,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "series_service")),
	}
}

// GetSeries returns the current authoritative series snapshot.
func (s *SeriesService) GetSeries(ctx context.Context) apiv1.SeriesResponse {
	series := s.coord.CurrentSeries()
	return apiv1.SeriesResponse{Samples: series, Count: len(series)}
}

// GetAnnotated returns one channel of the series annotated with rule
// violations. The annotation is recomputed from scratch on every call.
func (s *SeriesService) GetAnnotated(ctx context.Context, channel string) (domain.AnnotatedSeries, error) {
	ch, err := domain.ParseChannel(channel)
	if err != nil {
		return domain.AnnotatedSeries{}, apierrors.ErrValidation("channel", err.Error())
	}
	return s.coord.Annotated(ch), nil
}

// GetStats returns the derived statistics of one channel.
func (s *SeriesService) GetStats(ctx context.Context, channel string) (domain.ChannelStats, error) {
	ch, err := domain.ParseChannel(channel)
	if err != nil {
		return domain.ChannelStats{}, apierrors.ErrValidation("channel", err.Error())
	}
	return s.coord.Stats(ch), nil
}

// ApplyUpdate validates the request shape and hands the new series to the
// coordinator. Only shape is checked; sample values flow through unfiltered.
func (s *SeriesService) ApplyUpdate(ctx context.Context, req apiv1.SeriesUpdateRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apierrors.ErrValidation("samples", "samples field is required")
	}
	s.logger.InfoContext(ctx, "Applying series update",
		slog.String("origin", req.Origin),
		slog.Int("samples", len(req.Samples)))
	s.coord.ApplyUpdate(ctx, domain.Series(req.Samples), req.Origin)
	return nil
}
