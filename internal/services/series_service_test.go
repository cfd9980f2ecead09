package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcpulse/internal/coordinator"
	apierrors "qcpulse/internal/errors"
	"qcpulse/internal/shared/testutil"
	apiv1 "qcpulse/pkg/contracts/api/v1"
	"qcpulse/pkg/contracts/domain"
)

type memStore struct {
	series domain.Series
	err    error
}

func (m *memStore) Load(ctx context.Context) (domain.Series, error) {
	return m.series.Clone(), m.err
}

func (m *memStore) Save(ctx context.Context, series domain.Series) error {
	m.series = series.Clone()
	return nil
}

type recordingBroadcaster struct {
	series  []domain.Series
	origins []string
}

func (b *recordingBroadcaster) BroadcastSeries(series domain.Series, excludeOrigin string) {
	b.series = append(b.series, series)
	b.origins = append(b.origins, excludeOrigin)
}

func newTestService(t *testing.T, seed domain.Series) (*SeriesService, *recordingBroadcaster) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	broadcaster := &recordingBroadcaster{}
	coord := coordinator.New(&memStore{series: seed}, broadcaster, logger)
	coord.Initialize(context.Background())
	return NewSeriesService(coord, logger), broadcaster
}

// TestGetSeries tests the snapshot response shape
func TestGetSeries(t *testing.T) {
	seed := domain.Series{
		{ID: 1, Weight: 27.2, Hardness: 101.0},
		{ID: 2, Weight: 26.8, Hardness: 98.5},
	}
	svc, _ := newTestService(t, seed)

	resp := svc.GetSeries(context.Background())
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, seed, resp.Samples)
}

// TestGetAnnotated tests channel parsing and annotation
func TestGetAnnotated(t *testing.T) {
	seed := domain.Series{
		{ID: 1, Weight: 27.2, Hardness: 101.0},
		{ID: 2, Weight: 26.8, Hardness: 98.5},
		{ID: 3, Weight: 27.5, Hardness: 102.3},
	}
	svc, _ := newTestService(t, seed)

	annotated, err := svc.GetAnnotated(context.Background(), "weight")
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelWeight, annotated.Channel)
	assert.Len(t, annotated.Points, 3)
	assert.Equal(t, 27.2, annotated.Points[0].Value)
}

// TestGetAnnotatedUnknownChannel tests that a bogus channel maps to a
// validation error
func TestGetAnnotatedUnknownChannel(t *testing.T) {
	svc, _ := newTestService(t, domain.Series{})

	_, err := svc.GetAnnotated(context.Background(), "density")
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
}

// TestGetStats tests channel statistics retrieval
func TestGetStats(t *testing.T) {
	seed := domain.Series{
		{ID: 1, Weight: 10, Hardness: 0},
		{ID: 2, Weight: 20, Hardness: 0},
	}
	svc, _ := newTestService(t, seed)

	stats, err := svc.GetStats(context.Background(), "weight")
	require.NoError(t, err)
	assert.Equal(t, 15.0, stats.Mean)
	assert.Equal(t, 5.0, stats.StdDev)

	hardness, err := svc.GetStats(context.Background(), "hardness")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(hardness.RSDPercent), "zero mean must give NaN RSD")
}

// TestGetStatsUnknownChannel tests validation of the channel path segment
func TestGetStatsUnknownChannel(t *testing.T) {
	svc, _ := newTestService(t, domain.Series{})

	_, err := svc.GetStats(context.Background(), "torque")
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
}

// TestApplyUpdate tests the full update path through the coordinator,
// including origin-excluded rebroadcast
func TestApplyUpdate(t *testing.T) {
	svc, broadcaster := newTestService(t, domain.Series{{ID: 1, Weight: 1, Hardness: 1}})

	req := apiv1.SeriesUpdateRequest{
		Origin:  "editor-7",
		Samples: []domain.Sample{{ID: 1, Weight: 30.1, Hardness: 99.9}},
	}
	require.NoError(t, svc.ApplyUpdate(context.Background(), req))

	resp := svc.GetSeries(context.Background())
	assert.Equal(t, 30.1, resp.Samples[0].Weight)

	require.NotEmpty(t, broadcaster.origins)
	assert.Equal(t, "editor-7", broadcaster.origins[len(broadcaster.origins)-1])
}

// TestApplyUpdateMissingSamples tests shape validation
func TestApplyUpdateMissingSamples(t *testing.T) {
	svc, _ := newTestService(t, domain.Series{})

	err := svc.ApplyUpdate(context.Background(), apiv1.SeriesUpdateRequest{Origin: "x"})
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
}

// TestApplyUpdateEmptySeries tests that an explicitly empty sample list is a
// legal replacement, not a validation failure
func TestApplyUpdateEmptySeries(t *testing.T) {
	svc, _ := newTestService(t, domain.Series{{ID: 1, Weight: 1, Hardness: 1}})

	req := apiv1.SeriesUpdateRequest{Origin: "e", Samples: []domain.Sample{}}
	require.NoError(t, svc.ApplyUpdate(context.Background(), req))
	assert.Equal(t, 0, svc.GetSeries(context.Background()).Count)
}
