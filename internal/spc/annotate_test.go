package spc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcpulse/pkg/contracts/domain"
)

// TestAnnotateWeightChannel tests the full projection for one channel
func TestAnnotateWeightChannel(t *testing.T) {
	series := domain.Series{
		{ID: 1, Weight: 27.2, Hardness: 101.0},
		{ID: 2, Weight: 26.8, Hardness: 98.5},
		{ID: 3, Weight: 27.5, Hardness: 102.3},
	}

	annotated := Annotate(series, domain.ChannelWeight)

	assert.Equal(t, domain.ChannelWeight, annotated.Channel)
	require.Len(t, annotated.Points, 3)
	assert.Equal(t, 27.2, annotated.Points[0].Value)
	assert.Equal(t, 2, annotated.Points[1].ID)
	assert.InDelta(t, (27.2+26.8+27.5)/3, annotated.Stats.Mean, 1e-9)

	// Violation sets are present and indexable even when empty.
	for _, p := range annotated.Points {
		assert.NotNil(t, p.Violations)
	}
}

// TestAnnotateEmptySeries tests that an empty series annotates cleanly
func TestAnnotateEmptySeries(t *testing.T) {
	annotated := Annotate(domain.Series{}, domain.ChannelHardness)
	assert.Equal(t, domain.ChannelHardness, annotated.Channel)
	assert.Empty(t, annotated.Points)
}

// TestAnnotateFlagsOutlier tests that an out-of-control point is annotated
func TestAnnotateFlagsOutlier(t *testing.T) {
	series := domain.Series{}
	for i := 1; i <= 20; i++ {
		series = append(series, domain.Sample{ID: i, Weight: 27.0, Hardness: 100})
	}
	series = append(series, domain.Sample{ID: 21, Weight: 40.0, Hardness: 100})

	annotated := Annotate(series, domain.ChannelWeight)
	last := annotated.Points[len(annotated.Points)-1]
	assert.True(t, last.Violations.Contains(1),
		"the 40.0 outlier must trip rule 1 on the weight channel")

	// The hardness channel is flat and must not flag rule 1 anywhere.
	hardness := Annotate(series, domain.ChannelHardness)
	for _, p := range hardness.Points {
		assert.False(t, p.Violations.Contains(1))
	}
}
