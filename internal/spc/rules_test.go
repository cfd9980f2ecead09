package spc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcpulse/pkg/contracts/domain"
)

func flagged(t *testing.T, sets []domain.ViolationSet, index, rule int) bool {
	t.Helper()
	require.Less(t, index, len(sets))
	return sets[index].Contains(rule)
}

// TestEvaluateDeterminism tests that repeated evaluation is identical
func TestEvaluateDeterminism(t *testing.T) {
	values := []float64{10, 10, 10, 100, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	stats := Compute(values)

	first := Evaluate(values, stats.Mean, stats.StdDev)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Evaluate(values, stats.Mean, stats.StdDev))
	}
}

// TestEvaluateOutputLength tests one ViolationSet per input value
func TestEvaluateOutputLength(t *testing.T) {
	for _, n := range []int{0, 1, 7, 30} {
		values := make([]float64, n)
		sets := Evaluate(values, 0, 1)
		assert.Len(t, sets, n)
	}
}

// TestWindowMinimums tests that no rule fires before it has enough history.
// The input is built to trip every rule somewhere: a huge alternating swing
// trips 1, 4, 5, 6 and 8, and the tail trips 2, 3 and 7 in later slices.
func TestWindowMinimums(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		if i%2 == 0 {
			values[i] = 50
		} else {
			values[i] = -50
		}
	}

	sets := Evaluate(values, 0, 1)
	minWindows := map[int]int{1: 1, 2: 9, 3: 6, 4: 14, 5: 3, 6: 5, 7: 15, 8: 8}
	for rule, window := range minWindows {
		for i := 0; i < window-1 && i < len(sets); i++ {
			assert.False(t, sets[i].Contains(rule),
				"rule %d must not flag index %d (window %d)", rule, i, window)
		}
	}

	// Sanity: the alternating swing does fire the rules it is built for.
	last := len(values) - 1
	assert.True(t, flagged(t, sets, last, 1))
	assert.True(t, flagged(t, sets, last, 4))
	assert.True(t, flagged(t, sets, last, 5))
	assert.True(t, flagged(t, sets, last, 6))
	assert.True(t, flagged(t, sets, last, 8))
}

// TestRule1StrictThreshold tests the exact-threshold boundary: the
// comparison is strictly greater-than, so a point landing exactly on
// 3 sigma is not flagged.
func TestRule1StrictThreshold(t *testing.T) {
	// mean 59, population sigma exactly 147: |500-59| = 441 = 3*147.
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 500}
	stats := Compute(values)
	require.InDelta(t, 59.0, stats.Mean, 1e-9)
	require.InDelta(t, 147.0, stats.StdDev, 1e-9)

	sets := Evaluate(values, stats.Mean, stats.StdDev)
	assert.False(t, flagged(t, sets, 9, 1),
		"distance exactly 3 sigma must not flag (strict >)")

	// Just beyond the boundary flags.
	sets = Evaluate(values, stats.Mean, stats.StdDev-0.001)
	assert.True(t, flagged(t, sets, 9, 1))
}

// TestRule1SmallExcursion tests that a visually large outlier can still be
// inside three sigma of its own series
func TestRule1SmallExcursion(t *testing.T) {
	values := []float64{10, 10, 10, 100}
	stats := Compute(values)
	require.InDelta(t, 32.5, stats.Mean, 1e-9)

	sets := Evaluate(values, stats.Mean, stats.StdDev)
	assert.False(t, flagged(t, sets, 3, 1))
}

// TestRule2NineOnOneSide tests nine consecutive points below the mean
func TestRule2NineOnOneSide(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	sets := Evaluate(values, 100, 1)

	assert.True(t, flagged(t, sets, 8, 2))
	for i := 0; i < 8; i++ {
		assert.False(t, sets[i].Contains(2))
	}

	// A point sitting exactly on the mean breaks the run (strict sides).
	values[4] = 100
	sets = Evaluate(values, 100, 1)
	assert.False(t, flagged(t, sets, 8, 2))
}

// TestRule3Trend tests six strictly monotonic points
func TestRule3Trend(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6}
	sets := Evaluate(up, 3.5, 10)
	assert.True(t, flagged(t, sets, 5, 3))

	down := []float64{6, 5, 4, 3, 2, 1}
	sets = Evaluate(down, 3.5, 10)
	assert.True(t, flagged(t, sets, 5, 3))

	// A flat step is not strict.
	tie := []float64{1, 2, 3, 3, 4, 5}
	sets = Evaluate(tie, 3, 10)
	assert.False(t, flagged(t, sets, 5, 3))
}

// TestRule4Alternation tests the 14-point alternating window, and that a
// single repeated value anywhere breaks the flag
func TestRule4Alternation(t *testing.T) {
	values := []float64{1, 5, 1, 5, 1, 5, 1, 5, 1, 5, 1, 5, 1, 5}
	stats := Compute(values)

	sets := Evaluate(values, stats.Mean, stats.StdDev)
	assert.True(t, flagged(t, sets, 13, 4))

	for i := 1; i < len(values); i++ {
		broken := append([]float64(nil), values...)
		broken[i] = broken[i-1] // tie: equal consecutive values
		sets := Evaluate(broken, stats.Mean, stats.StdDev)
		assert.False(t, flagged(t, sets, 13, 4),
			"tie at index %d must break the alternation", i)
	}
}

// TestRule5TwoOfThree tests two of the last three points beyond two sigma
func TestRule5TwoOfThree(t *testing.T) {
	values := []float64{0, 3, 3}
	sets := Evaluate(values, 0, 1)
	assert.True(t, flagged(t, sets, 2, 5))

	// Opposite sides still count: the distance test is two-sided.
	values = []float64{3, -3, 0}
	sets = Evaluate(values, 0, 1)
	assert.True(t, flagged(t, sets, 2, 5))

	values = []float64{0, 0, 3}
	sets = Evaluate(values, 0, 1)
	assert.False(t, flagged(t, sets, 2, 5))
}

// TestRule6FourOfFive tests four of the last five points beyond one sigma
func TestRule6FourOfFive(t *testing.T) {
	values := []float64{0, 1.5, -1.5, 1.5, 1.5}
	sets := Evaluate(values, 0, 1)
	assert.True(t, flagged(t, sets, 4, 6))

	values = []float64{0, 0, 1.5, 1.5, 1.5}
	sets = Evaluate(values, 0, 1)
	assert.False(t, flagged(t, sets, 4, 6))
}

// TestRule7FifteenWithin tests fifteen consecutive points inside one sigma
func TestRule7FifteenWithin(t *testing.T) {
	values := make([]float64, 15)
	for i := range values {
		values[i] = 0.5
	}
	sets := Evaluate(values, 0, 1)
	assert.True(t, flagged(t, sets, 14, 7))
	assert.False(t, flagged(t, sets, 13, 7))

	// One point exactly at one sigma breaks the window (strict <).
	values[7] = 1.0
	sets = Evaluate(values, 0, 1)
	assert.False(t, flagged(t, sets, 14, 7))
}

// TestRule8EightBeyond tests eight consecutive points beyond one sigma,
// sides mixed freely
func TestRule8EightBeyond(t *testing.T) {
	values := []float64{2, -2, 2, 2, -2, 2, -2, 2}
	sets := Evaluate(values, 0, 1)
	assert.True(t, flagged(t, sets, 7, 8))

	values[3] = 0.5
	sets = Evaluate(values, 0, 1)
	assert.False(t, flagged(t, sets, 7, 8))
}

// TestRulesIndependent tests that one point can carry several rules at once,
// in ascending order
func TestRulesIndependent(t *testing.T) {
	// Nine identical points far above the mean: rules 1, 2, 5, 6 and 8 all
	// apply at the last index.
	values := make([]float64, 9)
	for i := range values {
		values[i] = 10
	}
	sets := Evaluate(values, 0, 1)

	last := sets[8]
	assert.Equal(t, domain.ViolationSet{1, 2, 5, 6, 8}, last)
}

// TestNaNStdDevFlowsThrough tests IEEE semantics with no special-casing:
// sigma comparisons all fail against NaN, mean-only rules keep working
func TestNaNStdDevFlowsThrough(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	sets := Evaluate(values, 100, math.NaN())

	assert.True(t, flagged(t, sets, 8, 2), "rule 2 depends only on the mean")
	for i := range sets {
		for _, rule := range []int{1, 5, 6, 7, 8} {
			assert.False(t, sets[i].Contains(rule),
				"sigma rule %d must not fire with NaN stdDev", rule)
		}
	}
}

// TestZeroStdDev tests that a zero sigma stays well-defined
func TestZeroStdDev(t *testing.T) {
	values := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	sets := Evaluate(values, 4, 0)

	// Every point is 1 > 3*0 from the mean: rule 1 everywhere, rule 8 once
	// the window fills.
	assert.True(t, flagged(t, sets, 0, 1))
	assert.True(t, flagged(t, sets, 7, 8))
	// And nothing can be strictly within a zero band.
	assert.False(t, flagged(t, sets, 7, 7))
}
