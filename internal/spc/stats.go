package spc

import (
	"math"

	"qcpulse/pkg/contracts/domain"
)

// Compute derives the channel statistics for one ordered sequence of readings.
// The standard deviation is the population form (divide by N). An empty input
// is a valid call and yields NaN across the board; callers are expected to
// handle NaN, not to treat it as an error.
func Compute(values []float64) domain.ChannelStats {
	n := len(values)
	if n == 0 {
		nan := math.NaN()
		return domain.ChannelStats{Mean: nan, StdDev: nan, RSDPercent: nan}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sqsum float64
	for _, v := range values {
		d := v - mean
		sqsum += d * d
	}
	stdDev := math.Sqrt(sqsum / float64(n))

	rsd := 100 * stdDev / mean
	if mean == 0 {
		rsd = math.NaN()
	}

	return domain.ChannelStats{Mean: mean, StdDev: stdDev, RSDPercent: rsd}
}
