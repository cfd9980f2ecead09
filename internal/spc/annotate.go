package spc

import (
	"qcpulse/pkg/contracts/domain"
)

// Annotate projects one channel of a series into the render-ready form:
// per-point rule violations plus the statistics they were derived from.
// The result is rebuilt from the raw series on every call.
func Annotate(series domain.Series, ch domain.Channel) domain.AnnotatedSeries {
	values := series.Values(ch)
	stats := Compute(values)
	violations := Evaluate(values, stats.Mean, stats.StdDev)

	points := make([]domain.AnnotatedPoint, len(series))
	for i, smp := range series {
		points[i] = domain.AnnotatedPoint{
			ID:         smp.ID,
			Value:      values[i],
			Violations: violations[i],
		}
	}

	return domain.AnnotatedSeries{
		Channel: ch,
		Stats:   stats,
		Points:  points,
	}
}
