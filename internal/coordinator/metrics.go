package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qcpulse",
		Subsystem: "coordinator",
		Name:      "updates_total",
		Help:      "Series replacements applied, by update source.",
	}, []string{"source"})

	saveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qcpulse",
		Subsystem: "coordinator",
		Name:      "save_failures_total",
		Help:      "Best-effort persistence writes that failed.",
	})

	loadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qcpulse",
		Subsystem: "coordinator",
		Name:      "load_failures_total",
		Help:      "Workbook loads that failed and fell back or kept current state.",
	})
)
