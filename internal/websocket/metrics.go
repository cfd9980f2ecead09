package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "qcpulse",
		Subsystem: "websocket",
		Name:      "connected_clients",
		Help:      "Currently connected viewer clients.",
	})

	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qcpulse",
		Subsystem: "websocket",
		Name:      "broadcasts_total",
		Help:      "Series snapshots fanned out to viewers.",
	})

	droppedClients = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qcpulse",
		Subsystem: "websocket",
		Name:      "dropped_clients_total",
		Help:      "Clients disconnected because their send buffer was full.",
	})
)
