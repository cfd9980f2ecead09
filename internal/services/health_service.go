package services

import (
	"context"
	"time"

	"qcpulse/internal/coordinator"
	"qcpulse/pkg/contracts"
)

// HealthStatus is the response body of the health endpoint.
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Ready     bool   `json:"ready"`
	Samples   int    `json:"samples"`
	Viewers   int    `json:"viewers"`
	Timestamp string `json:"timestamp"`
}

// ViewerCounter reports the number of connected viewers; implemented by the
// websocket hub.
type ViewerCounter interface {
	ClientCount() int
}

// HealthService reports liveness and basic state of the process.
type HealthService struct {
	coord   *coordinator.Coordinator
	viewers ViewerCounter
	started time.Time
}

// NewHealthService creates a health service.
func NewHealthService(coord *coordinator.Coordinator, viewers ViewerCounter) *HealthService {
	return &HealthService{coord: coord, viewers: viewers, started: time.Now()}
}

// Check returns the current health snapshot.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := "ok"
	if !s.coord.Ready() {
		status = "starting"
	}
	return HealthStatus{
		Status:    status,
		Version:   contracts.Version,
		Ready:     s.coord.Ready(),
		Samples:   len(s.coord.CurrentSeries()),
		Viewers:   s.viewers.ClientCount(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
