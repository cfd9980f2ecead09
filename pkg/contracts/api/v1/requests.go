// Package api contains the API contract definitions for QCPulse.
// Version v1 represents the current stable API version.
package api

import (
	"qcpulse/pkg/contracts/domain"
)

// SeriesUpdateRequest replaces the whole authoritative series. Origin is the
// submitting editor's identifier and is excluded from the resulting
// broadcast; it may be empty for anonymous editors. Samples are accepted as
// given: numerically odd values (negative weights, NaN) are data, not errors.
type SeriesUpdateRequest struct {
	Origin  string          `json:"origin"`
	Samples []domain.Sample `json:"samples" validate:"required"`
}

// SeriesResponse wraps the authoritative series for HTTP responses.
type SeriesResponse struct {
	Samples domain.Series `json:"samples"`
	Count   int           `json:"count"`
}
