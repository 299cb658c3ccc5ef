package geocoding

import (
	"context"
	"errors"
)

// Result is a resolved address
type Result struct {
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress"`
}

// Geocoder converts free text addresses to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Typed provider failures. Any other error is a generic failure.
var (
	ErrNotFound    = errors.New("address not found")
	ErrRateLimited = errors.New("geocoding rate limit exceeded")
	ErrDenied      = errors.New("geocoding request denied")
)

// FailureReason returns the human readable reason reported for a failed address
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Address not found"
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded"
	case errors.Is(err, ErrDenied):
		return "Request denied"
	default:
		return "Geocoding failed"
	}
}

// outcome labels a geocode error for metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrDenied):
		return "denied"
	default:
		return "error"
	}
}
