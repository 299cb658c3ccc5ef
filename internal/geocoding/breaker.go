package geocoding

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mapgroups/server/internal/observability"
)

// BreakerSettings tunes the circuit breaker around a provider
type BreakerSettings struct {
	Name        string
	MinRequests uint32
	FailureRate float64
	Interval    time.Duration
	Timeout     time.Duration
}

// DefaultBreakerSettings opens after 5 requests with at least 60% failures
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "geocoder",
		MinRequests: 5,
		FailureRate: 0.6,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}
}

// Breaker stops calling an unhealthy provider for a while.
// While open, lookups fail with ErrRateLimited.
type Breaker struct {
	next Geocoder
	cb   *gobreaker.CircuitBreaker[*Result]
}

// NewBreaker wraps next in a circuit breaker
func NewBreaker(next Geocoder, s BreakerSettings) *Breaker {
	observability.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRate
			if shouldTrip {
				observability.Warn().
					Str("breaker", s.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			observability.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("Circuit breaker state transition")
			observability.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			observability.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},

		// A missing address says nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Geocode(ctx context.Context, address string) (*Result, error) {
	res, err := b.cb.Execute(func() (*Result, error) {
		return b.next.Geocode(ctx, address)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrRateLimited
	}
	return res, err
}

// State reports the breaker state for health output
func (b *Breaker) State() string {
	return stateToString(b.cb.State())
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
