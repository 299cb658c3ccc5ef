package geocoding

import (
	"io"

	"github.com/mapgroups/server/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewFromConfig builds the provider chain: cache, then circuit breaker, then
// Nominatim. The returned closer releases the cache store.
func NewFromConfig(cfg config.GeocoderConfig) (Geocoder, io.Closer, error) {
	var g Geocoder = NewNominatim(NominatimConfig{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		Email:             cfg.Email,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
	})
	g = NewBreaker(g, DefaultBreakerSettings())

	if !cfg.CacheEnabled {
		return g, nopCloser{}, nil
	}

	db, err := OpenCacheDB(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	return NewCache(g, db, cfg.CacheTTL), db, nil
}
