package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/mapgroups/server/internal/observability"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimConfig configures the Nominatim client
type NominatimConfig struct {
	BaseURL           string
	UserAgent         string // Required by the Nominatim usage policy
	Email             string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Nominatim geocodes addresses with an OpenStreetMap Nominatim server
type Nominatim struct {
	baseURL    string
	userAgent  string
	email      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// nominatimResponse represents the Nominatim API response
type nominatimResponse struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a new Nominatim client
func NewNominatim(cfg NominatimConfig) *Nominatim {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Nominatim{
		baseURL:    baseURL,
		userAgent:  cfg.UserAgent,
		email:      cfg.Email,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Geocode resolves a single address
func (n *Nominatim) Geocode(ctx context.Context, address string) (res *Result, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNotFound
	}

	start := time.Now()
	defer func() {
		observability.GeocodeDuration.Observe(time.Since(start).Seconds())
		observability.GeocodeRequests.WithLabelValues(outcome(err)).Inc()
	}()

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", address)
	if n.email != "" {
		params.Set("email", n.email)
	}
	reqURL := fmt.Sprintf("%s/search?%s", n.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrDenied
	default:
		return nil, fmt.Errorf("nominatim API returned status %d", resp.StatusCode)
	}

	var results []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude: %w", err)
	}

	formatted := results[0].DisplayName
	if formatted == "" {
		formatted = address
	}

	return &Result{
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: formatted,
	}, nil
}
