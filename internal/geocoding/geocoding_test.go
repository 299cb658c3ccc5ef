package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNominatim(t *testing.T, handler http.HandlerFunc) *Nominatim {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewNominatim(NominatimConfig{
		BaseURL:   server.URL,
		UserAgent: "MapGroupsTest/1.0",
		Email:     "ops@example.com",
		Timeout:   2 * time.Second,
	})
}

func TestNominatim_Geocode(t *testing.T) {
	t.Run("parses the first result", func(t *testing.T) {
		n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "10 Downing St", r.URL.Query().Get("q"))
			assert.Equal(t, "ops@example.com", r.URL.Query().Get("email"))
			assert.Equal(t, "MapGroupsTest/1.0", r.Header.Get("User-Agent"))
			w.Write([]byte(`[{"lat":"51.5034","lon":"-0.1276","display_name":"10 Downing Street, London"}]`))
		})

		res, err := n.Geocode(context.Background(), "  10 Downing St ")

		require.NoError(t, err)
		assert.InDelta(t, 51.5034, res.Latitude, 1e-9)
		assert.InDelta(t, -0.1276, res.Longitude, 1e-9)
		assert.Equal(t, "10 Downing Street, London", res.FormattedAddress)
	})

	cases := []struct {
		name   string
		status int
		body   string
		want   error
		reason string
	}{
		{"empty result", http.StatusOK, `[]`, ErrNotFound, "Address not found"},
		{"throttled", http.StatusTooManyRequests, ``, ErrRateLimited, "Rate limit exceeded"},
		{"forbidden", http.StatusForbidden, ``, ErrDenied, "Request denied"},
		{"server error", http.StatusInternalServerError, ``, nil, "Geocoding failed"},
		{"bad payload", http.StatusOK, `{`, nil, "Geocoding failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})

			_, err := n.Geocode(context.Background(), "somewhere")

			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Equal(t, tc.reason, FailureReason(err))
		})
	}

	t.Run("blank address is not found without a request", func(t *testing.T) {
		var calls int32
		n := newTestNominatim(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		})

		_, err := n.Geocode(context.Background(), "   ")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})
}

type stubGeocoder struct {
	calls int
	fn    func(address string) (*Result, error)
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*Result, error) {
	s.calls++
	return s.fn(address)
}

func TestBreaker(t *testing.T) {
	t.Run("opens after repeated failures", func(t *testing.T) {
		stub := &stubGeocoder{fn: func(string) (*Result, error) { return nil, errors.New("boom") }}
		b := NewBreaker(stub, BreakerSettings{Name: "test-open", MinRequests: 3, FailureRate: 0.5, Interval: time.Minute, Timeout: time.Minute})

		for i := 0; i < 3; i++ {
			_, err := b.Geocode(context.Background(), "x")
			require.Error(t, err)
		}
		assert.Equal(t, "open", b.State())

		_, err := b.Geocode(context.Background(), "x")
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 3, stub.calls)
	})

	t.Run("not found does not trip", func(t *testing.T) {
		stub := &stubGeocoder{fn: func(string) (*Result, error) { return nil, ErrNotFound }}
		b := NewBreaker(stub, BreakerSettings{Name: "test-notfound", MinRequests: 2, FailureRate: 0.5, Interval: time.Minute, Timeout: time.Minute})

		for i := 0; i < 5; i++ {
			_, err := b.Geocode(context.Background(), "x")
			assert.ErrorIs(t, err, ErrNotFound)
		}
		assert.Equal(t, "closed", b.State())
		assert.Equal(t, 5, stub.calls)
	})
}

func TestCache(t *testing.T) {
	db, err := OpenCacheDB("")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stub := &stubGeocoder{fn: func(address string) (*Result, error) {
		if address == "nowhere" {
			return nil, ErrNotFound
		}
		return &Result{Latitude: 1, Longitude: 2, FormattedAddress: "Resolved " + address}, nil
	}}
	cache := NewCache(stub, db, time.Hour)
	ctx := context.Background()

	t.Run("hits skip the provider", func(t *testing.T) {
		first, err := cache.Geocode(ctx, "Main St")
		require.NoError(t, err)
		second, err := cache.Geocode(ctx, "  main st ")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		before := stub.calls
		_, err := cache.Geocode(ctx, "nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = cache.Geocode(ctx, "nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, before+2, stub.calls)
	})
}
