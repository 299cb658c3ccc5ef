package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapgroups/server/internal/geocoding"
	"github.com/mapgroups/server/internal/middleware"
	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/repository"
	"github.com/mapgroups/server/internal/services"
)

const testCookie = "deviceId"

type stubGeocoder struct {
	results map[string]geocoding.Result
	errs    map[string]error
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*geocoding.Result, error) {
	if err, ok := s.errs[address]; ok {
		return nil, err
	}
	if r, ok := s.results[address]; ok {
		return &r, nil
	}
	return nil, geocoding.ErrNotFound
}

type testAPI struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	groupRepo := repository.NewGroupRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	geocoder := &stubGeocoder{
		results: map[string]geocoding.Result{
			"Paris":  {Latitude: 48.8566, Longitude: 2.3522, FormattedAddress: "Paris, France"},
			"Berlin": {Latitude: 52.52, Longitude: 13.405, FormattedAddress: "Berlin, Germany"},
		},
		errs: map[string]error{
			"Busy":   geocoding.ErrRateLimited,
			"Denied": geocoding.ErrDenied,
		},
	}

	settings := services.DefaultImportSettings()
	settings.Delay = 0

	router := NewRouter(RouterConfig{
		ServiceName:       "mapgroups-test",
		DeviceCookie:      middleware.DeviceCookie{Name: testCookie, MaxAge: time.Hour},
		CORSOrigins:       []string{"*"},
		RateLimitDisabled: true,
	}, RouterDeps{
		Devices:  services.NewDeviceService(repository.NewDeviceRepository(db)),
		Groups:   services.NewGroupService(groupRepo, locationRepo, nil),
		Imports:  services.NewImportService(groupRepo, locationRepo, geocoder, nil, nil, settings),
		Exports:  services.NewExportService(nil),
		Geocoder: geocoder,
		Hub:      services.NewWebSocketHub(),
		DB:       db,
	})

	return &testAPI{t: t, router: router}
}

// do sends a request as the current device. body may be a string of raw JSON
// or any value to marshal.
func (a *testAPI) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			a.cookie = c
		}
	}
	return rec
}

// stranger returns a client for the same server with a fresh device
func (a *testAPI) stranger() *testAPI {
	return &testAPI{t: a.t, router: a.router}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func ptr[T any](v T) *T {
	return &v
}

func (a *testAPI) createGroup(name string, titles ...string) *models.Group {
	a.t.Helper()
	locations := make([]models.LocationRequest, len(titles))
	for i, title := range titles {
		locations[i] = models.LocationRequest{Lat: ptr(float64(i)), Lng: ptr(float64(i)), Title: title}
	}
	rec := a.do(http.MethodPost, "/api/groups", models.CreateGroupRequest{Name: name, Locations: locations})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[*models.Group](a.t, rec)
}

func TestDeviceIdentity(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/device", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[models.Device](t, rec)
	require.NotNil(t, api.cookie)
	assert.Equal(t, first.ID, api.cookie.Value)
	assert.True(t, api.cookie.HttpOnly)

	rec = api.do(http.MethodGet, "/api/device", nil)
	assert.Equal(t, first.ID, decode[models.Device](t, rec).ID)

	api.cookie = &http.Cookie{Name: testCookie, Value: "not-a-uuid"}
	rec = api.do(http.MethodGet, "/api/device", nil)
	assert.NotEqual(t, first.ID, decode[models.Device](t, rec).ID)
}

func TestGroupEndpoints(t *testing.T) {
	api := newTestAPI(t)

	t.Run("create and fetch", func(t *testing.T) {
		group := api.createGroup("Paris trip", "Louvre", "Orsay")
		require.Len(t, group.Locations, 2)
		assert.Equal(t, models.DefaultLocationColor, group.Locations[0].Color)

		rec := api.do(http.MethodGet, "/api/groups/"+group.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[models.Group](t, rec)
		assert.Equal(t, "Paris trip", got.Name)
		assert.Equal(t, group.LocationIDs(), got.LocationIDs())

		rec = api.do(http.MethodGet, "/api/groups", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]models.Group](t, rec), 1)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		rec := api.stranger().do(http.MethodGet, "/api/groups", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/groups", `{"name":"","locations":[{"lat":91,"lng":0,"title":"x"}]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decode[models.ErrorResponse](t, rec)
		assert.Equal(t, "Validation failed", resp.Error)
		fields := map[string]string{}
		for _, d := range resp.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "name is required", fields["name"])
		assert.Contains(t, fields, "locations[0].lat")
	})

	t.Run("blank name is rejected after trimming", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/groups", `{"name":"   "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[models.ErrorResponse](t, rec)
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "name", resp.Details[0].Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/groups", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/api/groups/123", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/api/groups/"+models.NewDevice().ID, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Group not found"}`, rec.Body.String())
	})

	t.Run("another device sees not found", func(t *testing.T) {
		group := api.createGroup("Private")
		other := api.stranger()

		assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/api/groups/"+group.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, other.do(http.MethodPut, "/api/groups/"+group.ID, `{"name":"Mine now"}`).Code)
		assert.Equal(t, http.StatusNotFound, other.do(http.MethodDelete, "/api/groups/"+group.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/api/groups/"+group.ID+"/export.csv", nil).Code)
		assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/groups/"+group.ID, nil).Code)
	})

	t.Run("rename and replace", func(t *testing.T) {
		group := api.createGroup("Draft", "A", "B")

		rec := api.do(http.MethodPut, "/api/groups/"+group.ID, `{"name":"Final"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[models.Group](t, rec)
		assert.Equal(t, "Final", got.Name)
		assert.Len(t, got.Locations, 2)

		rec = api.do(http.MethodPut, "/api/groups/"+group.ID, `{"locations":[{"lat":1,"lng":2,"title":"Only"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		got = decode[models.Group](t, rec)
		require.Len(t, got.Locations, 1)
		assert.Equal(t, "Only", got.Locations[0].Title)

		rec = api.do(http.MethodPut, "/api/groups/"+group.ID, `{"locations":[]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[models.Group](t, rec).Locations)

		rec = api.do(http.MethodPut, "/api/groups/"+group.ID, `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No valid updates"}`, rec.Body.String())
	})

	t.Run("delete", func(t *testing.T) {
		group := api.createGroup("Gone", "A")

		rec := api.do(http.MethodDelete, "/api/groups/"+group.ID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/groups/"+group.ID, nil).Code)
	})
}

func TestLocationEndpoints(t *testing.T) {
	api := newTestAPI(t)
	group := api.createGroup("Route", "A", "B", "C")
	ids := group.LocationIDs()
	base := "/api/groups/" + group.ID + "/locations"

	t.Run("add appends", func(t *testing.T) {
		rec := api.do(http.MethodPost, base, `{"lat":10,"lng":20,"title":"D","color":"#00ff00"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		loc := decode[models.Location](t, rec)
		assert.Equal(t, "#00FF00", loc.Color)

		got := decode[models.Group](t, api.do(http.MethodGet, "/api/groups/"+group.ID, nil))
		require.Len(t, got.Locations, 4)
		assert.Equal(t, loc.ID, got.Locations[3].ID)

		require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, base+"/"+loc.ID, nil).Code)
	})

	t.Run("add validates ranges and color", func(t *testing.T) {
		rec := api.do(http.MethodPost, base, `{"lat":10,"lng":200,"title":"D","color":"green"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[models.ErrorResponse](t, rec)
		assert.Len(t, resp.Details, 2)
	})

	t.Run("reorder", func(t *testing.T) {
		rec := api.do(http.MethodPut, base+"/reorder", models.ReorderRequest{LocationIDs: []string{ids[2], ids[0], ids[1]}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		reordered := decode[models.Group](t, rec)
		assert.Equal(t, []string{ids[2], ids[0], ids[1]}, reordered.LocationIDs())
	})

	t.Run("reorder with a foreign id changes nothing", func(t *testing.T) {
		foreign := api.stranger().createGroup("Other", "X").Locations[0].ID

		rec := api.do(http.MethodPut, base+"/reorder", models.ReorderRequest{LocationIDs: []string{ids[0], foreign}})
		require.Equal(t, http.StatusNotFound, rec.Code)

		got := decode[models.Group](t, api.do(http.MethodGet, "/api/groups/"+group.ID, nil))
		assert.Equal(t, []string{ids[2], ids[0], ids[1]}, got.LocationIDs())
	})

	t.Run("reorder with duplicates is rejected", func(t *testing.T) {
		rec := api.do(http.MethodPut, base+"/reorder", models.ReorderRequest{LocationIDs: []string{ids[0], ids[0]}})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[models.ErrorResponse](t, rec)
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "locationIds", resp.Details[0].Field)
	})

	t.Run("reorder requires the id list", func(t *testing.T) {
		rec := api.do(http.MethodPut, base+"/reorder", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("recolor", func(t *testing.T) {
		rec := api.do(http.MethodPut, base+"/"+ids[0], `{"color":"#abcdef"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "#ABCDEF", decode[models.Location](t, rec).Color)

		rec = api.do(http.MethodPut, base+"/"+ids[0], `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No valid updates"}`, rec.Body.String())

		rec = api.do(http.MethodPut, base+"/"+ids[0], `{"color":"blue"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, base+"/"+ids[1], nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, base+"/"+ids[1], nil).Code)
	})
}

func TestExportEndpoints(t *testing.T) {
	api := newTestAPI(t)
	group := api.createGroup("Road Trip", "A", "B")
	base := "/api/groups/" + group.ID + "/export."

	tests := []struct {
		ext         string
		contentType string
	}{
		{"csv", "text/csv; charset=utf-8"},
		{"geojson", "application/geo+json"},
		{"png", "image/png"},
		{"zip", "application/zip"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			rec := api.do(http.MethodGet, base+tt.ext, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="road-trip.`+tt.ext+`"`, rec.Header().Get("Content-Disposition"))
			assert.NotZero(t, rec.Body.Len())
		})
	}

	t.Run("unsupported format", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, base+"kml", nil).Code)
	})
}

func TestImportEndpoints(t *testing.T) {
	api := newTestAPI(t)

	t.Run("imports with per address results", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/import", models.ImportRequest{Text: "Paris\nAtlantis\nBerlin", GroupName: "Capitals"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[models.ImportResponse](t, rec)
		assert.Equal(t, 3, resp.Total)
		require.Len(t, resp.Successful, 2)
		assert.Equal(t, 48.8566, resp.Successful[0].Result.Lat)
		require.Len(t, resp.Failed, 1)
		assert.Equal(t, "Address not found", resp.Failed[0].Reason)
		require.NotNil(t, resp.Group)
		assert.Equal(t, "Capitals", resp.Group.Name)
		assert.Len(t, resp.Group.Locations, 2)
	})

	t.Run("no addresses is a bad request", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/import", `{"text":"  ,  "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No valid addresses"}`, rec.Body.String())
	})

	t.Run("missing text fails validation", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/import", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "text", decode[models.ErrorResponse](t, rec).Details[0].Field)
	})

	t.Run("foreign group is not found", func(t *testing.T) {
		group := api.stranger().createGroup("Theirs")
		rec := api.do(http.MethodPost, "/api/import", models.ImportRequest{Text: "Paris", GroupID: group.ID})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("parse previews the split", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/import/parse", models.ParseRequest{Text: "Paris, Berlin, Paris"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, models.ParseResponse{Addresses: []string{"Paris", "Berlin"}, Count: 2}, decode[models.ParseResponse](t, rec))
	})

	t.Run("cancel unknown import", func(t *testing.T) {
		rec := api.do(http.MethodDelete, "/api/import/"+models.NewDevice().ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGeocodeEndpoint(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		query  string
		status int
	}{
		{"Paris", http.StatusOK},
		{"Atlantis", http.StatusNotFound},
		{"Busy", http.StatusTooManyRequests},
		{"Denied", http.StatusForbidden},
		{"", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := api.do(http.MethodGet, "/api/geocode?q="+tt.query, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := api.do(http.MethodGet, "/api/geocode?q=Paris", nil)
	assert.Equal(t, models.GeocodeResult{Lat: 48.8566, Lng: 2.3522, FormattedAddress: "Paris, France"}, decode[models.GeocodeResult](t, rec))
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/health", "/api/health"} {
		rec := api.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", decode[models.HealthResponse](t, rec).Status)
	}
	assert.Nil(t, api.cookie, "health checks do not issue device cookies")
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"https://app.test"}, "", true},
		{"listed origin", []string{"https://app.test"}, "https://app.test", true},
		{"listed origin any case", []string{"https://App.test"}, "HTTPS://APP.TEST", true},
		{"unlisted origin", []string{"https://app.test"}, "https://evil.test", false},
		{"wildcard subdomain", []string{"https://*.app.test"}, "https://eu.app.test", true},
		{"wildcard needs the suffix", []string{"https://*.app.test"}, "https://app.test.evil", false},
		{"star allows all", []string{"https://app.test", "*"}, "https://evil.test", true},
		{"empty list allows all", nil, "https://evil.test", true},
		{"same host", []string{"https://app.test"}, "http://api.test:8080", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://api.test:8080/api/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.origins)(req))
		})
	}
}

func TestWebSocketOrigin(t *testing.T) {
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := services.NewWebSocketHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.RunWithContext(ctx)
	t.Cleanup(cancel)

	router := NewRouter(RouterConfig{
		DeviceCookie:      middleware.DeviceCookie{Name: testCookie, MaxAge: time.Hour},
		CORSOrigins:       []string{"https://app.test"},
		RateLimitDisabled: true,
	}, RouterDeps{
		Devices: services.NewDeviceService(repository.NewDeviceRepository(db)),
		Hub:     hub,
		DB:      db,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	wsURL := "ws" + server.URL[len("http"):] + "/api/ws"

	dial := func(origin string) (*websocket.Conn, *http.Response, error) {
		header := http.Header{}
		header.Set("Origin", origin)
		return websocket.DefaultDialer.Dial(wsURL, header)
	}

	t.Run("allowed origin connects", func(t *testing.T) {
		conn, resp, err := dial("https://app.test")
		require.NoError(t, err)
		defer conn.Close()
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	})

	t.Run("other origin is refused", func(t *testing.T) {
		_, resp, err := dial("https://evil.test")
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
