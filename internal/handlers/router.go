package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mapgroups/server/internal/geocoding"
	"github.com/mapgroups/server/internal/middleware"
	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/services"
)

// RouterConfig holds the HTTP surface settings
type RouterConfig struct {
	ServiceName       string
	DeviceCookie      middleware.DeviceCookie
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// RouterDeps are the services the handlers call into
type RouterDeps struct {
	Devices     *services.DeviceService
	Groups      *services.GroupService
	Imports     *services.ImportService
	Exports     *services.ExportService
	Geocoder    geocoding.Geocoder
	Hub         *services.WebSocketHub
	DB          Pinger
	HTTPMetrics *observability.HTTPMetrics
}

// NewRouter builds the chi router serving the JSON API, websocket, metrics and docs
func NewRouter(cfg RouterConfig, deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	if cfg.ServiceName != "" {
		r.Use(observability.TracingMiddleware(cfg.ServiceName))
	}
	if deps.HTTPMetrics != nil {
		r.Use(observability.MetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := NewHealthHandler(deps.DB)
	groupHandler := NewGroupHandler(deps.Groups)
	exportHandler := NewExportHandler(deps.Groups, deps.Exports)
	importHandler := NewImportHandler(deps.Imports)
	geocodeHandler := NewGeocodeHandler(deps.Geocoder)
	deviceHandler := NewDeviceHandler()
	wsHandler := NewWebSocketHandler(deps.Hub, originChecker(cfg.CORSOrigins))

	r.Get("/health", healthHandler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/version", VersionHandler)

		r.Group(func(r chi.Router) {
			if !cfg.RateLimitDisabled && cfg.RateLimitRequests > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}
			r.Use(middleware.DeviceIdentity(deps.Devices, cfg.DeviceCookie))

			r.Get("/device", deviceHandler.GetDevice)
			r.Get("/geocode", geocodeHandler.Geocode)
			r.Get("/ws", wsHandler.HandleConnection)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupHandler.ListGroups)
				r.Post("/", groupHandler.CreateGroup)
				r.Get("/{id}", groupHandler.GetGroup)
				r.Put("/{id}", groupHandler.UpdateGroup)
				r.Delete("/{id}", groupHandler.DeleteGroup)
				r.Get("/{id}/export.{format}", exportHandler.Export)

				r.Post("/{id}/locations", groupHandler.AddLocation)
				r.Put("/{id}/locations/reorder", groupHandler.ReorderLocations)
				r.Put("/{id}/locations/{locationId}", groupHandler.UpdateLocation)
				r.Delete("/{id}/locations/{locationId}", groupHandler.DeleteLocation)
			})

			r.Route("/import", func(r chi.Router) {
				r.Post("/", importHandler.Import)
				r.Post("/parse", importHandler.Parse)
				r.Delete("/{importId}", importHandler.Cancel)
			})
		})
	})

	return r
}

// originChecker accepts WebSocket upgrades from the same origins the CORS
// middleware allows, using its matching rules: case insensitive, "*" for
// any origin, and at most one "*" inside an origin as a wildcard. Requests
// without an Origin header and same host requests are always accepted.
func originChecker(origins []string) func(r *http.Request) bool {
	allowAll := len(origins) == 0
	var exact []string
	var wildcards [][2]string
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch i := strings.IndexByte(o, '*'); {
		case o == "*":
			allowAll = true
		case i >= 0:
			wildcards = append(wildcards, [2]string{o[:i], o[i+1:]})
		case o != "":
			exact = append(exact, o)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}

		origin = strings.ToLower(origin)
		for _, o := range exact {
			if o == origin {
				return true
			}
		}
		for _, w := range wildcards {
			if len(origin) >= len(w[0])+len(w[1]) && strings.HasPrefix(origin, w[0]) && strings.HasSuffix(origin, w[1]) {
				return true
			}
		}
		return false
	}
}
