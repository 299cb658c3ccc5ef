package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
)

type contextKey string

const DeviceContextKey contextKey = "device"

// DeviceResolver looks up or creates the device behind a cookie value
type DeviceResolver interface {
	Resolve(ctx context.Context, id string) (*models.Device, bool, error)
}

// DeviceCookie configures the identity cookie
type DeviceCookie struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// GetDeviceFromContext retrieves the current device from request context
func GetDeviceFromContext(ctx context.Context) *models.Device {
	if device, ok := ctx.Value(DeviceContextKey).(*models.Device); ok {
		return device
	}
	return nil
}

// WithDevice returns a copy of ctx carrying device
func WithDevice(ctx context.Context, device *models.Device) context.Context {
	return context.WithValue(ctx, DeviceContextKey, device)
}

// DeviceIdentity attaches the requesting device to the context. A missing,
// malformed or unknown cookie gets a new device and a fresh cookie; the
// cookie of a known device is refreshed so its lifetime slides.
func DeviceIdentity(resolver DeviceResolver, cookie DeviceCookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(cookie.Name); err == nil {
				id = c.Value
			}

			device, created, err := resolver.Resolve(r.Context(), id)
			if err != nil {
				observability.Ctx(r.Context()).Error().Err(err).Msg("Failed to resolve device")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Internal server error"})
				return
			}
			if created {
				observability.Ctx(r.Context()).Debug().Str("device_id", device.ID).Msg("Registered new device")
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookie.Name,
				Value:    device.ID,
				Path:     "/",
				MaxAge:   int(cookie.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), device)))
		})
	}
}
