// Package main runs the location groups server
//
// @title Location Groups API
// @version 1.0
// @description Device scoped location groups with bulk geocoding import, reordering and export.
// @description
// @description Callers are identified by an HttpOnly deviceId cookie issued on the first request.
// @description Groups and locations of another device are reported as not found.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mapgroups/server/docs"
	"github.com/mapgroups/server/internal/config"
	"github.com/mapgroups/server/internal/geocoding"
	"github.com/mapgroups/server/internal/handlers"
	"github.com/mapgroups/server/internal/middleware"
	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/repository"
	"github.com/mapgroups/server/internal/services"
)

func main() {
	if err := run(); err != nil {
		observability.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	observability.InitLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.Initialize(ctx, observability.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: handlers.Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			observability.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	geocoder, geocoderCloser, err := geocoding.NewFromConfig(cfg.Geocoder)
	if err != nil {
		return err
	}
	defer geocoderCloser.Close()

	domainMetrics, err := observability.NewDomainMetrics()
	if err != nil {
		observability.Warn().Err(err).Msg("Domain metrics unavailable")
	}
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		observability.Warn().Err(err).Msg("HTTP metrics unavailable")
	}

	deviceRepo := repository.NewDeviceRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	hub := services.NewWebSocketHub()
	deviceService := services.NewDeviceService(deviceRepo)
	groupService := services.NewGroupService(groupRepo, locationRepo, domainMetrics)
	importService := services.NewImportService(groupRepo, locationRepo, geocoder, hub, domainMetrics, services.ImportSettings{
		Delay:            cfg.Import.Delay,
		MaxAddresses:     cfg.Import.MaxAddresses,
		MaxInputChars:    cfg.Import.MaxInputChars,
		MaxAddressLength: cfg.Import.MaxAddressLength,
		DefaultGroupName: cfg.Import.DefaultGroupName,
	})
	exportService := services.NewExportService(domainMetrics)

	router := handlers.NewRouter(handlers.RouterConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		DeviceCookie: middleware.DeviceCookie{
			Name:   cfg.Device.CookieName,
			MaxAge: cfg.Device.CookieMaxAge,
			Secure: cfg.Device.SecureCookie,
		},
		CORSOrigins:       cfg.Security.CORSOrigins,
		RateLimitRequests: cfg.Security.RateLimitRequests,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
		RateLimitDisabled: cfg.Security.RateLimitDisabled,
	}, handlers.RouterDeps{
		Devices:     deviceService,
		Groups:      groupService,
		Imports:     importService,
		Exports:     exportService,
		Geocoder:    geocoder,
		Hub:         hub,
		DB:          db,
		HTTPMetrics: httpMetrics,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // imports of 50 addresses run ~25s
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	supervisor := services.NewSupervisor("mapgroups", observability.NewSlogLogger(), services.DefaultSupervisorConfig())
	supervisor.Add(services.NewWebSocketHubService(hub))
	supervisor.Add(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	if cfg.Maintenance.Enabled {
		supervisor.Add(services.NewMaintenanceService(deviceRepo, cfg.Maintenance.Interval, cfg.Maintenance.InactiveAfter))
	}

	observability.Info().
		Str("address", cfg.Server.Address).
		Str("version", handlers.Version).
		Bool("postgres", cfg.UsePostgres()).
		Str("geocoder", cfg.Geocoder.BaseURL).
		Msg("Location groups server starting")

	err = supervisor.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	observability.Info().Msg("Server stopped")
	return nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.UsePostgres() {
		observability.Info().Msg("Using PostgreSQL database")
		return repository.NewPostgresDB(cfg.Database.URL)
	}
	observability.Info().Str("path", cfg.Database.Path).Msg("Using SQLite database")
	return repository.NewSQLiteDB(cfg.Database.Path)
}
