package services

import (
	"context"
	"sync"
	"time"

	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/repository"
)

// MaintenanceStatus represents the current status of maintenance tasks
type MaintenanceStatus struct {
	Running          bool      `json:"running"`
	Enabled          bool      `json:"enabled"`
	LastRun          time.Time `json:"lastRun,omitempty"`
	LastRunDuration  string    `json:"lastRunDuration,omitempty"`
	DevicesRemoved   int64     `json:"devicesRemoved"`
	Errors           []string  `json:"errors,omitempty"`
	NextScheduledRun time.Time `json:"nextScheduledRun,omitempty"`
}

// MaintenanceService removes devices that have been inactive for a long
// time and own no groups. It runs once at start and then on every interval.
type MaintenanceService struct {
	deviceRepo    repository.DeviceRepo
	interval      time.Duration
	inactiveAfter time.Duration

	mu      sync.RWMutex
	running bool
	status  MaintenanceStatus
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(deviceRepo repository.DeviceRepo, interval, inactiveAfter time.Duration) *MaintenanceService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &MaintenanceService{
		deviceRepo:    deviceRepo,
		interval:      interval,
		inactiveAfter: inactiveAfter,
		status: MaintenanceStatus{
			Enabled: true,
			Errors:  []string{},
		},
	}
}

// Serve runs the maintenance loop until ctx is cancelled
func (s *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.mu.Lock()
	s.status.NextScheduledRun = time.Now().Add(s.interval)
	s.mu.Unlock()

	observability.Info().Dur("interval", s.interval).Dur("inactive_after", s.inactiveAfter).Msg("Maintenance service started")

	s.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.status.NextScheduledRun = time.Now().Add(s.interval)
			s.mu.Unlock()
			s.RunNow(ctx)
		case <-ctx.Done():
			observability.Info().Msg("Maintenance service stopped")
			return ctx.Err()
		}
	}
}

func (s *MaintenanceService) String() string {
	return "maintenance"
}

// GetStatus returns the current maintenance status
func (s *MaintenanceService) GetStatus() MaintenanceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// RunNow performs the sweep immediately and returns the number of removed devices.
// A sweep already in progress is not run twice.
func (s *MaintenanceService) RunNow(ctx context.Context) int64 {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		observability.Debug().Msg("Maintenance already running, skipping")
		return 0
	}
	s.running = true
	s.status.Running = true
	s.status.Errors = []string{}
	s.mu.Unlock()

	startTime := time.Now()
	removed, errs := s.sweepInactiveDevices(ctx)
	duration := time.Since(startTime)

	s.mu.Lock()
	s.running = false
	s.status.Running = false
	s.status.LastRun = startTime
	s.status.LastRunDuration = duration.Round(time.Millisecond).String()
	s.status.DevicesRemoved = removed
	s.status.Errors = errs
	s.mu.Unlock()

	event := observability.Info()
	if len(errs) > 0 {
		event = observability.Warn().Strs("errors", errs)
	}
	event.Int64("devices_removed", removed).Dur("duration", duration).Msg("Maintenance tasks completed")

	return removed
}

func (s *MaintenanceService) sweepInactiveDevices(ctx context.Context) (int64, []string) {
	if s.inactiveAfter <= 0 {
		return 0, []string{}
	}

	cutoff := time.Now().UTC().Add(-s.inactiveAfter)
	removed, err := s.deviceRepo.DeleteInactiveWithoutGroups(ctx, cutoff)
	if err != nil {
		errMsg := "Failed to delete inactive devices: " + err.Error()
		observability.Error().Err(err).Msg("Maintenance sweep failed")
		return 0, []string{errMsg}
	}

	observability.DevicesSwept.Add(float64(removed))
	return removed, []string{}
}
