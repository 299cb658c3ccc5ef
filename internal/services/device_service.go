package services

import (
	"context"
	"fmt"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/repository"
)

// DeviceService resolves the anonymous device behind a request
type DeviceService struct {
	deviceRepo repository.DeviceRepo
}

// NewDeviceService creates a new DeviceService
func NewDeviceService(deviceRepo repository.DeviceRepo) *DeviceService {
	return &DeviceService{deviceRepo: deviceRepo}
}

// Resolve returns the device with the given id, refreshing its last seen time.
// A missing, malformed or unknown id yields a newly created device and created=true.
func (s *DeviceService) Resolve(ctx context.Context, id string) (device *models.Device, created bool, err error) {
	if models.IsValidID(id) {
		device, err = s.deviceRepo.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if device != nil {
			if err := s.deviceRepo.UpdateLastSeen(ctx, device.ID); err != nil {
				return nil, false, err
			}
			return device, false, nil
		}
	}

	device = models.NewDevice()
	if err := s.deviceRepo.Add(ctx, device); err != nil {
		return nil, false, fmt.Errorf("failed to register device: %w", err)
	}
	return device, true, nil
}

// Get returns a device by id, or nil when unknown
func (s *DeviceService) Get(ctx context.Context, id string) (*models.Device, error) {
	return s.deviceRepo.GetByID(ctx, id)
}
