package services

import (
	"context"
	"errors"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/repository"
)

// Location sources recorded in domain metrics
const (
	SourceManual = "manual"
	SourceImport = "import"
)

// GroupService handles location group and location operations.
// Input is validated before any repository call; ownership is enforced by
// the repositories inside each operation.
type GroupService struct {
	groupRepo    repository.GroupRepo
	locationRepo repository.LocationRepo
	metrics      *observability.DomainMetrics
}

// NewGroupService creates a new GroupService
func NewGroupService(
	groupRepo repository.GroupRepo,
	locationRepo repository.LocationRepo,
	metrics *observability.DomainMetrics,
) *GroupService {
	return &GroupService{
		groupRepo:    groupRepo,
		locationRepo: locationRepo,
		metrics:      metrics,
	}
}

// CreateGroup creates a group with its initial locations in input order
func (s *GroupService) CreateGroup(ctx context.Context, deviceID, name string, locations []models.LocationInput) (*models.Group, error) {
	group, err := models.NewGroup(deviceID, name)
	if err != nil {
		return nil, err
	}

	group.Locations, err = buildLocations(group.ID, locations)
	if err != nil {
		return nil, err
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	s.metrics.RecordGroupCreated(ctx, len(group.Locations))
	return group, nil
}

// GetGroups returns every group of the device with its locations, newest first
func (s *GroupService) GetGroups(ctx context.Context, deviceID string) ([]*models.Group, error) {
	return s.groupRepo.GetAllForDevice(ctx, deviceID)
}

// GetGroup returns one group, or ErrGroupNotFound when missing or not owned
func (s *GroupService) GetGroup(ctx context.Context, id, deviceID string) (*models.Group, error) {
	group, err := s.groupRepo.GetForDevice(ctx, id, deviceID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	return group, nil
}

// UpdateGroup renames the group when name is non-nil and replaces its
// locations when locations is non-nil. An empty non-nil slice clears the group.
func (s *GroupService) UpdateGroup(ctx context.Context, id, deviceID string, name *string, locations []models.LocationInput) (*models.Group, error) {
	var newName *string
	if name != nil {
		normalized, err := models.NormalizeGroupName(*name)
		if err != nil {
			return nil, err
		}
		newName = &normalized
	}

	var replacement []*models.Location
	if locations != nil {
		var err error
		if replacement, err = buildLocations(id, locations); err != nil {
			return nil, err
		}
	}

	if err := s.groupRepo.Update(ctx, id, deviceID, newName, replacement); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, id, deviceID)
}

// DeleteGroup removes the group and all of its locations
func (s *GroupService) DeleteGroup(ctx context.Context, id, deviceID string) error {
	return s.groupRepo.Delete(ctx, id, deviceID)
}

// AddLocation appends a location to the end of the group
func (s *GroupService) AddLocation(ctx context.Context, groupID, deviceID string, in models.LocationInput, source string) (*models.Location, error) {
	location, err := models.NewLocation(groupID, in, 0)
	if err != nil {
		return nil, err
	}

	if err := s.locationRepo.Add(ctx, deviceID, location); err != nil {
		return nil, err
	}

	s.metrics.RecordLocationAdded(ctx, source)
	return location, nil
}

// ReorderLocations sets the display order of the group's locations.
// Either every listed location moves or none does.
func (s *GroupService) ReorderLocations(ctx context.Context, groupID, deviceID string, locationIDs []string) error {
	err := s.locationRepo.Reorder(ctx, groupID, deviceID, locationIDs)
	if errors.Is(err, models.ErrLocationNotFound) || errors.Is(err, models.ErrDuplicateLocationID) {
		observability.ReorderFailures.Inc()
	}
	return err
}

// DeleteLocation removes one location from the group
func (s *GroupService) DeleteLocation(ctx context.Context, groupID, locationID, deviceID string) error {
	return s.locationRepo.Delete(ctx, groupID, locationID, deviceID)
}

// UpdateLocation applies the mutable fields of a location. Only color can change.
func (s *GroupService) UpdateLocation(ctx context.Context, groupID, locationID, deviceID string, color *string) (*models.Location, error) {
	if color == nil {
		return nil, models.ErrNoValidUpdates
	}
	if !models.IsValidColor(*color) {
		return nil, models.ErrInvalidColor
	}
	return s.locationRepo.UpdateColor(ctx, groupID, locationID, deviceID, models.NormalizeColor(*color))
}

func buildLocations(groupID string, inputs []models.LocationInput) ([]*models.Location, error) {
	locations := make([]*models.Location, 0, len(inputs))
	for i, in := range inputs {
		loc, err := models.NewLocation(groupID, in, i)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}
