package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mapgroups/server/internal/geocoding"
	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
	"github.com/mapgroups/server/internal/repository"
)

// ImportPalette colors successful imports in turn. It is indexed by the
// number of successes so far, so failed addresses do not use up a color.
var ImportPalette = []string{
	"#4285F4", "#EA4335", "#FBBC05", "#34A853", "#FF6D01",
	"#46BDC6", "#7B1FA2", "#C2185B", "#795548", "#607D8B",
}

const saveFailedReason = "Failed to save location"

// ImportSettings bounds and paces bulk imports
type ImportSettings struct {
	Delay            time.Duration
	MaxAddresses     int
	MaxInputChars    int
	MaxAddressLength int
	DefaultGroupName string
}

// DefaultImportSettings returns the standard import limits
func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		Delay:            500 * time.Millisecond,
		MaxAddresses:     50,
		MaxInputChars:    10000,
		MaxAddressLength: 200,
		DefaultGroupName: "My Locations",
	}
}

// ParseAddresses splits pasted text into a clean, deduplicated address list.
// truncated reports that addresses beyond MaxAddresses were dropped.
func (c ImportSettings) ParseAddresses(text string) (addresses []string, truncated bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, false
	}
	text = truncateRunes(text, c.MaxInputChars)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 1 && strings.Contains(lines[0], ",") {
		lines = strings.Split(lines[0], ",")
	}

	addresses = []string{}
	seen := make(map[string]bool, len(lines))
	for _, candidate := range lines {
		candidate = strings.NewReplacer("<", "", ">", "").Replace(candidate)
		candidate = truncateRunes(strings.TrimSpace(candidate), c.MaxAddressLength)
		if candidate == "" || seen[candidate] {
			continue
		}
		if len(addresses) == c.MaxAddresses {
			return addresses, true
		}
		seen[candidate] = true
		addresses = append(addresses, candidate)
	}
	return addresses, false
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// ProgressReporter receives import progress. Implementations must not block.
type ProgressReporter interface {
	ImportProgress(p models.ImportProgress)
	ImportComplete(importID string, result models.ImportResult)
}

type noopReporter struct{}

func (noopReporter) ImportProgress(models.ImportProgress) {}

func (noopReporter) ImportComplete(string, models.ImportResult) {}

type runningImport struct {
	deviceID string
	cancel   context.CancelFunc
}

// ImportService geocodes pasted addresses one at a time and appends each
// success to a group. Failures are collected per address and never abort
// the batch.
type ImportService struct {
	groupRepo    repository.GroupRepo
	locationRepo repository.LocationRepo
	geocoder     geocoding.Geocoder
	reporter     ProgressReporter
	metrics      *observability.DomainMetrics
	settings     ImportSettings

	// sleep pauses between geocode calls; replaced in tests
	sleep func(ctx context.Context, d time.Duration)

	mu      sync.Mutex
	running map[string]*runningImport
}

// NewImportService creates a new ImportService. reporter may be nil.
func NewImportService(
	groupRepo repository.GroupRepo,
	locationRepo repository.LocationRepo,
	geocoder geocoding.Geocoder,
	reporter ProgressReporter,
	metrics *observability.DomainMetrics,
	settings ImportSettings,
) *ImportService {
	if reporter == nil {
		reporter = noopReporter{}
	}
	return &ImportService{
		groupRepo:    groupRepo,
		locationRepo: locationRepo,
		geocoder:     geocoder,
		reporter:     reporter,
		metrics:      metrics,
		settings:     settings,
		sleep:        sleepContext,
		running:      make(map[string]*runningImport),
	}
}

// Settings returns the import limits in effect
func (s *ImportService) Settings() ImportSettings {
	return s.settings
}

// Import parses req.Text, resolves the target group and runs the pipeline.
// Cancelling ctx stops the batch between addresses, like Cancel.
func (s *ImportService) Import(ctx context.Context, deviceID string, req models.ImportRequest) (*models.ImportResponse, error) {
	addresses, _ := s.settings.ParseAddresses(req.Text)
	if len(addresses) == 0 {
		return nil, models.ErrNoAddresses
	}

	importID := req.ImportID
	if importID == "" {
		importID = uuid.New().String()
	}

	ctx, span := observability.StartServiceSpan(ctx, "ImportService", "Import")
	defer span.End()
	span.SetAttributes(observability.ImportID(importID), observability.DeviceID(deviceID))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.register(importID, deviceID, cancel); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	defer s.unregister(importID)

	group, err := s.resolveTarget(ctx, deviceID, req)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	result := s.Run(runCtx, importID, group.ID, deviceID, addresses)

	s.metrics.RecordImport(ctx, len(result.Successful), len(result.Failed), result.Cancelled)
	observability.Ctx(ctx).Info().
		Str("import_id", importID).
		Str("group_id", group.ID).
		Int("total", result.Total).
		Int("successful", len(result.Successful)).
		Int("failed", len(result.Failed)).
		Bool("cancelled", result.Cancelled).
		Msg("Import finished")

	// The batch may have been cancelled by the client; the response is still built
	refreshed, err := s.groupRepo.GetForDevice(context.WithoutCancel(ctx), group.ID, deviceID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.SetSuccess(span)

	return &models.ImportResponse{
		ImportID:     importID,
		GroupID:      group.ID,
		ImportResult: result,
		Group:        refreshed,
	}, nil
}

// Run geocodes and saves addresses strictly in order. Cancellation of ctx is
// checked before each address; calls already in flight run to completion.
func (s *ImportService) Run(ctx context.Context, importID, groupID, deviceID string, addresses []string) models.ImportResult {
	observability.ImportsActive.Inc()
	defer observability.ImportsActive.Dec()

	result := models.ImportResult{
		Total:      len(addresses),
		Successful: []models.ImportSuccess{},
		Failed:     []models.ImportFailure{},
	}
	callCtx := context.WithoutCancel(ctx)
	logger := observability.Ctx(ctx).With().Str("import_id", importID).Logger()

	for i, address := range addresses {
		if i > 0 && s.settings.Delay > 0 {
			s.sleep(ctx, s.settings.Delay)
		}
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		progress := models.ImportProgress{
			ImportID: importID,
			Index:    i + 1,
			Total:    len(addresses),
			Address:  address,
			Status:   models.ImportStatusGeocoding,
		}
		s.reporter.ImportProgress(progress)

		geo, err := s.geocoder.Geocode(callCtx, address)
		if err != nil {
			reason := geocoding.FailureReason(err)
			logger.Debug().Err(err).Str("address", address).Str("reason", reason).Msg("Geocoding failed")
			result.Failed = append(result.Failed, models.ImportFailure{Address: address, Reason: reason})
			observability.ImportItems.WithLabelValues("geocode_failed").Inc()
			progress.Status, progress.Reason = models.ImportStatusFailed, reason
			s.reporter.ImportProgress(progress)
			continue
		}

		color := ImportPalette[len(result.Successful)%len(ImportPalette)]
		location, err := models.NewLocation(groupID, models.LocationInput{
			Latitude:  geo.Latitude,
			Longitude: geo.Longitude,
			Title:     address,
			Color:     color,
		}, 0)
		if err == nil {
			err = s.locationRepo.Add(callCtx, deviceID, location)
		}
		if err != nil {
			logger.Warn().Err(err).Str("address", address).Msg("Failed to save imported location")
			result.Failed = append(result.Failed, models.ImportFailure{Address: address, Reason: saveFailedReason})
			observability.ImportItems.WithLabelValues("save_failed").Inc()
			progress.Status, progress.Reason = models.ImportStatusFailed, saveFailedReason
			s.reporter.ImportProgress(progress)
			continue
		}

		s.metrics.RecordLocationAdded(callCtx, SourceImport)
		result.Successful = append(result.Successful, models.ImportSuccess{
			Address: address,
			Result: models.GeocodeResult{
				Lat:              geo.Latitude,
				Lng:              geo.Longitude,
				FormattedAddress: geo.FormattedAddress,
			},
			Location: location,
		})
		observability.ImportItems.WithLabelValues("saved").Inc()
		progress.Status = models.ImportStatusSaved
		s.reporter.ImportProgress(progress)
	}

	if result.Cancelled {
		observability.ImportItems.WithLabelValues("cancelled").Add(float64(result.Total - len(result.Successful) - len(result.Failed)))
	}
	s.reporter.ImportComplete(importID, result)
	return result
}

// Cancel stops a running import of the device after its current address
func (s *ImportService) Cancel(deviceID, importID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.running[importID]
	if !ok || run.deviceID != deviceID {
		return models.ErrImportNotFound
	}
	run.cancel()
	return nil
}

// IsRunning reports whether an import with the id is in progress
func (s *ImportService) IsRunning(importID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[importID]
	return ok
}

func (s *ImportService) register(importID, deviceID string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[importID]; ok {
		return models.ErrImportInProgress
	}
	s.running[importID] = &runningImport{deviceID: deviceID, cancel: cancel}
	return nil
}

func (s *ImportService) unregister(importID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, importID)
}

// resolveTarget picks the group to import into: an owned groupId, else a new
// group named groupName, else the newest group, else a new default group.
func (s *ImportService) resolveTarget(ctx context.Context, deviceID string, req models.ImportRequest) (*models.Group, error) {
	if req.GroupID != "" {
		group, err := s.groupRepo.GetForDevice(ctx, req.GroupID, deviceID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, models.ErrGroupNotFound
		}
		return group, nil
	}

	name := strings.TrimSpace(req.GroupName)
	if name == "" {
		group, err := s.groupRepo.GetMostRecentForDevice(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		if group != nil {
			return group, nil
		}
		name = s.settings.DefaultGroupName
	}

	group, err := models.NewGroup(deviceID, name)
	if err != nil {
		return nil, err
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	s.metrics.RecordGroupCreated(ctx, 0)
	return group, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
