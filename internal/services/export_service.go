package services

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/mapgroups/server/internal/models"
	"github.com/mapgroups/server/internal/observability"
)

// ExportFormat is a downloadable representation of a group
type ExportFormat string

// Supported export formats
const (
	ExportCSV     ExportFormat = "csv"
	ExportGeoJSON ExportFormat = "geojson"
	ExportPNG     ExportFormat = "png"
	ExportZIP     ExportFormat = "zip"
)

// ParseExportFormat maps a file extension to an export format
func ParseExportFormat(ext string) (ExportFormat, bool) {
	switch f := ExportFormat(ext); f {
	case ExportCSV, ExportGeoJSON, ExportPNG, ExportZIP:
		return f, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportCSV:
		return "text/csv; charset=utf-8"
	case ExportGeoJSON:
		return "application/geo+json"
	case ExportPNG:
		return "image/png"
	case ExportZIP:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// Filename returns the download name for group in this format
func (f ExportFormat) Filename(group *models.Group) string {
	return group.Slug() + "." + string(f)
}

// ExportService renders groups as CSV, GeoJSON, PNG or a ZIP of all three
type ExportService struct {
	metrics *observability.DomainMetrics
}

// NewExportService creates a new ExportService
func NewExportService(metrics *observability.DomainMetrics) *ExportService {
	return &ExportService{metrics: metrics}
}

// Write renders group in the given format to w
func (s *ExportService) Write(ctx context.Context, w io.Writer, group *models.Group, format ExportFormat) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ExportService", "Write")
	defer span.End()
	span.SetAttributes(observability.GroupID(group.ID), observability.Operation(string(format)))
	defer func() {
		observability.RecordError(span, err)
	}()

	switch format {
	case ExportCSV:
		err = WriteCSV(w, group)
	case ExportGeoJSON:
		err = WriteGeoJSON(w, group)
	case ExportPNG:
		err = WritePNG(w, group)
	case ExportZIP:
		err = WriteZIP(w, group)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return err
	}

	s.metrics.RecordExport(ctx, string(format))
	return nil
}

// WriteCSV writes one row per location in display order
func WriteCSV(w io.Writer, group *models.Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"order", "title", "latitude", "longitude", "color"}); err != nil {
		return err
	}
	for i, loc := range group.Locations {
		if err := cw.Write([]string{
			strconv.Itoa(i + 1),
			loc.Title,
			strconv.FormatFloat(loc.Latitude, 'f', -1, 64),
			strconv.FormatFloat(loc.Longitude, 'f', -1, 64),
			loc.Color,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Name     string           `json:"name"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   geoJSONPoint      `json:"geometry"`
	Properties geoJSONProperties `json:"properties"`
}

type geoJSONPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoJSONProperties struct {
	Title string `json:"title"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

// WriteGeoJSON writes the group as a FeatureCollection of points
func WriteGeoJSON(w io.Writer, group *models.Group) error {
	fc := geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Name:     group.Name,
		Features: make([]geoJSONFeature, 0, len(group.Locations)),
	}
	for i, loc := range group.Locations {
		fc.Features = append(fc.Features, geoJSONFeature{
			Type: "Feature",
			ID:   loc.ID,
			Geometry: geoJSONPoint{
				Type:        "Point",
				Coordinates: [2]float64{loc.Longitude, loc.Latitude},
			},
			Properties: geoJSONProperties{
				Title: loc.Title,
				Color: loc.Color,
				Order: i + 1,
			},
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

// WriteZIP writes an archive holding the CSV, GeoJSON and PNG exports
func WriteZIP(w io.Writer, group *models.Group) error {
	zw := zip.NewWriter(w)

	entries := []struct {
		format ExportFormat
		write  func(io.Writer, *models.Group) error
	}{
		{ExportCSV, WriteCSV},
		{ExportGeoJSON, WriteGeoJSON},
		{ExportPNG, WritePNG},
	}
	for _, e := range entries {
		fw, err := zw.Create(e.format.Filename(group))
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", e.format, err)
		}
		if err := e.write(fw, group); err != nil {
			return fmt.Errorf("failed to write %s export: %w", e.format, err)
		}
	}

	return zw.Close()
}
