// Package client is a Go client for the location groups REST API.
//
// The server identifies callers by a device cookie, so a Client keeps a
// cookie jar and every call made through it acts as the same device.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mapgroups/server/internal/models"
)

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
	Details    []models.FieldErrorDetail
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the REST API as a single device
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is replaced
// when nil so the device cookie is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// Device returns the device this client acts as, registering it on first use
func (c *Client) Device(ctx context.Context) (*models.Device, error) {
	var device models.Device
	if err := c.do(ctx, http.MethodGet, "/api/device", nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// ListGroups returns the device's groups, newest first
func (c *Client) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := c.do(ctx, http.MethodGet, "/api/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// GetGroup returns a group with its ordered locations
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	var group models.Group
	if err := c.do(ctx, http.MethodGet, groupPath(groupID), nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateGroup creates a group and its initial locations in one request
func (c *Client) CreateGroup(ctx context.Context, name string, locations []models.LocationRequest) (*models.Group, error) {
	var group models.Group
	req := models.CreateGroupRequest{Name: name, Locations: locations}
	if err := c.do(ctx, http.MethodPost, "/api/groups", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// RenameGroup changes a group's name
func (c *Client) RenameGroup(ctx context.Context, groupID, name string) (*models.Group, error) {
	return c.updateGroup(ctx, groupID, models.UpdateGroupRequest{Name: &name})
}

// ReplaceLocations swaps all of a group's locations for the given list
func (c *Client) ReplaceLocations(ctx context.Context, groupID string, locations []models.LocationRequest) (*models.Group, error) {
	if locations == nil {
		locations = []models.LocationRequest{}
	}
	return c.updateGroup(ctx, groupID, models.UpdateGroupRequest{Locations: locations})
}

func (c *Client) updateGroup(ctx context.Context, groupID string, req models.UpdateGroupRequest) (*models.Group, error) {
	var group models.Group
	if err := c.do(ctx, http.MethodPut, groupPath(groupID), req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// DeleteGroup removes a group and its locations
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, http.MethodDelete, groupPath(groupID), nil, nil)
}

// AddLocation appends a location to a group
func (c *Client) AddLocation(ctx context.Context, groupID string, location models.LocationRequest) (*models.Location, error) {
	var created models.Location
	if err := c.do(ctx, http.MethodPost, groupPath(groupID)+"/locations", location, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ReorderLocations pushes the full display order of a group
func (c *Client) ReorderLocations(ctx context.Context, groupID string, locationIDs []string) (*models.Group, error) {
	var group models.Group
	req := models.ReorderRequest{LocationIDs: locationIDs}
	if err := c.do(ctx, http.MethodPut, groupPath(groupID)+"/locations/reorder", req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// RecolorLocation sets a location's marker color
func (c *Client) RecolorLocation(ctx context.Context, groupID, locationID, color string) (*models.Location, error) {
	var location models.Location
	req := models.UpdateLocationRequest{Color: &color}
	if err := c.do(ctx, http.MethodPut, locationPath(groupID, locationID), req, &location); err != nil {
		return nil, err
	}
	return &location, nil
}

// DeleteLocation removes a location from a group
func (c *Client) DeleteLocation(ctx context.Context, groupID, locationID string) error {
	return c.do(ctx, http.MethodDelete, locationPath(groupID, locationID), nil, nil)
}

// Geocode resolves a single address
func (c *Client) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	var result models.GeocodeResult
	path := "/api/geocode?" + url.Values{"q": {address}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ParseAddresses previews how text will be split for import
func (c *Client) ParseAddresses(ctx context.Context, text string) (*models.ParseResponse, error) {
	var resp models.ParseResponse
	if err := c.do(ctx, http.MethodPost, "/api/import/parse", models.ParseRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Import geocodes text into a group and blocks until the batch ends
func (c *Client) Import(ctx context.Context, req models.ImportRequest) (*models.ImportResponse, error) {
	var resp models.ImportResponse
	if err := c.do(ctx, http.MethodPost, "/api/import", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelImport stops a running import after its current address
func (c *Client) CancelImport(ctx context.Context, importID string) error {
	return c.do(ctx, http.MethodDelete, "/api/import/"+url.PathEscape(importID), nil, nil)
}

// Export downloads a group in format (csv, geojson, png or zip) into w
func (c *Client) Export(ctx context.Context, groupID, format string, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, groupPath(groupID)+"/export."+url.PathEscape(format), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send performs the request and converts non-2xx responses into *APIError
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp models.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp); err == nil {
			apiErr.Message = errResp.Error
			apiErr.Details = errResp.Details
		}
		return nil, apiErr
	}
	return resp, nil
}

func groupPath(groupID string) string {
	return "/api/groups/" + url.PathEscape(groupID)
}

func locationPath(groupID, locationID string) string {
	return groupPath(groupID) + "/locations/" + url.PathEscape(locationID)
}
