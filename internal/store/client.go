package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/onnwee/trailmark/internal/tracing"
)

// DefaultTimeout bounds every request to the store. A hung call simply
// leaves the affected location unvisited until the next natural signal.
const DefaultTimeout = 15 * time.Second

// Collection endpoints exposed by the store.
const (
	pathProject        = "/project"
	pathLocation       = "/location"
	pathTracking       = "/tracking"
	pathProjectCounts  = "/project_participant_counts"
	pathLocationCounts = "/location_participant_counts"
)

// Client issues filtered reads and tracking inserts against the hosted
// tabular store. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. The default client
// carries an otelhttp transport and DefaultTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches request outcome metrics to the client.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a store client for the given base URL and bearer token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one request against the store and decodes the JSON response
// into out (when out is non-nil and the response has a body). A 204 response
// is success with an empty body. Any other non-2xx response becomes a
// *GatewayError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("store: encode %s body: %w", path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("store: build %s request: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if method == http.MethodPost || method == http.MethodPatch {
		// Ask the store to echo inserted rows back.
		req.Header.Set("Prefer", "return=representation")
	}

	op := method + " " + path
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(path, "transport_error")
		return fmt.Errorf("store: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.metrics.observe(path, strconv.Itoa(resp.StatusCode))
		return &GatewayError{Status: resp.StatusCode, Op: op, Body: string(respBody)}
	}

	c.metrics.observe(path, strconv.Itoa(resp.StatusCode))

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("store: decode %s response: %w", op, err)
	}
	return nil
}

// ListProjects returns every project record.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, pathProject, nil, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns the project with the given ID, or ErrNotFound when the
// singleton-filtered read comes back empty.
func (c *Client) GetProject(ctx context.Context, id int) (Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, pathProject, eqID("id", id), nil, &projects); err != nil {
		return Project{}, err
	}
	if len(projects) == 0 {
		return Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return projects[0], nil
}

// ListLocations returns every location record. The store offers no
// server-side project filter for this collection; use ProjectLocations to
// narrow the result.
func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var locations []Location
	if err := c.do(ctx, http.MethodGet, pathLocation, nil, nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// ProjectLocations returns the locations belonging to one project, filtered
// locally over ListLocations.
func (c *Client) ProjectLocations(ctx context.Context, projectID int) ([]Location, error) {
	all, err := c.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	locations := make([]Location, 0, len(all))
	for _, l := range all {
		if l.ProjectID == projectID {
			locations = append(locations, l)
		}
	}
	return locations, nil
}

// GetLocation returns the location with the given ID, or ErrNotFound.
func (c *Client) GetLocation(ctx context.Context, id int) (Location, error) {
	var locations []Location
	if err := c.do(ctx, http.MethodGet, pathLocation, eqID("id", id), nil, &locations); err != nil {
		return Location{}, err
	}
	if len(locations) == 0 {
		return Location{}, fmt.Errorf("location %d: %w", id, ErrNotFound)
	}
	return locations[0], nil
}

// ListTracking returns the tracking entries matching the filter. The filter
// must carry at least one constraint.
func (c *Client) ListTracking(ctx context.Context, filter TrackingFilter) ([]TrackingEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	ctx, endSpan := tracing.StartStoreSpan(ctx, "tracking", tracing.StoreOperationList)
	var entries []TrackingEntry
	if err := c.do(ctx, http.MethodGet, pathTracking, filter.query(), nil, &entries); err != nil {
		endSpan(err)
		return nil, err
	}
	endSpan(nil)
	return entries, nil
}

// InsertTracking appends one visit fact. The store echoes the inserted row
// back (Prefer: return=representation); a 204 is treated as success with the
// submitted entry returned as-is.
func (c *Client) InsertTracking(ctx context.Context, entry TrackingEntry) (TrackingEntry, error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "tracking", tracing.StoreOperationInsert)
	var inserted []TrackingEntry
	if err := c.do(ctx, http.MethodPost, pathTracking, nil, entry, &inserted); err != nil {
		endSpan(err)
		return TrackingEntry{}, err
	}
	endSpan(nil)
	if len(inserted) == 0 {
		return entry, nil
	}
	return inserted[0], nil
}

// ProjectParticipantCount returns the distinct-participant count for a
// project, 0 when the derived view has no row for it.
func (c *Client) ProjectParticipantCount(ctx context.Context, projectID int) (int, error) {
	var counts []ProjectCount
	if err := c.do(ctx, http.MethodGet, pathProjectCounts, eqID("project_id", projectID), nil, &counts); err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0].NumberParticipants, nil
}

// LocationParticipantCount returns the distinct-participant count for a
// location, 0 when the derived view has no row for it.
func (c *Client) LocationParticipantCount(ctx context.Context, locationID int) (int, error) {
	var counts []LocationCount
	if err := c.do(ctx, http.MethodGet, pathLocationCounts, eqID("location_id", locationID), nil, &counts); err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0].NumberParticipants, nil
}
