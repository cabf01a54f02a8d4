package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultRoutesEndpoint is the Google Routes distance-matrix endpoint.
const DefaultRoutesEndpoint = "https://routes.googleapis.com/distanceMatrix/v2:computeRouteMatrix"

const defaultBatchSize = 25

// RoutesClient queries a Routes-style distance-matrix API: a batch of
// origin addresses against a single destination coordinate, returning
// road distance and duration per origin. Failed origins come back nil;
// retry policy is the caller's problem.
type RoutesClient struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	batchSize   int
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

type RoutesOption func(*RoutesClient)

func WithRoutesEndpoint(endpoint string) RoutesOption {
	return func(c *RoutesClient) {
		if strings.TrimSpace(endpoint) != "" {
			c.endpoint = endpoint
		}
	}
}

func WithRoutesHTTPClient(client *http.Client) RoutesOption {
	return func(c *RoutesClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithRoutesBatchSize(n int) RoutesOption {
	return func(c *RoutesClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func WithRoutesMinInterval(d time.Duration) RoutesOption {
	return func(c *RoutesClient) {
		c.minInterval = d
	}
}

func NewRoutesClient(apiKey string, opts ...RoutesOption) *RoutesClient {
	c := &RoutesClient{
		endpoint:   DefaultRoutesEndpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		batchSize:  defaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type matrixWaypoint struct {
	Address string         `json:"address,omitempty"`
	Loc     *matrixLocWrap `json:"location,omitempty"`
}

type matrixLocWrap struct {
	LatLng matrixLatLng `json:"latLng"`
}

type matrixLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type matrixOrigin struct {
	Waypoint matrixWaypoint `json:"waypoint"`
}

type matrixRequest struct {
	Origins           []matrixOrigin `json:"origins"`
	Destinations      []matrixOrigin `json:"destinations"`
	TravelMode        string         `json:"travelMode"`
	RoutingPreference string         `json:"routingPreference,omitempty"`
}

type matrixElement struct {
	OriginIndex    int    `json:"originIndex"`
	DistanceMeters int    `json:"distanceMeters"`
	Duration       string `json:"duration"`
	Status         struct {
		Code int `json:"code"`
	} `json:"status"`
}

// Matrix resolves each origin address against the destination. The
// returned slice is aligned with origins; entries the API could not route
// are nil.
func (c *RoutesClient) Matrix(ctx context.Context, origins []string, dest Point, mode TravelMode) ([]*Leg, error) {
	results := make([]*Leg, len(origins))

	for start := 0; start < len(origins); start += c.batchSize {
		end := start + c.batchSize
		if end > len(origins) {
			end = len(origins)
		}
		if err := c.matrixBatch(ctx, origins[start:end], dest, mode, results[start:end]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (c *RoutesClient) matrixBatch(ctx context.Context, origins []string, dest Point, mode TravelMode, out []*Leg) error {
	if err := c.waitRateLimit(ctx); err != nil {
		return err
	}

	req := matrixRequest{
		TravelMode: string(mode),
		Destinations: []matrixOrigin{{
			Waypoint: matrixWaypoint{Loc: &matrixLocWrap{
				LatLng: matrixLatLng{Latitude: dest.Lat, Longitude: dest.Lng},
			}},
		}},
	}
	// The API rejects routingPreference for transit.
	if mode == TravelDrive {
		req.RoutingPreference = "TRAFFIC_AWARE"
	}
	for _, addr := range origins {
		req.Origins = append(req.Origins, matrixOrigin{Waypoint: matrixWaypoint{Address: addr}})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal matrix request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)
	httpReq.Header.Set("X-Goog-FieldMask", "originIndex,destinationIndex,distanceMeters,duration,status")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("route matrix request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("route matrix: status %d", resp.StatusCode)
	}

	var elements []matrixElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return fmt.Errorf("decode matrix response: %w", err)
	}

	for _, el := range elements {
		if el.OriginIndex < 0 || el.OriginIndex >= len(out) {
			continue
		}
		if el.Status.Code != 0 || el.Duration == "" {
			continue
		}
		minutes, err := parseDurationSeconds(el.Duration)
		if err != nil {
			continue
		}
		out[el.OriginIndex] = &Leg{
			DistanceKm: float64(el.DistanceMeters) / 1000.0,
			Minutes:    minutes,
		}
	}
	return nil
}

// parseDurationSeconds parses the API's "3600s" duration strings into minutes.
func parseDurationSeconds(s string) (float64, error) {
	s = strings.TrimSuffix(s, "s")
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return secs / 60.0, nil
}

func (c *RoutesClient) waitRateLimit(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}
	c.mu.Lock()
	now := time.Now()
	next := c.lastRequest.Add(c.minInterval)
	if !next.After(now) {
		c.lastRequest = now
		c.mu.Unlock()
		return nil
	}
	c.lastRequest = next
	c.mu.Unlock()

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
