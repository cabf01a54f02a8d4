package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultNominatimURL is the public OpenStreetMap geocoder.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes addresses through a Nominatim instance. The public
// service requires an identifying user agent and at most one request per
// second, which is the default here.
type Nominatim struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	minInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

type NominatimOption func(*Nominatim)

func WithNominatimURL(baseURL string) NominatimOption {
	return func(n *Nominatim) {
		if strings.TrimSpace(baseURL) != "" {
			n.baseURL = baseURL
		}
	}
}

func WithNominatimHTTPClient(client *http.Client) NominatimOption {
	return func(n *Nominatim) {
		if client != nil {
			n.httpClient = client
		}
	}
}

func WithNominatimUserAgent(ua string) NominatimOption {
	return func(n *Nominatim) {
		n.userAgent = ua
	}
}

func WithNominatimMinInterval(d time.Duration) NominatimOption {
	return func(n *Nominatim) {
		n.minInterval = d
	}
}

func NewNominatim(opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		baseURL:     DefaultNominatimURL,
		userAgent:   "rentscout/0.1",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		minInterval: time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Geocode resolves a free-text address. The boolean is false when the
// service has no match for the query.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Point, bool, error) {
	if strings.TrimSpace(query) == "" {
		return Point{}, false, nil
	}
	if err := n.waitRateLimit(ctx); err != nil {
		return Point{}, false, err
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)

	endpoint := strings.TrimRight(n.baseURL, "/") + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, false, err
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Point{}, false, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, false, fmt.Errorf("geocode %q: status %d", query, resp.StatusCode)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return Point{}, false, fmt.Errorf("geocode %q: decode: %w", query, err)
	}
	if len(hits) == 0 {
		return Point{}, false, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geocode %q: parse lat: %w", query, err)
	}
	lng, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return Point{}, false, fmt.Errorf("geocode %q: parse lon: %w", query, err)
	}
	return Point{Lat: lat, Lng: lng}, true, nil
}

func (n *Nominatim) waitRateLimit(ctx context.Context) error {
	if n.minInterval <= 0 {
		return nil
	}
	n.mu.Lock()
	now := time.Now()
	next := n.lastRequest.Add(n.minInterval)
	if !next.After(now) {
		n.lastRequest = now
		n.mu.Unlock()
		return nil
	}
	n.lastRequest = next
	n.mu.Unlock()

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
