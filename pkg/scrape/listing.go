package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ewanmck/rentscout/pkg/logging"
	"github.com/ewanmck/rentscout/pkg/property"
)

// Rightmove renders search results with Next.js and embeds the listing
// data as JSON in a script tag, so scraping is a matter of pulling that
// blob out rather than walking the rendered markup.

const (
	baseListingURL = "https://www.rightmove.co.uk"
	resultsPerPage = 24
)

const sqftToSqm = 0.092903

// Client fetches and parses rental search results.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxPages    int
	minInterval time.Duration
	log         *logging.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) {
		if c != nil {
			s.httpClient = c
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(s *Client) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

func WithMaxPages(n int) Option {
	return func(s *Client) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

func WithMinInterval(d time.Duration) Option {
	return func(s *Client) {
		s.minInterval = d
	}
}

func New(log *logging.Logger, opts ...Option) *Client {
	if log == nil {
		log = logging.Nop()
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		maxPages:    5,
		minInterval: time.Second,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nextData mirrors the slice of the embedded JSON we care about.
type nextData struct {
	Props struct {
		PageProps struct {
			SearchResults struct {
				Properties  []listingJSON `json:"properties"`
				ResultCount json.Number   `json:"resultCount"`
			} `json:"searchResults"`
		} `json:"pageProps"`
	} `json:"props"`
}

type listingJSON struct {
	ID    json.Number `json:"id"`
	Price struct {
		Amount    *float64 `json:"amount"`
		Frequency string   `json:"frequency"`
	} `json:"price"`
	Bedrooms       *int   `json:"bedrooms"`
	Bathrooms      *int   `json:"bathrooms"`
	DisplayAddress string `json:"displayAddress"`
	PropertyURL    string `json:"propertyUrl"`
}

// Search fetches pages of a search URL until it runs out of results or
// hits the page limit, and returns the deduplicated listings.
func (c *Client) Search(ctx context.Context, searchURL string) ([]property.Record, error) {
	cleanURL := stripIndexParam(searchURL)

	var out []property.Record
	seen := make(map[string]bool)

	for page := 0; page < c.maxPages; page++ {
		pageURL := cleanURL
		if page > 0 {
			pageURL = fmt.Sprintf("%s&index=%d", cleanURL, page*resultsPerPage)
			if err := sleepCtx(ctx, c.minInterval); err != nil {
				return nil, err
			}
		}

		body, err := c.fetch(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}
		records, err := ParseListings(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse page %d: %w", page+1, err)
		}
		if len(records) == 0 {
			break
		}

		added := 0
		for _, rec := range records {
			if rec.URL != "" && seen[rec.URL] {
				continue
			}
			seen[rec.URL] = true
			out = append(out, rec)
			added++
		}
		c.log.Info("scraped page", "page", page+1, "listings", len(records), "new", added)
		if added == 0 {
			break
		}
	}
	return out, nil
}

// ParseListings extracts listings from a search results page.
func ParseListings(r io.Reader) ([]property.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("no embedded listing data in page")
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode listing data: %w", err)
	}

	var out []property.Record
	for _, l := range data.Props.PageProps.SearchResults.Properties {
		if strings.TrimSpace(l.DisplayAddress) == "" {
			continue
		}
		rec := property.NewRecord(strings.TrimSpace(l.DisplayAddress))
		rec.PricePCM = l.Price.Amount
		rec.Bedrooms = l.Bedrooms
		rec.Bathrooms = l.Bathrooms
		if l.PropertyURL != "" {
			rec.URL = baseListingURL + l.PropertyURL
		}
		out = append(out, rec)
	}
	return out, nil
}

var (
	sqftRe = regexp.MustCompile(`(?i)([\d,]+)\s*sq\s*\.?\s*ft`)
	sqmRe  = regexp.MustCompile(`(?i)([\d,]+)\s*sq\s*\.?\s*m`)
)

// ParseSize pulls the floor area in square meters out of a property
// detail page. The size lives in a definition list under a SIZE label;
// listings frequently say "Ask agent" instead, in which case the second
// return is false.
func ParseSize(r io.Reader) (float64, bool, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, false, fmt.Errorf("parse html: %w", err)
	}

	var text string
	doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if !strings.Contains(strings.ToUpper(dt.Text()), "SIZE") {
			return true
		}
		text = dt.NextFiltered("dd").Text()
		return false
	})
	if text == "" {
		return 0, false, nil
	}
	return parseSizeText(text)
}

func parseSizeText(text string) (float64, bool, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "ask agent") || strings.Contains(lower, "contact") {
		return 0, false, nil
	}
	if m := sqmRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse size %q: %w", text, err)
		}
		return v, true, nil
	}
	if m := sqftRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse size %q: %w", text, err)
		}
		return v * sqftToSqm, true, nil
	}
	return 0, false, nil
}

// EnrichSizes fetches each record's detail page and fills in the floor
// area where the listing exposes one. Records without a URL or size stay
// as they are.
func (c *Client) EnrichSizes(ctx context.Context, records []property.Record) ([]property.Record, error) {
	out := make([]property.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}

	filled := 0
	for i := range out {
		if out[i].SizeSqm != nil || out[i].URL == "" {
			continue
		}
		if i > 0 {
			if err := sleepCtx(ctx, c.minInterval); err != nil {
				return nil, err
			}
		}
		body, err := c.fetch(ctx, out[i].URL)
		if err != nil {
			c.log.Warn("detail page fetch failed", "url", out[i].URL, "error", err)
			continue
		}
		sqm, ok, err := ParseSize(strings.NewReader(body))
		if err != nil || !ok {
			continue
		}
		out[i].SizeSqm = property.Float(sqm)
		filled++
	}
	c.log.Info("size enrichment complete", "records", len(out), "filled", filled)
	return out, nil
}

func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

var indexParamRe = regexp.MustCompile(`&index=\d+`)

func stripIndexParam(url string) string {
	return indexParamRe.ReplaceAllString(url, "")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
