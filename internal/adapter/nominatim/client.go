// Package nominatim implements the secondary geocoding provider on top of the
// OpenStreetMap Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
)

// ProviderName is used in geocode notes and metric labels.
const ProviderName = "nominatim"

// DefaultBaseURL is the public search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

const maxErrorRead = 4096

// Client implements domain.Provider using Nominatim's address-detail search.
// Nominatim's usage policy requires an identifying User-Agent.
type Client struct {
	baseURL    string
	limit      int
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client returning at most limit hits per query.
func NewClient(baseURL string, limit int, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		limit:     limit,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Name implements domain.Provider.
func (c *Client) Name() string { return ProviderName }

// Search implements domain.Provider. countryCode maps to Nominatim's
// countrycodes filter.
func (c *Client) Search(ctx context.Context, query, countryCode string) ([]domain.GeocodeHit, error) {
	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {strconv.Itoa(c.limit)},
		"addressdetails": {"1"},
	}
	if countryCode != "" {
		params.Set("countrycodes", strings.ToLower(countryCode))
	}

	start := time.Now()
	hits, outcome, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.ProviderDuration.WithLabelValues(ProviderName).Observe(time.Since(start).Seconds())
	c.metrics.ProviderRequests.WithLabelValues(ProviderName, outcome).Inc()

	c.logger.Debug("nominatim search",
		"query", query,
		"country", countryCode,
		"hits", len(hits),
		"outcome", outcome,
	)
	return hits, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.GeocodeHit, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, "error", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "error", fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorRead))
		return nil, "http_error", domain.NewProviderHTTPError(ProviderName, resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.logger.Debug("nominatim response not decodable", "error", err)
		return nil, "empty", nil
	}

	hits := make([]domain.GeocodeHit, 0, len(places))
	for _, p := range places {
		hit, ok := p.toHit()
		if !ok {
			continue
		}
		hits = append(hits, hit)
	}
	if len(hits) == 0 {
		return nil, "empty", nil
	}
	return hits, "hits", nil
}

// Nominatim API response types. Coordinates arrive as decimal strings.

type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
}

type address struct {
	Country  string `json:"country"`
	State    string `json:"state"`
	Province string `json:"province"`
	Region   string `json:"region"`
}

func (p place) toHit() (domain.GeocodeHit, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	if err != nil {
		return domain.GeocodeHit{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if err != nil {
		return domain.GeocodeHit{}, false
	}
	return domain.GeocodeHit{
		Lat:        lat,
		Lng:        lng,
		Country:    p.Address.Country,
		Region:     p.Address.region(),
		SourceName: p.DisplayName,
	}, true
}

// region picks the first-level division; Nominatim names it differently per country.
func (a address) region() string {
	switch {
	case a.State != "":
		return a.State
	case a.Province != "":
		return a.Province
	default:
		return a.Region
	}
}
