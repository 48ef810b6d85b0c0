// Package openmeteo implements the primary geocoding provider on top of the
// Open-Meteo geocoding API (free, no authentication).
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
)

// ProviderName is used in geocode notes and metric labels.
const ProviderName = "open-meteo"

// DefaultBaseURL is the public search endpoint.
const DefaultBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

// maxErrorRead bounds how much of an error response is read.
const maxErrorRead = 4096

// Client implements domain.Provider using the Open-Meteo search endpoint.
type Client struct {
	baseURL    string
	count      int
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo geocoding client. count is the number of
// ranked hits requested per query.
func NewClient(baseURL string, count int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		count:   count,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Name implements domain.Provider.
func (c *Client) Name() string { return ProviderName }

// Search implements domain.Provider.
func (c *Client) Search(ctx context.Context, query, countryCode string) ([]domain.GeocodeHit, error) {
	params := url.Values{
		"name":     {query},
		"count":    {strconv.Itoa(c.count)},
		"language": {"en"},
		"format":   {"json"},
	}
	if countryCode != "" {
		params.Set("country", countryCode)
	}

	start := time.Now()
	hits, outcome, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.ProviderDuration.WithLabelValues(ProviderName).Observe(time.Since(start).Seconds())
	c.metrics.ProviderRequests.WithLabelValues(ProviderName, outcome).Inc()

	c.logger.Debug("open-meteo search",
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
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "error", fmt.Errorf("open-meteo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorRead))
		return nil, "http_error", domain.NewProviderHTTPError(ProviderName, resp.StatusCode, body)
	}

	var searchResp response
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		// Malformed bodies are treated as an empty result set.
		c.logger.Debug("open-meteo response not decodable", "error", err)
		return nil, "empty", nil
	}

	hits := make([]domain.GeocodeHit, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		hits = append(hits, domain.GeocodeHit{
			Lat:        r.Latitude,
			Lng:        r.Longitude,
			Country:    r.Country,
			Region:     r.Admin1,
			SourceName: r.Name,
		})
	}
	if len(hits) == 0 {
		return nil, "empty", nil
	}
	return hits, "hits", nil
}

// Open-Meteo API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
	Name      string  `json:"name"`
}
