package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 10, 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Search_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Mount Pleasant, Michigan, United States", q.Get("name"))
		assert.Equal(t, "10", q.Get("count"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "US", q.Get("country"))

		resp := response{Results: []result{
			{Latitude: 32.79, Longitude: -79.86, Country: "United States", Admin1: "South Carolina", Name: "Mount Pleasant"},
			{Latitude: 43.59, Longitude: -84.77, Country: "United States", Admin1: "Michigan", Name: "Mount Pleasant"},
		}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	hits, err := c.Search(context.Background(), "Mount Pleasant, Michigan, United States", "US")
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, domain.GeocodeHit{
		Lat: 43.59, Lng: -84.77, Country: "United States", Region: "Michigan", SourceName: "Mount Pleasant",
	}, hits[1])
}

func TestClient_Search_NoCountryFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["country"]
		assert.False(t, present, "country must be omitted when empty")
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	hits, err := testClient(srv.URL).Search(context.Background(), "Atlantis", "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClient_Search_MalformedBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`<html>oops`))
	}))
	defer srv.Close()

	hits, err := testClient(srv.URL).Search(context.Background(), "Austin", "US")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClient_Search_EmptyBodyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hits, err := testClient(srv.URL).Search(context.Background(), "Austin", "US")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClient_Search_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":true,"reason":"` + strings.Repeat("slow down ", 100) + `"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), "Austin", "US")
	require.Error(t, err)

	var httpErr *domain.ProviderHTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, ProviderName, httpErr.Provider)
	assert.Less(t, len(httpErr.Body), 300)
}

func TestClient_Search_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10, 50*time.Millisecond,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Search(context.Background(), "Austin", "US")
	require.Error(t, err)

	var httpErr *domain.ProviderHTTPError
	assert.False(t, errors.As(err, &httpErr), "transport failures are not HTTP errors")
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, "open-meteo", testClient("http://unused").Name())
}
