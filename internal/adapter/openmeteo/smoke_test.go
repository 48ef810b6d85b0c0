//go:build smoke

package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the public Open-Meteo geocoding API.
// Run with: go test -tags=smoke ./internal/adapter/openmeteo/ -v -count=1

func smokeClient() *Client {
	return NewClient(DefaultBaseURL, 10, 10*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_SearchFiltered(t *testing.T) {
	hits, err := smokeClient().Search(context.Background(), "Austin", "US")
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	best, ok := domain.PickBest(hits, "United States", "Texas")
	require.True(t, ok)
	assert.InDelta(t, 30.27, best.Lat, 0.1, "lat should be near Austin")
	assert.InDelta(t, -97.74, best.Lng, 0.1, "lng should be near Austin")
}

func TestSmoke_MountPleasantRegion(t *testing.T) {
	hits, err := smokeClient().Search(context.Background(), "Mount Pleasant", "US")
	require.NoError(t, err)

	best, ok := domain.PickBest(hits, "United States", "Michigan")
	require.True(t, ok)
	assert.Equal(t, "Michigan", best.Region)
}
