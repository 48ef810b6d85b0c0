package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/chapter-geocoder/internal/adapter/table"
	"github.com/couchcryptid/chapter-geocoder/internal/config"
	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"key", "--city", "Mt Pleasant", "--region", "MI", "--country", "U.S.A."})

	require.NoError(t, root.Execute())

	got := out.String()
	assert.Contains(t, got, "key:      mount pleasant|michigan|united states\n")
	assert.Contains(t, got, "code:     US\n")
	assert.Contains(t, got, " 1. Mt Pleasant, Michigan, United States\n")
	assert.Contains(t, got, " 3. Mount Pleasant, Michigan, United States\n")
}

func TestKeyCmd_MissingData(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"key", "--city", "Lansing"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "key:      (none: missing place or country)")
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--input", "in.xlsx", "--secondary"}))

	cfg := &config.Config{InputPath: "chapters.csv", OutputPath: "chapters.json", CachePath: "cache.json"}
	input, _ := cmd.Flags().GetString("input")
	secondary, _ := cmd.Flags().GetBool("secondary")
	applyFlags(cmd, cfg, runFlags{input: input, secondary: secondary})

	assert.Equal(t, "in.xlsx", cfg.InputPath)
	assert.Equal(t, "chapters.json", cfg.OutputPath)
	assert.Equal(t, "cache.json", cfg.CachePath)
	assert.True(t, cfg.SecondaryEnabled)
}

func testConfig(t *testing.T, baseURL, csv string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "chapters.csv")
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))
	return &config.Config{
		InputPath:          input,
		OutputPath:         filepath.Join(dir, "chapters.json"),
		CachePath:          filepath.Join(dir, "geocode_cache.json"),
		ShutdownTimeout:    time.Second,
		RequestTimeout:     5 * time.Second,
		PrimaryBaseURL:     baseURL,
		PrimaryResultCount: 10,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunBatch_EndToEnd(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("name") == "St Louis, Missouri, United States" {
			_, _ = w.Write([]byte(`{"results":[{"latitude":38.627,"longitude":-90.199,"country":"United States","admin1":"Missouri","name":"St. Louis"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL, "ChapterName,City,StateRegion,Country,LatOverride,LngOverride\n"+
		"Gateway,St Louis,MO,USA,,\n"+
		"Delaware Valley,Philadelphia,PA,USA,40.0,-75.0\n"+
		"No City,,Ohio,USA,,\n")

	var stdout bytes.Buffer
	require.NoError(t, runBatch(context.Background(), cfg, runOptions{}, discardLogger(), observability.NewMetricsForTesting(), &stdout))
	assert.Equal(t, "Processed 3 records: 0 cached, 1 overridden, 1 resolved (1 API calls), 0 not found, 1 missing data, 0 failed\n", stdout.String())

	out, err := table.ReadOutput(cfg.OutputPath)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, domain.NoteResolved("open-meteo"), out[0].GeocodeNote)
	assert.Equal(t, domain.NoteOverride, out[1].GeocodeNote)
	assert.Equal(t, domain.NoteMissingData, out[2].GeocodeNote)
	assert.FileExists(t, cfg.CachePath)

	calls := requests.Load()
	stdout.Reset()
	require.NoError(t, runBatch(context.Background(), cfg, runOptions{}, discardLogger(), observability.NewMetricsForTesting(), &stdout))
	assert.Equal(t, calls, requests.Load(), "second run is served from the cache")
	assert.Contains(t, stdout.String(), "1 cached, 1 overridden, 0 resolved (0 API calls)")
}

func TestRunBatch_MissingColumnsWritesNothing(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0", "ChapterName,City\nGateway,St Louis\n")

	err := runBatch(context.Background(), cfg, runOptions{}, discardLogger(), observability.NewMetricsForTesting(), io.Discard)
	require.Error(t, err)

	var formatErr *domain.InputFormatError
	require.True(t, errors.As(err, &formatErr))
	assert.NoFileExists(t, cfg.OutputPath)
	assert.NoFileExists(t, cfg.CachePath)
}

func TestRunBatch_CancelledWritesNoOutput(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0", "ChapterName,City,StateRegion,Country\nGateway,St Louis,MO,USA\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runBatch(ctx, cfg, runOptions{}, discardLogger(), observability.NewMetricsForTesting(), io.Discard)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, cfg.OutputPath)
}
