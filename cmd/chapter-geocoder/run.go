package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/chapter-geocoder/internal/adapter/cache"
	httpadapter "github.com/couchcryptid/chapter-geocoder/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/chapter-geocoder/internal/adapter/kafka"
	"github.com/couchcryptid/chapter-geocoder/internal/adapter/nominatim"
	"github.com/couchcryptid/chapter-geocoder/internal/adapter/openmeteo"
	"github.com/couchcryptid/chapter-geocoder/internal/adapter/table"
	"github.com/couchcryptid/chapter-geocoder/internal/config"
	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
	"github.com/couchcryptid/chapter-geocoder/internal/pipeline"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type runFlags struct {
	input       string
	output      string
	cachePath   string
	metricsAddr string
	secondary   bool
	offline     bool
	noProgress  bool
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Geocode every chapter in the input table",
		Long: `
run resolves each input row in order: explicit LatOverride/LngOverride values
win, then the cache, then live provider queries. Exactly one output object is
written per input row.

Settings come from the environment (INPUT_PATH, CACHE_PATH, PACING_DELAY, ...);
flags override them.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyFlags(cmd, cfg, f)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := observability.NewLogger(cfg)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := runOptions{offline: f.offline, progress: !f.noProgress && isatty.IsTerminal(os.Stderr.Fd())}
			return runBatch(ctx, cfg, opts, logger, observability.NewMetrics(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", "", "input table, .csv or .xlsx (overrides INPUT_PATH)")
	flags.StringVarP(&f.output, "output", "o", "", "output JSON file (overrides OUTPUT_PATH)")
	flags.StringVar(&f.cachePath, "cache", "", "resolution cache file (overrides CACHE_PATH)")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve /metrics, /readyz, and /progress on this address (overrides METRICS_ADDR)")
	flags.BoolVar(&f.secondary, "secondary", false, "fall back to Nominatim when Open-Meteo finds nothing (overrides SECONDARY_ENABLED)")
	flags.BoolVar(&f.offline, "offline", false, "use overrides and the cache only; make no provider requests")
	flags.BoolVar(&f.noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

// applyFlags copies explicitly set flags over environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) {
	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.InputPath = f.input
	}
	if changed("output") {
		cfg.OutputPath = f.output
	}
	if changed("cache") {
		cfg.CachePath = f.cachePath
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("secondary") {
		cfg.SecondaryEnabled = f.secondary
	}
}

type runOptions struct {
	offline  bool
	progress bool
}

// runBatch performs one complete run. Setup failures return before any file
// is written. The output file is written only after the cache has been
// flushed, so the two always agree.
func runBatch(ctx context.Context, cfg *config.Config, opts runOptions, logger *slog.Logger, metrics *observability.Metrics, stdout io.Writer) error {
	records, err := table.ReadChapters(cfg.InputPath)
	if err != nil {
		return err
	}
	logger.Info("input loaded", "path", cfg.InputPath, "records", len(records))

	fc, err := cache.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	metrics.CacheEntries.Set(float64(fc.Len()))

	primary := openmeteo.NewClient(cfg.PrimaryBaseURL, cfg.PrimaryResultCount, cfg.RequestTimeout, metrics, logger)
	pipeOpts := []pipeline.Option{
		pipeline.WithPacing(cfg.PacingDelay),
		pipeline.WithOffline(opts.offline),
	}
	if cfg.SecondaryEnabled {
		secondary := nominatim.NewClient(cfg.SecondaryBaseURL, cfg.SecondaryLimit, cfg.SecondaryUserAgent, cfg.RequestTimeout, metrics, logger)
		pipeOpts = append(pipeOpts, pipeline.WithSecondary(secondary))
		logger.Info("secondary provider enabled", "provider", secondary.Name())
	}
	if opts.progress {
		bar := progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish() //nolint:errcheck // progress output is best-effort
		pipeOpts = append(pipeOpts, pipeline.WithRecordHook(func(domain.OutputRecord) { _ = bar.Add(1) }))
	}

	p := pipeline.New(primary, fc, logger, metrics, pipeOpts...)

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	out, summary, err := p.Run(ctx, records)
	if err != nil {
		return fmt.Errorf("run interrupted, output not written: %w", err)
	}

	if err := table.WriteOutput(cfg.OutputPath, out); err != nil {
		return err
	}
	logger.Info("output written", "path", cfg.OutputPath, "records", len(out), "cache", fc.Path())

	if cfg.KafkaEnabled() {
		if err := publish(ctx, cfg, logger, out); err != nil {
			return err
		}
	}

	return summary.Fprint(stdout)
}

func publish(ctx context.Context, cfg *config.Config, logger *slog.Logger, out []domain.OutputRecord) error {
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()
	return writer.Publish(ctx, out)
}
