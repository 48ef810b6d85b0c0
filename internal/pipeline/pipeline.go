// Package pipeline resolves chapter records to coordinates, one record at a
// time.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/chapter-geocoder/internal/domain"
	"github.com/couchcryptid/chapter-geocoder/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Cache stores resolved coordinates between runs.
type Cache interface {
	Get(key string) (domain.Coordinates, bool)
	Put(key string, coords domain.Coordinates) error
	Flush() error
	Len() int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSecondary enables a fallback provider, queried only after the primary
// provider has exhausted every candidate.
func WithSecondary(p domain.Provider) Option {
	return func(pl *Pipeline) { pl.secondary = p }
}

// WithClock replaces the wall clock used for pacing.
func WithClock(c clockwork.Clock) Option {
	return func(pl *Pipeline) { pl.clock = c }
}

// WithPacing sets the delay observed after every provider request.
func WithPacing(d time.Duration) Option {
	return func(pl *Pipeline) { pl.pacing = d }
}

// WithOffline disables provider requests. Records that are neither
// overridden nor cached end as not_found.
func WithOffline(offline bool) Option {
	return func(pl *Pipeline) { pl.offline = offline }
}

// WithRecordHook registers fn to be called after each record is resolved.
func WithRecordHook(fn func(domain.OutputRecord)) Option {
	return func(pl *Pipeline) { pl.onRecord = fn }
}

// Pipeline resolves chapter records to coordinates one at a time.
type Pipeline struct {
	primary   domain.Provider
	secondary domain.Provider
	cache     Cache
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	pacing    time.Duration
	offline   bool
	onRecord  func(domain.OutputRecord)
	ready     atomic.Bool
	total     atomic.Int64
	processed atomic.Int64
}

// Progress is a point-in-time view of the current run.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// New creates a Pipeline that owns cache for the duration of a run.
func New(primary domain.Provider, cache Cache, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		primary: primary,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		pacing:  time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once a run has started.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not started a run yet")
	}
	return nil
}

// Progress reports how many records the current run has finished.
func (p *Pipeline) Progress() Progress {
	return Progress{Processed: int(p.processed.Load()), Total: int(p.total.Load())}
}

// Run resolves every record in order and returns exactly one output record
// per input record. Per-record failures are reported in the record's note.
// The cache is flushed before Run returns, including when ctx is cancelled
// between records; a flush failure is returned as an error.
func (p *Pipeline) Run(ctx context.Context, records []domain.ChapterRecord) ([]domain.OutputRecord, Summary, error) {
	start := p.clock.Now()
	p.total.Store(int64(len(records)))
	p.processed.Store(0)
	p.ready.Store(true)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("pipeline started",
		"records", len(records),
		"cache_entries", p.cache.Len(),
		"secondary", p.secondary != nil,
		"offline", p.offline,
	)

	out := make([]domain.OutputRecord, 0, len(records))
	summary := Summary{Total: len(records)}

	var runErr error
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err, "processed", i)
			runErr = err
			break
		}

		res := p.resolve(ctx, rec)
		o := domain.NewOutputRecord(i+1, rec, res.note)
		if res.found {
			o = o.WithCoordinates(res.coords)
		}
		out = append(out, o)

		summary.record(res)
		p.processed.Add(1)
		p.metrics.RecordsProcessed.WithLabelValues(res.note.Kind()).Inc()
		if p.onRecord != nil {
			p.onRecord(o)
		}
	}

	if err := p.cache.Flush(); err != nil {
		p.logger.Error("cache flush failed", "error", err)
		return out, summary, errors.Join(runErr, err)
	}
	p.metrics.CacheEntries.Set(float64(p.cache.Len()))
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())

	summary.Log(p.logger)
	return out, summary, runErr
}

// result is the terminal state of one record.
type result struct {
	coords   domain.Coordinates
	found    bool
	note     domain.Note
	apiCalls int
}

// resolve walks one record through override, cache, and provider states.
func (p *Pipeline) resolve(ctx context.Context, rec domain.ChapterRecord) result {
	loc := domain.Normalize(rec.Location())
	key := loc.CacheKey()
	log := p.logger.With("chapter", rec.ChapterName, "key", key)

	if coords, ok := rec.Override(); ok {
		p.put(log, key, coords)
		log.Debug("override applied")
		return result{coords: coords, found: true, note: domain.NoteOverride}
	}

	if key == "" {
		log.Debug("skipping record", "error", domain.ErrMissingData)
		return result{note: domain.NoteMissingData}
	}

	if coords, ok := p.cache.Get(key); ok {
		p.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return result{coords: coords, found: true, note: domain.NoteCache}
	}
	p.metrics.CacheLookups.WithLabelValues("miss").Inc()

	if p.offline {
		return result{note: domain.NoteNotFound}
	}

	res := p.searchProviders(ctx, loc, log)
	switch {
	case res.found:
		p.put(log, key, res.coords)
	case res.note == domain.NoteNotFound:
		log.Info("record unresolved", "error", domain.ErrNotFound, "api_calls", res.apiCalls)
	default:
		log.Warn("record failed", "note", res.note)
	}
	return res
}

// searchProviders runs the candidate sequence against the primary provider
// and then, if configured, the secondary provider. Country-filtered results
// take priority over unfiltered ones for the same candidate.
func (p *Pipeline) searchProviders(ctx context.Context, loc domain.NormalizedLocation, log *slog.Logger) result {
	s := search{p: p, loc: loc, log: log}

	for q := range loc.Candidates() {
		if s.try(ctx, p.primary, q, loc.CountryCode) || s.err != nil {
			return s.result()
		}
		if loc.CountryCode == "" || s.skip {
			s.skip = false
			continue
		}
		if s.try(ctx, p.primary, q, "") || s.err != nil {
			return s.result()
		}
		s.skip = false
	}

	if p.secondary != nil {
		for q := range loc.Candidates() {
			if s.try(ctx, p.secondary, q, loc.CountryCode) || s.err != nil {
				return s.result()
			}
			s.skip = false
		}
	}
	return s.result()
}

// search accumulates the state of one record's provider loop.
type search struct {
	p   *Pipeline
	loc domain.NormalizedLocation
	log *slog.Logger

	apiCalls  int
	completed int
	lastHTTP  error
	err       error
	skip      bool

	hit      domain.GeocodeHit
	provider string
	found    bool
}

// try issues one request and reports whether it produced an accepted match.
// A provider HTTP error marks the current candidate as skipped; any other
// error ends the loop.
func (s *search) try(ctx context.Context, provider domain.Provider, query, countryCode string) bool {
	hits, err := provider.Search(ctx, query, countryCode)
	s.apiCalls++
	s.p.pace(ctx)

	if err != nil {
		var httpErr *domain.ProviderHTTPError
		if errors.As(err, &httpErr) {
			s.log.Warn("provider request rejected", "provider", provider.Name(), "query", query, "status", httpErr.StatusCode)
			s.lastHTTP = err
			s.skip = true
			return false
		}
		s.log.Warn("provider request failed", "provider", provider.Name(), "query", query, "error", err)
		s.err = err
		return false
	}
	s.completed++

	hit, ok := domain.PickBest(hits, s.loc.Country, s.loc.Region)
	if !ok {
		return false
	}
	s.hit, s.provider, s.found = hit, provider.Name(), true
	s.log.Debug("match accepted", "provider", provider.Name(), "query", query,
		"filtered", countryCode != "", "lat", hit.Lat, "lng", hit.Lng)
	return true
}

func (s *search) result() result {
	r := result{apiCalls: s.apiCalls}
	switch {
	case s.found:
		r.coords, r.found, r.note = s.hit.Coordinates(), true, domain.NoteResolved(s.provider)
	case s.err != nil:
		r.note = domain.NoteError(s.err)
	case s.completed == 0 && s.lastHTTP != nil:
		r.note = domain.NoteError(s.lastHTTP)
	default:
		r.note = domain.NoteNotFound
	}
	return r
}

// pace waits out the inter-request delay. Cancellation ends the wait early;
// the next request then fails with the context error.
func (p *Pipeline) pace(ctx context.Context) {
	if p.pacing <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-p.clock.After(p.pacing):
	}
}

func (p *Pipeline) put(log *slog.Logger, key string, coords domain.Coordinates) {
	if key == "" {
		return
	}
	if err := p.cache.Put(key, coords); err != nil {
		log.Warn("cache write failed", "error", err)
	}
}
