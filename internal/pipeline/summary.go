package pipeline

import (
	"fmt"
	"io"
	"log/slog"
)

// Summary counts the outcomes of one run.
type Summary struct {
	Total       int `json:"total"`
	CacheHits   int `json:"cacheHits"`
	Overrides   int `json:"overrides"`
	Resolved    int `json:"resolved"`
	APICalls    int `json:"apiCalls"`
	NotFound    int `json:"notFound"`
	MissingData int `json:"missingData"`
	Failures    int `json:"failures"`
}

func (s *Summary) record(r result) {
	s.APICalls += r.apiCalls
	switch r.note.Kind() {
	case "cache":
		s.CacheHits++
	case "override":
		s.Overrides++
	case "resolved":
		s.Resolved++
	case "not_found":
		s.NotFound++
	case "missing_data":
		s.MissingData++
	default:
		s.Failures++
	}
}

// Log writes the summary as a single structured log line.
func (s Summary) Log(logger *slog.Logger) {
	logger.Info("pipeline finished",
		"total", s.Total,
		"cache_hits", s.CacheHits,
		"overrides", s.Overrides,
		"resolved", s.Resolved,
		"api_calls", s.APICalls,
		"not_found", s.NotFound,
		"missing_data", s.MissingData,
		"failures", s.Failures,
	)
}

// Fprint writes a human-readable summary to w.
func (s Summary) Fprint(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Processed %d records: %d cached, %d overridden, %d resolved (%d API calls), %d not found, %d missing data, %d failed\n",
		s.Total, s.CacheHits, s.Overrides, s.Resolved, s.APICalls, s.NotFound, s.MissingData, s.Failures)
	return err
}
