// Command validate checks a finished run for integrity: the output JSON
// against the input table it was produced from, and against the resolution
// cache written alongside it. It verifies row counts and order, coordinate
// pairing, the note vocabulary, and output/cache agreement.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -input chapters.csv \
//	  -output chapters.json \
//	  -cache geocode_cache.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/chapter-geocoder/internal/adapter/table"
	"github.com/couchcryptid/chapter-geocoder/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	inputPath := flag.String("input", "", "input table the run read (.csv or .xlsx)")
	outputPath := flag.String("output", "", "output JSON the run wrote")
	cachePath := flag.String("cache", "", "resolution cache JSON the run wrote")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" || *cachePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *inputPath, *outputPath, *cachePath); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, inputPath, outputPath, cachePath string) int {
	fmt.Fprintln(w, "=== Chapter Geocoding Integrity Validation ===")
	fmt.Fprintln(w)

	input, err := table.ReadChapters(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load input: %v\n", err)
		return 1
	}

	output, err := table.ReadOutput(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load output: %v\n", err)
		return 1
	}

	cache, err := loadCache(cachePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cache: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCardinality(input, output),
		validatePairing(output),
		validateNotes(input, output),
		validateCacheAgreement(input, output, cache),
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d input, %d output, %d cache entries\n", len(input), len(output), len(cache))
	fmt.Fprintf(w, "Notes:   %s\n", formatKinds(countKinds(output)))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// loadCache reads the cache file directly, without the cache package, so a
// malformed entry is reported rather than repaired.
func loadCache(path string) (map[string]domain.Coordinates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries := map[string]domain.Coordinates{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ── Phase 1: Cardinality ──
// One output record per input row, in row order, descriptive fields verbatim.

func validateCardinality(input []domain.ChapterRecord, output []domain.OutputRecord) *phase {
	p := &phase{name: "Phase 1: Cardinality & Order"}

	if len(input) != len(output) {
		p.errorf("count: input has %d rows, output has %d records", len(input), len(output))
	}

	for i := range min(len(input), len(output)) {
		o := output[i]
		if o.ID != i+1 {
			p.errorf("record %d: id is %d, expected %d", i, o.ID, i+1)
		}
		want := domain.NewOutputRecord(i+1, input[i], o.GeocodeNote)
		checkField(p, o.ID, "chapterName", want.ChapterName, o.ChapterName)
		checkField(p, o.ID, "city", want.City, o.City)
		checkField(p, o.ID, "stateRegion", want.StateRegion, o.StateRegion)
		checkField(p, o.ID, "country", want.Country, o.Country)
		checkField(p, o.ID, "presidentName", want.PresidentName, o.PresidentName)
		checkField(p, o.ID, "presidentCell", want.PresidentCell, o.PresidentCell)
		checkField(p, o.ID, "vicePresidentName", want.VicePresidentName, o.VicePresidentName)
		checkField(p, o.ID, "vicePresidentCell", want.VicePresidentCell, o.VicePresidentCell)
	}
	return p
}

func checkField(p *phase, id int, name, want, got string) {
	if want != got {
		p.errorf("id %d: %s: input=%q, output=%q", id, name, want, got)
	}
}

// ── Phase 2: Coordinate Pairing ──
// lat and lng are null together or set together, and in range when set.

func validatePairing(output []domain.OutputRecord) *phase {
	p := &phase{name: "Phase 2: Coordinate Pairing"}

	for _, o := range output {
		if (o.Lat == nil) != (o.Lng == nil) {
			p.errorf("id %d: lat/lng not paired (lat=%s, lng=%s)", o.ID, ptrFloat(o.Lat), ptrFloat(o.Lng))
			continue
		}
		c, ok := o.Coordinates()
		if !ok {
			continue
		}
		if !validCoordinates(c) {
			p.errorf("id %d: coordinates out of range (%g, %g)", o.ID, c.Lat, c.Lng)
		}
	}
	return p
}

// ── Phase 3: Note Vocabulary ──
// Every note is known, agrees with the presence of coordinates, and agrees
// with the input row it came from.

func validateNotes(input []domain.ChapterRecord, output []domain.OutputRecord) *phase {
	p := &phase{name: "Phase 3: Note Vocabulary"}

	for i, o := range output {
		kind := o.GeocodeNote.Kind()
		if kind == "unknown" {
			p.errorf("id %d: unknown geocodeNote %q", o.ID, o.GeocodeNote)
			continue
		}
		if _, has := o.Coordinates(); has != o.GeocodeNote.HasCoordinates() {
			p.errorf("id %d: note %q but coordinates present=%t", o.ID, o.GeocodeNote, has)
		}
		if i >= len(input) {
			continue
		}

		rec := input[i]
		override, hasOverride := rec.Override()
		switch {
		case hasOverride && kind != "override":
			p.errorf("id %d: row has overrides but note is %q", o.ID, o.GeocodeNote)
		case kind == "override":
			if c, ok := o.Coordinates(); !ok || !coordsEq(c, override) {
				p.errorf("id %d: override note but coordinates differ from LatOverride/LngOverride", o.ID)
			}
		case kind == "missing_data" && rec.Location().CacheKey() != "":
			p.errorf("id %d: note missing_data but row has city and country", o.ID)
		case kind != "missing_data" && rec.Location().CacheKey() == "":
			p.errorf("id %d: row lacks city or country but note is %q", o.ID, o.GeocodeNote)
		}
	}
	return p
}

// ── Phase 4: Cache Agreement ──
// Every coordinate in the output that has a key is in the cache with the
// same value, unless a later override row replaced it. Every cache value is
// in range.

func validateCacheAgreement(input []domain.ChapterRecord, output []domain.OutputRecord, cache map[string]domain.Coordinates) *phase {
	p := &phase{name: "Phase 4: Output/Cache Agreement"}

	for i, o := range output {
		if i >= len(input) {
			break
		}
		c, ok := o.Coordinates()
		if !ok {
			continue
		}
		key := input[i].Location().CacheKey()
		if key == "" {
			continue
		}
		cached, ok := cache[key]
		switch {
		case !ok:
			p.errorf("id %d: key %q not in cache", o.ID, key)
		case !coordsEq(cached, c) && !overriddenLater(input[i+1:], key):
			p.errorf("id %d: cache has (%g, %g) for %q, output has (%g, %g)", o.ID, cached.Lat, cached.Lng, key, c.Lat, c.Lng)
		}
	}

	for key, c := range cache {
		if key == "" {
			p.errorf("cache: empty key")
		}
		if !validCoordinates(c) {
			p.errorf("cache %q: coordinates out of range (%g, %g)", key, c.Lat, c.Lng)
		}
	}
	return p
}

func overriddenLater(rows []domain.ChapterRecord, key string) bool {
	for _, r := range rows {
		if _, ok := r.Override(); ok && r.Location().CacheKey() == key {
			return true
		}
	}
	return false
}

// ── Helpers ──

func countKinds(output []domain.OutputRecord) map[string]int {
	counts := map[string]int{}
	for _, o := range output {
		counts[o.GeocodeNote.Kind()]++
	}
	return counts
}

func formatKinds(counts map[string]int) string {
	order := []string{"cache", "override", "resolved", "not_found", "missing_data", "error", "unknown"}
	s := ""
	for _, k := range order {
		if counts[k] == 0 {
			continue
		}
		if s != "" {
			s += ", "
		}
		s += fmt.Sprintf("%s=%d", k, counts[k])
	}
	if s == "" {
		return "none"
	}
	return s
}

func validCoordinates(c domain.Coordinates) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lng)
}

func coordsEq(a, b domain.Coordinates) bool {
	return math.Abs(a.Lat-b.Lat) < 1e-9 && math.Abs(a.Lng-b.Lng) < 1e-9
}

func ptrFloat(f *float64) string {
	if f == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *f)
}
