package domain

import (
	"math"
	"strconv"
	"strings"
)

// LocationQuery is a place description as entered by a user. Region and
// Country may be empty.
type LocationQuery struct {
	Place   string
	Region  string
	Country string
}

// NormalizedLocation is a LocationQuery after cleanup.
type NormalizedLocation struct {
	Place       string   // noise words removed, whitespace collapsed
	Variants    []string // spelling variants of Place, Place first
	Region      string
	Country     string // canonical country name
	CountryCode string // ISO-3166 alpha-2, empty when unknown
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ChapterRecord is one row of the input table. Officer fields are carried
// through untouched.
type ChapterRecord struct {
	ChapterName       string
	City              string
	StateRegion       string
	Country           string
	PresidentName     string
	PresidentCell     string
	VicePresidentName string
	VicePresidentCell string
	LatOverride       string
	LngOverride       string
}

// Location returns the record's place description.
func (r ChapterRecord) Location() LocationQuery {
	return LocationQuery{Place: r.City, Region: r.StateRegion, Country: r.Country}
}

// Override returns operator-supplied coordinates. Both values must be present,
// finite, and within WGS-84 bounds; a blank value means "no override", never
// zero. Anything else is treated as absent.
func (r ChapterRecord) Override() (Coordinates, bool) {
	lat, ok := parseOverride(r.LatOverride, 90)
	if !ok {
		return Coordinates{}, false
	}
	lng, ok := parseOverride(r.LngOverride, 180)
	if !ok {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

func parseOverride(s string, limit float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}

// OutputRecord is the serialized form of one processed chapter. Lat and Lng
// are either both nil or both set.
type OutputRecord struct {
	ID                int      `json:"id"`
	ChapterName       string   `json:"chapterName"`
	City              string   `json:"city"`
	StateRegion       string   `json:"stateRegion"`
	Country           string   `json:"country"`
	PresidentName     string   `json:"presidentName"`
	PresidentCell     string   `json:"presidentCell"`
	VicePresidentName string   `json:"vicePresidentName"`
	VicePresidentCell string   `json:"vicePresidentCell"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	GeocodeNote       Note     `json:"geocodeNote"`
}

// NewOutputRecord copies the descriptive fields of rec. Coordinates are
// attached with WithCoordinates.
func NewOutputRecord(id int, rec ChapterRecord, note Note) OutputRecord {
	return OutputRecord{
		ID:                id,
		ChapterName:       rec.ChapterName,
		City:              rec.City,
		StateRegion:       rec.StateRegion,
		Country:           rec.Country,
		PresidentName:     rec.PresidentName,
		PresidentCell:     rec.PresidentCell,
		VicePresidentName: rec.VicePresidentName,
		VicePresidentCell: rec.VicePresidentCell,
		GeocodeNote:       note,
	}
}

// WithCoordinates returns a copy of o carrying c.
func (o OutputRecord) WithCoordinates(c Coordinates) OutputRecord {
	lat, lng := c.Lat, c.Lng
	o.Lat = &lat
	o.Lng = &lng
	return o
}

// Coordinates reports the record's coordinates, if any.
func (o OutputRecord) Coordinates() (Coordinates, bool) {
	if o.Lat == nil || o.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *o.Lat, Lng: *o.Lng}, true
}
