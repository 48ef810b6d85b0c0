package domain

import "context"

// GeocodeHit is one candidate location returned by a provider, already
// mapped into the shared shape.
type GeocodeHit struct {
	Lat        float64
	Lng        float64
	Country    string
	Region     string
	SourceName string
}

// Coordinates returns the hit's position.
func (h GeocodeHit) Coordinates() Coordinates {
	return Coordinates{Lat: h.Lat, Lng: h.Lng}
}

// Provider searches one external geocoding service.
type Provider interface {
	// Name identifies the provider in notes and metrics, e.g. "open-meteo".
	Name() string

	// Search issues a single request. countryCode is an ISO alpha-2 filter;
	// empty means unfiltered. Malformed or empty responses yield zero hits and
	// a nil error; non-2xx responses yield a *ProviderHTTPError.
	Search(ctx context.Context, query, countryCode string) ([]GeocodeHit, error)
}
