// Package domain models chapter locations and the geocoding rules applied to them.
//
// # Input Conventions
//
// Chapter rows carry a free-text city, an optional state/region, and a country
// as typed by whoever maintains the chapter list. Typical noise:
//
//	"Wake County"         →  "Wake"   (standalone "County"/"Station" dropped)
//	"Mt Pleasant"         →  "Mt Pleasant", "Mount Pleasant"
//	"St. Louis"           →  "St. Louis", "Saint Louis"
//	"USA", "U.S.A.", "US" →  "United States" (ISO code US)
//	"MI" (United States)  →  "Michigan"
//
// # Cache Keys
//
// A CacheKey is derived from the expanded place name, the region, and the
// canonical country. Each component is NFC-normalized, case-folded, and has
// punctuation collapsed to single spaces; components are joined by "|". The
// region is omitted when empty. A location without a place or a country has
// no key (see [ErrMissingData]).
//
// # Candidates
//
// [NormalizedLocation.Candidates] yields query strings most-specific first:
// for every spelling variant, "place, region, country" then "place, country".
//
// # Match Selection
//
// [PickBest] accepts a provider hit only when it agrees with the expected
// region (exact, then loose containment). When no region was supplied it
// falls back to a country match and finally to the provider's first hit.
package domain
