package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	countryUnitedStates  = "United States"
	countryUnitedKingdom = "United Kingdom"
	keySeparator         = "|"
	candidateSeparator   = ", "
	mountPrefixExpansion = "Mount "
	saintPrefixExpansion = "Saint "
)

var (
	// noiseWordRe matches standalone administrative words that providers do
	// not index as part of a place name, e.g. "Wake County" -> "Wake".
	noiseWordRe = regexp.MustCompile(`(?i)\b(?:county|station)\b`)

	multiSpaceRe = regexp.MustCompile(`\s+`)

	mountPrefixRe = regexp.MustCompile(`(?i)^mt\.?\s+`)
	saintPrefixRe = regexp.MustCompile(`(?i)^st\.?\s+`)
)

// countryAliases maps alias keys (see aliasKey) to canonical country names.
var countryAliases = map[string]string{
	"us":                       countryUnitedStates,
	"usa":                      countryUnitedStates,
	"united states":            countryUnitedStates,
	"united states of america": countryUnitedStates,
	"america":                  countryUnitedStates,
	"uk":                       countryUnitedKingdom,
	"gb":                       countryUnitedKingdom,
	"united kingdom":           countryUnitedKingdom,
	"great britain":            countryUnitedKingdom,
	"britain":                  countryUnitedKingdom,
	"uae":                      "United Arab Emirates",
	"united arab emirates":     "United Arab Emirates",
	"south korea":              "South Korea",
	"republic of korea":        "South Korea",
}

// regionCodes maps folded canonical country names to ISO-3166 alpha-2 codes.
// Countries missing here are queried without a provider-side filter.
var regionCodes = map[string]string{
	"united states":        "US",
	"united kingdom":       "GB",
	"canada":               "CA",
	"mexico":               "MX",
	"australia":            "AU",
	"new zealand":          "NZ",
	"ireland":              "IE",
	"germany":              "DE",
	"france":               "FR",
	"spain":                "ES",
	"italy":                "IT",
	"india":                "IN",
	"philippines":          "PH",
	"nigeria":              "NG",
	"ghana":                "GH",
	"kenya":                "KE",
	"south africa":         "ZA",
	"jamaica":              "JM",
	"brazil":               "BR",
	"japan":                "JP",
	"south korea":          "KR",
	"united arab emirates": "AE",
}

var usStates = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "PR": "Puerto Rico",
	"RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee",
	"TX": "Texas", "UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// Normalize cleans every component of q. The raw query is not modified.
func Normalize(q LocationQuery) NormalizedLocation {
	country := NormalizeCountry(q.Country)
	place := NormalizePlace(q.Place)

	var variants []string
	if place != "" {
		variants = ExpandAbbreviations(place)
	}

	return NormalizedLocation{
		Place:       place,
		Variants:    variants,
		Region:      NormalizeRegion(q.Region, country),
		Country:     country,
		CountryCode: CountryToRegionCode(country),
	}
}

// NormalizeCountry maps known aliases ("USA", "U.K.") to a canonical name.
// Unknown input is returned trimmed and otherwise unchanged.
func NormalizeCountry(raw string) string {
	trimmed := collapseSpaces(raw)
	if canon, ok := countryAliases[aliasKey(trimmed)]; ok {
		return canon
	}
	return trimmed
}

// CountryToRegionCode returns the ISO alpha-2 code for a canonical country,
// or "" when the country is not in the supported table.
func CountryToRegionCode(canonicalCountry string) string {
	return regionCodes[foldKey(canonicalCountry)]
}

// NormalizePlace drops the standalone words "County" and "Station" and
// collapses whitespace.
func NormalizePlace(raw string) string {
	s := norm.NFC.String(raw)
	s = noiseWordRe.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

// NormalizeRegion trims region and, for the United States, expands two-letter
// postal codes to state names.
func NormalizeRegion(raw, canonicalCountry string) string {
	r := collapseSpaces(norm.NFC.String(raw))
	if strings.EqualFold(canonicalCountry, countryUnitedStates) {
		code := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(r, ".", ""), " ", ""))
		if name, ok := usStates[code]; ok {
			return name
		}
	}
	return r
}

// ExpandAbbreviations returns place followed by its expanded spelling when it
// starts with "Mt " or "St " (a trailing dot is accepted).
func ExpandAbbreviations(place string) []string {
	variants := []string{place}
	if expanded := expandPrefix(place); expanded != place {
		variants = append(variants, expanded)
	}
	return variants
}

func expandPrefix(place string) string {
	if loc := mountPrefixRe.FindStringIndex(place); loc != nil && loc[1] < len(place) {
		return mountPrefixExpansion + place[loc[1]:]
	}
	if loc := saintPrefixRe.FindStringIndex(place); loc != nil && loc[1] < len(place) {
		return saintPrefixExpansion + place[loc[1]:]
	}
	return place
}

// CacheKey derives the resolution cache key. It returns "" when the place or
// the country is empty.
func (n NormalizedLocation) CacheKey() string {
	place := foldKey(expandPrefix(n.Place))
	country := foldKey(n.Country)
	if place == "" || country == "" {
		return ""
	}

	parts := []string{place}
	if region := foldKey(n.Region); region != "" {
		parts = append(parts, region)
	}
	parts = append(parts, country)
	return strings.Join(parts, keySeparator)
}

// CacheKey is a shorthand for Normalize(q).CacheKey().
func (q LocationQuery) CacheKey() string {
	return Normalize(q).CacheKey()
}

// foldKey NFC-normalizes and case-folds s, keeping letters and digits and
// collapsing everything else to single spaces.
func foldKey(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// aliasKey is foldKey with dots removed first, so "U.S.A." and "USA" agree.
func aliasKey(s string) string {
	return foldKey(strings.ReplaceAll(s, ".", ""))
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}
