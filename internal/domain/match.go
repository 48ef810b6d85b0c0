package domain

import "strings"

// PickBest selects the hit that best agrees with the expected country and
// region, evaluated in order:
//
//  1. With a region: a hit whose country matches and whose region matches
//     exactly (case-insensitive), else one whose region contains or is
//     contained in the expected region. Otherwise no hit is accepted.
//  2. With only a country: the first hit whose country matches.
//  3. Otherwise the first hit in provider order.
//
// Countries are compared after NormalizeCountry on both sides.
func PickBest(hits []GeocodeHit, expectedCountry, expectedRegion string) (GeocodeHit, bool) {
	if len(hits) == 0 {
		return GeocodeHit{}, false
	}
	country := NormalizeCountry(expectedCountry)
	region := strings.TrimSpace(expectedRegion)

	if region != "" {
		for _, h := range hits {
			if countryMatches(h, country) && strings.EqualFold(strings.TrimSpace(h.Region), region) {
				return h, true
			}
		}
		for _, h := range hits {
			if countryMatches(h, country) && looseRegionMatch(h.Region, region) {
				return h, true
			}
		}
		// A wrong-region answer is worse than none.
		return GeocodeHit{}, false
	}

	if country != "" {
		for _, h := range hits {
			if countryMatches(h, country) {
				return h, true
			}
		}
	}
	return hits[0], true
}

func countryMatches(h GeocodeHit, expected string) bool {
	if expected == "" {
		return false
	}
	return strings.EqualFold(NormalizeCountry(h.Country), expected)
}

func looseRegionMatch(got, expected string) bool {
	g, e := foldKey(got), foldKey(expected)
	if g == "" || e == "" {
		return false
	}
	return strings.Contains(g, e) || strings.Contains(e, g)
}
