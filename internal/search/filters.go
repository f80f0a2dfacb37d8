package search

import (
	"sort"
	"strings"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/feature"
)

// Filters are the optional discrete and range criteria of the "find your
// destination" flow. A categorical entry with an empty value set is a
// no-op, as is a filter on an attribute the reference table does not carry.
type Filters struct {
	// Categorical maps attribute name to the set of acceptable values.
	Categorical map[string][]string `json:"categorical,omitempty"`
	// AltitudeMin/AltitudeMax bound the mean-altitude attribute when set.
	AltitudeMin *float64 `json:"altitude_min,omitempty"`
	AltitudeMax *float64 `json:"altitude_max,omitempty"`
}

func (f Filters) active(attr string) []string {
	vals := f.Categorical[attr]
	if len(vals) == 0 {
		return nil
	}
	return vals
}

// Apply evaluates every filter conjunctively against the zones. Zones
// missing the altitude attribute are excluded when an altitude range is
// active; categorical filters on absent attributes restrict nothing.
func (f Filters) Apply(zones []domain.Zone) []domain.Zone {
	present := make(map[string]bool)
	for _, z := range zones {
		for attr := range z.Categorical {
			present[attr] = true
		}
	}

	var out []domain.Zone
	for _, z := range zones {
		if f.matches(z, present) {
			out = append(out, z)
		}
	}
	return out
}

func (f Filters) matches(z domain.Zone, present map[string]bool) bool {
	for attr, accepted := range f.Categorical {
		if len(accepted) == 0 || !present[attr] {
			continue
		}
		value := z.Categorical[attr]
		ok := false
		for _, v := range accepted {
			if v == value {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if f.AltitudeMin != nil || f.AltitudeMax != nil {
		alt, ok := z.Numeric[domain.AttrAltitude]
		if !ok {
			return false
		}
		if f.AltitudeMin != nil && alt < *f.AltitudeMin {
			return false
		}
		if f.AltitudeMax != nil && alt > *f.AltitudeMax {
			return false
		}
	}
	return true
}

// SyntheticQuery builds the one-row query profile delegated to the
// similarity index when exact filtering comes up empty (and, in exact
// mode, the reference point similarity is measured against).
//
// Per attribute: under an active filter, the first selected value; not
// under any filter, the table's most frequent value for categoricals and
// the median for numerics. The altitude takes the midpoint of the selected
// range when one was set. All binary activity flags stay 0: an unset flag
// means unconstrained, not absent.
func SyntheticQuery(m *feature.Matrix, zones []domain.Zone, f Filters) feature.Row {
	row := feature.Row{
		Cat: make([]string, len(m.CatCols)),
		Num: make([]float64, len(m.NumCols)),
	}

	for i, col := range m.CatCols {
		if vals := f.active(col); vals != nil {
			row.Cat[i] = vals[0]
		} else {
			row.Cat[i] = modeValue(zones, col)
		}
	}

	for i, col := range m.NumCols {
		if strings.HasPrefix(col, "activity_") {
			continue
		}
		if col == domain.AttrAltitude && (f.AltitudeMin != nil || f.AltitudeMax != nil) {
			row.Num[i] = altitudeMidpoint(zones, f)
			continue
		}
		row.Num[i] = medianValue(zones, col)
	}
	return row
}

// modeValue is the most frequent non-empty value of a categorical column;
// ties break to the lexicographically smallest value.
func modeValue(zones []domain.Zone, attr string) string {
	counts := make(map[string]int)
	for _, z := range zones {
		if v, ok := z.Categorical[attr]; ok && v != "" {
			counts[v]++
		}
	}
	var best string
	var bestN int
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

func medianValue(zones []domain.Zone, attr string) float64 {
	var vals []float64
	for _, z := range zones {
		if v, ok := z.Numeric[attr]; ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

func altitudeMidpoint(zones []domain.Zone, f Filters) float64 {
	switch {
	case f.AltitudeMin != nil && f.AltitudeMax != nil:
		return (*f.AltitudeMin + *f.AltitudeMax) / 2
	case f.AltitudeMin != nil:
		return *f.AltitudeMin
	case f.AltitudeMax != nil:
		return *f.AltitudeMax
	}
	return medianValue(zones, domain.AttrAltitude)
}
