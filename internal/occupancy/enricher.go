// Package occupancy looks up forecast occupancy rates for candidate zones.
// It is a pure lookup with graceful degradation: missing zones, periods,
// or categories become explicit "no data" markers, never errors, because
// the recommender must keep working without occupancy context.
package occupancy

import (
	"github.com/mikebarrdiaz/redistour/internal/domain"
)

// Enricher answers per-category occupancy breakdowns against one loaded
// forecast table. Read-only after construction.
type Enricher struct {
	byKey     map[periodKey]map[domain.Category]*float64
	available map[domain.Category]bool
}

type periodKey struct {
	zone  string
	year  int
	month int
}

// NewEnricher indexes a forecast table. A malformed table (nil, or rows
// without identity/period values) simply yields an enricher that reports
// "no data" for everything.
func NewEnricher(table *domain.ForecastTable) *Enricher {
	e := &Enricher{
		byKey:     make(map[periodKey]map[domain.Category]*float64),
		available: make(map[domain.Category]bool),
	}
	if table == nil {
		return e
	}
	for cat, ok := range table.Available {
		if ok {
			e.available[cat] = true
		}
	}
	for _, row := range table.Rows {
		if row.ZoneKey == "" || row.Year == 0 || row.Month == 0 {
			continue
		}
		k := periodKey{zone: row.ZoneKey, year: row.Year, month: row.Month}
		rates := make(map[domain.Category]*float64, len(row.Rates))
		for cat, v := range row.Rates {
			rates[cat] = v
		}
		e.byKey[k] = rates
	}
	return e
}

// Breakdowns returns, for each input zone, the occupancy percentage per
// accommodation category at (year, month). A zone absent from the forecast
// for that period maps every category to nil; a category column the source
// never carried is omitted for all zones.
func (e *Enricher) Breakdowns(zones []string, year, month int) map[string]domain.Breakdown {
	out := make(map[string]domain.Breakdown, len(zones))
	for _, z := range zones {
		b := make(domain.Breakdown)
		rates := e.byKey[periodKey{zone: z, year: year, month: month}]
		for _, cat := range domain.Categories() {
			if !e.available[cat] {
				continue
			}
			if rates != nil {
				b[cat] = rates[cat]
			} else {
				b[cat] = nil
			}
		}
		out[z] = b
	}
	return out
}
