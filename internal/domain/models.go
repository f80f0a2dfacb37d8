package domain

// Zone is a tourist area, the unit of recommendation and mapping.
// Key is the normalized identity used for every join; Name keeps the
// original spelling for display.
type Zone struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Community   string   `json:"community,omitempty"`
	Province    string   `json:"province,omitempty"`
	Description string   `json:"description,omitempty"`
	Opinions    []string `json:"opinions,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`

	// Attribute values keyed by catalog name. A missing key means the
	// source table did not carry that column for this dataset.
	Categorical map[string]string  `json:"categorical,omitempty"`
	Numeric     map[string]float64 `json:"numeric,omitempty"`
	Activities  map[string]bool    `json:"activities,omitempty"`
}

// Category is an accommodation type covered by the occupancy forecasts.
type Category string

const (
	CategoryHotel      Category = "hotel"
	CategoryRural      Category = "rural"
	CategoryApartments Category = "apartments"
	CategoryCamping    Category = "camping"
)

// Categories lists all accommodation types in presentation order.
func Categories() []Category {
	return []Category{CategoryHotel, CategoryRural, CategoryApartments, CategoryCamping}
}

// ForecastRow holds the forecast occupancy rates for one zone and period.
// A nil rate means the source had no value for that category.
type ForecastRow struct {
	ZoneKey string
	Year    int
	Month   int
	Rates   map[Category]*float64
}

// ForecastTable is the read-only occupancy forecast, supplied externally.
// Available records which category columns the source carried at all:
// a category absent here is skipped for every zone rather than reported
// as "no data" per zone.
type ForecastTable struct {
	Rows      []ForecastRow
	Available map[Category]bool
}

// TravelerRow holds the historical traveler counts for one zone and period,
// feeding the saturation map and trend charts. Counts are per accommodation
// category; nil means the source had no value.
type TravelerRow struct {
	ZoneKey string
	Year    int
	Month   int
	Counts  map[Category]*float64
}

// Breakdown maps accommodation category to an occupancy percentage.
// A nil value is the explicit "no data" marker required by the
// presentation contract.
type Breakdown map[Category]*float64

// Mean returns the arithmetic mean of all non-nil category values.
// ok is false when every category is nil, in which case the mean is
// undefined and the candidate sorts after all defined means.
func (b Breakdown) Mean() (mean float64, ok bool) {
	var sum float64
	var n int
	for _, v := range b {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Candidate is one ephemeral per-query result: a zone, its raw distance to
// the query, the 0-100 similarity score, and the occupancy context used for
// secondary ranking.
type Candidate struct {
	Zone        string    `json:"zone"`
	Name        string    `json:"name,omitempty"`
	Community   string    `json:"community,omitempty"`
	Province    string    `json:"province,omitempty"`
	Distance    float64   `json:"-"`
	Similarity  float64   `json:"similarity"`
	Occupancy   Breakdown `json:"occupancy"`
	Description string    `json:"description,omitempty"`
	Opinions    []string  `json:"opinions,omitempty"`
	Selected    bool      `json:"selected"`
}

// MeanOccupancy is a convenience wrapper over Occupancy.Mean.
func (c Candidate) MeanOccupancy() (float64, bool) {
	return c.Occupancy.Mean()
}
