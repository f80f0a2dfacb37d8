package domain

// AttributeKind partitions the catalog into the three blocks the
// similarity pipeline treats differently.
type AttributeKind int

const (
	KindCategorical AttributeKind = iota
	KindNumeric
	KindActivity
)

// Attribute is one declared column of the zone reference table.
type Attribute struct {
	Name string
	Kind AttributeKind
}

// Catalog attribute names. The set is fixed and documented here; the
// Feature Table Builder projects it onto whatever subset the loaded
// reference table actually carries.
const (
	AttrLocationType     = "location_type"
	AttrKoppenClimate    = "koppen_climate"
	AttrSeasonality      = "climate_seasonality"
	AttrInfrastructure   = "infrastructure_level"
	AttrNearestAirport   = "nearest_airport"
	AttrTourismType      = "primary_tourism_type"
	AttrPrimaryActivity1 = "primary_activity_1"
	AttrPrimaryActivity2 = "primary_activity_2"
	AttrProtectedType    = "protected_area_type"
	AttrHeritage         = "cultural_heritage"
	AttrComplementary    = "complementary_offer"

	AttrAltitude        = "mean_altitude_m"
	AttrCoastDistance   = "distance_to_coast_km"
	AttrConnectivity    = "connectivity_index"
	AttrAirportDistance = "airport_distance_km"
	AttrTrainDistance   = "train_station_distance_km"
	AttrProtectedPct    = "protected_area_pct"
)

// activityNames lists the binary activity flags, one per activity category.
var activityNames = []string{
	"nature", "history", "entertainment", "mountaineering", "water_sports",
	"gastronomy", "cultural", "leisure", "hiking", "rural_tourism",
	"astronomy", "winter_sports", "wildlife_watching", "beach", "cycling",
	"wellness", "shopping", "wine_tourism", "business_mice", "religious",
	"adventure", "nautical",
}

// ActivityAttr returns the catalog name for an activity flag.
func ActivityAttr(activity string) string {
	return "activity_" + activity
}

// Catalog returns the full declared attribute list in canonical order:
// categorical descriptors, continuous numerics, then binary activity flags.
func Catalog() []Attribute {
	attrs := []Attribute{
		{AttrLocationType, KindCategorical},
		{AttrKoppenClimate, KindCategorical},
		{AttrSeasonality, KindCategorical},
		{AttrInfrastructure, KindCategorical},
		{AttrNearestAirport, KindCategorical},
		{AttrTourismType, KindCategorical},
		{AttrPrimaryActivity1, KindCategorical},
		{AttrPrimaryActivity2, KindCategorical},
		{AttrProtectedType, KindCategorical},
		{AttrHeritage, KindCategorical},
		{AttrComplementary, KindCategorical},

		{AttrAltitude, KindNumeric},
		{AttrCoastDistance, KindNumeric},
		{AttrConnectivity, KindNumeric},
		{AttrAirportDistance, KindNumeric},
		{AttrTrainDistance, KindNumeric},
		{AttrProtectedPct, KindNumeric},
	}
	for _, a := range activityNames {
		attrs = append(attrs, Attribute{ActivityAttr(a), KindActivity})
	}
	return attrs
}

// FilterableAttributes lists the categorical attributes exposed as discrete
// filters in the "find your destination" flow.
func FilterableAttributes() []string {
	return []string{
		AttrLocationType,
		AttrKoppenClimate,
		AttrTourismType,
		AttrSeasonality,
		AttrInfrastructure,
		AttrPrimaryActivity1,
		AttrPrimaryActivity2,
	}
}
