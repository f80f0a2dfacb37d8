package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/feature"
)

func fp(v float64) *float64 { return &v }

func filterZones() []domain.Zone {
	mk := func(key, location, climate string, altitude float64) domain.Zone {
		return domain.Zone{
			Key:  key,
			Name: key,
			Categorical: map[string]string{
				domain.AttrLocationType:  location,
				domain.AttrKoppenClimate: climate,
			},
			Numeric: map[string]float64{domain.AttrAltitude: altitude},
		}
	}
	return []domain.Zone{
		mk("COSTA BRAVA", "costa", "Csa", 20),
		mk("COSTA DEL SOL", "costa", "Csa", 30),
		mk("PIRINEO", "montaña", "Dfb", 1500),
		mk("MESETA", "interior", "Csa", 700),
	}
}

func TestApplyCategorical(t *testing.T) {
	f := Filters{Categorical: map[string][]string{
		domain.AttrLocationType: {"costa"},
	}}
	out := f.Apply(filterZones())
	require.Len(t, out, 2)
	assert.Equal(t, "COSTA BRAVA", out[0].Key)
	assert.Equal(t, "COSTA DEL SOL", out[1].Key)
}

func TestApplyConjunctive(t *testing.T) {
	f := Filters{Categorical: map[string][]string{
		domain.AttrLocationType:  {"costa", "interior"},
		domain.AttrKoppenClimate: {"Csa"},
	}}
	out := f.Apply(filterZones())
	assert.Len(t, out, 3)
}

func TestApplyAltitudeRange(t *testing.T) {
	f := Filters{AltitudeMin: fp(500), AltitudeMax: fp(1000)}
	out := f.Apply(filterZones())
	require.Len(t, out, 1)
	assert.Equal(t, "MESETA", out[0].Key)
}

func TestApplyAltitudeExcludesZonesWithoutValue(t *testing.T) {
	zones := filterZones()
	delete(zones[3].Numeric, domain.AttrAltitude)

	f := Filters{AltitudeMin: fp(500)}
	out := f.Apply(zones)
	require.Len(t, out, 1)
	assert.Equal(t, "PIRINEO", out[0].Key)
}

func TestApplyAbsentAttributeIsNoOp(t *testing.T) {
	f := Filters{Categorical: map[string][]string{
		domain.AttrProtectedType: {"parque nacional"},
	}}
	out := f.Apply(filterZones())
	assert.Len(t, out, 4)
}

func TestApplyEmptyValueSetIsNoOp(t *testing.T) {
	f := Filters{Categorical: map[string][]string{
		domain.AttrLocationType: {},
	}}
	out := f.Apply(filterZones())
	assert.Len(t, out, 4)
}

func TestApplyNoMatch(t *testing.T) {
	f := Filters{Categorical: map[string][]string{
		domain.AttrLocationType: {"isla"},
	}}
	assert.Empty(t, f.Apply(filterZones()))
}

func TestSyntheticQueryConstrainedTakesFirstSelected(t *testing.T) {
	zones := filterZones()
	m, err := feature.Build(zones, domain.Catalog())
	require.NoError(t, err)

	f := Filters{Categorical: map[string][]string{
		// "montaña" is not the table's mode; the filter value must win.
		domain.AttrLocationType: {"montaña", "costa"},
	}}
	row := SyntheticQuery(m, zones, f)

	i := indexOf(m.CatCols, domain.AttrLocationType)
	assert.Equal(t, "montaña", row.Cat[i])
}

func TestSyntheticQueryUnconstrainedTakesModeAndMedian(t *testing.T) {
	zones := filterZones()
	m, err := feature.Build(zones, domain.Catalog())
	require.NoError(t, err)

	row := SyntheticQuery(m, zones, Filters{})

	assert.Equal(t, "costa", row.Cat[indexOf(m.CatCols, domain.AttrLocationType)])
	assert.Equal(t, "Csa", row.Cat[indexOf(m.CatCols, domain.AttrKoppenClimate)])
	// even count: mean of the two middle altitudes (30, 700)
	assert.InDelta(t, 365, row.Num[indexOf(m.NumCols, domain.AttrAltitude)], 1e-9)
}

func TestSyntheticQueryAltitudeMidpoint(t *testing.T) {
	zones := filterZones()
	m, err := feature.Build(zones, domain.Catalog())
	require.NoError(t, err)

	row := SyntheticQuery(m, zones, Filters{AltitudeMin: fp(400), AltitudeMax: fp(1200)})
	assert.InDelta(t, 800, row.Num[indexOf(m.NumCols, domain.AttrAltitude)], 1e-9)

	row = SyntheticQuery(m, zones, Filters{AltitudeMin: fp(600)})
	assert.InDelta(t, 600, row.Num[indexOf(m.NumCols, domain.AttrAltitude)], 1e-9)
}

func TestSyntheticQueryActivitiesStayZero(t *testing.T) {
	zones := filterZones()
	for i := range zones {
		zones[i].Activities = map[string]bool{domain.ActivityAttr("beach"): true}
	}
	m, err := feature.Build(zones, domain.Catalog())
	require.NoError(t, err)

	row := SyntheticQuery(m, zones, Filters{})
	assert.Equal(t, 0.0, row.Num[indexOf(m.NumCols, domain.ActivityAttr("beach"))])
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
