package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikebarrdiaz/redistour/internal/domain"
)

func fp(v float64) *float64 { return &v }

func forecastFixture() *domain.ForecastTable {
	return &domain.ForecastTable{
		Available: map[domain.Category]bool{
			domain.CategoryHotel: true,
			domain.CategoryRural: true,
		},
		Rows: []domain.ForecastRow{
			{
				ZoneKey: "COSTA BRAVA", Year: 2026, Month: 8,
				Rates: map[domain.Category]*float64{
					domain.CategoryHotel: fp(85.5),
					domain.CategoryRural: nil,
				},
			},
		},
	}
}

func TestBreakdowns(t *testing.T) {
	e := NewEnricher(forecastFixture())

	out := e.Breakdowns([]string{"COSTA BRAVA"}, 2026, 8)
	b := out["COSTA BRAVA"]
	require.NotNil(t, b)

	require.NotNil(t, b[domain.CategoryHotel])
	assert.InDelta(t, 85.5, *b[domain.CategoryHotel], 1e-9)
	// column exists in the source but this cell had no value
	assert.Nil(t, b[domain.CategoryRural])

	// categories the source never carried are omitted entirely
	_, ok := b[domain.CategoryApartments]
	assert.False(t, ok)
	_, ok = b[domain.CategoryCamping]
	assert.False(t, ok)
}

func TestBreakdownsUnknownZoneOrPeriod(t *testing.T) {
	e := NewEnricher(forecastFixture())

	for _, tc := range []struct {
		zone        string
		year, month int
	}{
		{"ATLANTIS", 2026, 8},
		{"COSTA BRAVA", 2026, 9},
		{"COSTA BRAVA", 2027, 8},
	} {
		b := e.Breakdowns([]string{tc.zone}, tc.year, tc.month)[tc.zone]
		require.NotNil(t, b)
		assert.Len(t, b, 2)
		assert.Nil(t, b[domain.CategoryHotel])
		assert.Nil(t, b[domain.CategoryRural])
	}
}

func TestBreakdownsNilTable(t *testing.T) {
	e := NewEnricher(nil)
	b := e.Breakdowns([]string{"COSTA BRAVA"}, 2026, 8)["COSTA BRAVA"]
	require.NotNil(t, b)
	assert.Empty(t, b)
}

func TestBreakdownsSkipsMalformedRows(t *testing.T) {
	table := forecastFixture()
	table.Rows = append(table.Rows, domain.ForecastRow{ZoneKey: "", Year: 2026, Month: 8})
	table.Rows = append(table.Rows, domain.ForecastRow{ZoneKey: "X", Year: 0, Month: 8})

	e := NewEnricher(table)
	b := e.Breakdowns([]string{"X"}, 0, 8)["X"]
	assert.Nil(t, b[domain.CategoryHotel])
}
