// Package feature assembles the per-zone feature matrix consumed by the
// similarity index. Building is a pure projection of the declared attribute
// catalog onto the columns the loaded reference table actually carries:
// absent attributes are dropped, never synthesized.
package feature

import (
	"fmt"

	"github.com/mikebarrdiaz/redistour/internal/domain"
)

// Matrix is the derived, read-only feature table: one row per zone, columns
// restricted to the catalog attributes present in the source. Categorical
// columns hold raw string values; numeric columns hold floats, with binary
// activity flags riding along as 0/1. Built once per reference-table version
// and never mutated afterwards.
type Matrix struct {
	Zones   []string // normalized zone keys, in source row order
	CatCols []string
	NumCols []string

	cat [][]string  // row-major, len(Zones) x len(CatCols)
	num [][]float64 // row-major, len(Zones) x len(NumCols)

	index map[string]int // zone key -> row
}

// Row is one zone's feature values (or a synthetic query profile) laid out
// against the matrix's column set.
type Row struct {
	Cat []string
	Num []float64
}

// Build projects the declared catalog onto the zones' attributes. An
// attribute counts as present when at least one zone carries it; within a
// present column, zones without a value get the neutral "" / 0.
//
// Fails with domain.ErrMissingIdentityColumn when any zone lacks its
// identity key, and with domain.ErrEmptyFeatureSet when no catalog column
// survives projection.
func Build(zones []domain.Zone, catalog []domain.Attribute) (*Matrix, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("feature: empty reference table: %w", domain.ErrMissingIdentityColumn)
	}
	for _, z := range zones {
		if z.Key == "" {
			return nil, fmt.Errorf("feature: zone %q: %w", z.Name, domain.ErrMissingIdentityColumn)
		}
	}

	var catCols, numCols []string
	for _, attr := range catalog {
		switch attr.Kind {
		case domain.KindCategorical:
			if anyCategorical(zones, attr.Name) {
				catCols = append(catCols, attr.Name)
			}
		case domain.KindNumeric:
			if anyNumeric(zones, attr.Name) {
				numCols = append(numCols, attr.Name)
			}
		case domain.KindActivity:
			if anyActivity(zones, attr.Name) {
				numCols = append(numCols, attr.Name)
			}
		}
	}
	if len(catCols)+len(numCols) == 0 {
		return nil, fmt.Errorf("feature: %w", domain.ErrEmptyFeatureSet)
	}

	m := &Matrix{
		CatCols: catCols,
		NumCols: numCols,
		index:   make(map[string]int, len(zones)),
	}
	for _, z := range zones {
		row := Row{
			Cat: make([]string, len(catCols)),
			Num: make([]float64, len(numCols)),
		}
		for i, col := range catCols {
			row.Cat[i] = z.Categorical[col]
		}
		for i, col := range numCols {
			if v, ok := z.Numeric[col]; ok {
				row.Num[i] = v
			} else if z.Activities[col] {
				row.Num[i] = 1
			}
		}
		m.index[z.Key] = len(m.Zones)
		m.Zones = append(m.Zones, z.Key)
		m.cat = append(m.cat, row.Cat)
		m.num = append(m.num, row.Num)
	}
	return m, nil
}

// Rows returns the number of zones in the matrix.
func (m *Matrix) Rows() int { return len(m.Zones) }

// Row returns the feature row at index i.
func (m *Matrix) Row(i int) Row {
	return Row{Cat: m.cat[i], Num: m.num[i]}
}

// RowByZone returns the feature row for a zone key.
func (m *Matrix) RowByZone(key string) (Row, bool) {
	i, ok := m.index[key]
	if !ok {
		return Row{}, false
	}
	return m.Row(i), true
}

// ZoneIndex returns the row index of a zone key.
func (m *Matrix) ZoneIndex(key string) (int, bool) {
	i, ok := m.index[key]
	return i, ok
}

func anyCategorical(zones []domain.Zone, name string) bool {
	for _, z := range zones {
		if _, ok := z.Categorical[name]; ok {
			return true
		}
	}
	return false
}

func anyNumeric(zones []domain.Zone, name string) bool {
	for _, z := range zones {
		if _, ok := z.Numeric[name]; ok {
			return true
		}
	}
	return false
}

func anyActivity(zones []domain.Zone, name string) bool {
	for _, z := range zones {
		if _, ok := z.Activities[name]; ok {
			return true
		}
	}
	return false
}
