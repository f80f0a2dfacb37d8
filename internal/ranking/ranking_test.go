package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikebarrdiaz/redistour/internal/domain"
)

func fp(v float64) *float64 { return &v }

func candidate(zone string, similarity float64, occupancy *float64) domain.Candidate {
	c := domain.Candidate{Zone: zone, Similarity: similarity, Occupancy: domain.Breakdown{}}
	if occupancy != nil {
		c.Occupancy[domain.CategoryHotel] = occupancy
	}
	return c
}

func zoneOrder(candidates []domain.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Zone
	}
	return out
}

func TestDedupeKeepsFirst(t *testing.T) {
	in := []domain.Candidate{
		candidate("A", 90, fp(50)),
		candidate("B", 80, nil),
		candidate("A", 70, fp(10)),
	}
	out := Dedupe(in)
	assert.Equal(t, []string{"A", "B"}, zoneOrder(out))
	assert.Equal(t, 90.0, out[0].Similarity)
}

func TestSortSimilarityDescThenOccupancyAsc(t *testing.T) {
	in := []domain.Candidate{
		candidate("CROWDED", 85, fp(90)),
		candidate("QUIET", 85, fp(30)),
		candidate("BEST", 95, fp(70)),
	}
	Sort(in)
	assert.Equal(t, []string{"BEST", "QUIET", "CROWDED"}, zoneOrder(in))
}

func TestSortUndefinedOccupancyLast(t *testing.T) {
	in := []domain.Candidate{
		candidate("UNKNOWN", 85, nil),
		candidate("KNOWN", 85, fp(60)),
	}
	Sort(in)
	assert.Equal(t, []string{"KNOWN", "UNKNOWN"}, zoneOrder(in))
}

func TestSortStableOnFullTies(t *testing.T) {
	in := []domain.Candidate{
		candidate("FIRST", 85, nil),
		candidate("SECOND", 85, nil),
	}
	Sort(in)
	assert.Equal(t, []string{"FIRST", "SECOND"}, zoneOrder(in))
}

func TestRank(t *testing.T) {
	in := []domain.Candidate{
		candidate("A", 70, fp(50)),
		candidate("B", 90, nil),
		candidate("A", 60, fp(10)),
		candidate("C", 90, fp(20)),
	}
	out := Rank(in)
	assert.Equal(t, []string{"C", "B", "A"}, zoneOrder(out))
	assert.Len(t, out, 3)
}
