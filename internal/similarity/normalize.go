package similarity

import (
	"math"
	"sort"
)

// distanceEpsilon floors the normalization denominator so an all-zero
// distance set never divides by zero.
const distanceEpsilon = 1e-9

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between closest ranks. values need not be sorted.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// ScoreDenominator derives the normalization denominator for one query's
// raw distances (the query zone's own zero self-distance excluded by the
// caller). Bounding by the 95th percentile rather than the max keeps one
// extreme outlier neighbor from compressing every other score toward 100.
//
// Edge cases: an empty list returns the neutral 1.0; a single element
// returns max(value, epsilon); otherwise max(p95, epsilon).
func ScoreDenominator(distances []float64) float64 {
	switch len(distances) {
	case 0:
		return 1.0
	case 1:
		return math.Max(distances[0], distanceEpsilon)
	}
	return math.Max(Percentile(distances, 95), distanceEpsilon)
}

// Score converts one raw distance into the bounded 0-100 similarity score:
// 100 * (1 - distance/denominator), clamped. The query zone itself is
// assigned SelfScore directly, never computed.
func Score(distance, denominator float64) float64 {
	s := 100 * (1 - distance/denominator)
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// SelfScore is the similarity the query zone always receives.
const SelfScore = 100.0
