package similarity

import (
	"math"
	"sort"
)

// oneHotEncoder maps categorical columns onto one-hot blocks. Category
// vocabularies are fixed at fit time; a value not seen during fitting
// encodes to the zero vector for its block, so a query zone with a
// brand-new category value degrades in similarity instead of failing.
type oneHotEncoder struct {
	cols    []string
	offsets []map[string]int // per column: value -> position inside the block
	widths  []int
	width   int
}

func fitOneHot(cols []string, rows func(i int) []string, n int) *oneHotEncoder {
	enc := &oneHotEncoder{cols: cols}
	for c := range cols {
		seen := make(map[string]struct{})
		for i := 0; i < n; i++ {
			seen[rows(i)[c]] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)

		offset := make(map[string]int, len(values))
		for j, v := range values {
			offset[v] = j
		}
		enc.offsets = append(enc.offsets, offset)
		enc.widths = append(enc.widths, len(values))
		enc.width += len(values)
	}
	return enc
}

// encode writes the one-hot expansion of row into dst and returns the
// number of values written. Unknown categories leave their block zeroed.
func (e *oneHotEncoder) encode(row []string, dst []float64) int {
	pos := 0
	for c := range e.cols {
		if j, ok := e.offsets[c][row[c]]; ok {
			dst[pos+j] = 1
		}
		pos += e.widths[c]
	}
	return e.width
}

// standardScaler centers numeric columns to zero mean and unit variance.
// Constant columns keep scale 1 so they contribute zero after centering
// rather than dividing by zero.
type standardScaler struct {
	means []float64
	scale []float64
}

func fitScaler(numCols int, rows func(i int) []float64, n int) *standardScaler {
	s := &standardScaler{
		means: make([]float64, numCols),
		scale: make([]float64, numCols),
	}
	if n == 0 {
		for c := range s.scale {
			s.scale[c] = 1
		}
		return s
	}
	for c := 0; c < numCols; c++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += rows(i)[c]
		}
		mean := sum / float64(n)

		var variance float64
		for i := 0; i < n; i++ {
			d := rows(i)[c] - mean
			variance += d * d
		}
		variance /= float64(n)

		s.means[c] = mean
		if variance > 0 {
			s.scale[c] = math.Sqrt(variance)
		} else {
			s.scale[c] = 1
		}
	}
	return s
}

func (s *standardScaler) encode(row []float64, dst []float64) int {
	for c := range s.means {
		dst[c] = (row[c] - s.means[c]) / s.scale[c]
	}
	return len(s.means)
}
