// Package similarity implements the destination-similarity index: a
// nearest-neighbor search over the mixed categorical/numeric feature space
// of tourist zones, plus the percentile normalization that turns raw
// distances into bounded 0-100 scores.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/feature"
)

// Metric selects the distance function the index is fitted with.
type Metric string

const (
	// MetricCosine is the default: scale-invariant across the mixed
	// one-hot/scaled-numeric space.
	MetricCosine Metric = "cosine"
	// MetricEuclidean is available for flows that want absolute distances.
	MetricEuclidean Metric = "euclidean"
)

// Config parameterizes index fitting. The zero value fits on every matrix
// column with cosine distance.
type Config struct {
	// Features optionally restricts fitting to a subset of catalog
	// attributes. Empty means every column present in the matrix.
	Features []string `koanf:"features"`
	// Metric is the distance function; defaults to cosine.
	Metric Metric `koanf:"metric"`
	// DefaultK is the neighbor count used when a query does not specify one.
	DefaultK int `koanf:"default_k"`
}

// Neighbor is one query answer: a zone and its raw distance to the query.
type Neighbor struct {
	Zone     string
	Distance float64
}

// Index is a fitted nearest-neighbor structure over the feature matrix:
// a one-hot encoder for categorical columns, a standard scaler for numeric
// columns, and the encoded vectors. Never mutated after Fit; any change to
// the reference data produces a new Index.
type Index struct {
	cfg     Config
	catCols []string
	numCols []string
	enc     *oneHotEncoder
	scaler  *standardScaler
	vectors [][]float64
	norms   []float64
	zones   []string
	matrix  *feature.Matrix
}

// Fit partitions the matrix columns into categorical and numeric blocks,
// fits the encoder and scaler, encodes every row, and returns the ready
// index. Fails with domain.ErrEmptyFeatureSet when the configured feature
// subset leaves nothing to fit on.
func Fit(m *feature.Matrix, cfg Config) (*Index, error) {
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}

	catCols, catKeep := selectColumns(m.CatCols, cfg.Features)
	numCols, numKeep := selectColumns(m.NumCols, cfg.Features)
	if len(catCols)+len(numCols) == 0 {
		return nil, fmt.Errorf("similarity: fit: %w", domain.ErrEmptyFeatureSet)
	}

	n := m.Rows()
	catRow := func(i int) []string { return project(m.Row(i).Cat, catKeep) }
	numRow := func(i int) []float64 { return projectFloat(m.Row(i).Num, numKeep) }

	ix := &Index{
		cfg:     cfg,
		catCols: catCols,
		numCols: numCols,
		enc:     fitOneHot(catCols, catRow, n),
		scaler:  fitScaler(len(numCols), numRow, n),
		zones:   m.Zones,
		matrix:  m,
	}

	ix.vectors = make([][]float64, n)
	ix.norms = make([]float64, n)
	for i := 0; i < n; i++ {
		v := ix.transform(catRow(i), numRow(i))
		ix.vectors[i] = v
		ix.norms[i] = norm(v)
	}
	return ix, nil
}

// Rows returns the number of fitted zones, the upper bound for k.
func (ix *Index) Rows() int { return len(ix.zones) }

// Metric returns the fitted distance metric.
func (ix *Index) Metric() Metric { return ix.cfg.Metric }

// Matrix returns the feature matrix the index was trained on.
func (ix *Index) Matrix() *feature.Matrix { return ix.matrix }

// QueryZone returns the k nearest zones to an already-fitted zone,
// including the zone itself at distance 0.
func (ix *Index) QueryZone(key string, k int) ([]Neighbor, error) {
	i, ok := ix.matrix.ZoneIndex(key)
	if !ok {
		return nil, fmt.Errorf("similarity: %q: %w", key, domain.ErrZoneNotFound)
	}
	return ix.nearest(ix.vectors[i], ix.norms[i], k), nil
}

// QueryRow transforms a synthetic query row through the fitted encoder and
// scaler and returns its k nearest zones. The row must be laid out against
// the full matrix column set; the index projects its own feature subset.
func (ix *Index) QueryRow(row feature.Row, k int) []Neighbor {
	_, catKeep := selectColumns(ix.matrix.CatCols, ix.cfg.Features)
	_, numKeep := selectColumns(ix.matrix.NumCols, ix.cfg.Features)
	v := ix.transform(project(row.Cat, catKeep), projectFloat(row.Num, numKeep))
	return ix.nearest(v, norm(v), k)
}

// nearest retrieves the k closest fitted rows. k saturates to [1, rows];
// ties keep the insertion order of the fitted matrix (stable).
func (ix *Index) nearest(query []float64, queryNorm float64, k int) []Neighbor {
	n := len(ix.vectors)
	if n == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	neighbors := make([]Neighbor, n)
	for i, v := range ix.vectors {
		var d float64
		switch ix.cfg.Metric {
		case MetricEuclidean:
			d = euclidean(query, v)
		default:
			d = cosineDistance(query, queryNorm, v, ix.norms[i])
		}
		neighbors[i] = Neighbor{Zone: ix.zones[i], Distance: d}
	}
	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})
	return neighbors[:k]
}

func (ix *Index) transform(cat []string, num []float64) []float64 {
	v := make([]float64, ix.enc.width+len(ix.numCols))
	w := ix.enc.encode(cat, v)
	ix.scaler.encode(num, v[w:])
	return v
}

// cosineDistance is 1 - cos(a, b). A zero-norm side yields the neutral
// distance 1 so degenerate queries rank behind real matches instead of
// producing NaN.
func cosineDistance(a []float64, na float64, b []float64, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	d := 1 - dot/(na*nb)
	if d < 0 {
		// float drift on identical vectors
		return 0
	}
	return d
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// selectColumns filters cols down to the configured feature subset.
// An empty subset keeps everything. keep holds the original positions of
// the surviving columns.
func selectColumns(cols []string, features []string) (selected []string, keep []int) {
	if len(features) == 0 {
		keep = make([]int, len(cols))
		for i := range cols {
			keep[i] = i
		}
		return cols, keep
	}
	want := make(map[string]struct{}, len(features))
	for _, f := range features {
		want[f] = struct{}{}
	}
	for i, c := range cols {
		if _, ok := want[c]; ok {
			selected = append(selected, c)
			keep = append(keep, i)
		}
	}
	return selected, keep
}

func project(row []string, keep []int) []string {
	if len(keep) == len(row) {
		return row
	}
	out := make([]string, len(keep))
	for i, j := range keep {
		out[i] = row[j]
	}
	return out
}

func projectFloat(row []float64, keep []int) []float64 {
	if len(keep) == len(row) {
		return row
	}
	out := make([]float64, len(keep))
	for i, j := range keep {
		out[i] = row[j]
	}
	return out
}
