// Package search orchestrates the two recommendation flows: alternatives
// to a chosen destination, and exact filtering with a similarity fallback.
// Each request runs one synchronous pipeline: feature lookup, index query,
// normalization, occupancy enrichment, ranking.
package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/feature"
	"github.com/mikebarrdiaz/redistour/internal/occupancy"
	"github.com/mikebarrdiaz/redistour/internal/ranking"
	"github.com/mikebarrdiaz/redistour/internal/similarity"
)

// ZoneSource supplies the zone reference table and its content fingerprint.
// The fingerprint keys the cached model: when it changes, the feature
// matrix and index are rebuilt lazily on the next request.
type ZoneSource interface {
	Zones(ctx context.Context) ([]domain.Zone, error)
	Fingerprint(ctx context.Context) (string, error)
}

// MatchStatus classifies a filter search outcome.
type MatchStatus string

const (
	// StatusExact means the filters matched at least one zone directly.
	StatusExact MatchStatus = "exact"
	// StatusApproximate means the fallback similarity search supplied the
	// results after the filters matched nothing.
	StatusApproximate MatchStatus = "approximate"
	// StatusNoMatch is the terminal non-error outcome when filters match
	// nothing and the fallback is disabled.
	StatusNoMatch MatchStatus = "no_match"
)

// Result is an ordered candidate list plus how it was obtained.
type Result struct {
	Status     MatchStatus        `json:"status"`
	Candidates []domain.Candidate `json:"candidates"`
}

// Service answers both recommendation flows over a cached model.
type Service struct {
	source   ZoneSource
	enricher *occupancy.Enricher
	cfg      similarity.Config
	log      zerolog.Logger

	cache similarity.Cache
	mu    sync.Mutex
	snap  atomic.Pointer[snapshot]
}

// snapshot pairs the fitted model with the zone rows it was built from,
// for display joins and synthetic-query statistics. Replaced wholesale,
// never mutated.
type snapshot struct {
	model *similarity.Model
	zones []domain.Zone
	byKey map[string]domain.Zone
}

// NewService wires a search service. The enricher is built once at load
// time; the model is built lazily on first use.
func NewService(source ZoneSource, enricher *occupancy.Enricher, cfg similarity.Config, log zerolog.Logger) *Service {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 10
	}
	return &Service{source: source, enricher: enricher, cfg: cfg, log: log}
}

// AlternativesRequest asks for the k destinations most similar to Zone,
// ranked by similarity and forecast occupancy at (Year, Month).
type AlternativesRequest struct {
	Zone  string
	K     int
	Year  int
	Month int
}

// Alternatives runs the "alternative destination" flow. The query zone is
// always surfaced with similarity 100; the remaining candidates carry
// p95-normalized scores and are reordered by the ranking engine.
func (s *Service) Alternatives(ctx context.Context, req AlternativesRequest) ([]domain.Candidate, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key := domain.NormalizeKey(req.Zone)
	k := req.K
	if k <= 0 {
		k = s.cfg.DefaultK
	}

	// k alternatives plus the query zone itself.
	neighbors, err := snap.model.Index.QueryZone(key, k+1)
	if err != nil {
		return nil, err
	}

	var dists []float64
	for _, n := range neighbors {
		if n.Zone != key {
			dists = append(dists, n.Distance)
		}
	}
	denom := similarity.ScoreDenominator(dists)

	candidates := make([]domain.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		c := snap.candidate(n.Zone, n.Distance)
		if n.Zone == key {
			c.Similarity = similarity.SelfScore
			c.Selected = true
		} else {
			c.Similarity = similarity.Score(n.Distance, denom)
		}
		candidates = append(candidates, c)
	}

	s.enrich(candidates, req.Year, req.Month)
	ranked := ranking.Rank(candidates)

	s.log.Debug().
		Str("zone", key).
		Int("k", k).
		Int("candidates", len(ranked)).
		Msg("alternatives ranked")
	return ranked, nil
}

// FindRequest filters the reference table exactly; when nothing matches
// and Fallback is set, a synthetic query profile is delegated to the
// similarity index instead.
type FindRequest struct {
	Filters  Filters
	K        int
	Year     int
	Month    int
	Fallback bool
}

// Find runs the "find your destination" flow.
func (s *Service) Find(ctx context.Context, req FindRequest) (Result, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	k := req.K
	if k <= 0 {
		k = s.cfg.DefaultK
	}

	matched := req.Filters.Apply(snap.zones)
	query := SyntheticQuery(snap.model.Matrix, snap.zones, req.Filters)

	if len(matched) > 0 {
		return Result{Status: StatusExact, Candidates: s.exactCandidates(snap, matched, query, req)}, nil
	}
	if !req.Fallback {
		s.log.Debug().Msg("filter search matched nothing, fallback disabled")
		return Result{Status: StatusNoMatch, Candidates: []domain.Candidate{}}, nil
	}

	neighbors := snap.model.Index.QueryRow(query, k)
	dists := make([]float64, len(neighbors))
	for i, n := range neighbors {
		dists[i] = n.Distance
	}
	denom := similarity.ScoreDenominator(dists)

	candidates := make([]domain.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		c := snap.candidate(n.Zone, n.Distance)
		c.Similarity = similarity.Score(n.Distance, denom)
		candidates = append(candidates, c)
	}
	s.enrich(candidates, req.Year, req.Month)

	return Result{Status: StatusApproximate, Candidates: ranking.Rank(candidates)}, nil
}

// exactCandidates attaches informational similarity (against the synthetic
// query profile) to the zones the filters matched directly. The p95 bound
// is taken over the matched subset's own distances.
func (s *Service) exactCandidates(snap *snapshot, matched []domain.Zone, query feature.Row, req FindRequest) []domain.Candidate {
	neighbors := snap.model.Index.QueryRow(query, snap.model.Index.Rows())
	distByZone := make(map[string]float64, len(neighbors))
	for _, n := range neighbors {
		distByZone[n.Zone] = n.Distance
	}

	dists := make([]float64, 0, len(matched))
	for _, z := range matched {
		if d, ok := distByZone[z.Key]; ok {
			dists = append(dists, d)
		}
	}
	denom := similarity.ScoreDenominator(dists)

	candidates := make([]domain.Candidate, 0, len(matched))
	for _, z := range matched {
		d := distByZone[z.Key]
		c := snap.candidate(z.Key, d)
		c.Similarity = similarity.Score(d, denom)
		candidates = append(candidates, c)
	}
	s.enrich(candidates, req.Year, req.Month)
	return ranking.Rank(candidates)
}

func (s *Service) enrich(candidates []domain.Candidate, year, month int) {
	zones := make([]string, len(candidates))
	for i, c := range candidates {
		zones[i] = c.Zone
	}
	breakdowns := s.enricher.Breakdowns(zones, year, month)
	for i := range candidates {
		candidates[i].Occupancy = breakdowns[candidates[i].Zone]
	}
}

// snapshot returns the current model, rebuilding it when the reference
// table's fingerprint changed. Readers of the previous snapshot are
// unaffected: the pointer is swapped atomically after the build completes.
func (s *Service) snapshot(ctx context.Context) (*snapshot, error) {
	fp, err := s.source.Fingerprint(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: fingerprint: %w", err)
	}
	if snap := s.snap.Load(); snap != nil && snap.model.Fingerprint == fp {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.snap.Load(); snap != nil && snap.model.Fingerprint == fp {
		return snap, nil
	}

	zones, err := s.source.Zones(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: load zones: %w", err)
	}

	model, err := s.cache.GetOrBuild(fp, func() (*feature.Matrix, *similarity.Index, error) {
		matrix, err := feature.Build(zones, domain.Catalog())
		if err != nil {
			return nil, nil, err
		}
		index, err := similarity.Fit(matrix, s.cfg)
		if err != nil {
			return nil, nil, err
		}
		return matrix, index, nil
	})
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]domain.Zone, len(zones))
	for _, z := range zones {
		byKey[z.Key] = z
	}
	snap := &snapshot{model: model, zones: zones, byKey: byKey}
	s.snap.Store(snap)

	s.log.Info().
		Str("fingerprint", fp).
		Int("zones", len(zones)).
		Str("metric", string(model.Index.Metric())).
		Msg("similarity model built")
	return snap, nil
}

func (sn *snapshot) candidate(key string, distance float64) domain.Candidate {
	c := domain.Candidate{Zone: key, Distance: distance}
	if z, ok := sn.byKey[key]; ok {
		c.Name = z.Name
		c.Community = z.Community
		c.Province = z.Province
		c.Description = z.Description
		c.Opinions = z.Opinions
	}
	return c
}
