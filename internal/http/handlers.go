package httpapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/search"
)

// ---- Recommendation flows ----

type AlternativesRequest struct {
	Zone  string `json:"zone" validate:"required"`
	K     int    `json:"k" validate:"omitempty,min=1,max=100"`
	Year  int    `json:"year" validate:"required,min=2000,max=2100"`
	Month int    `json:"month" validate:"required,min=1,max=12"`
}

type CandidatesResponse struct {
	Status     search.MatchStatus `json:"status,omitempty"`
	Candidates []CandidateView    `json:"candidates"`
}

// CandidateView is the presentation shape of a candidate: score with one
// decimal of precision, occupancy per category with an explicit null for
// "no data".
type CandidateView struct {
	Zone       string               `json:"zone"`
	Name       string               `json:"name,omitempty"`
	Community  string               `json:"community,omitempty"`
	Province   string               `json:"province,omitempty"`
	Similarity string               `json:"similarity"`
	Occupancy  map[string]*float64  `json:"occupancy"`
	Mean       *float64             `json:"mean_occupancy"`
	Selected   bool                 `json:"selected"`
	Desc       string               `json:"description,omitempty"`
	Opinions   []string             `json:"opinions,omitempty"`
}

func candidateViews(candidates []domain.Candidate) []CandidateView {
	out := make([]CandidateView, 0, len(candidates))
	for _, c := range candidates {
		occ := make(map[string]*float64, len(c.Occupancy))
		for cat, v := range c.Occupancy {
			occ[string(cat)] = v
		}
		view := CandidateView{
			Zone:       c.Zone,
			Name:       c.Name,
			Community:  c.Community,
			Province:   c.Province,
			Similarity: formatScore(c.Similarity),
			Occupancy:  occ,
			Selected:   c.Selected,
			Desc:       c.Description,
			Opinions:   c.Opinions,
		}
		if mean, ok := c.MeanOccupancy(); ok {
			view.Mean = &mean
		}
		out = append(out, view)
	}
	return out
}

// formatScore renders a similarity with one decimal, e.g. "87.5".
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 1, 64)
}

func (s *Server) handleAlternatives(w http.ResponseWriter, r *http.Request) {
	var req AlternativesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	start := time.Now()
	candidates, err := s.Service.Alternatives(r.Context(), search.AlternativesRequest{
		Zone: req.Zone, K: req.K, Year: req.Year, Month: req.Month,
	})
	searchDuration.WithLabelValues("alternatives").Observe(time.Since(start).Seconds())
	if err != nil {
		searchesTotal.WithLabelValues("alternatives", "error").Inc()
		s.writeServiceError(w, err)
		return
	}
	searchesTotal.WithLabelValues("alternatives", "ok").Inc()

	writeJSON(w, http.StatusOK, CandidatesResponse{Candidates: candidateViews(candidates)})
}

type SearchRequest struct {
	Filters  search.Filters `json:"filters"`
	K        int            `json:"k" validate:"omitempty,min=1,max=100"`
	Year     int            `json:"year" validate:"required,min=2000,max=2100"`
	Month    int            `json:"month" validate:"required,min=1,max=12"`
	Fallback bool           `json:"fallback"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	start := time.Now()
	result, err := s.Service.Find(r.Context(), search.FindRequest{
		Filters:  req.Filters,
		K:        req.K,
		Year:     req.Year,
		Month:    req.Month,
		Fallback: req.Fallback,
	})
	searchDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	if err != nil {
		searchesTotal.WithLabelValues("search", "error").Inc()
		s.writeServiceError(w, err)
		return
	}
	searchesTotal.WithLabelValues("search", string(result.Status)).Inc()

	writeJSON(w, http.StatusOK, CandidatesResponse{
		Status:     result.Status,
		Candidates: candidateViews(result.Candidates),
	})
}

// ---- Zone catalog ----

type ZonesListResponse struct {
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Total  int           `json:"total"`
	Items  []domain.Zone `json:"items"`
}

func (s *Server) handleZonesList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > 200 {
		limit = 200
	}
	offset := queryInt(r, "offset", 0)

	zones, total, err := s.Store.ListZones(r.Context(), limit, offset,
		r.URL.Query().Get("community"), r.URL.Query().Get("province"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if zones == nil {
		zones = []domain.Zone{}
	}
	writeJSON(w, http.StatusOK, ZonesListResponse{Limit: limit, Offset: offset, Total: total, Items: zones})
}

func (s *Server) handleZoneGet(w http.ResponseWriter, r *http.Request) {
	key := domain.NormalizeKey(chi.URLParam(r, "key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing_key", "zone key required")
		return
	}
	zone, found, err := s.Store.GetZone(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "zone_not_found", key)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// ---- Filter options ----

type FilterOptionsResponse struct {
	Categorical map[string][]string `json:"categorical"`
	AltitudeMin *float64            `json:"altitude_min,omitempty"`
	AltitudeMax *float64            `json:"altitude_max,omitempty"`
}

// handleFilterOptions derives the selectable values for each filterable
// attribute, plus the altitude range, from the current reference table.
func (s *Server) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	zones, err := s.Store.Zones(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := FilterOptionsResponse{Categorical: make(map[string][]string)}
	for _, attr := range domain.FilterableAttributes() {
		seen := make(map[string]struct{})
		for _, z := range zones {
			if v := z.Categorical[attr]; v != "" {
				seen[v] = struct{}{}
			}
		}
		if len(seen) == 0 {
			continue
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		resp.Categorical[attr] = values
	}

	for _, z := range zones {
		alt, ok := z.Numeric[domain.AttrAltitude]
		if !ok {
			continue
		}
		if resp.AltitudeMin == nil || alt < *resp.AltitudeMin {
			v := alt
			resp.AltitudeMin = &v
		}
		if resp.AltitudeMax == nil || alt > *resp.AltitudeMax {
			v := alt
			resp.AltitudeMax = &v
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- Saturation map and history data ----

func (s *Server) handleSaturation(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", 0)
	month := queryInt(r, "month", 0)
	if month < 0 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must be 1-12")
		return
	}

	cats := domain.Categories()
	if raw := r.URL.Query().Get("categories"); raw != "" {
		cats = cats[:0]
		for _, c := range strings.Split(raw, ",") {
			cat := domain.Category(strings.TrimSpace(c))
			if _, ok := knownCategory(cat); !ok {
				writeError(w, http.StatusBadRequest, "invalid_category", string(cat))
				return
			}
			cats = append(cats, cat)
		}
	}

	points, err := s.Store.Saturation(r.Context(), year, month, cats)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	zone := domain.NormalizeKey(r.URL.Query().Get("zone"))
	if zone == "" {
		writeError(w, http.StatusBadRequest, "missing_zone", "zone query parameter required")
		return
	}
	cat := domain.Category(r.URL.Query().Get("category"))
	if cat == "" {
		cat = domain.CategoryHotel
	}
	if _, ok := knownCategory(cat); !ok {
		writeError(w, http.StatusBadRequest, "invalid_category", string(cat))
		return
	}

	points, err := s.Store.History(r.Context(), zone, cat)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"zone": zone, "category": cat, "points": points})
}

func knownCategory(c domain.Category) (domain.Category, bool) {
	for _, known := range domain.Categories() {
		if c == known {
			return c, true
		}
	}
	return c, false
}
