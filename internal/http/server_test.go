package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/occupancy"
	"github.com/mikebarrdiaz/redistour/internal/search"
	"github.com/mikebarrdiaz/redistour/internal/similarity"
	"github.com/mikebarrdiaz/redistour/internal/storage"
)

func fp(v float64) *float64 { return &v }

func testServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.EnsureSchema())

	zones := []domain.Zone{
		{
			Key: "COSTA BRAVA", Name: "Costa Brava",
			Community:   "Cataluña", Province: "Girona",
			Lat:         fp(41.9), Lon: fp(3.1),
			Categorical: map[string]string{domain.AttrLocationType: "costa"},
			Numeric:     map[string]float64{domain.AttrAltitude: 20},
		},
		{
			Key: "COSTA DEL SOL", Name: "Costa del Sol",
			Community:   "Andalucía", Province: "Málaga",
			Categorical: map[string]string{domain.AttrLocationType: "costa"},
			Numeric:     map[string]float64{domain.AttrAltitude: 30},
		},
		{
			Key: "PIRINEO ARAGONES", Name: "Pirineo Aragonés",
			Community:   "Aragón", Province: "Huesca",
			Categorical: map[string]string{domain.AttrLocationType: "montaña"},
			Numeric:     map[string]float64{domain.AttrAltitude: 1500},
		},
	}
	ctx := context.Background()
	require.NoError(t, store.ReplaceZones(ctx, zones))

	forecasts := &domain.ForecastTable{
		Available: map[domain.Category]bool{domain.CategoryHotel: true},
		Rows: []domain.ForecastRow{
			{ZoneKey: "COSTA DEL SOL", Year: 2026, Month: 8,
				Rates: map[domain.Category]*float64{domain.CategoryHotel: fp(92)}},
		},
	}
	require.NoError(t, store.ReplaceForecasts(ctx, forecasts))

	travelers := []domain.TravelerRow{
		{ZoneKey: "COSTA BRAVA", Year: 2025, Month: 8,
			Counts: map[domain.Category]*float64{domain.CategoryHotel: fp(12000)}},
	}
	require.NoError(t, store.ReplaceTravelers(ctx, travelers))

	service := search.NewService(store, occupancy.NewEnricher(forecasts),
		similarity.Config{DefaultK: 3}, zerolog.Nop())
	return NewServer(service, store, zerolog.Nop(), []string{"*"})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := testServer(t).Routes()
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAlternativesEndpoint(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/recommend/alternatives", AlternativesRequest{
		Zone: "costa brava", K: 2, Year: 2026, Month: 8,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[CandidatesResponse](t, rec)
	require.Len(t, resp.Candidates, 3)

	self := resp.Candidates[0]
	assert.Equal(t, "COSTA BRAVA", self.Zone)
	assert.Equal(t, "Costa Brava", self.Name)
	assert.True(t, self.Selected)
	assert.Equal(t, "100.0", self.Similarity)

	// forecast carried only the hotel column
	var sol *CandidateView
	for i := range resp.Candidates {
		if resp.Candidates[i].Zone == "COSTA DEL SOL" {
			sol = &resp.Candidates[i]
		}
	}
	require.NotNil(t, sol)
	require.NotNil(t, sol.Occupancy["hotel"])
	assert.InDelta(t, 92, *sol.Occupancy["hotel"], 1e-9)
	require.NotNil(t, sol.Mean)
}

func TestAlternativesUnknownZone(t *testing.T) {
	h := testServer(t).Routes()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/recommend/alternatives", AlternativesRequest{
		Zone: "Atlantis", Year: 2026, Month: 8,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlternativesValidation(t *testing.T) {
	h := testServer(t).Routes()

	// missing zone and period
	rec := doJSON(t, h, http.MethodPost, "/api/v1/recommend/alternatives", map[string]any{"k": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed body
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend/alternatives",
		bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestSearchExact(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/recommend/search", SearchRequest{
		Filters: search.Filters{Categorical: map[string][]string{
			domain.AttrLocationType: {"costa"},
		}},
		Year: 2026, Month: 8,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[CandidatesResponse](t, rec)
	assert.Equal(t, search.StatusExact, resp.Status)
	assert.Len(t, resp.Candidates, 2)
}

func TestSearchNoMatchAndFallback(t *testing.T) {
	h := testServer(t).Routes()
	filters := search.Filters{Categorical: map[string][]string{
		domain.AttrLocationType: {"isla"},
	}}

	rec := doJSON(t, h, http.MethodPost, "/api/v1/recommend/search", SearchRequest{
		Filters: filters, Year: 2026, Month: 8,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[CandidatesResponse](t, rec)
	assert.Equal(t, search.StatusNoMatch, resp.Status)
	assert.Empty(t, resp.Candidates)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/recommend/search", SearchRequest{
		Filters: filters, K: 2, Year: 2026, Month: 8, Fallback: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[CandidatesResponse](t, rec)
	assert.Equal(t, search.StatusApproximate, resp.Status)
	assert.Len(t, resp.Candidates, 2)
}

func TestZonesList(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/zones?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ZonesListResponse](t, rec)
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Items, 2)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/zones?community=arag", nil)
	resp = decode[ZonesListResponse](t, rec)
	assert.Equal(t, 1, resp.Total)
}

func TestZoneGetFoldsKey(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/zones/costa%20brava", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	z := decode[domain.Zone](t, rec)
	assert.Equal(t, "Costa Brava", z.Name)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/zones/atlantis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterOptions(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/filters/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[FilterOptionsResponse](t, rec)
	assert.ElementsMatch(t, []string{"costa", "montaña"}, resp.Categorical[domain.AttrLocationType])
	require.NotNil(t, resp.AltitudeMin)
	assert.InDelta(t, 20, *resp.AltitudeMin, 1e-9)
	require.NotNil(t, resp.AltitudeMax)
	assert.InDelta(t, 1500, *resp.AltitudeMax, 1e-9)
}

func TestSaturationEndpoint(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/map/saturation?year=2025&month=8", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Points []storage.SaturationPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 1)
	assert.Equal(t, "COSTA BRAVA", resp.Points[0].Zone)
	assert.InDelta(t, 12000, resp.Points[0].Travelers, 1e-9)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/map/saturation?categories=hostel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/history?zone=costa+brava", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Zone     string                 `json:"zone"`
		Category string                 `json:"category"`
		Points   []storage.HistoryPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "COSTA BRAVA", resp.Zone)
	assert.Equal(t, "hotel", resp.Category)
	require.Len(t, resp.Points, 1)

	rec = doJSON(t, h, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	h := testServer(t).Routes()

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	assert.Equal(t, "fixed-id", rec2.Header().Get(requestIDHeader))
}
