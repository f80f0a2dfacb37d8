// Package httpapi exposes the recommender core as a thin JSON API for the
// dashboard front end.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mikebarrdiaz/redistour/internal/domain"
	"github.com/mikebarrdiaz/redistour/internal/search"
	"github.com/mikebarrdiaz/redistour/internal/storage"
)

type Server struct {
	Service  *search.Service
	Store    *storage.SQLiteStore
	log      zerolog.Logger
	validate *validator.Validate
	origins  []string
}

func NewServer(service *search.Service, store *storage.SQLiteStore, log zerolog.Logger, corsOrigins []string) *Server {
	return &Server{
		Service:  service,
		Store:    store,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		origins:  corsOrigins,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/zones", s.handleZonesList)
		r.Get("/zones/{key}", s.handleZoneGet)
		r.Get("/filters/options", s.handleFilterOptions)
		r.Post("/recommend/alternatives", s.handleAlternatives)
		r.Post("/recommend/search", s.handleSearch)
		r.Get("/map/saturation", s.handleSaturation)
		r.Get("/history", s.handleHistory)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}

// writeServiceError maps core error taxonomy onto HTTP statuses: unknown
// zones are 404, data-shape problems are 422 (fix the reference data),
// everything else is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrZoneNotFound):
		writeError(w, http.StatusNotFound, "zone_not_found", err.Error())
	case errors.Is(err, domain.ErrMissingIdentityColumn):
		writeError(w, http.StatusUnprocessableEntity, "missing_identity_column", err.Error())
	case errors.Is(err, domain.ErrEmptyFeatureSet):
		writeError(w, http.StatusUnprocessableEntity, "empty_feature_set", err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
