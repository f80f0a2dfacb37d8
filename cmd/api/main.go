package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mikebarrdiaz/redistour/internal/config"
	httpapi "github.com/mikebarrdiaz/redistour/internal/http"
	"github.com/mikebarrdiaz/redistour/internal/logging"
	"github.com/mikebarrdiaz/redistour/internal/occupancy"
	"github.com/mikebarrdiaz/redistour/internal/search"
	"github.com/mikebarrdiaz/redistour/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(cfg.Logging)
	log := logging.Logger()

	store, err := storage.OpenSQLite(cfg.Data.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Data.DatabasePath).Msg("open store")
	}
	defer store.Close()
	if err := store.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	ctx := context.Background()
	if err := seed(ctx, store, cfg.Data, log); err != nil {
		log.Fatal().Err(err).Msg("seed reference data")
	}

	forecasts, err := store.ForecastTable(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load forecast table")
	}
	enricher := occupancy.NewEnricher(forecasts)

	service := search.NewService(store, enricher, cfg.Recommend, log.With().Str("component", "search").Logger())
	server := httpapi.NewServer(service, store, log.With().Str("component", "http").Logger(), cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCtx.Done()
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// seed loads the JSON reference tables into the store. The zone table is
// required, either from the configured file or from a previous run;
// forecasts and travelers degrade gracefully when missing or malformed.
func seed(ctx context.Context, store *storage.SQLiteStore, data config.DataConfig, log zerolog.Logger) error {
	zones, err := storage.LoadZones(data.ZonesPath)
	if err != nil {
		count, countErr := store.CountZones(ctx)
		if countErr == nil && count > 0 {
			log.Warn().Err(err).Int("zones", count).Msg("zone file unavailable, keeping stored table")
			return nil
		}
		return fmt.Errorf("load zones: %w", err)
	}

	if descriptions, err := storage.LoadDescriptions(data.DescriptionsPath); err != nil {
		log.Warn().Err(err).Msg("descriptions unavailable")
	} else {
		for i := range zones {
			zones[i].Description = descriptions[zones[i].Key]
		}
	}
	if opinions, err := storage.LoadOpinions(data.OpinionsPath); err != nil {
		log.Warn().Err(err).Msg("opinions unavailable")
	} else {
		for i := range zones {
			zones[i].Opinions = opinions[zones[i].Key]
		}
	}
	if err := store.ReplaceZones(ctx, zones); err != nil {
		return fmt.Errorf("store zones: %w", err)
	}
	log.Info().Int("zones", len(zones)).Msg("zone table loaded")

	forecasts, err := storage.LoadForecasts(data.ForecastsPath)
	if err != nil {
		log.Warn().Err(err).Msg("forecast table unavailable, occupancy context disabled")
	}
	if err := store.ReplaceForecasts(ctx, forecasts); err != nil {
		return fmt.Errorf("store forecasts: %w", err)
	}
	log.Info().Int("rows", len(forecasts.Rows)).Msg("forecast table loaded")

	travelers, err := storage.LoadTravelers(data.TravelersPath)
	if err != nil {
		log.Warn().Err(err).Msg("traveler table unavailable, saturation map disabled")
		travelers = nil
	}
	if err := store.ReplaceTravelers(ctx, travelers); err != nil {
		return fmt.Errorf("store travelers: %w", err)
	}
	log.Info().Int("rows", len(travelers)).Msg("traveler table loaded")
	return nil
}
