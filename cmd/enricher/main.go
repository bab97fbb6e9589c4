package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/rain-fact-enricher/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rain-fact-enricher/internal/adapter/kafka"
	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/memgraph"
	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/openweather"
	"github.com/couchcryptid/rain-fact-enricher/internal/config"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/enrichment"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	"github.com/couchcryptid/rain-fact-enricher/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := loadGraph(ctx, cfg.GraphSeedFile)
	if err != nil {
		logger.Error("failed to load graph", "error", err)
		os.Exit(1)
	}
	concepts, err := enrichment.ResolveConcepts(ctx, store)
	if err != nil {
		logger.Error("failed to resolve concepts", "error", err)
		os.Exit(1)
	}

	var fetcher domain.ForecastFetcher = openweather.NewClient(cfg.ForecastAPIKey, cfg.ForecastBaseURL, cfg.ForecastTimeout, metrics, logger)
	if cfg.ForecastCacheSize > 0 {
		fetcher = openweather.NewCachedFetcher(fetcher, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, clockwork.NewRealClock(), metrics)
		logger.Info("forecast cache enabled", "size", cfg.ForecastCacheSize, "ttl", cfg.ForecastCacheTTL)
	}

	svc := enrichment.NewService(store, concepts, fetcher, cfg.RainThreshold, logger, metrics)
	handler := pipeline.NewHandler(svc, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	p := pipeline.New(reader, handler, writer, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, pipeline.AnyReady{p, handler}, handler, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start action pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// loadGraph builds the memory store from seedFile, or with only the concept
// nodes when no seed is configured.
func loadGraph(ctx context.Context, seedFile string) (*memgraph.Store, error) {
	if seedFile == "" {
		return memgraph.NewWithConcepts(ctx)
	}
	return memgraph.LoadSeedFile(ctx, seedFile)
}
