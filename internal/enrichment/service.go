package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
)

// Service runs the rain-fact enrichment: resolve, fetch, aggregate, upsert.
// Runs are synchronous and serialized, and stop at the first failure without
// undoing graph writes already made.
type Service struct {
	mu        sync.Mutex
	finder    *Finder
	fetcher   domain.ForecastFetcher
	upserter  *Upserter
	concepts  domain.ConceptRegistry
	threshold float64
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService wires the enrichment components around a graph store.
func NewService(store domain.GraphStore, concepts domain.ConceptRegistry, fetcher domain.ForecastFetcher, threshold float64, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		finder:    NewFinder(store, concepts),
		fetcher:   fetcher,
		upserter:  NewUpserter(store, logger),
		concepts:  concepts,
		threshold: threshold,
		logger:    logger,
		metrics:   metrics,
	}
}

// Enrich computes and stores the rain fact for one request. Failures are
// returned as *domain.EnrichmentError.
func (s *Service) Enrich(ctx context.Context, req domain.Request) (domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	logger := s.logger.With("request_id", req.RequestID, "input_structure", req.InputStructure)

	outcome, err := s.run(ctx, req, logger)
	s.metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		kind := domain.KindOf(err)
		s.metrics.Enrichments.WithLabelValues(string(kind)).Inc()
		var ee *domain.EnrichmentError
		stage := domain.StageFailed
		if errors.As(err, &ee) {
			stage = ee.Stage
		}
		logger.Error("enrichment failed", "kind", string(kind), "stage", string(stage), "error", err)
		return domain.Outcome{}, err
	}

	s.metrics.Enrichments.WithLabelValues("success").Inc()
	s.metrics.UpsertPaths.WithLabelValues(string(outcome.Upsert.Path)).Inc()
	logger.Info("rain fact committed",
		"city", outcome.City,
		"date", outcome.Date,
		"max_pop", outcome.Aggregate.MaxPrecipitationProbability,
		"is_rain", outcome.IsRain,
		"path", string(outcome.Upsert.Path),
	)
	return outcome, nil
}

func (s *Service) run(ctx context.Context, req domain.Request, logger *slog.Logger) (domain.Outcome, error) {
	in, err := s.finder.Resolve(ctx, req)
	if err != nil {
		return domain.Outcome{}, domain.NewError(domain.KindMissingInput, domain.StageResolving, err)
	}
	logger.Debug("inputs resolved", "stage", string(domain.StageResolved), "city", in.CityName, "date", in.DateISO, "fact", in.Fact.String())

	raw, err := s.fetcher.FetchForecast(ctx, in.CityName)
	if err != nil {
		return domain.Outcome{}, domain.NewError(domain.KindTransport, domain.StageFetching, err)
	}

	agg, err := domain.Aggregate(raw, in.DateISO)
	if err != nil {
		return domain.Outcome{}, domain.NewError(domain.KindInvalidResponse, domain.StageAggregated, err)
	}
	if !agg.HasMatchingSamples {
		// Any fact from an earlier run is left as is.
		return domain.Outcome{}, domain.NewError(domain.KindNoForecastForDate, domain.StageAggregated, domain.ErrNoForecastForDate)
	}
	isRain := domain.IsRain(agg.MaxPrecipitationProbability, s.threshold)
	logger.Debug("forecast aggregated",
		"samples", agg.MatchingSamples,
		"max_pop", agg.MaxPrecipitationProbability,
		"is_rain", isRain,
	)

	upsert, err := s.upserter.Upsert(ctx, isRain, in.Fact, domain.Anchors{
		Concepts:       s.concepts,
		Weather:        in.Weather,
		InputStructure: in.InputStructure,
	})
	if err != nil {
		return domain.Outcome{}, domain.NewError(domain.KindGraphWriteFailure, domain.StageUpserting, err)
	}

	logger.Debug("upsert finished", "stage", string(upsertStage(upsert.Path)))
	return domain.Outcome{
		City:      in.CityName,
		Date:      in.DateISO,
		Aggregate: agg,
		IsRain:    isRain,
		Upsert:    upsert,
	}, nil
}

func upsertStage(p domain.UpsertPath) domain.Stage {
	if p == domain.PathReplaced {
		return domain.StageReplaced
	}
	return domain.StageInPlaceUpdated
}
