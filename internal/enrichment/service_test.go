package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/openweather"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, s domain.GraphStore, fetcher domain.ForecastFetcher) (*Service, *observability.Metrics) {
	t.Helper()
	reg, err := ResolveConcepts(context.Background(), s)
	require.NoError(t, err)
	m := observability.NewMetricsForTesting()
	return NewService(s, reg, fetcher, domain.DefaultRainThreshold, discardLogger(), m), m
}

var minskRequest = domain.Request{RequestID: "req-1", InputStructure: "weather_request_1"}

func TestService_MinskRainyDay(t *testing.T) {
	ctx := context.Background()
	s := loadSeed(t, "minsk.yaml")
	fetcher := &stubFetcher{body: minskForecast}
	svc, m := newTestService(t, s, fetcher)

	out, err := svc.Enrich(ctx, minskRequest)
	require.NoError(t, err)

	assert.Equal(t, []string{"Minsk"}, fetcher.cities)
	assert.Equal(t, "2024-06-01", out.Date)
	assert.Equal(t, 2, out.Aggregate.MatchingSamples)
	assert.InDelta(t, 0.7, out.Aggregate.MaxPrecipitationProbability, 1e-9)
	assert.True(t, out.IsRain)
	assert.Equal(t, domain.PathReplaced, out.Upsert.Path)

	members, err := s.Members(ctx, addr(t, s, domain.IdtfConceptRain))
	require.NoError(t, err)
	assert.Equal(t, []domain.Addr{addr(t, s, domain.IdtfTrue)}, members)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Enrichments.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.UpsertPaths.WithLabelValues("replaced")), 0)
}

func TestService_DryDayInPlace(t *testing.T) {
	ctx := context.Background()
	s := loadSeed(t, "in_place.yaml")
	fact := addr(t, s, "rain_value")
	svc, _ := newTestService(t, s, &stubFetcher{body: dryForecast})

	out, err := svc.Enrich(ctx, minskRequest)
	require.NoError(t, err)
	assert.False(t, out.IsRain)
	assert.Equal(t, domain.PathInPlace, out.Upsert.Path)

	idtf, err := s.Identifier(ctx, fact)
	require.NoError(t, err)
	assert.Equal(t, domain.IdtfFalse, idtf)
}

func TestService_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := loadSeed(t, "minsk.yaml")
	svc, _ := newTestService(t, s, &stubFetcher{body: minskForecast})

	_, err := svc.Enrich(ctx, minskRequest)
	require.NoError(t, err)
	after := s.Snapshot()

	second, err := svc.Enrich(ctx, minskRequest)
	require.NoError(t, err)
	assert.Equal(t, domain.PathInPlace, second.Upsert.Path)
	assert.Equal(t, after, s.Snapshot(), "second run leaves the graph unchanged")
}

func TestService_ProviderErrorLeavesGraphUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := &spyStore{Store: loadSeed(t, "minsk.yaml")}
	before := s.Snapshot()
	client := openweather.NewClient("key", srv.URL, time.Second, observability.NewMetricsForTesting(), discardLogger())
	svc, m := newTestService(t, s, client)

	_, err := svc.Enrich(context.Background(), minskRequest)
	require.Error(t, err)
	assert.Equal(t, domain.KindTransport, domain.KindOf(err))

	var ee *domain.EnrichmentError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, domain.StageFetching, ee.Stage)

	assert.Zero(t, s.writes.Load())
	assert.Equal(t, before, s.Snapshot())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Enrichments.WithLabelValues(string(domain.KindTransport))), 0)
}

func TestService_Failures(t *testing.T) {
	tests := []struct {
		name     string
		fetcher  *stubFetcher
		req      domain.Request
		wantKind domain.ErrorKind
		wantErr  error
	}{
		{
			name:     "no forecast for date",
			fetcher:  &stubFetcher{body: `{"list":[]}`},
			req:      minskRequest,
			wantKind: domain.KindNoForecastForDate,
			wantErr:  domain.ErrNoForecastForDate,
		},
		{
			name:     "only other days",
			fetcher:  &stubFetcher{body: `{"list":[{"dt_txt":"2024-06-02 00:00:00","pop":1}]}`},
			req:      minskRequest,
			wantKind: domain.KindNoForecastForDate,
			wantErr:  domain.ErrNoForecastForDate,
		},
		{
			name:     "invalid response",
			fetcher:  &stubFetcher{body: `not json`},
			req:      minskRequest,
			wantKind: domain.KindInvalidResponse,
		},
		{
			name:     "transport",
			fetcher:  &stubFetcher{err: errors.New("connection refused")},
			req:      minskRequest,
			wantKind: domain.KindTransport,
		},
		{
			name:     "missing input structure",
			fetcher:  &stubFetcher{body: minskForecast},
			req:      domain.Request{InputStructure: "nope"},
			wantKind: domain.KindMissingInput,
			wantErr:  domain.ErrInputStructureNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &spyStore{Store: loadSeed(t, "minsk.yaml")}
			before := s.Snapshot()
			svc, _ := newTestService(t, s, tt.fetcher)

			_, err := svc.Enrich(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.Zero(t, s.writes.Load(), "failed run must not write")
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestService_MissingInputSkipsFetch(t *testing.T) {
	s := loadSeed(t, "minsk.yaml")
	fetcher := &stubFetcher{body: minskForecast}
	svc, _ := newTestService(t, s, fetcher)

	_, err := svc.Enrich(context.Background(), domain.Request{InputStructure: "weather_request_1", City: "Atlantis"})
	require.ErrorIs(t, err, domain.ErrCityNotFound)
	assert.Empty(t, fetcher.cities)
}

func TestService_GraphWriteFailure(t *testing.T) {
	s := &spyStore{Store: loadSeed(t, "minsk.yaml")}
	svc, _ := newTestService(t, s, &stubFetcher{body: minskForecast})
	s.failErr = errStoreDown

	_, err := svc.Enrich(context.Background(), minskRequest)
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, domain.KindGraphWriteFailure, domain.KindOf(err))
}
