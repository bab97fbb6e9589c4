//go:build openweather

package openweather

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/config"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real OpenWeatherMap API and require FORECAST_API_KEY.
// Run with: go test -tags=openweather ./internal/adapter/openweather/ -v -count=1

func TestSmoke_FetchForecast(t *testing.T) {
	key := os.Getenv("FORECAST_API_KEY")
	if key == "" {
		t.Fatal("FORECAST_API_KEY must be set to run smoke tests")
	}
	c := NewClient(key, config.DefaultForecastBaseURL, 10*time.Second, observability.NewMetricsForTesting(), discardLogger())

	body, err := c.FetchForecast(context.Background(), "London")
	require.NoError(t, err)

	samples, err := domain.ParseForecast(body)
	require.NoError(t, err)
	assert.NotEmpty(t, samples)

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format(time.DateOnly)
	res := domain.AggregateSamples(samples, tomorrow)
	assert.True(t, res.HasMatchingSamples)
}
