package http_test

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/openweather"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
)

func openweatherClient(baseURL string, metrics *observability.Metrics, logger *slog.Logger) *openweather.Client {
	return openweather.NewClient("test-key", baseURL, 5*time.Second, metrics, logger)
}
