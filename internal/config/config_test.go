package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker = "localhost:9092"
	testAPIKey    = "owm-test-key"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FORECAST_API_KEY", testAPIKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "weather-actions", cfg.KafkaSourceTopic)
	assert.Equal(t, "weather-action-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "rain-fact-enricher", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, testAPIKey, cfg.ForecastAPIKey)
	assert.Equal(t, DefaultForecastBaseURL, cfg.ForecastBaseURL)
	assert.Equal(t, 10*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, 100, cfg.ForecastCacheSize)
	assert.Equal(t, 10*time.Minute, cfg.ForecastCacheTTL)
	assert.InDelta(t, 0.5, cfg.RainThreshold, 0)
	assert.Empty(t, cfg.GraphSeedFile)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("FORECAST_API_KEY", testAPIKey)
	t.Setenv("FORECAST_BASE_URL", "http://localhost:9999/forecast")
	t.Setenv("FORECAST_TIMEOUT", "3s")
	t.Setenv("FORECAST_CACHE_SIZE", "0")
	t.Setenv("FORECAST_CACHE_TTL", "1m")
	t.Setenv("RAIN_THRESHOLD", "0.3")
	t.Setenv("GRAPH_SEED_FILE", "/etc/enricher/graph.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:9999/forecast", cfg.ForecastBaseURL)
	assert.Equal(t, 3*time.Second, cfg.ForecastTimeout)
	assert.Equal(t, 0, cfg.ForecastCacheSize)
	assert.Equal(t, time.Minute, cfg.ForecastCacheTTL)
	assert.InDelta(t, 0.3, cfg.RainThreshold, 1e-9)
	assert.Equal(t, "/etc/enricher/graph.yaml", cfg.GraphSeedFile)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_API_KEY")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("FORECAST_API_KEY", testAPIKey)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidForecastTimeout(t *testing.T) {
	t.Setenv("FORECAST_API_KEY", testAPIKey)
	t.Setenv("FORECAST_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_TIMEOUT")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	t.Setenv("FORECAST_API_KEY", testAPIKey)
	t.Setenv("FORECAST_CACHE_TTL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_CACHE_TTL")
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("FORECAST_API_KEY", testAPIKey)
	t.Setenv("FORECAST_CACHE_SIZE", "-5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_CACHE_SIZE")
}

func TestLoad_RainThresholdOutOfRange(t *testing.T) {
	for _, v := range []string{"1.5", "-0.1", "half"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("FORECAST_API_KEY", testAPIKey)
			t.Setenv("RAIN_THRESHOLD", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "RAIN_THRESHOLD")
		})
	}
}
