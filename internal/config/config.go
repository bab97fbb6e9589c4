package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	// Forecast provider configuration.
	ForecastAPIKey    string
	ForecastBaseURL   string
	ForecastTimeout   time.Duration
	ForecastCacheSize int
	ForecastCacheTTL  time.Duration
	RainThreshold     float64

	// GraphSeedFile optionally preloads the in-memory graph.
	GraphSeedFile string
}

// DefaultForecastBaseURL is the 5-day / 3-hour forecast endpoint.
const DefaultForecastBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	forecastTimeout, err := parsePositiveDuration("FORECAST_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("FORECAST_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	threshold, err := parseRainThreshold()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "weather-actions"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "weather-action-results"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "rain-fact-enricher"),
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		ForecastAPIKey:    os.Getenv("FORECAST_API_KEY"),
		ForecastBaseURL:   sharedcfg.EnvOrDefault("FORECAST_BASE_URL", DefaultForecastBaseURL),
		ForecastTimeout:   forecastTimeout,
		ForecastCacheSize: cacheSize,
		ForecastCacheTTL:  cacheTTL,
		RainThreshold:     threshold,

		GraphSeedFile: os.Getenv("GRAPH_SEED_FILE"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.ForecastAPIKey == "" {
		return nil, errors.New("FORECAST_API_KEY is required")
	}
	if cfg.ForecastBaseURL == "" {
		return nil, errors.New("FORECAST_BASE_URL must not be empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseCacheSize() (int, error) {
	s := os.Getenv("FORECAST_CACHE_SIZE")
	if s == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid FORECAST_CACHE_SIZE: must be a non-negative integer")
	}
	return n, nil
}

func parseRainThreshold() (float64, error) {
	s := os.Getenv("RAIN_THRESHOLD")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, errors.New("invalid RAIN_THRESHOLD: must be a probability between 0 and 1")
	}
	return v, nil
}
