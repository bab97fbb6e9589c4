package openweather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the provider circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("forecast provider circuit open")

// maxBodyBytes bounds the forecast payload; a 5-day response is ~20 KB.
const maxBodyBytes = 4 << 20

// Client implements domain.ForecastFetcher using the OpenWeatherMap 5-day /
// 3-hour forecast API. It performs exactly one GET per call and never retries.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	circuit    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a forecast client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		circuit: newCircuitBreaker(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newCircuitBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("forecast circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// FetchForecast returns the raw forecast body for a city.
func (c *Client) FetchForecast(ctx context.Context, city string) ([]byte, error) {
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	start := time.Now()
	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, fullURL)
	})
	c.metrics.ForecastAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.ForecastRequests.WithLabelValues("circuit_open").Inc()
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T from circuit breaker", result)
	}
	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	c.logger.Debug("forecast fetched", "city", city, "bytes", len(body))
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL, including the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read forecast body: %w", err)
	}
	return body, nil
}
