package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultRainThreshold is the precipitation probability at or above which a
// day counts as rainy.
const DefaultRainThreshold = 0.5

// ForecastFetcher retrieves the raw multi-day forecast for a city.
type ForecastFetcher interface {
	FetchForecast(ctx context.Context, city string) ([]byte, error)
}

// ForecastSample is a single 3-hour forecast point.
type ForecastSample struct {
	Timestamp                string
	PrecipitationProbability float64
}

// AggregateResult summarizes the samples that fall on the target day.
type AggregateResult struct {
	HasMatchingSamples          bool
	MatchingSamples             int
	MaxPrecipitationProbability float64
}

// forecastResponse mirrors the parts of the provider payload we read.
type forecastResponse struct {
	List []struct {
		DtTxt string   `json:"dt_txt"`
		Pop   *float64 `json:"pop"`
	} `json:"list"`
}

// ParseForecast decodes a provider response into samples. A missing "pop" is
// reported as 0 and a missing "list" as no samples.
func ParseForecast(raw []byte) ([]ForecastSample, error) {
	var resp forecastResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse forecast: %w", err)
	}

	samples := make([]ForecastSample, 0, len(resp.List))
	for _, item := range resp.List {
		s := ForecastSample{Timestamp: item.DtTxt}
		if item.Pop != nil {
			s.PrecipitationProbability = *item.Pop
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Aggregate parses raw and reduces the samples on targetDateISO to their
// maximum precipitation probability. Having no matching sample is not an
// error here; callers check HasMatchingSamples.
func Aggregate(raw []byte, targetDateISO string) (AggregateResult, error) {
	samples, err := ParseForecast(raw)
	if err != nil {
		return AggregateResult{}, err
	}
	return AggregateSamples(samples, targetDateISO), nil
}

// AggregateSamples is Aggregate for already decoded samples.
func AggregateSamples(samples []ForecastSample, targetDateISO string) AggregateResult {
	var res AggregateResult
	for _, s := range samples {
		if !SameDay(s.Timestamp, targetDateISO) {
			continue
		}
		if res.MatchingSamples == 0 || s.PrecipitationProbability > res.MaxPrecipitationProbability {
			res.MaxPrecipitationProbability = s.PrecipitationProbability
		}
		res.MatchingSamples++
	}
	res.HasMatchingSamples = res.MatchingSamples > 0
	return res
}

// SameDay reports whether a provider timestamp falls on the given ISO date,
// comparing the leading "YYYY-MM-DD" of both strings.
func SameDay(timestamp, dateISO string) bool {
	if len(timestamp) < 10 || len(dateISO) < 10 {
		return false
	}
	return timestamp[:10] == dateISO[:10]
}

// IsRain applies the rain threshold. The boundary value counts as rain.
func IsRain(maxPrecipitationProbability, threshold float64) bool {
	return maxPrecipitationProbability >= threshold
}

// NormalizeDate converts a graph date identifier such as "2024_06_01" to
// "2024-06-01" and checks that it is a real calendar date.
func NormalizeDate(identifier string) (string, error) {
	iso := strings.ReplaceAll(strings.TrimSpace(identifier), "_", "-")
	if _, err := time.Parse(time.DateOnly, iso); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, identifier)
	}
	return iso, nil
}
