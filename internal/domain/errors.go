package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an enrichment failed. Every kind is terminal for
// the invocation.
type ErrorKind string

const (
	KindMissingInput      ErrorKind = "missing_input"
	KindTransport         ErrorKind = "transport"
	KindInvalidResponse   ErrorKind = "invalid_response"
	KindNoForecastForDate ErrorKind = "no_forecast_for_date"
	KindGraphWriteFailure ErrorKind = "graph_write_failure"
)

// Lookup failures reported by the fact finder. Each one surfaces as
// KindMissingInput.
var (
	ErrInputStructureNotFound = errors.New("input structure not found")
	ErrCityNotFound           = errors.New("city not found")
	ErrDateNotFound           = errors.New("date not found")
	ErrInvalidDate            = errors.New("invalid date")
	ErrFactNotFound           = errors.New("rain fact node not found")
	ErrWeatherNotFound        = errors.New("weather node not found")
)

// ErrNoForecastForDate means the forecast had no sample on the target day.
var ErrNoForecastForDate = errors.New("no forecast for that date")

// EnrichmentError is the single failure type returned by an enrichment run.
type EnrichmentError struct {
	Kind  ErrorKind
	Stage Stage
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// NewError wraps err with a failure kind and the stage it happened in.
func NewError(kind ErrorKind, stage Stage, err error) *EnrichmentError {
	return &EnrichmentError{Kind: kind, Stage: stage, Err: err}
}

// KindOf returns the failure kind carried by err, or "" when err is not an
// EnrichmentError.
func KindOf(err error) ErrorKind {
	var ee *EnrichmentError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
