package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/google/uuid"
)

// ErrSkipped marks trigger messages that are not handled by this engine:
// undecodable payloads and actions other than fill-weather-forecast.
var ErrSkipped = errors.New("action skipped")

// Enricher runs one enrichment.
type Enricher interface {
	Enrich(ctx context.Context, req domain.Request) (domain.Outcome, error)
}

// ActionHandler turns trigger messages into completion reports.
type ActionHandler struct {
	enricher Enricher
	logger   *slog.Logger
	reported atomic.Bool
}

// NewHandler creates an ActionHandler around an Enricher.
func NewHandler(enricher Enricher, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{enricher: enricher, logger: logger}
}

// Handle decodes a trigger message and runs it. Messages this engine does not
// handle return an error wrapping ErrSkipped.
func (h *ActionHandler) Handle(ctx context.Context, raw domain.RawAction) (domain.CompletionReport, error) {
	req, err := domain.ParseActionRequest(raw.Value)
	if err != nil {
		return domain.CompletionReport{}, fmt.Errorf("%w: %w", ErrSkipped, err)
	}
	if !req.IsFillWeatherForecast() {
		return domain.CompletionReport{}, fmt.Errorf("%w: action %q", ErrSkipped, req.Action)
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	return h.HandleRequest(ctx, req), nil
}

// HandleRequest runs a decoded fill-weather-forecast request. Enrichment
// failures are carried in the report, never returned.
func (h *ActionHandler) HandleRequest(ctx context.Context, req domain.ActionRequest) domain.CompletionReport {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	outcome, err := h.enricher.Enrich(ctx, req.Request())
	report := domain.NewCompletionReport(req, outcome, err)
	h.logger.Debug("action handled", "request_id", req.RequestID, "success", report.Success)
	h.reported.Store(true)
	return report
}

// CheckReadiness returns nil once any completion report has been produced,
// whether the action came from the source topic or over HTTP.
func (h *ActionHandler) CheckReadiness(_ context.Context) error {
	if !h.reported.Load() {
		return errors.New("no actions handled yet")
	}
	return nil
}
