package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/couchcryptid/rain-fact-enricher/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
)

// Extractor reads the next trigger message from the source.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawAction, error)
}

// Handler converts a trigger message into a completion report.
type Handler interface {
	Handle(ctx context.Context, raw domain.RawAction) (domain.CompletionReport, error)
}

// Reporter delivers completion reports to the dispatcher.
type Reporter interface {
	Report(ctx context.Context, report domain.CompletionReport) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline runs triggered actions one at a time: extract, handle, report,
// commit. An offset is committed only after its report is delivered or the
// message is skipped.
type Pipeline struct {
	extractor Extractor
	handler   Handler
	reporter  Reporter
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, h Handler, r Reporter, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		handler:   h,
		reporter:  r,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the pipeline has reported at least one
// action, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not reported any actions yet")
	}
	return nil
}

// Ready reports whether CheckReadiness would succeed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// AnyReady is ready as soon as one of its checkers is.
type AnyReady []sharedobs.ReadinessChecker

// CheckReadiness returns nil if any checker passes, otherwise every error.
func (a AnyReady) CheckReadiness(ctx context.Context) error {
	errs := make([]error, 0, len(a))
	for _, c := range a {
		err := c.CheckReadiness(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no readiness checks configured")
	}
	return errors.Join(errs...)
}

// Run executes the action loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processOne(ctx, &backoff) {
			return nil
		}
	}
}

// processOne runs one extract-handle-report cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processOne(ctx context.Context, backoff *time.Duration) bool {
	raw, err := p.extractor.Extract(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	p.metrics.ActionsConsumed.Inc()
	*backoff = initialBackoff

	report, err := p.handler.Handle(ctx, raw)
	if errors.Is(err, ErrSkipped) {
		p.logger.Debug("skipping message", "reason", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
		p.metrics.ActionsSkipped.Inc()
		p.commitOffset(ctx, raw)
		return true
	}
	if err != nil {
		p.logger.Error("handle failed", "error", err, "offset", raw.Offset)
		return p.backoffOrStop(ctx, backoff)
	}

	// The graph is already written; only delivery is retried.
	for {
		err := p.reporter.Report(ctx, report)
		if err == nil {
			break
		}
		p.logger.Error("report failed", "error", err, "request_id", report.RequestID)
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}
	*backoff = initialBackoff

	p.metrics.ReportsProduced.Inc()
	p.commitOffset(ctx, raw)
	p.ready.Store(true)
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sharedretry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = sharedretry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawAction) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
