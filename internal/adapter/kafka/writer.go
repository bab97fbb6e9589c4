package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/config"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes completion reports to the result topic.
// It implements pipeline.Reporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Report publishes one completion report keyed by its request ID.
func (w *Writer) Report(ctx context.Context, report domain.CompletionReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report %s: %w", report.RequestID, err)
	}
	w.logger.Debug("report published", "request_id", report.RequestID, "success", report.Success)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CompletionReport into a Kafka message.
func serializeToMessage(report domain.CompletionReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "action", Value: []byte(report.Action)},
		{Key: "success", Value: []byte(strconv.FormatBool(report.Success))},
		{Key: "completed_at", Value: []byte(report.CompletedAt.Format(time.RFC3339))},
	}
	if report.ErrorKind != "" {
		headers = append(headers, kafkago.Header{Key: "error_kind", Value: []byte(report.ErrorKind)})
	}
	return kafkago.Message{
		Key:     []byte(report.RequestID),
		Value:   data,
		Headers: headers,
	}, nil
}
