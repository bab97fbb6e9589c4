package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/rain-fact-enricher/internal/config"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes trigger messages from the action topic.
// It implements pipeline.Extractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
// Offsets are committed explicitly once an action has been reported.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaSourceTopic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &Reader{reader: r, logger: logger}
}

// Extract blocks until the next trigger message is available. The returned
// action carries a Commit callback for its offset.
func (r *Reader) Extract(ctx context.Context) (domain.RawAction, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawAction{}, fmt.Errorf("fetch action: %w", err)
	}
	raw := mapMessageToRawAction(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	r.logger.Debug("action fetched", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	return raw, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToRawAction(msg kafkago.Message) domain.RawAction {
	return domain.RawAction{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
