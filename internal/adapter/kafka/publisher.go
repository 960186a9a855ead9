// Package kafka publishes risk alerts for downstream notification delivery.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/observability"
)

// messageWriter abstracts *kafkago.Writer for tests.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// AlertPublisher forwards new cache entry versions that carry detected risk
// to the alerts topic. The (external) push-notification service consumes the
// topic and fans out to subscribed photographers.
type AlertPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAlertPublisher creates a producer for the alerts topic.
func NewAlertPublisher(brokers []string, topic string, metrics *observability.Metrics, logger *slog.Logger) *AlertPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertPublisher{writer: w, metrics: metrics, logger: logger.With("component", "alerts")}
}

// Run consumes entries from the geo-cache subscription channel until the
// context is cancelled or the channel closes. Entries without any likely
// direction are dropped; a cell going quiet is not an alert.
func (p *AlertPublisher) Run(ctx context.Context, entries <-chan domain.CacheEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if !entry.AnyLikely() {
				continue
			}
			if err := p.publish(ctx, entry); err != nil {
				p.logger.Error("failed to publish alert", "grid_key", entry.GridKey, "error", err)
				continue
			}
			p.metrics.AlertsPublished.Inc()
		}
	}
}

func (p *AlertPublisher) publish(ctx context.Context, entry domain.CacheEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("serialize alert for %s: %w", entry.GridKey, err)
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(entry.GridKey),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(entry.MaxLevel())},
			{Key: "created_at", Value: []byte(entry.CreatedAt.Format(time.RFC3339))},
		},
	})
}

// Close closes the underlying writer.
func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}
