package transcript

import (
	"context"
	"log/slog"

	"github.com/chatborg/chatborg/internal/ingest"
	"github.com/chatborg/chatborg/pkg/kafka"
	"github.com/chatborg/chatborg/pkg/metrics"
)

// Archiver drains the chat-exchanges topic into the transcript store.
type Archiver struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewArchiver creates an Archiver backed by the given Kafka consumer.
func NewArchiver(kafkaConsumer *kafka.Consumer) *Archiver {
	return &Archiver{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "archiver"),
	}
}

// Start begins consuming exchange events. It blocks until ctx is cancelled.
func (a *Archiver) Start(ctx context.Context) error {
	a.logger.Info("archiver starting")
	return a.consumer.Start(ctx)
}

// HandleExchange returns a Kafka MessageHandler that persists each exchange
// event via the store. Malformed events are logged and skipped; storage
// failures are returned so the message is not committed and will be
// redelivered. m may be nil.
func HandleExchange(store *Store, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "archiver")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingest.ExchangeEvent](value)
		if err != nil {
			logger.Error("failed to decode exchange event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := store.SaveExchange(ctx, event); err != nil {
			if m != nil {
				m.ExchangesArchived.WithLabelValues("error").Inc()
			}
			return err
		}
		if m != nil {
			m.ExchangesArchived.WithLabelValues("ok").Inc()
		}
		logger.Debug("exchange archived", "kind", event.Type, "source", event.Source)
		return nil
	}
}
