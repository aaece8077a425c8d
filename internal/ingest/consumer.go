package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/chatborg/chatborg/internal/bot"
	"github.com/chatborg/chatborg/pkg/kafka"
)

// LineConsumer wraps a Kafka consumer to drive learning from the chat-lines
// topic.
type LineConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewLineConsumer creates a LineConsumer backed by the given Kafka consumer.
func NewLineConsumer(kafkaConsumer *kafka.Consumer) *LineConsumer {
	return &LineConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "line-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (lc *LineConsumer) Start(ctx context.Context) error {
	lc.logger.Info("line consumer starting")
	return lc.consumer.Start(ctx)
}

// HandleLine returns a Kafka MessageHandler that learns each chat line via
// the bot. If collector is non-nil, a learn exchange event is tracked for
// every processed line. Malformed messages are logged and skipped so the
// topic keeps draining.
func HandleLine(b *bot.Bot, collector *Collector) kafka.MessageHandler {
	logger := slog.Default().With("component", "line-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		msg, err := kafka.DecodeJSON[LineMessage](value)
		if err != nil {
			logger.Error("failed to decode line message",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if msg.Line == "" {
			return nil
		}

		start := time.Now()
		learned := b.Learn(msg.Line)
		logger.Debug("line processed",
			"channel", msg.Channel,
			"learned", learned,
		)

		if collector != nil {
			collector.Track(ExchangeEvent{
				Type:      ExchangeLearn,
				Line:      msg.Line,
				Learned:   learned,
				LatencyMs: time.Since(start).Milliseconds(),
				Source:    "kafka",
				Timestamp: time.Now().UTC(),
			})
		}
		return nil
	}
}
