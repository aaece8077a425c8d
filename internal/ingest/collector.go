// Package ingest connects the bot to Kafka: a consumer feeds raw chat lines
// into learning, and a batch collector publishes exchange events for the
// archiver.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatborg/chatborg/pkg/kafka"
)

// Collector accumulates exchange events and flushes them to Kafka either
// when the batch reaches a configurable size or after a time interval. A
// failed publish drops the batch rather than retrying; exchange events are
// telemetry, not the source of truth.
type Collector struct {
	producer      *kafka.Producer
	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

// NewCollector creates a Collector that flushes when the buffer reaches
// batchSize events or after flushInterval, whichever comes first.
func NewCollector(producer *kafka.Producer, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		producer:      producer,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "exchange-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop, which runs until ctx is
// cancelled. A final flush with a short deadline runs on shutdown.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("exchange collector started", "batch_size", c.batchSize, "flush_interval", c.flushInterval)
}

// Track buffers one exchange event, flushing immediately when the batch is
// full.
func (c *Collector) Track(event ExchangeEvent) {
	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{
		Key:   string(event.Type),
		Value: event,
	})
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()
	if full {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c.flush(ctx)
		cancel()
	}
}

// Wait blocks until the flush loop has exited.
func (c *Collector) Wait() {
	<-c.done
}

func (c *Collector) flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	if err := c.producer.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish exchange batch", "count", len(batch), "error", err)
		return
	}
	c.logger.Debug("exchange batch published", "count", len(batch))
}
