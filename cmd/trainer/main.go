// Command trainer bulk-seeds the bot's vocabulary: it reads a text corpus
// line by line and publishes each line to the chat-lines topic, where borgd's
// consumer learns it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chatborg/chatborg/internal/ingest"
	"github.com/chatborg/chatborg/pkg/config"
	"github.com/chatborg/chatborg/pkg/kafka"
	"github.com/chatborg/chatborg/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "path to a text file, one chat line per line")
	channel := flag.String("channel", "trainer", "channel tag recorded on each line")
	batchSize := flag.Int("batch", 200, "lines per Kafka batch")
	flag.Parse()

	if *corpusPath == "" {
		fmt.Fprintln(os.Stderr, "usage: trainer -corpus <file> [-config <file>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	f, err := os.Open(*corpusPath)
	if err != nil {
		slog.Error("failed to open corpus", "path", *corpusPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ChatLines)
	defer producer.Close()

	ctx := context.Background()
	start := time.Now()
	published := 0
	skipped := 0
	batch := make([]kafka.Event, 0, *batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := producer.PublishBatch(ctx, batch); err != nil {
			return err
		}
		published += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			skipped++
			continue
		}
		batch = append(batch, kafka.Event{
			Key: *channel,
			Value: ingest.LineMessage{
				Line:      line,
				Channel:   *channel,
				Timestamp: time.Now().UTC(),
			},
		})
		if len(batch) >= *batchSize {
			if err := flush(); err != nil {
				slog.Error("failed to publish batch", "error", err)
				os.Exit(1)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("failed to read corpus", "error", err)
		os.Exit(1)
	}
	if err := flush(); err != nil {
		slog.Error("failed to publish final batch", "error", err)
		os.Exit(1)
	}

	slog.Info("training corpus published",
		"lines", published,
		"skipped", skipped,
		"topic", cfg.Kafka.Topics.ChatLines,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}
