package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/chatborg/chatborg/internal/bot"
	"github.com/chatborg/chatborg/internal/dictionary"
	"github.com/chatborg/chatborg/internal/ingest"
	"github.com/chatborg/chatborg/internal/respondcache"
	"github.com/chatborg/chatborg/internal/responder"
	"github.com/chatborg/chatborg/internal/server"
	"github.com/chatborg/chatborg/pkg/config"
	"github.com/chatborg/chatborg/pkg/health"
	"github.com/chatborg/chatborg/pkg/kafka"
	"github.com/chatborg/chatborg/pkg/logger"
	"github.com/chatborg/chatborg/pkg/metrics"
	"github.com/chatborg/chatborg/pkg/middleware"
	pkgredis "github.com/chatborg/chatborg/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting borgd", "port", cfg.Server.Port, "dictionary", cfg.Dictionary.Path)

	dict, err := dictionary.Load(cfg.Dictionary.Path)
	if err != nil {
		slog.Error("failed to load dictionary", "error", err)
		os.Exit(1)
	}
	slog.Info("dictionary loaded",
		"sentences", len(dict.Sentences),
		"words", len(dict.Indices),
		"needs_rebuild", dict.NeedsIndexRebuild(),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	src := newSource(cfg.Responder)
	borg := bot.New(dict, src, cfg.Dictionary, m)

	var cache *respondcache.Cache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, response caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cache = respondcache.New(redisClient, cfg.Redis)
		slog.Info("response cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exchangeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ChatExchanges)
	defer exchangeProducer.Close()
	collector := ingest.NewCollector(exchangeProducer, 100, 0)
	collector.Start(ctx)
	slog.Info("exchange collector started", "topic", cfg.Kafka.Topics.ChatExchanges)

	lineConsumer := ingest.NewLineConsumer(
		kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.ChatLines, ingest.HandleLine(borg, collector)),
	)

	borg.StartSaveLoop(ctx)

	checker := health.NewChecker()
	checker.Register("dictionary", func(ctx context.Context) health.ComponentHealth {
		stats := borg.Stats()
		if stats.NeedsRebuild {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "index rebuild pending"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d sentences", stats.Sentences)}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(borg, cache, collector, m, cfg.Responder.MaxLineLength)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/learn", h.Learn)
	mux.HandleFunc("POST /api/v1/respond", h.Respond)
	mux.HandleFunc("POST /api/v1/dictionary/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("borgd listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return lineConsumer.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("borgd error", "error", err)
	}

	collector.Wait()
	if err := borg.Save(true); err != nil {
		slog.Error("final dictionary save failed", "error", err)
	}

	slog.Info("borgd stopped")
}

// newSource builds the responder's randomness source: seeded PCG when a seed
// is configured, entropy otherwise.
func newSource(cfg config.ResponderConfig) responder.Source {
	if cfg.Seed != 0 {
		return responder.NewPCG(cfg.Seed, cfg.Seed)
	}
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}
