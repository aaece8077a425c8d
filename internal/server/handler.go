// Package server exposes the bot over HTTP: learn, respond, stats, rebuild,
// and cache administration endpoints.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatborg/chatborg/internal/bot"
	"github.com/chatborg/chatborg/internal/ingest"
	"github.com/chatborg/chatborg/internal/respondcache"
	"github.com/chatborg/chatborg/pkg/logger"
	"github.com/chatborg/chatborg/pkg/metrics"
)

// Handler serves the bot's HTTP API. cache, collector, and m may each be nil
// when the corresponding subsystem is disabled.
type Handler struct {
	bot           *bot.Bot
	cache         *respondcache.Cache
	collector     *ingest.Collector
	metrics       *metrics.Metrics
	maxLineLength int
	logger        *slog.Logger
}

// New creates a Handler around the bot and its optional collaborators.
func New(b *bot.Bot, cache *respondcache.Cache, collector *ingest.Collector, m *metrics.Metrics, maxLineLength int) *Handler {
	return &Handler{
		bot:           b,
		cache:         cache,
		collector:     collector,
		metrics:       m,
		maxLineLength: maxLineLength,
		logger:        slog.Default().With("component", "http-handler"),
	}
}

type lineRequest struct {
	Line string `json:"line"`
}

type learnResponse struct {
	Learned   bool `json:"learned"`
	Sentences int  `json:"sentences"`
}

type respondResponse struct {
	Response *string `json:"response"`
	Cached   bool    `json:"cached"`
}

// Learn handles POST /api/v1/learn.
func (h *Handler) Learn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, ok := h.decodeLine(w, r)
	if !ok {
		return
	}

	learned := h.bot.Learn(req.Line)
	if learned && h.cache != nil {
		// Cached replies were drawn from the old corpus.
		if err := h.cache.Invalidate(ctx); err != nil {
			log.Error("cache invalidation after learn failed", "error", err)
		}
	}

	if h.collector != nil {
		h.collector.Track(ingest.ExchangeEvent{
			Type:      ingest.ExchangeLearn,
			Line:      req.Line,
			Learned:   learned,
			Source:    "http",
			RequestID: logger.RequestIDFromContext(ctx),
			Timestamp: time.Now().UTC(),
		})
	}

	stats := h.bot.Stats()
	log.Info("learn completed", "learned", learned, "sentences", stats.Sentences)
	h.writeJSON(w, http.StatusOK, learnResponse{
		Learned:   learned,
		Sentences: stats.Sentences,
	})
}

// Respond handles POST /api/v1/respond.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, ok := h.decodeLine(w, r)
	if !ok {
		return
	}

	var cached *respondcache.CachedResponse
	cacheHit := false
	if h.cache != nil {
		var err error
		cached, cacheHit, err = h.cache.GetOrCompute(ctx, req.Line, func() (*respondcache.CachedResponse, error) {
			response, responded := h.bot.RespondTo(req.Line)
			return &respondcache.CachedResponse{Response: response, Responded: responded}, nil
		})
		if err != nil {
			log.Error("respond failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "respond failed")
			return
		}
	} else {
		response, responded := h.bot.RespondTo(req.Line)
		cached = &respondcache.CachedResponse{Response: response, Responded: responded}
	}

	h.recordRespond(cached, cacheHit, time.Since(start))

	if h.collector != nil {
		h.collector.Track(ingest.ExchangeEvent{
			Type:      ingest.ExchangeRespond,
			Line:      req.Line,
			Response:  cached.Response,
			Responded: cached.Responded,
			LatencyMs: time.Since(start).Milliseconds(),
			Source:    "http",
			RequestID: logger.RequestIDFromContext(ctx),
			Timestamp: time.Now().UTC(),
		})
	}

	log.Info("respond completed",
		"responded", cached.Responded,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	resp := respondResponse{Cached: cacheHit}
	if cached.Responded {
		resp.Response = &cached.Response
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Rebuild handles POST /api/v1/dictionary/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	h.bot.Rebuild()
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Error("cache invalidation after rebuild failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, h.bot.Stats())
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.bot.Stats())
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": hitRate,
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) recordRespond(cached *respondcache.CachedResponse, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	outcome := "no_response"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	if cached.Responded {
		outcome = "response"
	}
	if cacheHit {
		outcome = "cached"
	}
	h.metrics.ResponsesTotal.WithLabelValues(outcome).Inc()
	h.metrics.ResponseLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
}

func (h *Handler) decodeLine(w http.ResponseWriter, r *http.Request) (lineRequest, bool) {
	var req lineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if err := validateLine(req.Line, h.maxLineLength); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": vErr.Fields,
			})
			return req, false
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
