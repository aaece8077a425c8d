// Package metrics defines the Prometheus metric collectors used across the
// bot and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the bot.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	LinesLearnedTotal    *prometheus.CounterVec
	SentencesStored      prometheus.Gauge
	WordsIndexed         prometheus.Gauge
	ResponsesTotal       *prometheus.CounterVec
	ResponseLatency      *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DictionarySavesTotal *prometheus.CounterVec
	IndexRebuildsTotal   prometheus.Counter
	ExchangesArchived    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		LinesLearnedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lines_learned_total",
				Help: "Total chat lines processed by learn, by outcome (learned, known).",
			},
			[]string{"outcome"},
		),
		SentencesStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentences_stored",
				Help: "Number of sentences currently in the dictionary.",
			},
		),
		WordsIndexed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "words_indexed",
				Help: "Number of distinct words in the inverted index.",
			},
		),
		ResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "responses_total",
				Help: "Total respond calls by outcome (response, no_response, cached).",
			},
			[]string{"outcome"},
		),
		ResponseLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "response_latency_seconds",
				Help:    "Response generation latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of response cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of response cache misses.",
			},
		),
		DictionarySavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dictionary_saves_total",
				Help: "Total dictionary save operations by status.",
			},
			[]string{"status"},
		),
		IndexRebuildsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_rebuilds_total",
				Help: "Total full index rebuilds.",
			},
		),
		ExchangesArchived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchanges_archived_total",
				Help: "Total chat exchanges archived to PostgreSQL by status.",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.LinesLearnedTotal,
		m.SentencesStored,
		m.WordsIndexed,
		m.ResponsesTotal,
		m.ResponseLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DictionarySavesTotal,
		m.IndexRebuildsTotal,
		m.ExchangesArchived,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
