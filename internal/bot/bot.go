// Package bot wires the dictionary and responder into a long-lived agent:
// it owns the randomness source, serializes access to the lock-free
// dictionary, persists it on a schedule, and reports corpus metrics.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chatborg/chatborg/internal/dictionary"
	"github.com/chatborg/chatborg/internal/responder"
	"github.com/chatborg/chatborg/pkg/config"
	"github.com/chatborg/chatborg/pkg/metrics"
)

// Bot is the orchestrating agent. The dictionary itself has no internal
// locking; Bot's mutex is the single external serializer required by the
// store's ownership model (rebuilds never overlap learns or lookups).
type Bot struct {
	mu      sync.Mutex
	dict    *dictionary.Dictionary
	src     responder.Source
	cfg     config.DictionaryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	dirty   bool
}

// Stats is a point-in-time snapshot of the corpus.
type Stats struct {
	Sentences    int  `json:"sentences"`
	IndexedWords int  `json:"indexed_words"`
	NeedsRebuild bool `json:"needs_rebuild"`
}

// New creates a Bot around a loaded dictionary. If the dictionary arrives
// with a stale index (legacy data), it is rebuilt before first use. m may be
// nil to disable metrics.
func New(dict *dictionary.Dictionary, src responder.Source, cfg config.DictionaryConfig, m *metrics.Metrics) *Bot {
	b := &Bot{
		dict:    dict,
		src:     src,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "bot"),
	}
	if dict.NeedsIndexRebuild() {
		b.logger.Info("dictionary index is stale, rebuilding", "sentences", len(dict.Sentences))
		dict.RebuildIndices()
		b.dirty = true
		if m != nil {
			m.IndexRebuildsTotal.Inc()
		}
	}
	b.observeCorpus()
	return b
}

// Learn feeds a raw chat line to the dictionary and reports whether anything
// new was stored.
func (b *Bot) Learn(line string) bool {
	b.mu.Lock()
	learned := b.dict.Learn(line)
	if learned {
		b.dirty = true
	}
	b.mu.Unlock()

	if b.metrics != nil {
		outcome := "known"
		if learned {
			outcome = "learned"
		}
		b.metrics.LinesLearnedTotal.WithLabelValues(outcome).Inc()
	}
	b.observeCorpus()
	return learned
}

// RespondTo generates a spliced response to line, or ok=false when the
// corpus has nothing to say.
func (b *Bot) RespondTo(line string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return responder.RespondTo(b.dict, line, b.src)
}

// Rebuild forces a full index rebuild and resort of the corpus.
func (b *Bot) Rebuild() {
	b.mu.Lock()
	b.dict.RebuildIndices()
	b.dirty = true
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.IndexRebuildsTotal.Inc()
	}
	b.logger.Info("index rebuilt")
}

// Save persists the dictionary when it has unsaved changes. force writes
// even when clean.
func (b *Bot) Save(force bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty && !force {
		return nil
	}
	if err := b.dict.WriteToDisk(b.cfg.Path); err != nil {
		if b.metrics != nil {
			b.metrics.DictionarySavesTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	b.dirty = false
	if b.metrics != nil {
		b.metrics.DictionarySavesTotal.WithLabelValues("ok").Inc()
	}
	b.logger.Info("dictionary saved", "path", b.cfg.Path, "sentences", len(b.dict.Sentences))
	return nil
}

// Stats returns corpus counters for the stats endpoint.
func (b *Bot) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Sentences:    len(b.dict.Sentences),
		IndexedWords: len(b.dict.Indices),
		NeedsRebuild: b.dict.NeedsIndexRebuild(),
	}
}

// StartSaveLoop launches the autosave ticker. A final save runs when ctx is
// cancelled.
func (b *Bot) StartSaveLoop(ctx context.Context) {
	interval := b.cfg.AutosaveInterval
	if interval <= 0 {
		b.logger.Info("autosave disabled")
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				b.logger.Info("save loop stopping, performing final save")
				if err := b.Save(true); err != nil {
					b.logger.Error("final save failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := b.Save(false); err != nil {
					b.logger.Error("periodic save failed", "error", err)
				}
			}
		}
	}()
}

func (b *Bot) observeCorpus() {
	if b.metrics == nil {
		return
	}
	b.mu.Lock()
	sentences := len(b.dict.Sentences)
	words := len(b.dict.Indices)
	b.mu.Unlock()
	b.metrics.SentencesStored.Set(float64(sentences))
	b.metrics.WordsIndexed.Set(float64(words))
}
