// Package dictionary implements the bot's knowledge store: an ordered
// sentence corpus plus a word -> sentence-position inverted index, with JSON
// persistence. The store is single-owner and lock-free; callers that share a
// Dictionary across goroutines serialize access themselves (see internal/bot).
package dictionary

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/chatborg/chatborg/internal/tokenizer"
	apperrors "github.com/chatborg/chatborg/pkg/errors"
)

// Dictionary owns the sentence corpus and its inverted index as a single
// unit. Sentences are lowercase-normalized with punctuation retained and are
// addressed by position; Indices maps each word to the ordered, deduplicated
// positions of the sentences containing it.
type Dictionary struct {
	Sentences []string         `json:"sentences"`
	Indices   map[string][]int `json:"indices"`
}

// NewEmpty returns a Dictionary with no sentences and an empty index.
func NewEmpty() *Dictionary {
	return &Dictionary{
		Sentences: make([]string, 0),
		Indices:   make(map[string][]int),
	}
}

// Load reads a dictionary from path. If no file exists there, a fresh empty
// dictionary is created, persisted at that path, and returned. Filesystem
// faults are reported as ErrDictionaryIO and malformed documents as
// ErrDictionaryCorrupt.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			d := NewEmpty()
			if err := d.WriteToDisk(path); err != nil {
				return nil, err
			}
			slog.Default().With("component", "dictionary").Info("created empty dictionary", "path", path)
			return d, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrDictionaryIO, path, err)
	}
	d := NewEmpty()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrDictionaryCorrupt, path, err)
	}
	if d.Sentences == nil {
		d.Sentences = make([]string, 0)
	}
	if d.Indices == nil {
		d.Indices = make(map[string][]int)
	}
	return d, nil
}

// WriteToDisk serialises the dictionary to path. The write is atomic: a temp
// file is written, synced, and renamed over the destination.
func (d *Dictionary) WriteToDisk(path string) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: marshaling dictionary: %v", apperrors.ErrDictionaryCorrupt, err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", apperrors.ErrDictionaryIO, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing dictionary: %v", apperrors.ErrDictionaryIO, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: syncing dictionary file: %v", apperrors.ErrDictionaryIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing dictionary file: %v", apperrors.ErrDictionaryIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: renaming dictionary file: %v", apperrors.ErrDictionaryIO, err)
	}
	return nil
}

// NeedsIndexRebuild reports whether the index is stale: the corpus has
// sentences but the index is empty (legacy data, or an external reset).
func (d *Dictionary) NeedsIndexRebuild() bool {
	return len(d.Sentences) > 0 && len(d.Indices) == 0
}

// RebuildIndices recomputes the index from scratch. The sentence corpus is
// first stable-sorted ascending by lowercase form, so positions are NOT
// stable across a rebuild.
func (d *Dictionary) RebuildIndices() {
	sort.SliceStable(d.Sentences, func(i, j int) bool {
		return strings.ToLower(d.Sentences[i]) < strings.ToLower(d.Sentences[j])
	})
	d.Indices = make(map[string][]int)
	for i, sentence := range d.Sentences {
		for _, word := range tokenizer.SplitWords(strings.ToLower(sentence)) {
			d.insertWord(word, i)
		}
	}
}

// KnowsSentence reports whether the corpus already contains a sentence whose
// normalized text exactly equals the input.
func (d *Dictionary) KnowsSentence(sentence string) bool {
	for _, s := range d.Sentences {
		if s == sentence {
			return true
		}
	}
	return false
}

// KnowsWord reports whether word is a key in the index.
func (d *Dictionary) KnowsWord(word string) bool {
	_, ok := d.Indices[word]
	return ok
}

// Learn lowercases line, splits it into sentences, and appends every
// previously-unseen sentence to the corpus, incrementally indexing its
// distinct words. A sentence repeated inside the same line is stored once.
// It reports whether at least one sentence was newly learned.
func (d *Dictionary) Learn(line string) bool {
	learned := false
	for _, sentence := range tokenizer.SplitSentences(strings.ToLower(line)) {
		if d.KnowsSentence(sentence) {
			continue
		}
		d.Sentences = append(d.Sentences, sentence)
		pos := len(d.Sentences) - 1
		for _, word := range tokenizer.SplitWords(sentence) {
			d.insertWord(word, pos)
		}
		learned = true
	}
	return learned
}

// SentencesWithWord returns the sentences at the positions indexed under
// word, in index order. Unknown words yield an empty slice.
func (d *Dictionary) SentencesWithWord(word string) []string {
	positions, ok := d.Indices[word]
	if !ok {
		return nil
	}
	sentences := make([]string, 0, len(positions))
	for _, pos := range positions {
		sentences = append(sentences, d.Sentences[pos])
	}
	return sentences
}

// KnownWords lowercases and tokenizes line, returning every token present in
// the index, in original order. Duplicate occurrences are preserved: a word
// repeated in the input shows up repeatedly here, which biases the
// responder's pivot selection toward it.
func (d *Dictionary) KnownWords(line string) []string {
	words := tokenizer.SplitWords(strings.ToLower(line))
	known := make([]string, 0, len(words))
	for _, word := range words {
		if d.KnowsWord(word) {
			known = append(known, word)
		}
	}
	return known
}

// insertWord records that the sentence at pos contains word, deduplicating
// repeat occurrences within the same sentence.
func (d *Dictionary) insertWord(word string, pos int) {
	for _, existing := range d.Indices[word] {
		if existing == pos {
			return
		}
	}
	d.Indices[word] = append(d.Indices[word], pos)
}

// Equal reports whether two dictionaries hold the same sentences in the same
// order and byte-for-byte identical per-word position lists. Used by tests.
func (d *Dictionary) Equal(other *Dictionary) bool {
	if len(d.Sentences) != len(other.Sentences) || len(d.Indices) != len(other.Indices) {
		return false
	}
	for i, s := range d.Sentences {
		if other.Sentences[i] != s {
			return false
		}
	}
	for word, positions := range d.Indices {
		otherPositions, ok := other.Indices[word]
		if !ok || len(otherPositions) != len(positions) {
			return false
		}
		for i, pos := range positions {
			if otherPositions[i] != pos {
				return false
			}
		}
	}
	return true
}
