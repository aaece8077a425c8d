package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chatborg/chatborg/internal/dictionary"
	"github.com/chatborg/chatborg/internal/responder"
	"github.com/chatborg/chatborg/internal/tokenizer"
)

var sampleLines = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog.",
	"medium": `Conversational agents learn by example rather than by rules. Every line of
        chat is split into sentences and folded into the corpus. The inverted index maps
        each word to the sentences containing it, which makes pivot lookup a constant-time
        affair. Responses are stitched together from two donor sentences that share a word
        with the input.`,
	"long": strings.Repeat(`Chat corpora grow one line at a time and are never forgotten.
        Sentence splitting keeps terminal punctuation attached so that reconstructed
        replies read naturally. Word splitting drops commas, colons, and question marks
        but preserves apostrophes, which keeps contractions whole. The index rebuild
        sorts the corpus and reassigns every position, so persisted positions are only
        meaningful against the corpus they were derived from. `, 20),
}

// seedCorpus builds a dictionary with n generated sentences.
func seedCorpus(n int) *dictionary.Dictionary {
	d := dictionary.NewEmpty()
	subjects := []string{"crabs", "foxes", "agents", "parsers", "brokers", "sockets"}
	verbs := []string{"are", "love", "fear", "follow", "outlast", "remember"}
	objects := []string{"great", "the tide", "everyone", "the corpus", "warm sand", "old logs"}
	for i := 0; i < n; i++ {
		d.Learn(fmt.Sprintf("%s %s %s number %d.",
			subjects[i%len(subjects)], verbs[(i/6)%len(verbs)], objects[(i/36)%len(objects)], i))
	}
	return d
}

func BenchmarkSplitSentences(b *testing.B) {
	for name, line := range sampleLines {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(line)))
			for i := 0; i < b.N; i++ {
				sentences := tokenizer.SplitSentences(line)
				_ = sentences
			}
		})
	}
}

func BenchmarkSplitWords(b *testing.B) {
	for name, line := range sampleLines {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(line)))
			for i := 0; i < b.N; i++ {
				words := tokenizer.SplitWords(line)
				_ = words
			}
		})
	}
}

func BenchmarkLearn(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("corpus_%d", size), func(b *testing.B) {
			d := seedCorpus(size)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d.Learn(fmt.Sprintf("benchmark sentence number %d about crabs.", size+i))
			}
		})
	}
}

func BenchmarkLearnKnownLine(b *testing.B) {
	// Worst case for the duplicate check: a linear scan across the whole
	// corpus that always matches last-ish.
	d := seedCorpus(10000)
	line := "crabs are great number 0."
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		learned := d.Learn(line)
		_ = learned
	}
}

func BenchmarkRespondTo(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("corpus_%d", size), func(b *testing.B) {
			d := seedCorpus(size)
			src := responder.NewPCG(42, 1024)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				response, ok := responder.RespondTo(d, "what do crabs love", src)
				_, _ = response, ok
			}
		})
	}
}

func BenchmarkRebuildIndices(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("corpus_%d", size), func(b *testing.B) {
			d := seedCorpus(size)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d.RebuildIndices()
			}
		})
	}
}

func BenchmarkKnownWords(b *testing.B) {
	d := seedCorpus(10000)
	line := "do crabs and foxes follow everyone across the warm sand"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		known := d.KnownWords(line)
		_ = known
	}
}
