// Package tokenizer provides the sentence and word splitting rules used by
// the dictionary and responder. Both functions are pure and case-agnostic:
// callers lowercase their input before building or querying the index.
package tokenizer

import (
	"regexp"
	"strings"
)

// Sentence boundaries are runs of terminal punctuation followed by
// whitespace. A run with no trailing whitespace (URLs, dotted abbreviations)
// does not end a sentence, so the whitespace is the split point and the
// punctuation stays attached to the left segment.
var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

// Words are the non-empty runs between delimiter runs.
var wordDelimiter = regexp.MustCompile(`[,.!?:\s]+`)

// SplitSentences splits text into trimmed, non-empty sentence fragments in
// their original order. Terminal punctuation is retained on each fragment.
func SplitSentences(text string) []string {
	sentences := make([]string, 0, 4)
	rest := text
	for {
		loc := sentenceBoundary.FindStringIndex(rest)
		if loc == nil {
			break
		}
		// Keep the punctuation run, drop the whitespace that follows it.
		head := strings.TrimSpace(rest[:loc[1]])
		if head != "" {
			sentences = append(sentences, head)
		}
		rest = rest[loc[1]:]
	}
	if tail := strings.TrimSpace(rest); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// SplitWords splits text on maximal runs of `, . ! ? :` or whitespace and
// returns the non-empty tokens in order.
func SplitWords(text string) []string {
	parts := wordDelimiter.Split(text, -1)
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			words = append(words, part)
		}
	}
	return words
}
