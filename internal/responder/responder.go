// Package responder generates replies by splicing two known sentences around
// a pivot word shared with the input line. Randomness is injected through the
// Source interface so that a fixed draw stream reproduces responses exactly.
package responder

import (
	"fmt"
	"strings"

	"github.com/chatborg/chatborg/internal/dictionary"
	"github.com/chatborg/chatborg/internal/tokenizer"
)

// RespondTo composes a response to line from the dictionary's corpus.
//
// The pivot is drawn uniformly from the known words of the line (duplicates
// included), then two donor sentences are drawn independently, with
// replacement, from the sentences containing the pivot. The reply is the
// left donor's words before its first pivot occurrence followed by the right
// donor's words from its first pivot occurrence onward. All draws use
// src.Uint64() mod the candidate count.
//
// It returns ok=false when the line shares no word with the corpus or when
// fewer than two sentences contain the pivot.
func RespondTo(dict *dictionary.Dictionary, line string, src Source) (string, bool) {
	known := dict.KnownWords(line)
	if len(known) == 0 {
		return "", false
	}
	pivot := known[draw(src, len(known))]

	candidates := dict.SentencesWithWord(pivot)
	if len(candidates) < 2 {
		return "", false
	}
	s1 := candidates[draw(src, len(candidates))]
	s2 := candidates[draw(src, len(candidates))]

	left := wordsLeftOfPivot(s1, pivot)
	right, ok := wordsRightOfPivotInclusive(s2, pivot)
	if !ok {
		// s2 came from the pivot's own posting list, so the pivot must be
		// present: anything else means the index is inconsistent.
		panic(fmt.Sprintf("responder: pivot %q missing from indexed sentence %q", pivot, s2))
	}

	if len(left) == 0 {
		return strings.Join(right, " "), true
	}
	return strings.Join(left, " ") + " " + strings.Join(right, " "), true
}

// draw maps one random value onto [0, n).
func draw(src Source, n int) int {
	return int(src.Uint64() % uint64(n))
}

// wordsLeftOfPivot returns the words of sentence strictly before the first
// occurrence of pivot, or nil if the pivot is absent or first.
func wordsLeftOfPivot(sentence, pivot string) []string {
	words := tokenizer.SplitWords(sentence)
	for i, word := range words {
		if word == pivot {
			return words[:i]
		}
	}
	return nil
}

// wordsRightOfPivotInclusive returns the words of sentence from the first
// occurrence of pivot through the end. ok is false when the pivot is absent.
func wordsRightOfPivotInclusive(sentence, pivot string) ([]string, bool) {
	words := tokenizer.SplitWords(sentence)
	for i, word := range words {
		if word == pivot {
			return words[i:], true
		}
	}
	return nil, false
}
