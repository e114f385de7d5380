package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// NormalizeWord lowercases a transcript word and strips surrounding punctuation.
// Inner punctuation ("don't") is preserved.
func NormalizeWord(word string) string {
	trimmed := strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if trimmed == "" {
		return ""
	}
	return lower.String(trimmed)
}

// NormalizeText lowercases text and strips punctuation from every
// whitespace-separated word, returning the surviving words.
func NormalizeText(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if w := NormalizeWord(field); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// ContainsTerm reports whether any term appears as a whole word (or whole
// multi-word phrase) in the normalized words.
func ContainsTerm(words []string, terms map[string]struct{}) bool {
	if len(words) == 0 || len(terms) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := terms[w]; ok {
			return true
		}
	}
	joined := " " + strings.Join(words, " ") + " "
	for term := range terms {
		if !strings.Contains(term, " ") {
			continue
		}
		if strings.Contains(joined, " "+term+" ") {
			return true
		}
	}
	return false
}

// TermSet normalizes terms into a lookup set, dropping blanks.
func TermSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		normalized := strings.Join(NormalizeText(term), " ")
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}

// TermsHash returns a short stable digest of one or more term lists. Order and
// duplicates within a list do not matter; list position does.
func TermsHash(lists ...[]string) string {
	hasher := sha256.New()
	for i, list := range lists {
		set := TermSet(list)
		keys := make([]string, 0, len(set))
		for k := range set {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if i > 0 {
			hasher.Write([]byte{0x1e})
		}
		for _, k := range keys {
			hasher.Write([]byte(k))
			hasher.Write([]byte{0x1f})
		}
	}
	return hex.EncodeToString(hasher.Sum(nil))[:12]
}
