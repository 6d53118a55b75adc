package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	punctuationRegex    = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)

	// Matches weight/volume patterns like "500г", "1.5л", "250 мл", "2кг",
	// "330ml". \b is ASCII-only in Go regexp, so the unit boundary is
	// checked explicitly against following letters.
	weightPatternRegex = regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*(кг|мл|гр|г|л|шт|kg|ml|g|l)(?:[^\p{L}]|$)`)
)

// diacriticFolder strips combining marks after NFD decomposition, so
// "й"/"ё" style variants and Latin accents compare equal.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lowercases a string, strips diacritics, and collapses whitespace.
// This is the canonical form used for all name comparisons; OCR output for
// the same product varies in case, accents, and spacing.
func foldText(s string) string {
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = multipleSpacesRegex.ReplaceAllString(folded, " ")
	return strings.TrimSpace(folded)
}

// mergeKey folds a raw item name into the key used to align normalization
// results with their source items
func mergeKey(s string) string {
	return foldText(s)
}

// tokenizeFolded splits an already-folded string into comparison tokens.
// Punctuation is dropped; single-character tokens carry no signal on
// receipts and are skipped.
func tokenizeFolded(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(s, " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len([]rune(word)) <= 1 {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// extractWeightToken pulls the first weight/volume marker ("500г", "1л")
// out of a product name, normalized for comparison
func extractWeightToken(s string) string {
	m := weightPatternRegex.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	amount := strings.ReplaceAll(m[1], ",", ".")
	unit := strings.ToLower(m[2])
	return amount + unit
}
