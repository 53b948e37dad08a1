package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	yearPattern     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	volumePattern   = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:ml|cl|ltr|litre|liter|l|oz)\b`)
	currencyPattern = regexp.MustCompile(`(?i)(?:[$€£]\s*\d+(?:[.,]\d+)?|\b\d+(?:[.,]\d+)?\s*[$€£]|\b(?:usd|eur|gbp)\s*\d+(?:[.,]\d+)?\b)`)

	diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize lowercases raw label text, folds diacritics, and strips vintage
// years, container sizes, currency amounts, and the supplied stoplist of
// marketing words. The result is whitespace-collapsed. Side-effect free.
func Normalize(raw string, stoplist []string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return ""
	}
	text = FoldDiacritics(text)
	text = yearPattern.ReplaceAllString(text, " ")
	text = volumePattern.ReplaceAllString(text, " ")
	text = currencyPattern.ReplaceAllString(text, " ")
	text = stripPunctuation(text)
	text = removeStopPhrases(text, stoplist)
	return collapseWhitespace(text)
}

// StripVintage removes 4-digit vintage years from a name. Dedup keys are
// vintage-agnostic: all vintages of a wine collapse to one entry.
func StripVintage(name string) string {
	return collapseWhitespace(yearPattern.ReplaceAllString(name, " "))
}

// FoldDiacritics converts accented characters to their base form
// ("château" becomes "chateau").
func FoldDiacritics(text string) string {
	folded, _, err := transform.String(diacriticStripper, text)
	if err != nil {
		return text
	}
	return folded
}

func stripPunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func removeStopPhrases(text string, stoplist []string) string {
	if len(stoplist) == 0 {
		return text
	}
	padded := " " + collapseWhitespace(text) + " "
	for _, phrase := range stoplist {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		needle := " " + collapseWhitespace(stripPunctuation(phrase)) + " "
		for strings.Contains(padded, needle) {
			padded = strings.Replace(padded, needle, " ", 1)
		}
	}
	return strings.TrimSpace(padded)
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Tokens splits normalized text into its whitespace-separated tokens.
func Tokens(text string) []string {
	return strings.Fields(text)
}
