package record

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// isPunctuationOnly reports whether s has no letters or digits.
func isPunctuationOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isSingleLetter reports whether s is one character, or one letter wrapped
// in punctuation or spaces ("A", "b.", "(c)").
func isSingleLetter(s string) bool {
	if runeLen(s) < 2 {
		return true
	}
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			return false
		case unicode.IsSpace(r), unicode.IsPunct(r), unicode.IsSymbol(r):
		default:
			return false
		}
	}
	return letters == 1
}

// isPlaceholder reports whether s is a known no-information token.
func isPlaceholder(s string) bool {
	key := strings.ToLower(strings.TrimSpace(s))
	if _, ok := defaultPlaceholders[key]; ok {
		return true
	}
	key = strings.TrimFunc(key, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '/' && r != '-')
	})
	_, ok := defaultPlaceholders[key]
	return ok
}
