package render

import (
	"strings"
	"unicode"
)

var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"tooth":  "teeth",
	"foot":   "feet",
	"mouse":  "mice",
	"goose":  "geese",
}

// Pluralize returns the English plural of a singular noun. Only the last word
// of a compound identifier is pluralized: orderItem → orderItems.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}

	ws := words(word)
	if len(ws) == 0 {
		return word
	}
	last := ws[len(ws)-1]
	prefix := word[:strings.LastIndex(word, last)]
	return prefix + pluralizeWord(last)
}

func pluralizeWord(word string) string {
	lower := strings.ToLower(word)

	if plural, ok := irregularPlurals[lower]; ok {
		return matchCase(word, plural)
	}

	switch {
	case hasAnySuffix(lower, "s", "x", "z", "ch", "sh"):
		return word + matchCase(word, "es")
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(lower[len(lower)-2]):
		return word[:len(word)-1] + matchCase(word, "ies")
	case strings.HasSuffix(lower, "fe"):
		return word[:len(word)-2] + matchCase(word, "ves")
	case strings.HasSuffix(lower, "f") && !strings.HasSuffix(lower, "ff"):
		return word[:len(word)-1] + matchCase(word, "ves")
	case strings.HasSuffix(lower, "o") && len(lower) > 1 && !isVowel(lower[len(lower)-2]) &&
		!hasAnySuffix(lower, "photo", "piano", "halo", "memo", "logo", "video"):
		return word + matchCase(word, "es")
	}
	return word + matchCase(word, "s")
}

// matchCase upper-cases suffix when word is all caps, and capitalizes it when
// it replaces a capitalized word entirely.
func matchCase(word, suffix string) string {
	if len(word) > 1 && strings.ToUpper(word) == word {
		return strings.ToUpper(suffix)
	}
	if _, irregular := irregularPlurals[strings.ToLower(word)]; irregular && unicode.IsUpper([]rune(word)[0]) {
		return upperFirst(suffix)
	}
	return suffix
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
