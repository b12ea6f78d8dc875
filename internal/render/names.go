package render

import (
	"strings"
	"unicode"
)

// words splits an identifier on '_', '-', spaces and case changes.
// Acronym runs stay together: "HTTPServer" → ["HTTP", "Server"].
func words(s string) []string {
	var out []string
	var cur []rune
	runes := []rune(s)

	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r) || r == '.':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func upperFirst(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// PascalCase converts an identifier to PascalCase.
// Examples: user_profile → UserProfile, userId → UserId, HTTP_server → HttpServer
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(Capitalize(w))
	}
	return b.String()
}

// CamelCase converts an identifier to camelCase.
// Examples: user_profile → userProfile, UserProfile → userProfile
func CamelCase(s string) string {
	ws := words(s)
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(ws[0]))
	for _, w := range ws[1:] {
		b.WriteString(upperFirst(strings.ToLower(w)))
	}
	return b.String()
}

// SnakeCase converts an identifier to snake_case.
// Examples: UserProfile → user_profile, HTTPServer → http_server
func SnakeCase(s string) string {
	return joinLower(s, "_")
}

// KebabCase converts an identifier to kebab-case, the file naming style of
// generated sources. Examples: UserProfile → user-profile, order_item → order-item
func KebabCase(s string) string {
	return joinLower(s, "-")
}

func joinLower(s, sep string) string {
	ws := words(s)
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}
	return strings.Join(ws, sep)
}
