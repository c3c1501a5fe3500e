package writer

import (
	"strings"
	"unicode"
)

// splitWords splits an identifier into lowercase words, breaking on
// underscores, hyphens and lower-to-upper case boundaries.
func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

func pascalCase(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

func camelCase(s string) string {
	p := pascalCase(s)
	if p == "" {
		return ""
	}
	return strings.ToLower(p[:1]) + p[1:]
}

func snakeCase(s string) string {
	return strings.Join(splitWords(s), "_")
}

// nameMap builds the placeholder values for a name, optionally prefixed
// (e.g. "r_" for route, "m_" for method placeholders).
func nameMap(name, prefix string) map[string]string {
	return map[string]string{
		prefix + "d":  name,
		prefix + "cc": camelCase(name),
		prefix + "pc": pascalCase(name),
		prefix + "uc": strings.ToUpper(name),
		prefix + "lc": strings.ToLower(name),
		prefix + "sc": snakeCase(name),
	}
}

// expandFormat substitutes {placeholder} occurrences from vals.
func expandFormat(format string, vals map[string]string) string {
	for key, value := range vals {
		format = strings.ReplaceAll(format, "{"+key+"}", value)
	}
	return format
}
