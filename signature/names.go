package signature

import (
	"strings"
	"unicode"
)

// KebabCase converts PascalCase to kebab-case.
// Handles acronyms: GetHTTPURL -> get-http-url
func KebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}

		end := i + 1
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}
		// the last capital of a run starts the next word
		if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
			end--
		}

		if i > 0 {
			result.WriteByte('-')
		}
		for j := i; j < end; j++ {
			result.WriteRune(unicode.ToLower(runes[j]))
		}
		i = end - 1
	}
	return result.String()
}

// SnakeCase converts PascalCase to snake_case, the form used for export
// symbols: GetHTTPURL -> get_http_url
func SnakeCase(s string) string {
	return strings.ReplaceAll(KebabCase(s), "-", "_")
}
