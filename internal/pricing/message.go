package pricing

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// sanitizer permits only inline formatting tags in operator-supplied
// message formats. Script, style and iframe content is dropped entirely.
var sanitizer = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "span", "small", "sup", "sub", "br", "p")
	p.AllowAttrs("class").OnElements("span", "p")
	return p
}()

// SanitizeMessageFormat strips disallowed HTML from an operator-supplied
// message format string.
func SanitizeMessageFormat(format string) string {
	return sanitizer.Sanitize(format)
}

// RenderMessage substitutes {token} placeholders with their values.
// Sanitize the format first; substitution itself is a literal string
// replace.
func RenderMessage(format string, tokens map[string]string) string {
	for token, value := range tokens {
		format = strings.ReplaceAll(format, "{"+token+"}", value)
	}
	return format
}
