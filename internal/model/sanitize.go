package model

import "strings"

var htmlEscapes = map[byte]string{
	'&':  "&amp;",
	'<':  "&lt;",
	'>':  "&gt;",
	'"':  "&quot;",
	'\'': "&#x27;",
	'/':  "&#x2F;",
}

// entityNames are the escape sequences SanitizeText itself emits. An ampersand
// starting one of these is left alone so sanitizing twice changes nothing.
var entityNames = []string{"amp;", "lt;", "gt;", "quot;", "#x27;", "#x2F;"}

// SanitizeText escapes the HTML-significant characters plus solidus so the
// result is safe to interpolate into markup. Idempotent: already-escaped
// entities are not escaped again.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '&' {
			if name, ok := entityAt(s, i+1); ok {
				b.WriteByte('&')
				b.WriteString(name)
				i += len(name)
				continue
			}
		}
		if esc, ok := htmlEscapes[c]; ok {
			b.WriteString(esc)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func entityAt(s string, i int) (string, bool) {
	for _, name := range entityNames {
		if strings.HasPrefix(s[i:], name) {
			return name, true
		}
	}
	return "", false
}
