// Package sanitize escapes untrusted text for interpolation into markup.
//
// Values from WHOIS/RDAP providers, DNS and certificate logs, and in-page
// extraction all pass through here before they enter a report.
package sanitize

import "strings"

// entities are the only escape sequences String produces. An ampersand that
// already starts one of them is left alone so String is idempotent.
var entities = []string{"&amp;", "&lt;", "&gt;", "&quot;", "&#x27;"}

// String escapes < > " ' & to their entity forms.
// String(String(s)) == String(s) for every s.
func String(s string) string {
	if !strings.ContainsAny(s, `<>"'&`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		case '&':
			if e := entityAt(s[i:]); e != "" {
				b.WriteString(e)
				i += len(e) - 1
				continue
			}
			b.WriteString("&amp;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func entityAt(s string) string {
	for _, e := range entities {
		if strings.HasPrefix(s, e) {
			return e
		}
	}
	return ""
}

// Value sanitizes v when it is a string; any other value is returned unchanged.
func Value(v any) any {
	if s, ok := v.(string); ok {
		return String(s)
	}
	return v
}

// Strings returns a new slice with every element sanitized.
func Strings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = String(v)
	}
	return out
}

// Map returns a new map with every key and value sanitized.
func Map(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[String(k)] = String(v)
	}
	return out
}
