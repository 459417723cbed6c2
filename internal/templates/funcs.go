package templates

import (
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"
)

// Funcs are the helpers available to every page and email template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"initials": Initials,
		"date":     FormatDate,
		"rating":   func(r float64) string { return fmt.Sprintf("%.1f", r) },
		"add":      func(a, b int) int { return a + b },
		"year": func(date string) string {
			if len(date) >= 4 {
				return date[:4]
			}
			return ""
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"safeURL": func(s string) template.URL { return template.URL(s) },
		"dict":    Dict,
	}
}

// Dict builds a map from alternating keys and values so a template can pass
// several values to a partial.
func Dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// Initials returns up to two uppercase initials of name, or "U".
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		out = append(out, unicode.ToUpper([]rune(word)[0]))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "U"
	}
	return string(out)
}

// FormatDate renders a millisecond timestamp as a calendar date.
func FormatDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}
