package repositorymemo

import (
	"reflect"
	"strings"
	"unicode"
)

// tableNameFor derives the default table name from the record type:
// "User" and "*User" both become "user", "APIKey" becomes "api_key".
func tableNameFor[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" {
		name = t.String()
	}

	if snake := toSnake(name); snake != "" {
		return snake
	}
	return "record"
}

// toSnake converts a reflected type name to snake_case.
// Punctuation from generic type names (e.g. "Page[main.User]") collapses
// into single underscores.
func toSnake(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	separate := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					separate()
				}
			}
			b.WriteRune(unicode.ToLower(r))

		case unicode.IsLower(r):
			b.WriteRune(r)

		case unicode.IsDigit(r):
			if i > 0 && !unicode.IsDigit(runes[i-1]) {
				separate()
			}
			b.WriteRune(r)

		default:
			separate()
		}
	}

	return strings.Trim(b.String(), "_")
}
