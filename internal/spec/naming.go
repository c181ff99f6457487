package spec

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// toCamelCase lowercases the leading uppercase run of name and keeps the
// rest unchanged: Name -> name, IDValue -> idValue, ID -> id,
// first_name -> first_name.
func toCamelCase(name string) string {
	rs := []rune(name)
	n := 0
	for n < len(rs) && unicode.IsUpper(rs[n]) {
		n++
	}
	if n > 1 && n < len(rs) && unicode.IsLower(rs[n]) {
		n--
	}
	if n == 0 {
		return name
	}
	return lower.String(string(rs[:n])) + string(rs[n:])
}

// toLowercaseUnderscore joins the lowercased words of name with
// underscores: FirstName -> first_name.
func toLowercaseUnderscore(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return name
	}
	for i, w := range words {
		words[i] = lower.String(w)
	}
	return strings.Join(words, "_")
}

// splitWords splits on case boundaries and underscores. An uppercase run
// followed by a lowercase letter ends one rune early, so XMLHttp splits
// into XML and Http.
func splitWords(s string) []string {
	var (
		words   []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return words
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// componentName maps a model id onto the characters allowed in OpenAPI
// component keys. List<Widget> becomes List_Widget_.
func componentName(id string) string {
	id, _, _ = transform.String(stripMarks, id)
	var b strings.Builder
	for _, r := range id {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
