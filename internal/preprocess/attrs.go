package preprocess

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnbalanced is returned when a quote or expression opened in an
// attribute list is never closed.
var ErrUnbalanced = errors.New("unbalanced quote or expression")

// Attr is one attribute of an opening tag. Value keeps its delimiters
// ("...", '...' or {{...}}); it is empty for a valueless attribute.
type Attr struct {
	Name  string
	Value string
}

// TokenizeAttrs splits the attribute list of one opening tag into ordered
// name/value pairs. Characters that cannot start an attribute name are
// skipped.
func TokenizeAttrs(s string) ([]Attr, error) {
	var attrs []Attr
	i := 0
	for i < len(s) {
		if !isNameStart(s[i]) {
			i++
			continue
		}
		start := i
		for i < len(s) && isNameChar(s[i]) {
			i++
		}
		attr := Attr{Name: s[start:i]}

		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) && s[j] == '=' {
			j++
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			end, err := scanValue(s, j)
			if err != nil {
				return nil, err
			}
			attr.Value = s[j:end]
			i = end
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// scanValue returns the end offset of the attribute value starting at i.
func scanValue(s string, i int) (int, error) {
	if i >= len(s) {
		return i, nil
	}
	switch {
	case s[i] == '"' || s[i] == '\'':
		end := scanQuoted(s, i)
		if end < 0 {
			return 0, ErrUnbalanced
		}
		return end, nil
	case strings.HasPrefix(s[i:], "{{"):
		end := scanExpr(s, i)
		if end < 0 {
			return 0, ErrUnbalanced
		}
		return end, nil
	default:
		j := i
		for j < len(s) && !isSpace(s[j]) {
			j++
		}
		return j, nil
	}
}

// scanQuoted returns the offset just past the quote closing the string that
// opens at i, honouring backslash escapes, or -1.
func scanQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return -1
}

// scanExpr returns the offset just past the "}}" matching the "{{" at i, or
// -1. Quoted strings inside the expression are opaque and one level of
// nested braces is matched.
func scanExpr(s string, i int) int {
	depth := 0
	for j := i; j < len(s); {
		switch {
		case strings.HasPrefix(s[j:], "{{"):
			depth++
			if depth > 2 {
				return -1
			}
			j += 2
		case strings.HasPrefix(s[j:], "}}"):
			depth--
			j += 2
			if depth == 0 {
				return j
			}
		case s[j] == '"' || s[j] == '\'':
			end := scanQuoted(s, j)
			if end < 0 {
				return -1
			}
			j = end
		case s[j] == '`':
			end := strings.IndexByte(s[j+1:], '`')
			if end < 0 {
				return -1
			}
			j += end + 2
		default:
			j++
		}
	}
	return -1
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '@' || c == ':' || c == '$' || c == '_'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-'
}

// lowerAttr turns one attribute into a key literal and a text/template
// operand for the render call.
func lowerAttr(a Attr) (string, string) {
	name := strings.ReplaceAll(strings.TrimSpace(a.Name), "-", "_")
	dynamic := strings.HasPrefix(name, ":")
	name = strings.TrimLeft(name, ":")
	key := strconv.Quote(name)

	value := strings.TrimSpace(a.Value)
	switch {
	case value == "":
		return key, "true"
	case dynamic && isQuoted(value):
		return key, "(" + strings.TrimSpace(value[1:len(value)-1]) + ")"
	case strings.HasPrefix(value, "{{") && strings.HasSuffix(value, "}}"):
		return key, "(" + strings.TrimSpace(value[2:len(value)-2]) + ")"
	case value[0] == '"':
		return key, strings.ReplaceAll(value, "\n", `\n`)
	case value[0] == '\'':
		inner := strings.ReplaceAll(value[1:len(value)-1], `\'`, `'`)
		return key, strconv.Quote(inner)
	case dynamic:
		return key, "(" + value + ")"
	default:
		return key, strconv.Quote(value)
	}
}

func isQuoted(v string) bool {
	return len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0]
}
