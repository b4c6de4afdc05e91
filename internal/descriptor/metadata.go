package descriptor

import (
	"fmt"
	"regexp"
	"strings"

	tagxerrors "github.com/conneroisu/tagx/internal/errors"
	"github.com/conneroisu/tagx/internal/expr"
)

var (
	rxComma      = regexp.MustCompile(`\s*,\s*`)
	rxIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// LoadMetadata reads the leading run of comment actions in source:
//
//	{{/* def title, size="md" */}}
//	{{/* css card.css */}}
//	{{/* js card.js */}}
//
// Ordinary comments between metadata blocks are skipped, but the header must
// open with a metadata block. The first piece of content that is not a comment
// action ends the header.
func (d *Descriptor) LoadMetadata(source string) error {
	defFound := false
	rest := source
	first := true

	for {
		body, next, ok := nextComment(rest)
		if !ok {
			return nil
		}
		rest = next

		keyword, value := splitKeyword(body)
		if first && keyword == "" {
			return nil
		}
		first = false

		switch keyword {
		case "def":
			if defFound {
				return tagxerrors.NewDuplicateDeclarationError(d.Name)
			}
			defFound = true
			required, optional, err := parseParams(value)
			if err != nil {
				return err.WithComponent(d.Name)
			}
			d.Required, d.Optional = required, optional
		case "css":
			d.CSS = append(d.CSS, d.parseFiles(value)...)
		case "js":
			d.JS = append(d.JS, d.parseFiles(value)...)
		}
	}
}

// nextComment returns the body of the comment action at the start of s
// (after whitespace) and the text that follows it.
func nextComment(s string) (string, string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if !strings.HasPrefix(s, "{{") {
		return "", "", false
	}
	i := 2
	if strings.HasPrefix(s[i:], "- ") {
		i++
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if !strings.HasPrefix(s[i:], "/*") {
		return "", "", false
	}
	bodyStart := i + 2

	closeIdx := strings.Index(s[bodyStart:], "*/")
	if closeIdx < 0 {
		return "", "", false
	}
	body := s[bodyStart : bodyStart+closeIdx]

	j := bodyStart + closeIdx + 2
	for j < len(s) && isSpace(s[j]) {
		j++
	}
	if strings.HasPrefix(s[j:], "-}}") && isSpace(s[j-1]) {
		j++
	}
	if !strings.HasPrefix(s[j:], "}}") {
		return "", "", false
	}

	return body, s[j+2:], true
}

// splitKeyword separates "def a, b" into "def" and "a, b". Bodies that do not
// start with a metadata keyword return an empty keyword.
func splitKeyword(body string) (string, string) {
	body = strings.TrimSpace(body)
	for _, kw := range []string{"def", "css", "js"} {
		if body == kw {
			return kw, ""
		}
		if strings.HasPrefix(body, kw) && isSpace(body[len(kw)]) {
			return kw, strings.TrimSpace(body[len(kw):])
		}
	}
	return "", body
}

func (d *Descriptor) parseFiles(value string) []string {
	value = strings.ReplaceAll(stripComments(value), "\n", " ")

	var files []string
	for _, url := range rxComma.Split(strings.TrimSpace(value), -1) {
		url = strings.TrimRight(strings.Trim(url, `"'`), "/")
		if url == "" {
			continue
		}
		if strings.HasPrefix(url, "/") || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
			files = append(files, url)
		} else {
			files = append(files, d.URLPrefix+url)
		}
	}
	return files
}

// parseParams parses a parameter list such as
//
//	title, size: str = "md", items=[]  # trailing comment
func parseParams(value string) ([]string, []Param, *tagxerrors.TagxError) {
	value = strings.Trim(stripComments(value), " \t\r\n*,/")
	if value == "" {
		return nil, nil, nil
	}

	var required []string
	var optional []Param
	seen := make(map[string]bool)

	for _, item := range splitTopLevel(value, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, nil, tagxerrors.NewInvalidArgumentError("empty parameter in declaration", nil)
		}

		name, def, hasDefault := item, "", false
		if idx := indexTopLevel(item, '='); idx >= 0 {
			name, def, hasDefault = item[:idx], strings.TrimSpace(item[idx+1:]), true
		}
		if idx := strings.IndexByte(name, ':'); idx >= 0 {
			// Type annotations are accepted and ignored.
			name = name[:idx]
		}
		name = strings.TrimSpace(name)

		if !rxIdentifier.MatchString(name) {
			return nil, nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("invalid parameter name %q", name), nil)
		}
		if seen[name] {
			return nil, nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("duplicate parameter %q", name), nil)
		}
		seen[name] = true

		if !hasDefault {
			required = append(required, name)
			continue
		}
		if def == "" {
			return nil, nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("missing default for %q", name), nil)
		}
		v, err := expr.Eval(def)
		if err != nil {
			return nil, nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("invalid default for %q", name), err)
		}
		optional = append(optional, Param{Name: name, Default: v})
	}

	return required, optional, nil
}

// stripComments removes "#" comments running to the end of the line, leaving
// "#" inside quoted strings alone.
func stripComments(s string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(c)
				i++
				c = s[i]
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// splitTopLevel splits s on sep outside quotes and brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	walkTopLevel(s, func(i int, c byte) bool {
		if c == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
		return true
	})
	return append(parts, s[start:])
}

// indexTopLevel returns the first offset of c outside quotes and brackets.
func indexTopLevel(s string, c byte) int {
	found := -1
	walkTopLevel(s, func(i int, ch byte) bool {
		if ch == c {
			found = i
			return false
		}
		return true
	})
	return found
}

// walkTopLevel calls fn for every byte of s at bracket depth zero outside
// string literals, until fn returns false.
func walkTopLevel(s string, fn func(i int, c byte) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if depth == 0 && !fn(i, c) {
				return
			}
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
