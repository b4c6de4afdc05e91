package preprocess

import (
	"fmt"
	"strings"
)

// rawMask shields verbatim spans from the tag scanner. Each span is replaced
// by a placeholder that keeps the span's newlines so line numbers computed on
// the masked text still match the unmasked source.
type rawMask struct {
	spans []rawSpan
}

type rawSpan struct {
	placeholder string
	text        string
}

// maskRaw replaces every verbatim span in source with a placeholder.
func maskRaw(source string) (string, *rawMask) {
	m := &rawMask{}
	var b strings.Builder
	b.Grow(len(source))

	i := 0
	for {
		start := indexRawStart(source, i)
		if start < 0 {
			b.WriteString(source[i:])
			break
		}
		end := rawSpanEnd(source, start)
		b.WriteString(source[i:start])
		b.WriteString(m.add(source[start:end]))
		i = end
	}

	return b.String(), m
}

func (m *rawMask) add(text string) string {
	ph := fmt.Sprintf("\x00raw%d%s\x00", len(m.spans), strings.Repeat("\n", strings.Count(text, "\n")))
	m.spans = append(m.spans, rawSpan{placeholder: ph, text: text})
	return ph
}

// restore puts every masked span back, byte for byte.
func (m *rawMask) restore(source string) string {
	if len(m.spans) == 0 {
		return source
	}
	pairs := make([]string, 0, len(m.spans)*2)
	for _, s := range m.spans {
		pairs = append(pairs, s.placeholder, s.text)
	}
	return strings.NewReplacer(pairs...).Replace(source)
}

// indexRawStart returns the offset of the next action that opens with a raw
// string or a comment, or -1.
func indexRawStart(source string, from int) int {
	for {
		idx := strings.Index(source[from:], "{{")
		if idx < 0 {
			return -1
		}
		start := from + idx
		if _, ok := rawBodyStart(source, start); ok {
			return start
		}
		from = start + 2
	}
}

// rawBodyStart reports whether the action at start is verbatim and returns the
// offset of its opening backtick or "/*".
func rawBodyStart(source string, start int) (int, bool) {
	j := start + 2
	if j < len(source) && source[j] == '-' && j+1 < len(source) && isSpace(source[j+1]) {
		j++
	}
	for j < len(source) && isSpace(source[j]) {
		j++
	}
	if j < len(source) && source[j] == '`' {
		return j, true
	}
	if strings.HasPrefix(source[j:], "/*") {
		return j, true
	}
	return 0, false
}

// rawSpanEnd returns the offset just past the verbatim action starting at
// start. The first closing marker ends the span; an unterminated span runs to
// the end of source.
func rawSpanEnd(source string, start int) int {
	body, _ := rawBodyStart(source, start)

	var closeAt int
	if source[body] == '`' {
		idx := strings.IndexByte(source[body+1:], '`')
		if idx < 0 {
			return len(source)
		}
		closeAt = body + 1 + idx + 1
	} else {
		idx := strings.Index(source[body+2:], "*/")
		if idx < 0 {
			return len(source)
		}
		closeAt = body + 2 + idx + 2
	}

	idx := strings.Index(source[closeAt:], "}}")
	if idx < 0 {
		return len(source)
	}
	return closeAt + idx + 2
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
