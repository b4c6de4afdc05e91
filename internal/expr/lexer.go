// Package expr evaluates the default values of component parameters.
//
// The language is deliberately small: numbers, strings, booleans, None/nil,
// lists, string-keyed maps, arithmetic operators and the functions len, max,
// min, pow and sum. Any other identifier is rejected when the expression is
// parsed, so a default value can never reach data or code outside itself.
package expr

import (
	"fmt"
	"strings"
)

type tokenType int

const (
	tokenIdentifier tokenType = iota
	tokenNumber
	tokenString
	tokenOperator
	tokenLeftParen
	tokenRightParen
	tokenLeftBracket
	tokenRightBracket
	tokenLeftBrace
	tokenRightBrace
	tokenComma
	tokenColon
	tokenEOF
)

type token struct {
	typ   tokenType
	value string
	pos   int
}

var operators = []string{"**", "//", "+", "-", "*", "/", "%"}

// tokenize splits an expression into tokens.
func tokenize(src string) ([]token, error) {
	var tokens []token
	pos := 0

	for pos < len(src) {
		c := src[pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pos++
			continue
		case isIdentStart(c):
			start := pos
			for pos < len(src) && isIdentChar(src[pos]) {
				pos++
			}
			tokens = append(tokens, token{typ: tokenIdentifier, value: src[start:pos], pos: start})
			continue
		case isDigit(c) || (c == '.' && pos+1 < len(src) && isDigit(src[pos+1])):
			end := scanNumber(src, pos)
			tokens = append(tokens, token{typ: tokenNumber, value: strings.ReplaceAll(src[pos:end], "_", ""), pos: pos})
			pos = end
			continue
		case c == '"' || c == '\'' || c == '`':
			value, end, err := scanString(src, pos)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{typ: tokenString, value: value, pos: pos})
			pos = end
			continue
		}

		if typ, ok := punctuation[c]; ok {
			tokens = append(tokens, token{typ: typ, value: string(c), pos: pos})
			pos++
			continue
		}

		matched := false
		for _, op := range operators {
			if strings.HasPrefix(src[pos:], op) {
				tokens = append(tokens, token{typ: tokenOperator, value: op, pos: pos})
				pos += len(op)
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("unexpected character %q at position %d", c, pos)
		}
	}

	tokens = append(tokens, token{typ: tokenEOF, pos: len(src)})
	return tokens, nil
}

var punctuation = map[byte]tokenType{
	'(': tokenLeftParen,
	')': tokenRightParen,
	'[': tokenLeftBracket,
	']': tokenRightBracket,
	'{': tokenLeftBrace,
	'}': tokenRightBrace,
	',': tokenComma,
	':': tokenColon,
}

func scanNumber(src string, pos int) int {
	for pos < len(src) && (isDigit(src[pos]) || src[pos] == '_') {
		pos++
	}
	if pos < len(src) && src[pos] == '.' {
		pos++
		for pos < len(src) && isDigit(src[pos]) {
			pos++
		}
	}
	if pos < len(src) && (src[pos] == 'e' || src[pos] == 'E') {
		next := pos + 1
		if next < len(src) && (src[next] == '+' || src[next] == '-') {
			next++
		}
		if next < len(src) && isDigit(src[next]) {
			pos = next
			for pos < len(src) && isDigit(src[pos]) {
				pos++
			}
		}
	}
	return pos
}

// scanString reads a quoted string starting at pos and returns its value and
// the offset just past the closing quote.
func scanString(src string, pos int) (string, int, error) {
	q := src[pos]
	var b strings.Builder
	for i := pos + 1; i < len(src); i++ {
		c := src[i]
		if c == q {
			return b.String(), i + 1, nil
		}
		if c != '\\' || q == '`' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(src) {
			break
		}
		switch src[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(src[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string starting at position %d", pos)
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
