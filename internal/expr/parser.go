package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Node is a parsed expression.
type Node interface {
	Eval() (any, error)
	String() string
}

// LiteralNode is a constant value.
type LiteralNode struct {
	Value any
}

func (n *LiteralNode) Eval() (any, error) { return n.Value, nil }

func (n *LiteralNode) String() string {
	if s, ok := n.Value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(n.Value)
}

// ListNode builds a list.
type ListNode struct {
	Items []Node
}

func (n *ListNode) Eval() (any, error) {
	out := make([]any, 0, len(n.Items))
	for _, item := range n.Items {
		v, err := item.Eval()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (n *ListNode) String() string {
	parts := make([]string, len(n.Items))
	for i, item := range n.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MapNode builds a map with string keys.
type MapNode struct {
	Keys   []Node
	Values []Node
}

func (n *MapNode) Eval() (any, error) {
	out := make(map[string]any, len(n.Keys))
	for i := range n.Keys {
		k, err := n.Keys[i].Eval()
		if err != nil {
			return nil, err
		}
		key, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("map keys must be strings, got %T", k)
		}
		v, err := n.Values[i].Eval()
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func (n *MapNode) String() string {
	parts := make([]string, len(n.Keys))
	for i := range n.Keys {
		parts[i] = n.Keys[i].String() + ": " + n.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// BinaryOpNode applies an arithmetic operator.
type BinaryOpNode struct {
	Left     Node
	Operator string
	Right    Node
}

func (n *BinaryOpNode) Eval() (any, error) {
	left, err := n.Left.Eval()
	if err != nil {
		return nil, err
	}
	right, err := n.Right.Eval()
	if err != nil {
		return nil, err
	}
	return binaryOp(left, n.Operator, right)
}

func (n *BinaryOpNode) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

// UnaryOpNode negates or affirms a number.
type UnaryOpNode struct {
	Operator string
	Operand  Node
}

func (n *UnaryOpNode) Eval() (any, error) {
	v, err := n.Operand.Eval()
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case int:
		if n.Operator == "-" {
			if x == math.MinInt {
				return nil, errOverflow
			}
			return -x, nil
		}
		return x, nil
	case float64:
		if n.Operator == "-" {
			return -x, nil
		}
		return x, nil
	}
	return nil, fmt.Errorf("bad operand type for unary %s: %T", n.Operator, v)
}

func (n *UnaryOpNode) String() string {
	return n.Operator + n.Operand.String()
}

// FunctionCallNode calls one of the allowed functions.
type FunctionCallNode struct {
	Name string
	Args []Node
}

func (n *FunctionCallNode) Eval() (any, error) {
	args := make([]any, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := a.Eval()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return functions[n.Name](args)
}

func (n *FunctionCallNode) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return n.Name + "(" + strings.Join(parts, ", ") + ")"
}

// constants are the only bare identifiers an expression may use.
var constants = map[string]any{
	"true":  true,
	"false": false,
	"True":  true,
	"False": false,
	"None":  nil,
	"nil":   nil,
}

// Parse parses src, rejecting any identifier outside the allowlist.
func Parse(src string) (Node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.typ != tokenEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", tok.value, tok.pos)
	}
	return node, nil
}

// Eval parses and evaluates src.
func Eval(src string) (any, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return node.Eval()
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) current() token {
	if p.pos >= len(p.tokens) {
		return token{typ: tokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) isOperator(ops ...string) bool {
	tok := p.current()
	if tok.typ != tokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.value == op {
			return true
		}
	}
	return false
}

func (p *parser) parseExpression() (Node, error) {
	return p.parseTerm()
}

// parseTerm parses + and -.
func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.isOperator("+", "-") {
		op := p.current().value
		p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

// parseFactor parses *, /, // and %.
func (p *parser) parseFactor() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isOperator("*", "/", "//", "%") {
		op := p.current().value
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

// parseUnary binds looser than **, so -2**2 is -(2**2).
func (p *parser) parseUnary() (Node, error) {
	if p.isOperator("-", "+") {
		op := p.current().value
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}
	return p.parsePower()
}

// parsePower parses the right-associative ** operator.
func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isOperator("**") {
		p.advance()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryOpNode{Left: base, Operator: "**", Right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.typ {
	case tokenNumber:
		p.advance()
		if i, err := strconv.Atoi(tok.value); err == nil {
			return &LiteralNode{Value: i}, nil
		}
		f, err := strconv.ParseFloat(tok.value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number: %s", tok.value)
		}
		return &LiteralNode{Value: f}, nil

	case tokenString:
		p.advance()
		value := tok.value
		// Adjacent string literals concatenate.
		for p.current().typ == tokenString {
			value += p.current().value
			p.advance()
		}
		return &LiteralNode{Value: value}, nil

	case tokenIdentifier:
		p.advance()
		if v, ok := constants[tok.value]; ok {
			return &LiteralNode{Value: v}, nil
		}
		if _, ok := functions[tok.value]; ok {
			if p.current().typ != tokenLeftParen {
				return nil, fmt.Errorf("function %s must be called", tok.value)
			}
			return p.parseFunctionCall(tok.value)
		}
		return nil, fmt.Errorf("use of %s not allowed", tok.value)

	case tokenLeftParen:
		p.advance()
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().typ != tokenRightParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.current().pos)
		}
		p.advance()
		return node, nil

	case tokenLeftBracket:
		p.advance()
		items, err := p.parseList(tokenRightBracket)
		if err != nil {
			return nil, err
		}
		return &ListNode{Items: items}, nil

	case tokenLeftBrace:
		p.advance()
		return p.parseMap()

	case tokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected %q at position %d", tok.value, tok.pos)
	}
}

// parseList parses comma separated expressions up to the closing token,
// allowing a trailing comma.
func (p *parser) parseList(closing tokenType) ([]Node, error) {
	var items []Node
	for {
		if p.current().typ == closing {
			p.advance()
			return items, nil
		}
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		switch p.current().typ {
		case tokenComma:
			p.advance()
		case closing:
			p.advance()
			return items, nil
		default:
			return nil, fmt.Errorf("expected ',' at position %d", p.current().pos)
		}
	}
}

func (p *parser) parseMap() (Node, error) {
	node := &MapNode{}
	for {
		if p.current().typ == tokenRightBrace {
			p.advance()
			return node, nil
		}
		key, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().typ != tokenColon {
			return nil, fmt.Errorf("expected ':' at position %d", p.current().pos)
		}
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Keys = append(node.Keys, key)
		node.Values = append(node.Values, value)

		switch p.current().typ {
		case tokenComma:
			p.advance()
		case tokenRightBrace:
			p.advance()
			return node, nil
		default:
			return nil, fmt.Errorf("expected ',' at position %d", p.current().pos)
		}
	}
}

func (p *parser) parseFunctionCall(name string) (Node, error) {
	p.advance() // consume '('
	args, err := p.parseList(tokenRightParen)
	if err != nil {
		return nil, err
	}
	return &FunctionCallNode{Name: name, Args: args}, nil
}
