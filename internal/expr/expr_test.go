package expr

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	tests := []struct {
		expr     string
		expected any
	}{
		{`"Hi"`, "Hi"},
		{`'it\'s'`, "it's"},
		{"`raw\\n`", `raw\n`},
		{`"a" "b"`, "ab"},
		{"42", 42},
		{"1_000", 1000},
		{"3.5", 3.5},
		{"1e3", 1000.0},
		{"true", true},
		{"False", false},
		{"None", nil},
		{"nil", nil},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"7 / 2", 3.5},
		{"7 // 2", 3},
		{"-7 // 2", -4},
		{"-7 % 3", 2},
		{"7 % -3", -2},
		{"2 ** 3 ** 2", 512},
		{"-2 ** 2", -4},
		{"2 ** -1", 0.5},
		{"1 + 2.5", 3.5},
		{`"ab" * 3`, "ababab"},
		{`2 * "x"`, "xx"},
		{"[1, 2] + [3]", []any{1, 2, 3}},
		{"[]", []any{}},
		{"[1, 'a', [true],]", []any{1, "a", []any{true}}},
		{`{"a": 1, 'b': [2]}`, map[string]any{"a": 1, "b": []any{2}}},
		{"{}", map[string]any{}},
		{`len("héllo")`, 5},
		{"len([1, 2, 3])", 3},
		{`len({"a": 1})`, 1},
		{"max(3, 9, 4)", 9},
		{"max([1.5, 0])", 1.5},
		{"min(3, 9, 4)", 3},
		{`min("b", "a")`, "a"},
		{"pow(2, 10)", 1024},
		{"pow(3, 4, 5)", 1},
		{"pow(-2, 3, 5)", 2},
		{"pow(3, 4, -5)", -4},
		{"pow(7, 10**12, 13)", 9},
		{"2 ** 62", 1 << 62},
		{"1 ** 10 ** 12", 1},
		{"(-1) ** (10 ** 12 + 1)", -1},
		{"9223372036854775806 + 1", 9223372036854775807},
		{`"" * 10 ** 18`, ""},
		{"sum([1, 2, 3])", 6},
		{"sum([1, 2], 10)", 13},
		{"sum([0.5, 1])", 1.5},
		{"+5", 5},
		{"-(1.5)", -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestEvalRejects(t *testing.T) {
	tests := []struct {
		expr    string
		message string
	}{
		{"os", "use of os not allowed"},
		{"__import__('os')", "use of __import__ not allowed"},
		{"open('x')", "use of open not allowed"},
		{"len", "function len must be called"},
		{"1 / 0", "division by zero"},
		{"5 // 0", "division by zero"},
		{`"a" - 1`, "unsupported operand types"},
		{`"abc`, "unterminated string"},
		{"[1,", "unexpected end of expression"},
		{"1 2", "unexpected"},
		{"(1", "expected ')'"},
		{"{1: 2}", "map keys must be strings"},
		{"1 ; 2", "unexpected character"},
		{"len(1)", "has no len()"},
		{"max()", "empty sequence"},
		{"pow(2)", "takes 2 or 3 arguments"},
		{"sum(1)", "must be a list"},
		{`sum(["a"])`, "can't sum"},
		{"-'x'", "bad operand type"},
		{`"a" * 10**18`, "result longer than"},
		{"[0] * 2000000", "result longer than"},
		{`"ab" * 600000`, "result longer than"},
		{"2**64", "integer overflow"},
		{"2**10**12", "integer overflow"},
		{"9223372036854775807 + 1", "integer overflow"},
		{"-9223372036854775807 - 2", "integer overflow"},
		{"3037000500 * 3037000500", "integer overflow"},
		{"pow(10, 19)", "integer overflow"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Eval(tt.expr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseRejectsUnknownIdentifiersBeforeEvaluation(t *testing.T) {
	// The division by zero would fail at evaluation time; the unknown name
	// must be caught first, while parsing.
	_, err := Parse("1 / 0 + secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
}

func TestNodeString(t *testing.T) {
	node, err := Parse(`max(1, 2) + [3, "x"][0:0] `)
	assert.Error(t, err)
	assert.Nil(t, node)

	node, err = Parse(`max(1, 2) + len({"k": [3]})`)
	require.NoError(t, err)
	assert.Equal(t, `(max(1, 2) + len({"k": [3]}))`, node.String())
}

func TestArithmeticProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("integer arithmetic matches Go", prop.ForAll(
		func(a, b int) bool {
			sum, err1 := Eval(fmt.Sprintf("%d + %d", a, b))
			diff, err2 := Eval(fmt.Sprintf("%d - (%d)", a, b))
			prod, err3 := Eval(fmt.Sprintf("(%d) * (%d)", a, b))
			return err1 == nil && err2 == nil && err3 == nil &&
				sum == a+b && diff == a-b && prod == a*b
		},
		gen.IntRange(-10000, 10000),
		gen.IntRange(-10000, 10000),
	))

	properties.Property("floor division and modulo agree", prop.ForAll(
		func(a, b int) bool {
			if b == 0 {
				return true
			}
			q, err1 := Eval(fmt.Sprintf("(%d) // (%d)", a, b))
			r, err2 := Eval(fmt.Sprintf("(%d) %% (%d)", a, b))
			if err1 != nil || err2 != nil {
				return false
			}
			return q.(int)*b+r.(int) == a
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(-50, 50),
	))

	properties.Property("string literals round trip", prop.ForAll(
		func(s string) bool {
			v, err := Eval(`"` + s + `"`)
			return err == nil && v == s
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
