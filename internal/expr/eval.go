package expr

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"
)

// MaxSequenceLen bounds the length of strings and lists built by + and *.
const MaxSequenceLen = 1 << 20

var (
	errDivisionByZero = errors.New("division by zero")
	errOverflow       = errors.New("integer overflow")
	errTooLong        = fmt.Errorf("result longer than %d items", MaxSequenceLen)
)

// functions is the closed set of callables available to expressions.
var functions = map[string]func(args []any) (any, error){
	"len": builtinLen,
	"max": func(args []any) (any, error) { return extreme("max", args, 1) },
	"min": func(args []any) (any, error) { return extreme("min", args, -1) },
	"pow": builtinPow,
	"sum": builtinSum,
}

func binaryOp(left any, op string, right any) (any, error) {
	switch op {
	case "+":
		return add(left, right)
	case "-", "*", "/", "//", "%", "**":
	default:
		return nil, fmt.Errorf("unknown operator %s", op)
	}

	if op == "*" {
		if v, ok, err := repeat(left, right); ok {
			return v, err
		}
		if v, ok, err := repeat(right, left); ok {
			return v, err
		}
	}

	li, lInt := left.(int)
	ri, rInt := right.(int)
	if lInt && rInt {
		return intOp(li, op, ri)
	}

	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operand types for %s: %T and %T", op, left, right)
	}
	return floatOp(lf, op, rf)
}

func add(left, right any) (any, error) {
	switch l := left.(type) {
	case string:
		if r, ok := right.(string); ok {
			if len(l)+len(r) > MaxSequenceLen {
				return nil, errTooLong
			}
			return l + r, nil
		}
	case []any:
		if r, ok := right.([]any); ok {
			if len(l)+len(r) > MaxSequenceLen {
				return nil, errTooLong
			}
			out := make([]any, 0, len(l)+len(r))
			return append(append(out, l...), r...), nil
		}
	case int:
		if r, ok := right.(int); ok {
			return addInt(l, r)
		}
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		return lf + rf, nil
	}
	return nil, fmt.Errorf("unsupported operand types for +: %T and %T", left, right)
}

// repeat handles sequence * int. ok reports whether the operands were a
// sequence and a count.
func repeat(seq, count any) (any, bool, error) {
	n, ok := count.(int)
	if !ok {
		return nil, false, nil
	}
	if n < 0 {
		n = 0
	}
	switch s := seq.(type) {
	case string:
		if len(s) > 0 && n > MaxSequenceLen/len(s) {
			return nil, true, errTooLong
		}
		return strings.Repeat(s, n), true, nil
	case []any:
		if len(s) > 0 && n > MaxSequenceLen/len(s) {
			return nil, true, errTooLong
		}
		out := make([]any, 0, len(s)*n)
		for i := 0; i < n && len(s) > 0; i++ {
			out = append(out, s...)
		}
		return out, true, nil
	}
	return nil, false, nil
}

func intOp(l int, op string, r int) (any, error) {
	switch op {
	case "-":
		diff := l - r
		if (r > 0 && diff > l) || (r < 0 && diff < l) {
			return nil, errOverflow
		}
		return diff, nil
	case "*":
		return mulInt(l, r)
	case "/":
		if r == 0 {
			return nil, errDivisionByZero
		}
		return float64(l) / float64(r), nil
	case "//":
		if r == 0 {
			return nil, errDivisionByZero
		}
		if l == math.MinInt && r == -1 {
			return nil, errOverflow
		}
		return floorDiv(l, r), nil
	case "%":
		if r == 0 {
			return nil, errDivisionByZero
		}
		if r == -1 {
			return 0, nil
		}
		return l - floorDiv(l, r)*r, nil
	case "**":
		if r < 0 {
			return math.Pow(float64(l), float64(r)), nil
		}
		return powInt(l, r)
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func addInt(l, r int) (int, error) {
	sum := l + r
	if (r > 0 && sum < l) || (r < 0 && sum > l) {
		return 0, errOverflow
	}
	return sum, nil
}

func mulInt(l, r int) (int, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	if (l == -1 && r == math.MinInt) || (r == -1 && l == math.MinInt) {
		return 0, errOverflow
	}
	product := l * r
	if product/r != l {
		return 0, errOverflow
	}
	return product, nil
}

// powInt is square-and-multiply, so the loop count is the bit length of exp.
func powInt(base, exp int) (int, error) {
	result := 1
	for exp > 0 {
		var err error
		if exp&1 == 1 {
			if result, err = mulInt(result, base); err != nil {
				return 0, err
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, err = mulInt(base, base); err != nil {
				return 0, err
			}
		}
	}
	return result, nil
}

func floatOp(l float64, op string, r float64) (any, error) {
	switch op {
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, errDivisionByZero
		}
		return l / r, nil
	case "//":
		if r == 0 {
			return nil, errDivisionByZero
		}
		return math.Floor(l / r), nil
	case "%":
		if r == 0 {
			return nil, errDivisionByZero
		}
		return l - math.Floor(l/r)*r, nil
	case "**":
		return math.Pow(l, r), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// floorDiv rounds toward negative infinity.
func floorDiv(l, r int) int {
	q := l / r
	if (l%r != 0) && ((l < 0) != (r < 0)) {
		q--
	}
	return q
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func builtinLen(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len() takes exactly one argument (%d given)", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return utf8.RuneCountInString(v), nil
	case []any:
		return len(v), nil
	case map[string]any:
		return len(v), nil
	}
	return nil, fmt.Errorf("object of type %T has no len()", args[0])
}

// extreme implements max (sign 1) and min (sign -1).
func extreme(name string, args []any, sign int) (any, error) {
	items := args
	if len(args) == 1 {
		list, ok := args[0].([]any)
		if !ok {
			return nil, fmt.Errorf("%s() argument must be a list", name)
		}
		items = list
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s() arg is an empty sequence", name)
	}

	best := items[0]
	for _, item := range items[1:] {
		c, err := compare(item, best)
		if err != nil {
			return nil, fmt.Errorf("%s(): %w", name, err)
		}
		if c*sign > 0 {
			best = item
		}
	}
	return best, nil
}

func compare(a, b any) (int, error) {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs), nil
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, fmt.Errorf("cannot compare %T and %T", a, b)
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	}
	return 0, nil
}

func builtinPow(args []any) (any, error) {
	switch len(args) {
	case 2:
		return binaryOp(args[0], "**", args[1])
	case 3:
		base, ok1 := args[0].(int)
		exp, ok2 := args[1].(int)
		mod, ok3 := args[2].(int)
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("pow() 3rd argument not allowed unless all arguments are integers")
		}
		if mod == 0 {
			return nil, fmt.Errorf("pow() 3rd argument cannot be 0")
		}
		if exp < 0 {
			return nil, fmt.Errorf("pow() negative exponent with modulus")
		}
		m := big.NewInt(int64(mod))
		result := new(big.Int).Exp(big.NewInt(int64(base)), big.NewInt(int64(exp)), new(big.Int).Abs(m))
		if mod < 0 && result.Sign() != 0 {
			result.Add(result, m)
		}
		return int(result.Int64()), nil
	}
	return nil, fmt.Errorf("pow() takes 2 or 3 arguments (%d given)", len(args))
}

func builtinSum(args []any) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("sum() takes 1 or 2 arguments (%d given)", len(args))
	}
	list, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("sum() argument must be a list")
	}
	var total any = 0
	if len(args) == 2 {
		total = args[1]
	}
	for _, item := range list {
		if _, ok := toFloat(item); !ok {
			return nil, fmt.Errorf("sum() can't sum %T", item)
		}
		v, err := add(total, item)
		if err != nil {
			return nil, err
		}
		total = v
	}
	return total, nil
}
