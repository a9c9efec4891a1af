// Package formula evaluates the small declarative expression language
// used by derived column mappings. Expressions may reference only fields
// of the record they are evaluated against; there is no access to
// process state, the filesystem, or the network. The evaluator is a
// minimal AST interpreter rather than a general-purpose one so a bad or
// malicious template degrades a single field, nothing more.
package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/downform/backend/internal/domain/downform"
)

// maxExpressionLength bounds parser input; derivation expressions are
// short config snippets, anything larger is a configuration mistake.
const maxExpressionLength = 2048

// Evaluator implements downform.Evaluator with a restricted expression
// interpreter. It is stateless and safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates a new restricted expression evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses and evaluates an expression against a single record.
// Any error (malformed expression, unknown field, type mismatch) is
// returned to the caller, which records the column as null.
func (e *Evaluator) Evaluate(expression string, record downform.RawRecord) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if len(expression) > maxExpressionLength {
		return nil, fmt.Errorf("expression exceeds %d bytes", maxExpressionLength)
	}
	root, err := parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return evalNode(root, record)
}

func evalNode(n node, record downform.RawRecord) (any, error) {
	switch t := n.(type) {
	case *literalNode:
		return t.value, nil
	case *fieldNode:
		v, ok := record[t.name]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", t.name)
		}
		return v, nil
	case *unaryNode:
		v, err := evalNode(t.operand, record)
		if err != nil {
			return nil, err
		}
		f, err := asNumber(v)
		if err != nil {
			return nil, err
		}
		return -f, nil
	case *binaryNode:
		return evalBinary(t, record)
	case *callNode:
		return evalCall(t, record)
	default:
		return nil, fmt.Errorf("unknown expression node %T", n)
	}
}

func evalBinary(n *binaryNode, record downform.RawRecord) (any, error) {
	if n.op == "and" || n.op == "or" {
		left, err := evalNode(n.left, record)
		if err != nil {
			return nil, err
		}
		if n.op == "and" && !truthy(left) {
			return false, nil
		}
		if n.op == "or" && truthy(left) {
			return true, nil
		}
		right, err := evalNode(n.right, record)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := evalNode(n.left, record)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(n.right, record)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+", "-", "*", "/":
		lf, err := asNumber(left)
		if err != nil {
			return nil, err
		}
		rf, err := asNumber(right)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		default:
			if rf == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return lf / rf, nil
		}
	case "==", "!=":
		eq := equals(left, right)
		if n.op == "!=" {
			return !eq, nil
		}
		return eq, nil
	case "<", "<=", ">", ">=":
		cmp, err := compare(left, right)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	default:
		return nil, fmt.Errorf("unknown operator %q", n.op)
	}
}

func evalCall(n *callNode, record downform.RawRecord) (any, error) {
	switch n.fn {
	case "concat":
		var b strings.Builder
		for _, arg := range n.args {
			v, err := evalNode(arg, record)
			if err != nil {
				return nil, err
			}
			b.WriteString(downform.Stringify(v))
		}
		return b.String(), nil
	case "if":
		if len(n.args) != 3 {
			return nil, fmt.Errorf("if expects 3 arguments, got %d", len(n.args))
		}
		cond, err := evalNode(n.args[0], record)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return evalNode(n.args[1], record)
		}
		return evalNode(n.args[2], record)
	case "upper", "lower", "trim":
		if len(n.args) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", n.fn, len(n.args))
		}
		v, err := evalNode(n.args[0], record)
		if err != nil {
			return nil, err
		}
		s := downform.Stringify(v)
		switch n.fn {
		case "upper":
			return strings.ToUpper(s), nil
		case "lower":
			return strings.ToLower(s), nil
		default:
			return strings.TrimSpace(s), nil
		}
	default:
		return nil, fmt.Errorf("unknown function %q", n.fn)
	}
}

// asNumber coerces a scalar into a float64 for arithmetic. Numeric
// strings are accepted because raw marketplace records routinely carry
// numbers as text.
func asNumber(v any) (float64, error) {
	if d, ok := downform.ToDecimal(v); ok {
		return d.InexactFloat64(), nil
	}
	return 0, fmt.Errorf("value %v is not numeric", v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		f, err := asNumber(v)
		if err != nil {
			return true
		}
		return f != 0
	}
}

func equals(left, right any) bool {
	lf, lerr := asNumber(left)
	rf, rerr := asNumber(right)
	if lerr == nil && rerr == nil {
		return lf == rf
	}
	return downform.Stringify(left) == downform.Stringify(right)
}

func compare(left, right any) (int, error) {
	lf, lerr := asNumber(left)
	rf, rerr := asNumber(right)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return strings.Compare(downform.Stringify(left), downform.Stringify(right)), nil
}

func parseFloat(text string) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", text)
	}
	return f, nil
}

// Ensure Evaluator implements downform.Evaluator
var _ downform.Evaluator = (*Evaluator)(nil)
