package filter

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Operator is a comparison operator in a guard expression.
type Operator string

const (
	OpEq       Operator = "=="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)

// Resolver looks up context fields by dotted path.
type Resolver interface {
	Resolve(path []string) (interface{}, bool)
}

// Evaluate walks the expression against r.
func Evaluate(e Expr, r Resolver) (bool, error) {
	switch n := e.(type) {
	case *LogicalExpr:
		left, err := Evaluate(n.Left, r)
		if err != nil {
			return false, err
		}
		if n.Op == "AND" && !left {
			return false, nil
		}
		if n.Op == "OR" && left {
			return true, nil
		}
		return Evaluate(n.Right, r)
	case *NotExpr:
		v, err := Evaluate(n.Expr, r)
		if err != nil {
			return false, err
		}
		return !v, nil
	case *Comparison:
		left, err := operandValue(n.Left, r)
		if err != nil {
			return false, err
		}
		right, err := operandValue(n.Right, r)
		if err != nil {
			return false, err
		}
		return compare(n.Op, left, right)
	default:
		return false, fmt.Errorf("unknown expr type %T", e)
	}
}

func operandValue(o Operand, r Resolver) (interface{}, error) {
	switch v := o.(type) {
	case *Literal:
		return v.Value, nil
	case *Field:
		val, ok := r.Resolve(v.Path)
		if !ok {
			return nil, fmt.Errorf("field %q not found", strings.Join(v.Path, "."))
		}
		return val, nil
	default:
		return nil, fmt.Errorf("unknown operand type %T", o)
	}
}

func compare(op Operator, left, right interface{}) (bool, error) {
	switch op {
	case OpEq:
		return equal(left, right), nil
	case OpNeq:
		return !equal(left, right), nil
	case OpGt, OpGte, OpLt, OpLte:
		lf, lok := left.(float64)
		rf, rok := right.(float64)
		if !lok || !rok {
			return false, fmt.Errorf("operator %s requires numeric operands, got %T and %T", op, left, right)
		}
		switch op {
		case OpGt:
			return lf > rf, nil
		case OpGte:
			return lf >= rf, nil
		case OpLt:
			return lf < rf, nil
		default:
			return lf <= rf, nil
		}
	case OpContains:
		needle := fmt.Sprintf("%v", right)
		switch l := left.(type) {
		case []string:
			for _, s := range l {
				if s == needle {
					return true, nil
				}
			}
			return false, nil
		case string:
			return strings.Contains(l, needle), nil
		}
		return false, fmt.Errorf("contains: left operand must be a string or tag list, got %T", left)
	case OpMatches:
		ls, ok := left.(string)
		pattern, pok := right.(string)
		if !ok || !pok {
			return false, fmt.Errorf("matches: operands must be strings, got %T and %T", left, right)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("matches: invalid regex %q: %w", pattern, err)
		}
		return re.MatchString(ls), nil
	}
	return false, fmt.Errorf("unknown operator: %s", op)
}

func equal(left, right interface{}) bool {
	lf, lok := left.(float64)
	rf, rok := right.(float64)
	if lok && rok {
		return math.Abs(lf-rf) < 1e-9
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		return ok && lb == rb
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}
