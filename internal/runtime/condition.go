package runtime

import (
	"strconv"
	"strings"

	"github.com/aretw0/storyweave/pkg/domain"
)

// EvaluateCondition compares the variable named by cond against its literal.
// Incomplete conditions, unknown variables and unsupported operators are false.
func EvaluateCondition(cond domain.ConditionData, vars []domain.Variable) bool {
	ok, _ := evaluate(cond, vars)
	return ok
}

// evaluate returns the outcome and, when the condition could not be
// evaluated at all, a short cause for the logs.
func evaluate(cond domain.ConditionData, vars []domain.Variable) (bool, string) {
	if cond.VariableID == "" {
		return false, "missing variable"
	}
	if cond.Operator == "" {
		return false, "missing operator"
	}
	if cond.Value == nil {
		return false, "missing value"
	}
	v, ok := domain.FindVariable(vars, cond.VariableID)
	if !ok {
		return false, "unknown variable " + cond.VariableID
	}

	left := normalize(v.Value)
	right := normalize(*cond.Value)

	switch cond.Operator {
	case domain.OpEqual:
		return looseEqual(left, right), ""
	case domain.OpNotEqual:
		return !looseEqual(left, right), ""
	case domain.OpGreater, domain.OpLess, domain.OpGreaterEqual, domain.OpLessEqual:
		a, aok := left.Num()
		b, bok := right.Num()
		if !aok || !bok {
			return false, "ordering needs two numbers"
		}
		return compare(cond.Operator, a, b), ""
	}
	return false, "unsupported operator " + string(cond.Operator)
}

// normalize turns booleans into 1/0 so they compare as numbers.
func normalize(v domain.Value) domain.Value {
	if b, ok := v.Truth(); ok {
		if b {
			return domain.Number(1)
		}
		return domain.Number(0)
	}
	return v
}

// looseEqual compares two normalised operands. A string and a number are
// compared numerically: the empty string is 0, anything unparseable is unequal.
func looseEqual(a, b domain.Value) bool {
	as, aStr := a.Str()
	bs, bStr := b.Str()
	switch {
	case aStr && bStr:
		return as == bs
	case !aStr && !bStr:
		an, _ := a.Num()
		bn, _ := b.Num()
		return an == bn
	case aStr:
		n, ok := parseLoose(as)
		bn, _ := b.Num()
		return ok && n == bn
	default:
		n, ok := parseLoose(bs)
		an, _ := a.Num()
		return ok && n == an
	}
}

func parseLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func compare(op domain.Operator, a, b float64) bool {
	switch op {
	case domain.OpGreater:
		return a > b
	case domain.OpLess:
		return a < b
	case domain.OpGreaterEqual:
		return a >= b
	case domain.OpLessEqual:
		return a <= b
	}
	return false
}
