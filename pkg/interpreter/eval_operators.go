package interpreter

import (
	"context"
	"math/big"

	"github.com/shindesc/stimpl/pkg/ast"
	"github.com/shindesc/stimpl/pkg/runtime"
)

// Per-operator diagnostics: the mismatch template takes (left, right) types and
// the unsupported template takes the shared operand type.
var operatorMessages = map[ast.BinaryOperator]struct {
	mismatch    string
	unsupported string
}{
	ast.OpAdd:      {"Mismatched types for Add: Cannot add %s to %s", "Cannot add %ss"},
	ast.OpSubtract: {"Mismatched types for Subtract: Cannot subtract %s from %s", "Cannot subtract %ss"},
	ast.OpMultiply: {"Mismatched types for Multiply: Cannot multiply %s with %s", "Cannot multiply %ss"},
	ast.OpDivide:   {"Mismatched types for Divide: Cannot divide %s by %s", "Cannot divide %ss"},
	ast.OpAnd:      {"Mismatched types for And: Cannot evaluate %s and %s", "Cannot perform logical and on non-boolean operands."},
	ast.OpOr:       {"Mismatched types for Or: Cannot evaluate %s and %s", "Cannot perform logical or on non-boolean operands."},
	ast.OpLt:       {"Mismatched types for Lt: Cannot compare %s and %s", "Cannot perform < on %s type."},
	ast.OpLte:      {"Mismatched types for Lte: Cannot compare %s and %s", "Cannot perform <= on %s type."},
	ast.OpGt:       {"Mismatched types for Gt: Cannot compare %s and %s", "Cannot perform > on %s type."},
	ast.OpGte:      {"Mismatched types for Gte: Cannot compare %s and %s", "Cannot perform >= on %s type."},
	ast.OpEq:       {"Mismatched types for Eq: Cannot compare %s and %s", "Cannot perform == on %s type."},
	ast.OpNe:       {"Mismatched types for Ne: Cannot compare %s and %s", "Cannot perform != on %s type."},
}

var bigOne = big.NewInt(1)

func (i *Interpreter) evaluateBinaryExpression(ctx context.Context, n *ast.BinaryExpression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	msgs, ok := operatorMessages[n.Operator]
	if !ok {
		return nil, nil, newError(KindSyntax, n, "Unsupported binary operator %s", n.Operator)
	}
	left, env, err := i.evaluate(ctx, n.Left, env)
	if err != nil {
		return nil, nil, err
	}
	right, env, err := i.evaluate(ctx, n.Right, env)
	if err != nil {
		return nil, nil, err
	}
	if left.Type() != right.Type() {
		return nil, nil, typeError(n, msgs.mismatch, left.Type(), right.Type())
	}

	var result runtime.Value
	switch n.Operator {
	case ast.OpAdd, ast.OpSubtract, ast.OpMultiply, ast.OpDivide:
		result, err = evaluateArithmetic(n, left, right)
	case ast.OpAnd, ast.OpOr:
		result, err = evaluateLogical(n, left, right)
	default:
		result, err = evaluateComparison(n, left, right)
	}
	if err != nil {
		return nil, nil, err
	}
	return result, env, nil
}

func unsupportedOperand(n *ast.BinaryExpression, typ runtime.Type) *Error {
	msgs := operatorMessages[n.Operator]
	if n.Operator == ast.OpAnd || n.Operator == ast.OpOr {
		return typeError(n, "%s", msgs.unsupported)
	}
	return typeError(n, msgs.unsupported, typ)
}

func evaluateArithmetic(n *ast.BinaryExpression, left, right runtime.Value) (runtime.Value, error) {
	switch l := left.(type) {
	case runtime.IntegerValue:
		r := right.(runtime.IntegerValue)
		return integerArithmetic(n, l.Val, r.Val)
	case runtime.FloatValue:
		r := right.(runtime.FloatValue)
		switch n.Operator {
		case ast.OpAdd:
			return runtime.FloatValue{Val: l.Val + r.Val}, nil
		case ast.OpSubtract:
			return runtime.FloatValue{Val: l.Val - r.Val}, nil
		case ast.OpMultiply:
			return runtime.FloatValue{Val: l.Val * r.Val}, nil
		default:
			if r.Val == 0 {
				return nil, runtimeError(n, "Division by zero")
			}
			return runtime.FloatValue{Val: l.Val / r.Val}, nil
		}
	case runtime.StringValue:
		if n.Operator == ast.OpAdd {
			return runtime.StringValue{Val: l.Val + right.(runtime.StringValue).Val}, nil
		}
	}
	return nil, unsupportedOperand(n, left.Type())
}

func integerArithmetic(n *ast.BinaryExpression, l, r *big.Int) (runtime.Value, error) {
	l, r = runtime.CloneBigInt(l), runtime.CloneBigInt(r)
	out := new(big.Int)
	switch n.Operator {
	case ast.OpAdd:
		out.Add(l, r)
	case ast.OpSubtract:
		out.Sub(l, r)
	case ast.OpMultiply:
		out.Mul(l, r)
	default:
		if r.Sign() == 0 {
			return nil, runtimeError(n, "Division by zero")
		}
		out = floorDiv(l, r)
	}
	return runtime.IntegerValue{Val: out}, nil
}

// floorDiv rounds the quotient toward negative infinity.
func floorDiv(l, r *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(l, r, new(big.Int))
	if m.Sign() != 0 && (m.Sign() < 0) != (r.Sign() < 0) {
		q.Sub(q, bigOne)
	}
	return q
}

// Both operands are always evaluated before this runs.
func evaluateLogical(n *ast.BinaryExpression, left, right runtime.Value) (runtime.Value, error) {
	l, ok := left.(runtime.BoolValue)
	if !ok {
		return nil, unsupportedOperand(n, left.Type())
	}
	r := right.(runtime.BoolValue)
	if n.Operator == ast.OpAnd {
		return runtime.BoolValue{Val: l.Val && r.Val}, nil
	}
	return runtime.BoolValue{Val: l.Val || r.Val}, nil
}

func evaluateComparison(n *ast.BinaryExpression, left, right runtime.Value) (runtime.Value, error) {
	if _, ok := left.(runtime.UnitValue); ok {
		switch n.Operator {
		case ast.OpLt, ast.OpGt, ast.OpNe:
			return runtime.BoolValue{Val: false}, nil
		default:
			return runtime.BoolValue{Val: true}, nil
		}
	}
	// Floats compare directly so NaN follows IEEE rules.
	if l, ok := left.(runtime.FloatValue); ok {
		r := right.(runtime.FloatValue)
		return runtime.BoolValue{Val: compareFloats(n.Operator, l.Val, r.Val)}, nil
	}
	cmp, ok := compareValues(left, right)
	if !ok {
		return nil, unsupportedOperand(n, left.Type())
	}
	var res bool
	switch n.Operator {
	case ast.OpLt:
		res = cmp < 0
	case ast.OpLte:
		res = cmp <= 0
	case ast.OpGt:
		res = cmp > 0
	case ast.OpGte:
		res = cmp >= 0
	case ast.OpEq:
		res = cmp == 0
	case ast.OpNe:
		res = cmp != 0
	}
	return runtime.BoolValue{Val: res}, nil
}

func compareFloats(op ast.BinaryOperator, l, r float64) bool {
	switch op {
	case ast.OpLt:
		return l < r
	case ast.OpLte:
		return l <= r
	case ast.OpGt:
		return l > r
	case ast.OpGte:
		return l >= r
	case ast.OpEq:
		return l == r
	default:
		return l != r
	}
}

// compareValues orders two values of the same non-float type.
func compareValues(left, right runtime.Value) (int, bool) {
	switch l := left.(type) {
	case runtime.IntegerValue:
		return runtime.CloneBigInt(l.Val).Cmp(runtime.CloneBigInt(right.(runtime.IntegerValue).Val)), true
	case runtime.StringValue:
		r := right.(runtime.StringValue).Val
		switch {
		case l.Val < r:
			return -1, true
		case l.Val > r:
			return 1, true
		default:
			return 0, true
		}
	case runtime.BoolValue:
		r := right.(runtime.BoolValue).Val
		switch {
		case l.Val == r:
			return 0, true
		case !l.Val:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}
