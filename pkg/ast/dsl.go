package ast

import "math/big"

// Literal helpers.

func Unit() *UnitLiteral {
	return NewUnitLiteral()
}

func Int(value int64) *IntegerLiteral {
	return NewIntegerLiteral(big.NewInt(value))
}

func IntBig(value *big.Int) *IntegerLiteral {
	return NewIntegerLiteral(new(big.Int).Set(value))
}

func Flt(value float64) *FloatLiteral {
	return NewFloatLiteral(value)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

// Binding helpers.

func Var(name string) *Variable {
	return NewVariable(name)
}

func Assign(target *Variable, value Expression) *Assignment {
	return NewAssignment(target, value)
}

// Operator helpers.

func Bin(op BinaryOperator, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Add(left, right Expression) *BinaryExpression { return Bin(OpAdd, left, right) }
func Sub(left, right Expression) *BinaryExpression { return Bin(OpSubtract, left, right) }
func Mul(left, right Expression) *BinaryExpression { return Bin(OpMultiply, left, right) }
func Div(left, right Expression) *BinaryExpression { return Bin(OpDivide, left, right) }
func And(left, right Expression) *BinaryExpression { return Bin(OpAnd, left, right) }
func Or(left, right Expression) *BinaryExpression  { return Bin(OpOr, left, right) }
func Lt(left, right Expression) *BinaryExpression  { return Bin(OpLt, left, right) }
func Lte(left, right Expression) *BinaryExpression { return Bin(OpLte, left, right) }
func Gt(left, right Expression) *BinaryExpression  { return Bin(OpGt, left, right) }
func Gte(left, right Expression) *BinaryExpression { return Bin(OpGte, left, right) }
func Eq(left, right Expression) *BinaryExpression  { return Bin(OpEq, left, right) }
func Ne(left, right Expression) *BinaryExpression  { return Bin(OpNe, left, right) }

func Not(operand Expression) *UnaryExpression {
	return NewUnaryExpression(OpNot, operand)
}

// Control-flow helpers.

func If(condition, then, otherwise Expression) *IfExpression {
	return NewIfExpression(condition, then, otherwise)
}

func While(condition, body Expression) *WhileLoop {
	return NewWhileLoop(condition, body)
}

func Seq(exprs ...Expression) *Sequence {
	return NewSequence(exprs)
}

func Prog(exprs ...Expression) *Program {
	return NewProgram(exprs)
}

func Print(expr Expression) *PrintExpression {
	return NewPrintExpression(expr)
}
