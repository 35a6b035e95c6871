package ast

import (
	"math"
	"strconv"
	"strings"
)

// Every node renders in constructor notation, which the source parser accepts
// back unchanged.

func (n *UnitLiteral) String() string { return "Unit()" }

func (n *IntegerLiteral) String() string {
	if n.Value == nil {
		return "IntegerLiteral(0)"
	}
	return "IntegerLiteral(" + n.Value.String() + ")"
}

func (n *FloatLiteral) String() string {
	return "FloatLiteral(" + FormatFloat(n.Value) + ")"
}

func (n *StringLiteral) String() string {
	return "StringLiteral(" + strconv.Quote(n.Value) + ")"
}

func (n *BooleanLiteral) String() string {
	if n.Value {
		return "BooleanLiteral(True)"
	}
	return "BooleanLiteral(False)"
}

func (n *Variable) String() string {
	return "Variable(" + strconv.Quote(n.Name) + ")"
}

func (n *Assignment) String() string {
	var target Node
	if n.Target != nil {
		target = n.Target
	}
	return call(NodeAssign, target, n.Value)
}

func (n *BinaryExpression) String() string {
	return call(n.NodeType(), n.Left, n.Right)
}

func (n *UnaryExpression) String() string {
	return call(n.NodeType(), n.Operand)
}

func (n *IfExpression) String() string {
	return call(NodeIf, n.Condition, n.Then, n.Else)
}

func (n *WhileLoop) String() string {
	return call(NodeWhile, n.Condition, n.Body)
}

func (n *Sequence) String() string {
	return call(NodeSequence, nodes(n.Exprs)...)
}

func (n *Program) String() string {
	return call(NodeProgram, nodes(n.Exprs)...)
}

func (n *PrintExpression) String() string {
	return call(NodePrint, n.Expr)
}

func call(name NodeType, args ...Node) string {
	var b strings.Builder
	b.WriteString(string(name))
	b.WriteByte('(')
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if arg == nil {
			b.WriteString("None")
			continue
		}
		b.WriteString(arg.String())
	}
	b.WriteByte(')')
	return b.String()
}

func nodes(exprs []Expression) []Node {
	out := make([]Node, len(exprs))
	for i, expr := range exprs {
		out[i] = expr
	}
	return out
}

// FormatFloat renders f in its shortest round-trip form. Finite values always
// carry a decimal point or an exponent so they never read as integers.
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
