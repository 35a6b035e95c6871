package ast

import (
	"math/big"
)

type NodeType string

const (
	NodeUnit           NodeType = "Unit"
	NodeIntegerLiteral NodeType = "IntegerLiteral"
	NodeFloatLiteral   NodeType = "FloatLiteral"
	NodeStringLiteral  NodeType = "StringLiteral"
	NodeBooleanLiteral NodeType = "BooleanLiteral"
	NodeVariable       NodeType = "Variable"
	NodeAssign         NodeType = "Assign"
	NodeAdd            NodeType = "Add"
	NodeSubtract       NodeType = "Subtract"
	NodeMultiply       NodeType = "Multiply"
	NodeDivide         NodeType = "Divide"
	NodeAnd            NodeType = "And"
	NodeOr             NodeType = "Or"
	NodeNot            NodeType = "Not"
	NodeLt             NodeType = "Lt"
	NodeLte            NodeType = "Lte"
	NodeGt             NodeType = "Gt"
	NodeGte            NodeType = "Gte"
	NodeEq             NodeType = "Eq"
	NodeNe             NodeType = "Ne"
	NodeIf             NodeType = "If"
	NodeWhile          NodeType = "While"
	NodeSequence       NodeType = "Sequence"
	NodeProgram        NodeType = "Program"
	NodePrint          NodeType = "Print"
)

// Node is implemented only by the types in this package.
type Node interface {
	NodeType() NodeType
	String() string
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Literals

type UnitLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker
}

func NewUnitLiteral() *UnitLiteral {
	return &UnitLiteral{nodeImpl: newNodeImpl(NodeUnit)}
}

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value *big.Int `json:"value"`
}

func NewIntegerLiteral(value *big.Int) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type FloatLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value float64 `json:"value"`
}

func NewFloatLiteral(value float64) *FloatLiteral {
	return &FloatLiteral{nodeImpl: newNodeImpl(NodeFloatLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

// Variables

type Variable struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewVariable(name string) *Variable {
	return &Variable{nodeImpl: newNodeImpl(NodeVariable), Name: name}
}

type Assignment struct {
	nodeImpl
	expressionMarker

	Target *Variable  `json:"variable"`
	Value  Expression `json:"value"`
}

func NewAssignment(target *Variable, value Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssign), Target: target, Value: value}
}

// Operators

// BinaryOperator doubles as the node type of the expression it labels.
type BinaryOperator string

const (
	OpAdd      BinaryOperator = BinaryOperator(NodeAdd)
	OpSubtract BinaryOperator = BinaryOperator(NodeSubtract)
	OpMultiply BinaryOperator = BinaryOperator(NodeMultiply)
	OpDivide   BinaryOperator = BinaryOperator(NodeDivide)
	OpAnd      BinaryOperator = BinaryOperator(NodeAnd)
	OpOr       BinaryOperator = BinaryOperator(NodeOr)
	OpLt       BinaryOperator = BinaryOperator(NodeLt)
	OpLte      BinaryOperator = BinaryOperator(NodeLte)
	OpGt       BinaryOperator = BinaryOperator(NodeGt)
	OpGte      BinaryOperator = BinaryOperator(NodeGte)
	OpEq       BinaryOperator = BinaryOperator(NodeEq)
	OpNe       BinaryOperator = BinaryOperator(NodeNe)
)

var binaryOperators = []BinaryOperator{
	OpAdd, OpSubtract, OpMultiply, OpDivide,
	OpAnd, OpOr,
	OpLt, OpLte, OpGt, OpGte, OpEq, OpNe,
}

// BinaryOperators lists every operator in declaration order.
func BinaryOperators() []BinaryOperator {
	out := make([]BinaryOperator, len(binaryOperators))
	copy(out, binaryOperators)
	return out
}

// IsValid reports whether op belongs to the language.
func (op BinaryOperator) IsValid() bool {
	for _, known := range binaryOperators {
		if op == known {
			return true
		}
	}
	return false
}

type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator BinaryOperator `json:"-"`
	Left     Expression     `json:"left"`
	Right    Expression     `json:"right"`
}

func NewBinaryExpression(operator BinaryOperator, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeType(operator)), Operator: operator, Left: left, Right: right}
}

type UnaryOperator string

const (
	OpNot UnaryOperator = UnaryOperator(NodeNot)
)

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator UnaryOperator `json:"-"`
	Operand  Expression    `json:"expr"`
}

func NewUnaryExpression(operator UnaryOperator, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeType(operator)), Operator: operator, Operand: operand}
}

// Control flow

type IfExpression struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition"`
	Then      Expression `json:"true"`
	Else      Expression `json:"false"`
}

func NewIfExpression(condition, then, otherwise Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIf), Condition: condition, Then: then, Else: otherwise}
}

type WhileLoop struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition"`
	Body      Expression `json:"body"`
}

func NewWhileLoop(condition, body Expression) *WhileLoop {
	return &WhileLoop{nodeImpl: newNodeImpl(NodeWhile), Condition: condition, Body: body}
}

type Sequence struct {
	nodeImpl
	expressionMarker

	Exprs []Expression `json:"exprs"`
}

func NewSequence(exprs []Expression) *Sequence {
	return &Sequence{nodeImpl: newNodeImpl(NodeSequence), Exprs: exprs}
}

// Program is the top-level sequence.
type Program struct {
	nodeImpl
	expressionMarker

	Exprs []Expression `json:"exprs"`
}

func NewProgram(exprs []Expression) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Exprs: exprs}
}

type PrintExpression struct {
	nodeImpl
	expressionMarker

	Expr Expression `json:"expr"`
}

func NewPrintExpression(expr Expression) *PrintExpression {
	return &PrintExpression{nodeImpl: newNodeImpl(NodePrint), Expr: expr}
}
