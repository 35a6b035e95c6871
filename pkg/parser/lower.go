package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/shindesc/stimpl/pkg/ast"
)

type constructorSpec struct {
	kind ast.NodeType
	// params holds the keyword names accepted for each positional slot.
	params [][]string
	// variadic constructors take any number of expressions, or a single list.
	variadic bool
}

var (
	literalParam  = [][]string{{"literal", "value"}}
	binaryParams  = [][]string{{"left"}, {"right"}}
	variadicParam = [][]string{{"exprs"}}
)

var constructors = map[string]constructorSpec{
	"Unit":                 {kind: ast.NodeUnit},
	"Ren":                  {kind: ast.NodeUnit},
	"IntegerLiteral":       {kind: ast.NodeIntegerLiteral, params: literalParam},
	"IntLiteral":           {kind: ast.NodeIntegerLiteral, params: literalParam},
	"FloatLiteral":         {kind: ast.NodeFloatLiteral, params: literalParam},
	"FloatingPointLiteral": {kind: ast.NodeFloatLiteral, params: literalParam},
	"StringLiteral":        {kind: ast.NodeStringLiteral, params: literalParam},
	"BooleanLiteral":       {kind: ast.NodeBooleanLiteral, params: literalParam},
	"Variable":             {kind: ast.NodeVariable, params: [][]string{{"variable_name", "name"}}},
	"Assign":               {kind: ast.NodeAssign, params: [][]string{{"variable"}, {"value"}}},
	"Add":                  {kind: ast.NodeAdd, params: binaryParams},
	"Subtract":             {kind: ast.NodeSubtract, params: binaryParams},
	"Multiply":             {kind: ast.NodeMultiply, params: binaryParams},
	"Divide":               {kind: ast.NodeDivide, params: binaryParams},
	"And":                  {kind: ast.NodeAnd, params: binaryParams},
	"Or":                   {kind: ast.NodeOr, params: binaryParams},
	"Lt":                   {kind: ast.NodeLt, params: binaryParams},
	"Lte":                  {kind: ast.NodeLte, params: binaryParams},
	"Gt":                   {kind: ast.NodeGt, params: binaryParams},
	"Gte":                  {kind: ast.NodeGte, params: binaryParams},
	"Eq":                   {kind: ast.NodeEq, params: binaryParams},
	"Ne":                   {kind: ast.NodeNe, params: binaryParams},
	"Not":                  {kind: ast.NodeNot, params: [][]string{{"expr"}}},
	"If":                   {kind: ast.NodeIf, params: [][]string{{"condition"}, {"true", "then"}, {"false", "otherwise"}}},
	"While":                {kind: ast.NodeWhile, params: [][]string{{"condition"}, {"body"}}},
	"Sequence":             {kind: ast.NodeSequence, params: variadicParam, variadic: true},
	"Program":              {kind: ast.NodeProgram, params: variadicParam, variadic: true},
	"Print":                {kind: ast.NodePrint, params: [][]string{{"to_print", "expr"}}},
}

// IsConstructor reports whether name is accepted as a node constructor.
func IsConstructor(name string) bool {
	_, ok := constructors[name]
	return ok
}

type lowerer struct {
	source   []byte
	bindings map[string]ast.Expression
}

func (l *lowerer) bind(node *sitter.Node) error {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || left.Kind() != "identifier" {
		return syntaxErrorAt(node, "only simple name bindings are supported")
	}
	if right == nil {
		return syntaxErrorAt(node, "binding %s has no value", sliceContent(left, l.source))
	}
	expr, err := l.expression(right)
	if err != nil {
		return err
	}
	l.bindings[sliceContent(left, l.source)] = expr
	return nil
}

func (l *lowerer) expression(node *sitter.Node) (ast.Expression, error) {
	if node == nil {
		return nil, syntaxErrorAt(nil, "missing expression")
	}
	switch node.Kind() {
	case "call":
		return l.call(node)
	case "identifier":
		name := sliceContent(node, l.source)
		if expr, ok := l.bindings[name]; ok {
			return expr, nil
		}
		if IsConstructor(name) {
			return nil, syntaxErrorAt(node, "constructor %s must be called", name)
		}
		return nil, syntaxErrorAt(node, "undefined name %s", name)
	case "parenthesized_expression":
		return l.expression(firstNamedChild(node))
	default:
		return nil, syntaxErrorAt(node, "expected a node constructor, got %s %q", node.Kind(), snippet(sliceContent(node, l.source)))
	}
}

func (l *lowerer) call(node *sitter.Node) (ast.Expression, error) {
	fn := node.ChildByFieldName("function")
	name := constructorName(fn, l.source)
	spec, ok := constructors[name]
	if !ok {
		return nil, syntaxErrorAt(fn, "unknown constructor %s", snippet(sliceContent(fn, l.source)))
	}
	args, err := l.arguments(node, name, spec)
	if err != nil {
		return nil, err
	}

	switch spec.kind {
	case ast.NodeUnit:
		return ast.NewUnitLiteral(), nil
	case ast.NodeIntegerLiteral:
		value, err := l.integerLiteral(args[0])
		if err != nil {
			return nil, err
		}
		return ast.NewIntegerLiteral(value), nil
	case ast.NodeFloatLiteral:
		value, err := l.floatLiteral(args[0])
		if err != nil {
			return nil, err
		}
		return ast.NewFloatLiteral(value), nil
	case ast.NodeStringLiteral:
		value, err := l.stringLiteral(args[0])
		if err != nil {
			return nil, err
		}
		return ast.NewStringLiteral(value), nil
	case ast.NodeBooleanLiteral:
		switch args[0].Kind() {
		case "true":
			return ast.NewBooleanLiteral(true), nil
		case "false":
			return ast.NewBooleanLiteral(false), nil
		default:
			return nil, syntaxErrorAt(args[0], "%s expects True or False", name)
		}
	case ast.NodeVariable:
		value, err := l.stringLiteral(args[0])
		if err != nil {
			return nil, err
		}
		if value == "" {
			return nil, syntaxErrorAt(args[0], "Variable name must not be empty")
		}
		return ast.NewVariable(value), nil
	case ast.NodeAssign:
		target, err := l.expression(args[0])
		if err != nil {
			return nil, err
		}
		variable, ok := target.(*ast.Variable)
		if !ok {
			return nil, syntaxErrorAt(args[0], "Assign target must be a Variable, got %s", target.NodeType())
		}
		value, err := l.expression(args[1])
		if err != nil {
			return nil, err
		}
		return ast.NewAssignment(variable, value), nil
	case ast.NodeNot:
		operand, err := l.expression(args[0])
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(ast.OpNot, operand), nil
	case ast.NodePrint:
		operand, err := l.expression(args[0])
		if err != nil {
			return nil, err
		}
		return ast.NewPrintExpression(operand), nil
	case ast.NodeIf:
		exprs, err := l.expressions(args)
		if err != nil {
			return nil, err
		}
		return ast.NewIfExpression(exprs[0], exprs[1], exprs[2]), nil
	case ast.NodeWhile:
		exprs, err := l.expressions(args)
		if err != nil {
			return nil, err
		}
		return ast.NewWhileLoop(exprs[0], exprs[1]), nil
	case ast.NodeSequence, ast.NodeProgram:
		exprs, err := l.expressions(args)
		if err != nil {
			return nil, err
		}
		if spec.kind == ast.NodeProgram {
			return ast.NewProgram(exprs), nil
		}
		return ast.NewSequence(exprs), nil
	default:
		exprs, err := l.expressions(args)
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryExpression(ast.BinaryOperator(spec.kind), exprs[0], exprs[1]), nil
	}
}

func (l *lowerer) expressions(nodes []*sitter.Node) ([]ast.Expression, error) {
	out := make([]ast.Expression, 0, len(nodes))
	for _, node := range nodes {
		expr, err := l.expression(node)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

// constructorName accepts both Add(...) and module-qualified stimpl.Add(...).
func constructorName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return sliceContent(fn, source)
	case "attribute":
		return sliceContent(fn.ChildByFieldName("attribute"), source)
	default:
		return ""
	}
}

// arguments resolves positional and keyword arguments into parameter order.
// Variadic constructors get their flattened expression list instead.
func (l *lowerer) arguments(call *sitter.Node, name string, spec constructorSpec) ([]*sitter.Node, error) {
	argList := call.ChildByFieldName("arguments")
	if argList == nil || argList.Kind() != "argument_list" {
		return nil, syntaxErrorAt(call, "%s: unsupported argument form", name)
	}

	slots := make([]*sitter.Node, len(spec.params))
	var rest []*sitter.Node
	positional := 0
	sawKeyword := false

	for _, arg := range namedChildren(argList) {
		switch arg.Kind() {
		case "keyword_argument":
			sawKeyword = true
			key := sliceContent(arg.ChildByFieldName("name"), l.source)
			idx := paramIndex(spec.params, key)
			if idx < 0 {
				return nil, syntaxErrorAt(arg, "%s got an unexpected keyword argument %s", name, key)
			}
			if slots[idx] != nil {
				return nil, syntaxErrorAt(arg, "%s got multiple values for %s", name, key)
			}
			slots[idx] = arg.ChildByFieldName("value")
		case "list_splat", "dictionary_splat":
			return nil, syntaxErrorAt(arg, "%s: argument unpacking is not supported", name)
		default:
			if sawKeyword {
				return nil, syntaxErrorAt(arg, "%s: positional argument follows keyword argument", name)
			}
			if spec.variadic {
				rest = append(rest, arg)
				continue
			}
			if positional >= len(slots) {
				return nil, arityError(arg, name, spec, positional+1)
			}
			slots[positional] = arg
			positional++
		}
	}

	if spec.variadic {
		if slots[0] != nil {
			if len(rest) > 0 {
				return nil, syntaxErrorAt(call, "%s got multiple values for exprs", name)
			}
			rest = []*sitter.Node{slots[0]}
		}
		if len(rest) == 1 && isSequenceLiteral(rest[0]) {
			return namedChildren(rest[0]), nil
		}
		return rest, nil
	}

	for idx, slot := range slots {
		if slot == nil {
			return nil, syntaxErrorAt(call, "%s missing argument %s", name, spec.params[idx][0])
		}
	}
	return slots, nil
}

func paramIndex(params [][]string, key string) int {
	for idx, names := range params {
		for _, candidate := range names {
			if candidate == key {
				return idx
			}
		}
	}
	return -1
}

func isSequenceLiteral(node *sitter.Node) bool {
	switch node.Kind() {
	case "list", "tuple":
		return true
	default:
		return false
	}
}

func arityError(node *sitter.Node, name string, spec constructorSpec, got int) *SyntaxError {
	want := len(spec.params)
	noun := "arguments"
	if want == 1 {
		noun = "argument"
	}
	return syntaxErrorAt(node, "%s takes %d %s, got at least %d", name, want, noun, got)
}
