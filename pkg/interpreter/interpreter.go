package interpreter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shindesc/stimpl/pkg/ast"
	"github.com/shindesc/stimpl/pkg/runtime"
)

// Interpreter evaluates STIMPL expression trees. Print output goes to its sink.
type Interpreter struct {
	stdout io.Writer
}

// Result is the outcome of running a whole program.
type Result struct {
	Value runtime.Value
	Type  runtime.Type
	Env   *runtime.Environment
}

// New returns an interpreter that prints to stdout. A nil writer discards output.
func New(stdout io.Writer) *Interpreter {
	if stdout == nil {
		stdout = io.Discard
	}
	return &Interpreter{stdout: stdout}
}

// Run evaluates program against the empty environment, printing to os.Stdout.
func Run(program ast.Expression) (Result, error) {
	return New(os.Stdout).Run(program)
}

// Run evaluates program against the empty environment.
func (i *Interpreter) Run(program ast.Expression) (Result, error) {
	return i.RunContext(context.Background(), program)
}

// RunContext is Run with cancellation checked between loop iterations.
func (i *Interpreter) RunContext(ctx context.Context, program ast.Expression) (Result, error) {
	val, env, err := i.EvaluateContext(ctx, program, runtime.NewEnvironment())
	if err != nil {
		return Result{}, err
	}
	return Result{Value: val, Type: val.Type(), Env: env}, nil
}

// Evaluate returns the value of node and the environment after it ran.
func (i *Interpreter) Evaluate(node ast.Expression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	return i.EvaluateContext(context.Background(), node, env)
}

// EvaluateContext is Evaluate with cancellation checked between loop iterations.
func (i *Interpreter) EvaluateContext(ctx context.Context, node ast.Expression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return i.evaluate(ctx, node, env)
}

func (i *Interpreter) evaluate(ctx context.Context, node ast.Expression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	switch n := node.(type) {
	case *ast.UnitLiteral:
		return runtime.UnitValue{}, env, nil
	case *ast.IntegerLiteral:
		return runtime.IntegerValue{Val: runtime.CloneBigInt(n.Value)}, env, nil
	case *ast.FloatLiteral:
		return runtime.FloatValue{Val: n.Value}, env, nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, env, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, env, nil
	case *ast.Variable:
		val, _, ok := env.Lookup(n.Name)
		if !ok {
			return nil, nil, unboundError(n, n.Name)
		}
		return val, env, nil
	case *ast.Assignment:
		return i.evaluateAssignment(ctx, n, env)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(ctx, n, env)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(ctx, n, env)
	case *ast.IfExpression:
		return i.evaluateIfExpression(ctx, n, env)
	case *ast.WhileLoop:
		return i.evaluateWhileLoop(ctx, n, env)
	case *ast.Sequence:
		return i.evaluateSequence(ctx, n.Exprs, env)
	case *ast.Program:
		return i.evaluateSequence(ctx, n.Exprs, env)
	case *ast.PrintExpression:
		return i.evaluatePrint(ctx, n, env)
	case nil:
		return nil, nil, newError(KindSyntax, nil, "Unhandled expression: <nil>")
	default:
		return nil, nil, newError(KindSyntax, node, "Unhandled expression: %s", node.NodeType())
	}
}

func (i *Interpreter) evaluateAssignment(ctx context.Context, n *ast.Assignment, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	if n.Target == nil {
		return nil, nil, newError(KindSyntax, n, "Assign requires a Variable target")
	}
	val, env, err := i.evaluate(ctx, n.Value, env)
	if err != nil {
		return nil, nil, err
	}
	typ := val.Type()
	if _, existing, ok := env.Lookup(n.Target.Name); ok && existing != typ {
		return nil, nil, typeError(n, "Mismatched types for Assignment: Cannot assign %s to %s", typ, existing)
	}
	return val, env.Extend(n.Target.Name, val, typ), nil
}

func (i *Interpreter) evaluateUnaryExpression(ctx context.Context, n *ast.UnaryExpression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	val, env, err := i.evaluate(ctx, n.Operand, env)
	if err != nil {
		return nil, nil, err
	}
	switch n.Operator {
	case ast.OpNot:
		b, ok := val.(runtime.BoolValue)
		if !ok {
			return nil, nil, typeError(n, "Cannot perform logical not on non-boolean operands.")
		}
		return runtime.BoolValue{Val: !b.Val}, env, nil
	default:
		return nil, nil, newError(KindSyntax, n, "Unsupported unary operator %s", n.Operator)
	}
}

func (i *Interpreter) evaluateIfExpression(ctx context.Context, n *ast.IfExpression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	cond, env, err := i.evaluate(ctx, n.Condition, env)
	if err != nil {
		return nil, nil, err
	}
	b, ok := cond.(runtime.BoolValue)
	if !ok {
		return nil, nil, typeError(n, "Condition in If must be a Boolean")
	}
	if b.Val {
		return i.evaluate(ctx, n.Then, env)
	}
	return i.evaluate(ctx, n.Else, env)
}

func (i *Interpreter) evaluateWhileLoop(ctx context.Context, n *ast.WhileLoop, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	for {
		cond, next, err := i.evaluate(ctx, n.Condition, env)
		if err != nil {
			return nil, nil, err
		}
		env = next
		b, ok := cond.(runtime.BoolValue)
		if !ok {
			return nil, nil, typeError(n, "Condition for While must be Boolean: Got %s", cond.Type())
		}
		if !b.Val {
			return runtime.UnitValue{}, env, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if _, env, err = i.evaluate(ctx, n.Body, env); err != nil {
			return nil, nil, err
		}
	}
}

func (i *Interpreter) evaluateSequence(ctx context.Context, exprs []ast.Expression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	var last runtime.Value = runtime.UnitValue{}
	for _, expr := range exprs {
		val, next, err := i.evaluate(ctx, expr, env)
		if err != nil {
			return nil, nil, err
		}
		last, env = val, next
	}
	return last, env, nil
}

func (i *Interpreter) evaluatePrint(ctx context.Context, n *ast.PrintExpression, env *runtime.Environment) (runtime.Value, *runtime.Environment, error) {
	val, env, err := i.evaluate(ctx, n.Expr, env)
	if err != nil {
		return nil, nil, err
	}
	if _, err := fmt.Fprintln(i.stdout, val.String()); err != nil {
		return nil, nil, runtimeError(n, "Print failed: %v", err)
	}
	return val, env, nil
}
