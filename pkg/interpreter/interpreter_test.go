package interpreter

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/shindesc/stimpl/pkg/ast"
	"github.com/shindesc/stimpl/pkg/runtime"
)

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

func mustRun(t *testing.T, program ast.Expression) (Result, string) {
	t.Helper()
	var out bytes.Buffer
	res, err := New(&out).Run(program)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res, out.String()
}

func expectErrorKind(t *testing.T, program ast.Expression, kind ErrorKind, message string) *Error {
	t.Helper()
	_, err := New(nil).Run(program)
	if err == nil {
		t.Fatalf("expected %s, got success", kind)
	}
	var evalErr *Error
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if evalErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%s)", kind, evalErr.Kind, evalErr.Message)
	}
	if message != "" && evalErr.Message != message {
		t.Fatalf("message mismatch:\n got %q\nwant %q", evalErr.Message, message)
	}
	return evalErr
}

func TestLiteralsLeaveEnvironmentUnchanged(t *testing.T) {
	interp := New(nil)
	env := runtime.NewEnvironment().Extend("x", runtime.NewInteger(1), runtime.TypeInteger)
	cases := []struct {
		node ast.Expression
		typ  runtime.Type
		want string
	}{
		{ast.Unit(), runtime.TypeUnit, "Unit"},
		{ast.Int(42), runtime.TypeInteger, "42"},
		{ast.Flt(2.5), runtime.TypeFloatingPoint, "2.5"},
		{ast.Str("hi"), runtime.TypeString, "hi"},
		{ast.Bool(true), runtime.TypeBoolean, "True"},
	}
	for _, tc := range cases {
		val, next, err := interp.Evaluate(tc.node, env)
		if err != nil {
			t.Fatalf("%s: %v", tc.node, err)
		}
		if next != env {
			t.Fatalf("%s: environment changed", tc.node)
		}
		if val.Type() != tc.typ || val.String() != tc.want {
			t.Fatalf("%s: got (%s, %s), want (%s, %s)", tc.node, val, val.Type(), tc.want, tc.typ)
		}
	}
}

func TestIntegerLiteralIsNotAliased(t *testing.T) {
	lit := ast.Int(3)
	val, _, err := New(nil).Evaluate(lit, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	val.(runtime.IntegerValue).Val.SetInt64(99)
	if lit.Value.Int64() != 3 {
		t.Fatalf("literal mutated through runtime value")
	}
}

func TestUnboundVariable(t *testing.T) {
	err := expectErrorKind(t, ast.Var("missing"), KindUnboundVariable, "Cannot read from missing before assignment.")
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("expected errors.Is ErrUnboundVariable")
	}
	if err.Node == nil || err.Node.NodeType() != ast.NodeVariable {
		t.Fatalf("expected failing node to be recorded, got %v", err.Node)
	}
}

func TestAssignmentTypeInvariance(t *testing.T) {
	expectErrorKind(t, ast.Seq(
		ast.Assign(ast.Var("n"), ast.Int(1)),
		ast.Assign(ast.Var("n"), ast.Str("one")),
	), KindType, "Mismatched types for Assignment: Cannot assign String to Integer")

	res, _ := mustRun(t, ast.Seq(
		ast.Assign(ast.Var("n"), ast.Int(1)),
		ast.Assign(ast.Var("n"), ast.Int(7)),
		ast.Var("n"),
	))
	if res.Value.String() != "7" || res.Type != runtime.TypeInteger {
		t.Fatalf("expected 7, got %s", res.Value)
	}
	if res.Env.Depth() != 2 {
		t.Fatalf("expected both bindings in the chain, got %s", res.Env)
	}
}

func TestAssignmentChecksEnvironmentAfterValue(t *testing.T) {
	// The value expression binds n first, so the check sees that binding.
	expectErrorKind(t, ast.Assign(ast.Var("n"), ast.Seq(
		ast.Assign(ast.Var("n"), ast.Bool(true)),
		ast.Int(3),
	)), KindType, "Mismatched types for Assignment: Cannot assign Integer to Boolean")
}

func TestEndToEndSequence(t *testing.T) {
	program := ast.Seq(
		ast.Assign(ast.Var("x"), ast.Int(2)),
		ast.Assign(ast.Var("x"), ast.Add(ast.Var("x"), ast.Int(3))),
		ast.Var("x"),
	)
	res, _ := mustRun(t, program)
	if res.Value.String() != "5" || res.Type != runtime.TypeInteger {
		t.Fatalf("expected (5, Integer), got (%s, %s)", res.Value, res.Type)
	}
	val, typ, ok := res.Env.Lookup("x")
	if !ok || typ != runtime.TypeInteger || val.String() != "5" {
		t.Fatalf("expected x bound to 5, got %v", val)
	}
}

func TestIfSelectsOneBranch(t *testing.T) {
	res, _ := mustRun(t, ast.If(ast.Bool(true), ast.Int(1), ast.Str("x")))
	if res.Type != runtime.TypeInteger || res.Value.String() != "1" {
		t.Fatalf("expected (1, Integer), got (%s, %s)", res.Value, res.Type)
	}
	res, _ = mustRun(t, ast.If(ast.Bool(false), ast.Int(1), ast.Str("x")))
	if res.Type != runtime.TypeString || res.Value.String() != "x" {
		t.Fatalf("expected (x, String), got (%s, %s)", res.Value, res.Type)
	}
	// The untaken branch would fail if evaluated.
	res, _ = mustRun(t, ast.If(ast.Bool(true), ast.Unit(), ast.Var("nope")))
	if res.Type != runtime.TypeUnit {
		t.Fatalf("expected Unit, got %s", res.Type)
	}
	expectErrorKind(t, ast.If(ast.Int(1), ast.Unit(), ast.Unit()), KindType, "Condition in If must be a Boolean")
}

func TestIfBranchSeesConditionEnvironment(t *testing.T) {
	program := ast.If(
		ast.Seq(ast.Assign(ast.Var("flag"), ast.Bool(true)), ast.Var("flag")),
		ast.Var("flag"),
		ast.Bool(false),
	)
	res, _ := mustRun(t, program)
	if res.Value.String() != "True" {
		t.Fatalf("expected True, got %s", res.Value)
	}
}

func TestWhileCountsUp(t *testing.T) {
	program := ast.Seq(
		ast.Assign(ast.Var("i"), ast.Int(0)),
		ast.While(
			ast.Lt(ast.Var("i"), ast.Int(3)),
			ast.Assign(ast.Var("i"), ast.Add(ast.Var("i"), ast.Int(1))),
		),
	)
	res, _ := mustRun(t, program)
	if res.Type != runtime.TypeUnit {
		t.Fatalf("while should yield Unit, got %s", res.Type)
	}
	val, _, _ := res.Env.Lookup("i")
	if val.String() != "3" {
		t.Fatalf("expected i = 3, got %s", val)
	}
}

func TestWhileFalseConditionEvaluatesOnce(t *testing.T) {
	var out bytes.Buffer
	interp := New(&out)
	env := runtime.NewEnvironment().Extend("x", runtime.NewInteger(1), runtime.TypeInteger)
	val, next, err := interp.Evaluate(ast.While(ast.Print(ast.Bool(false)), ast.Var("unbound")), env)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if val.Type() != runtime.TypeUnit || next != env {
		t.Fatalf("expected (Unit, env), got (%s, %s)", val, next)
	}
	if out.String() != "False\n" {
		t.Fatalf("condition should run exactly once, output %q", out.String())
	}
}

func TestWhileConditionCheckedEveryIteration(t *testing.T) {
	// First check sees a Boolean, the second sees an Integer.
	program := ast.Seq(
		ast.Assign(ast.Var("n"), ast.Int(0)),
		ast.While(
			ast.If(ast.Eq(ast.Var("n"), ast.Int(0)), ast.Bool(true), ast.Var("n")),
			ast.Assign(ast.Var("n"), ast.Int(1)),
		),
	)
	expectErrorKind(t, program, KindType, "Condition for While must be Boolean: Got Integer")
}

func TestWhileHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).RunContext(ctx, ast.While(ast.Bool(true), ast.Unit()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSequenceResults(t *testing.T) {
	res, _ := mustRun(t, ast.Seq())
	if res.Type != runtime.TypeUnit || res.Env != nil {
		t.Fatalf("empty sequence should be (Unit, Unit, empty)")
	}
	res, _ = mustRun(t, ast.Prog(ast.Int(1), ast.Str("last")))
	if res.Value.String() != "last" {
		t.Fatalf("expected last value, got %s", res.Value)
	}
}

func TestPrintWritesLines(t *testing.T) {
	res, out := mustRun(t, ast.Prog(
		ast.Print(ast.Unit()),
		ast.Print(ast.Int(-4)),
		ast.Print(ast.Flt(2)),
		ast.Print(ast.Str("plain")),
		ast.Print(ast.Bool(false)),
	))
	if want := "Unit\n-4\n2.0\nplain\nFalse\n"; out != want {
		t.Fatalf("output mismatch:\n got %q\nwant %q", out, want)
	}
	if res.Type != runtime.TypeBoolean {
		t.Fatalf("print should return its operand, got %s", res.Type)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPrintWriteFailure(t *testing.T) {
	_, err := New(failingWriter{}).Run(ast.Print(ast.Int(1)))
	if !errors.Is(err, ErrRuntime) {
		t.Fatalf("expected runtime error, got %v", err)
	}
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		name string
		expr ast.Expression
		want string
		typ  runtime.Type
	}{
		{"int add", ast.Add(ast.Int(2), ast.Int(3)), "5", runtime.TypeInteger},
		{"int sub", ast.Sub(ast.Int(2), ast.Int(3)), "-1", runtime.TypeInteger},
		{"int mul", ast.Mul(ast.Int(-4), ast.Int(3)), "-12", runtime.TypeInteger},
		{"int div", ast.Div(ast.Int(7), ast.Int(2)), "3", runtime.TypeInteger},
		{"floor div negative dividend", ast.Div(ast.Int(-7), ast.Int(2)), "-4", runtime.TypeInteger},
		{"floor div negative divisor", ast.Div(ast.Int(7), ast.Int(-2)), "-4", runtime.TypeInteger},
		{"floor div both negative", ast.Div(ast.Int(-7), ast.Int(-2)), "3", runtime.TypeInteger},
		{"exact negative div", ast.Div(ast.Int(-8), ast.Int(2)), "-4", runtime.TypeInteger},
		{"float add", ast.Add(ast.Flt(1.5), ast.Flt(1)), "2.5", runtime.TypeFloatingPoint},
		{"float div", ast.Div(ast.Flt(1), ast.Flt(4)), "0.25", runtime.TypeFloatingPoint},
		{"string concat", ast.Add(ast.Str("ab"), ast.Str("cd")), "abcd", runtime.TypeString},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := mustRun(t, tc.expr)
			if res.Value.String() != tc.want || res.Type != tc.typ {
				t.Fatalf("got (%s, %s), want (%s, %s)", res.Value, res.Type, tc.want, tc.typ)
			}
		})
	}
}

func TestArbitraryPrecisionIntegers(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	res, _ := mustRun(t, ast.Mul(ast.IntBig(huge), ast.Int(10)))
	if res.Value.String() != "1234567890123456789012345678900" {
		t.Fatalf("unexpected product %s", res.Value)
	}
	if res.Value.(runtime.IntegerValue).Val.Cmp(new(big.Int).Mul(huge, bigInt(10))) != 0 {
		t.Fatalf("product mismatch")
	}
}

func TestDivisionByZero(t *testing.T) {
	err := expectErrorKind(t, ast.Div(ast.Int(5), ast.Int(0)), KindRuntime, "Division by zero")
	if errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("division by zero must not be a type error")
	}
	expectErrorKind(t, ast.Div(ast.Flt(5), ast.Flt(0)), KindRuntime, "Division by zero")
	expectErrorKind(t, ast.Div(ast.Flt(5), ast.Flt(math.Copysign(0, -1))), KindRuntime, "Division by zero")
}

func TestArithmeticTypeErrors(t *testing.T) {
	cases := []struct {
		expr ast.Expression
		want string
	}{
		{ast.Add(ast.Int(1), ast.Str("a")), "Mismatched types for Add: Cannot add Integer to String"},
		{ast.Sub(ast.Flt(1), ast.Int(1)), "Mismatched types for Subtract: Cannot subtract FloatingPoint from Integer"},
		{ast.Mul(ast.Bool(true), ast.Int(1)), "Mismatched types for Multiply: Cannot multiply Boolean with Integer"},
		{ast.Div(ast.Str("a"), ast.Int(1)), "Mismatched types for Divide: Cannot divide String by Integer"},
		{ast.Add(ast.Bool(true), ast.Bool(false)), "Cannot add Booleans"},
		{ast.Add(ast.Unit(), ast.Unit()), "Cannot add Units"},
		{ast.Sub(ast.Str("a"), ast.Str("b")), "Cannot subtract Strings"},
		{ast.Mul(ast.Str("a"), ast.Str("b")), "Cannot multiply Strings"},
		{ast.Div(ast.Bool(true), ast.Bool(true)), "Cannot divide Booleans"},
	}
	for _, tc := range cases {
		err := expectErrorKind(t, tc.expr, KindType, tc.want)
		if !errors.Is(err, ErrTypeMismatch) {
			t.Fatalf("%s: expected ErrTypeMismatch", tc.expr)
		}
	}
}

func TestLogicalOperators(t *testing.T) {
	cases := []struct {
		expr ast.Expression
		want bool
	}{
		{ast.And(ast.Bool(true), ast.Bool(true)), true},
		{ast.And(ast.Bool(true), ast.Bool(false)), false},
		{ast.Or(ast.Bool(false), ast.Bool(true)), true},
		{ast.Or(ast.Bool(false), ast.Bool(false)), false},
		{ast.Not(ast.Bool(false)), true},
	}
	for _, tc := range cases {
		res, _ := mustRun(t, tc.expr)
		if res.Value.(runtime.BoolValue).Val != tc.want {
			t.Fatalf("%s: expected %v", tc.expr, tc.want)
		}
	}
	expectErrorKind(t, ast.And(ast.Int(1), ast.Int(2)), KindType, "Cannot perform logical and on non-boolean operands.")
	expectErrorKind(t, ast.Or(ast.Str("a"), ast.Str("b")), KindType, "Cannot perform logical or on non-boolean operands.")
	expectErrorKind(t, ast.And(ast.Bool(true), ast.Int(2)), KindType, "Mismatched types for And: Cannot evaluate Boolean and Integer")
	expectErrorKind(t, ast.Not(ast.Int(0)), KindType, "Cannot perform logical not on non-boolean operands.")
}

func TestLogicalOperatorsEvaluateBothOperands(t *testing.T) {
	_, out := mustRun(t, ast.Prog(
		ast.And(ast.Print(ast.Bool(false)), ast.Print(ast.Bool(true))),
		ast.Or(ast.Print(ast.Bool(true)), ast.Print(ast.Bool(false))),
	))
	if out != "False\nTrue\nTrue\nFalse\n" {
		t.Fatalf("both operands should run, got %q", out)
	}
	res, _ := mustRun(t, ast.Seq(
		ast.And(ast.Bool(false), ast.Assign(ast.Var("seen"), ast.Bool(true))),
		ast.Var("seen"),
	))
	if res.Value.String() != "True" {
		t.Fatalf("right operand binding should be visible, got %s", res.Value)
	}
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		expr ast.Expression
		want bool
	}{
		{ast.Lt(ast.Int(1), ast.Int(2)), true},
		{ast.Lte(ast.Int(2), ast.Int(2)), true},
		{ast.Gt(ast.Int(1), ast.Int(2)), false},
		{ast.Gte(ast.Flt(2.5), ast.Flt(2.5)), true},
		{ast.Lt(ast.Str("apple"), ast.Str("banana")), true},
		{ast.Gt(ast.Str("b"), ast.Str("abc")), true},
		{ast.Lt(ast.Bool(false), ast.Bool(true)), true},
		{ast.Gte(ast.Bool(false), ast.Bool(true)), false},
		{ast.Eq(ast.Str("x"), ast.Str("x")), true},
		{ast.Ne(ast.Int(3), ast.Int(4)), true},
		{ast.Eq(ast.Flt(0.1), ast.Flt(0.2)), false},
		{ast.Lt(ast.Unit(), ast.Unit()), false},
		{ast.Lte(ast.Unit(), ast.Unit()), true},
		{ast.Gt(ast.Unit(), ast.Unit()), false},
		{ast.Gte(ast.Unit(), ast.Unit()), true},
		{ast.Eq(ast.Unit(), ast.Unit()), true},
		{ast.Ne(ast.Unit(), ast.Unit()), false},
		{ast.Eq(ast.Flt(math.NaN()), ast.Flt(math.NaN())), false},
	}
	for _, tc := range cases {
		res, _ := mustRun(t, tc.expr)
		if res.Type != runtime.TypeBoolean {
			t.Fatalf("%s: expected Boolean result", tc.expr)
		}
		if res.Value.(runtime.BoolValue).Val != tc.want {
			t.Fatalf("%s: expected %v", tc.expr, tc.want)
		}
	}
}

func TestComparisonTypeMismatch(t *testing.T) {
	expectErrorKind(t, ast.Eq(ast.Int(1), ast.Bool(true)), KindType, "Mismatched types for Eq: Cannot compare Integer and Boolean")
	expectErrorKind(t, ast.Ne(ast.Int(1), ast.Bool(true)), KindType, "Mismatched types for Ne: Cannot compare Integer and Boolean")
	expectErrorKind(t, ast.Lt(ast.Str("1"), ast.Int(1)), KindType, "Mismatched types for Lt: Cannot compare String and Integer")
}

func TestOperandEnvironmentThreading(t *testing.T) {
	program := ast.Add(
		ast.Seq(ast.Assign(ast.Var("a"), ast.Int(4)), ast.Var("a")),
		ast.Var("a"),
	)
	res, _ := mustRun(t, program)
	if res.Value.String() != "8" {
		t.Fatalf("right operand should see left bindings, got %s", res.Value)
	}
	if res.Env.Depth() != 1 {
		t.Fatalf("expected binding to survive, got %s", res.Env)
	}
}

func TestErrorAbortsEvaluation(t *testing.T) {
	var out bytes.Buffer
	_, err := New(&out).Run(ast.Prog(
		ast.Print(ast.Int(1)),
		ast.Div(ast.Int(1), ast.Int(0)),
		ast.Print(ast.Int(2)),
	))
	if !errors.Is(err, ErrRuntime) {
		t.Fatalf("expected runtime error, got %v", err)
	}
	if out.String() != "1\n" {
		t.Fatalf("evaluation should stop at the failure, output %q", out.String())
	}
}

func TestUnhandledNodes(t *testing.T) {
	_, _, err := New(nil).Evaluate(nil, nil)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected syntax error for nil node, got %v", err)
	}
	_, _, err = New(nil).Evaluate(ast.Bin("Modulo", ast.Int(1), ast.Int(2)), nil)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected syntax error for unknown operator, got %v", err)
	}
	_, _, err = New(nil).Evaluate(ast.Assign(nil, ast.Int(1)), nil)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected syntax error for missing target, got %v", err)
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindType, Message: "Cannot add Units"}
	if err.Error() != "TypeError: Cannot add Units" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestWriteReport(t *testing.T) {
	program := ast.Prog(
		ast.Assign(ast.Var("x"), ast.Int(2)),
		ast.Assign(ast.Var("s"), ast.Str("hi")),
		ast.Var("x"),
	)
	res, _ := mustRun(t, program)
	var buf bytes.Buffer
	if err := WriteReport(&buf, program, res); err != nil {
		t.Fatalf("report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		`program: Program(Assign(Variable("x"), IntegerLiteral(2)), Assign(Variable("s"), StringLiteral("hi")), Variable("x"))`,
		"final_value: (2, Integer)",
		`final_state: s: ("hi", String), x: (2, Integer)`,
	}
	if len(lines) != len(want) {
		t.Fatalf("unexpected report:\n%s", buf.String())
	}
	for idx := range want {
		if lines[idx] != want[idx] {
			t.Fatalf("line %d mismatch:\n got %s\nwant %s", idx, lines[idx], want[idx])
		}
	}
}

func TestBooleansRenderCapitalised(t *testing.T) {
	program := ast.Prog(
		ast.Print(ast.Bool(true)),
		ast.Assign(ast.Var("b"), ast.Bool(false)),
	)
	res, out := mustRun(t, program)
	if out != "True\n" {
		t.Fatalf("unexpected output %q", out)
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, program, res); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(buf.String(), "final_value: (False, Boolean)\nfinal_state: b: (False, Boolean)\n") {
		t.Fatalf("unexpected report:\n%s", buf.String())
	}
}
