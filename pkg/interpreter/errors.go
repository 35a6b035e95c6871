package interpreter

import (
	"errors"
	"fmt"

	"github.com/shindesc/stimpl/pkg/ast"
)

// ErrorKind classifies evaluation failures.
type ErrorKind string

const (
	KindUnboundVariable ErrorKind = "UnboundVariableError"
	KindType            ErrorKind = "TypeError"
	KindRuntime         ErrorKind = "RuntimeError"
	KindSyntax          ErrorKind = "SyntaxError"
)

var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrRuntime         = errors.New("runtime error")
	ErrSyntax          = errors.New("syntax error")
)

// Error is returned for every evaluation failure. Node is the expression that
// failed, when known.
type Error struct {
	Kind    ErrorKind
	Message string
	Node    ast.Node
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap maps the kind onto its sentinel so errors.Is works.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindUnboundVariable:
		return ErrUnboundVariable
	case KindType:
		return ErrTypeMismatch
	case KindRuntime:
		return ErrRuntime
	case KindSyntax:
		return ErrSyntax
	default:
		return nil
	}
}

func newError(kind ErrorKind, node ast.Node, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Node: node}
}

func unboundError(node ast.Node, name string) *Error {
	return newError(KindUnboundVariable, node, "Cannot read from %s before assignment.", name)
}

func typeError(node ast.Node, format string, args ...any) *Error {
	return newError(KindType, node, format, args...)
}

func runtimeError(node ast.Node, format string, args ...any) *Error {
	return newError(KindRuntime, node, format, args...)
}
