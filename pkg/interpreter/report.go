package interpreter

import (
	"fmt"
	"io"

	"github.com/shindesc/stimpl/pkg/ast"
)

// WriteReport prints the debug view of a finished run: the program tree, the
// final value with its type, and the final environment chain.
func WriteReport(w io.Writer, program ast.Node, result Result) error {
	rendered := "None"
	if program != nil {
		rendered = program.String()
	}
	value := "Unit"
	if result.Value != nil {
		value = result.Value.String()
	}
	if _, err := fmt.Fprintf(w, "program: %s\n", rendered); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "final_value: (%s, %s)\n", value, result.Type); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "final_state: %s\n", result.Env)
	return err
}
