package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/shindesc/stimpl/pkg/ast"
)

// ProgramName is the module-level binding that names the program to run.
const ProgramName = "program"

// SyntaxError reports a problem in STIMPL source with a 1-based position.
type SyntaxError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

func syntaxErrorAt(node *sitter.Node, format string, args ...any) *SyntaxError {
	err := &SyntaxError{Line: 1, Column: 1, Message: fmt.Sprintf(format, args...)}
	if node != nil {
		pos := node.StartPosition()
		err.Line = int(pos.Row) + 1
		err.Column = int(pos.Column) + 1
	}
	return err
}

// ProgramParser wraps a tree-sitter parser configured with the Python grammar.
type ProgramParser struct {
	parser *sitter.Parser
}

// NewProgramParser constructs a parser with the Python language loaded.
func NewProgramParser() (*ProgramParser, error) {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	if lang == nil {
		return nil, fmt.Errorf("parser: python language not available")
	}

	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, fmt.Errorf("parser: %w", err)
	}
	return &ProgramParser{parser: p}, nil
}

// Close releases parser resources.
func (p *ProgramParser) Close() {
	if p == nil || p.parser == nil {
		return
	}
	p.parser.Close()
	p.parser = nil
}

// Parse is a one-shot helper around NewProgramParser and ParseProgram.
func Parse(source []byte) (ast.Expression, error) {
	p, err := NewProgramParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ParseProgram(source)
}

// ParseProgram lowers constructor-notation source into an expression tree.
// The result is the binding named "program" when the module defines one,
// otherwise the last bare expression statement.
func (p *ProgramParser) ParseProgram(source []byte) (ast.Expression, error) {
	if p == nil || p.parser == nil {
		return nil, fmt.Errorf("parser: nil parser")
	}

	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser: parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.Kind() != "module" {
		return nil, fmt.Errorf("parser: unexpected root node")
	}
	if root.HasError() {
		bad := firstErrorNode(root)
		if bad != nil && bad.IsMissing() {
			return nil, syntaxErrorAt(bad, "missing %s", bad.Kind())
		}
		return nil, syntaxErrorAt(bad, "invalid syntax near %q", snippet(sliceContent(bad, source)))
	}

	l := &lowerer{source: source, bindings: make(map[string]ast.Expression)}
	var last *sitter.Node

	for i := uint(0); i < root.NamedChildCount(); i++ {
		node := root.NamedChild(i)
		switch node.Kind() {
		case "comment", "import_statement", "import_from_statement", "future_import_statement":
			continue
		case "if_statement":
			if isMainGuard(node, source) {
				continue
			}
			return nil, syntaxErrorAt(node, "unsupported statement if_statement")
		case "expression_statement":
			inner := firstNamedChild(node)
			if inner == nil {
				continue
			}
			if inner.Kind() == "assignment" {
				if err := l.bind(inner); err != nil {
					return nil, err
				}
				continue
			}
			if node.NamedChildCount() > 1 {
				return nil, syntaxErrorAt(node, "expected a single expression")
			}
			last = inner
		default:
			return nil, syntaxErrorAt(node, "unsupported statement %s", node.Kind())
		}
	}

	if program, ok := l.bindings[ProgramName]; ok {
		return program, nil
	}
	if last == nil {
		return nil, syntaxErrorAt(root, "no program found: bind %q or end with an expression", ProgramName)
	}
	return l.expression(last)
}

func isMainGuard(node *sitter.Node, source []byte) bool {
	cond := node.ChildByFieldName("condition")
	return cond != nil && strings.Contains(sliceContent(cond, source), "__name__")
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return node
}

func snippet(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return text
}

func sliceContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := int(node.StartByte())
	end := int(node.EndByte())
	if start < 0 || end < start || end > len(source) {
		return ""
	}
	return string(source[start:end])
}

func isIgnorableNode(node *sitter.Node) bool {
	return node.Kind() == "comment"
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child != nil && !isIgnorableNode(child) {
			return child
		}
	}
	return nil
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || isIgnorableNode(child) {
			continue
		}
		out = append(out, child)
	}
	return out
}
