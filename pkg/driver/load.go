package driver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shindesc/stimpl/pkg/ast"
	"github.com/shindesc/stimpl/pkg/parser"
)

// ProgramKind identifies how a program file is decoded.
type ProgramKind string

const (
	KindSource ProgramKind = "source"
	KindJSON   ProgramKind = "json"
	KindYAML   ProgramKind = "yaml"
)

// ProgramKindOf maps a file extension onto its decoder.
func ProgramKindOf(path string) (ProgramKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stimpl", ".py":
		return KindSource, true
	case ".json":
		return KindJSON, true
	case ".yml", ".yaml":
		return KindYAML, true
	default:
		return "", false
	}
}

// IsProgramFile reports whether LoadProgram understands path.
func IsProgramFile(path string) bool {
	_, ok := ProgramKindOf(path)
	return ok
}

// LoadProgram reads and decodes a program file according to its extension.
// Source syntax errors carry the file path.
func LoadProgram(path string) (ast.Expression, error) {
	kind, ok := ProgramKindOf(path)
	if !ok {
		return nil, fmt.Errorf("load %s: unsupported program file (want .stimpl, .py, .json, .yml or .yaml)", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return DecodeProgram(kind, path, data)
}

// DecodeProgram decodes data of the given kind; path is used for diagnostics only.
func DecodeProgram(kind ProgramKind, path string, data []byte) (ast.Expression, error) {
	switch kind {
	case KindSource:
		expr, err := parser.Parse(data)
		if err != nil {
			var synErr *parser.SyntaxError
			if errors.As(err, &synErr) {
				located := *synErr
				located.Path = path
				return nil, &located
			}
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return expr, nil
	case KindJSON:
		expr, err := ast.DecodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return expr, nil
	case KindYAML:
		expr, err := decodeYAMLProgram(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return expr, nil
	default:
		return nil, fmt.Errorf("load %s: unknown program kind %q", path, kind)
	}
}

func decodeYAMLProgram(data []byte) (ast.Expression, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml: empty document")
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("yaml: expected node mapping at line %d", root.Line)
	}
	generic, err := yamlToGeneric(root)
	if err != nil {
		return nil, err
	}
	return ast.DecodeNode(generic.(map[string]any))
}

// yamlToGeneric converts a YAML tree to the map/slice form DecodeNode expects.
// Integer scalars become json.Number so arbitrary precision survives.
func yamlToGeneric(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("yaml: line %d: %w", node.Content[i].Line, err)
			}
			value, err := yamlToGeneric(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			value, err := yamlToGeneric(child)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	case yaml.AliasNode:
		return yamlToGeneric(node.Alias)
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!int":
			return json.Number(node.Value), nil
		case "!!null":
			return nil, nil
		default:
			var value any
			if err := node.Decode(&value); err != nil {
				return nil, fmt.Errorf("yaml: line %d: %w", node.Line, err)
			}
			return value, nil
		}
	default:
		return nil, fmt.Errorf("yaml: unsupported node at line %d", node.Line)
	}
}
