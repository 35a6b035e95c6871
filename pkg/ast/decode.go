package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// DecodeJSON decodes a serialized node tree. Numbers are kept exact so integer
// literals beyond the float64 range survive.
func DecodeJSON(data []byte) (Expression, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("ast: decode json: %w", err)
	}
	node, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ast: expected node object, got %T", raw)
	}
	return DecodeNode(node)
}

// DecodeNode builds a node from its generic map form, as produced by the JSON
// and YAML decoders.
func DecodeNode(node map[string]any) (Expression, error) {
	typ, _ := node["type"].(string)
	switch NodeType(typ) {
	case NodeUnit:
		return NewUnitLiteral(), nil
	case NodeIntegerLiteral:
		bi, err := parseBigInt(node["value"])
		if err != nil {
			return nil, err
		}
		return NewIntegerLiteral(bi), nil
	case NodeFloatLiteral:
		val, err := parseFloat(node["value"])
		if err != nil {
			return nil, err
		}
		return NewFloatLiteral(val), nil
	case NodeStringLiteral:
		val, ok := node["value"].(string)
		if !ok {
			return nil, fmt.Errorf("ast: StringLiteral value must be a string, got %T", node["value"])
		}
		return NewStringLiteral(val), nil
	case NodeBooleanLiteral:
		val, ok := node["value"].(bool)
		if !ok {
			return nil, fmt.Errorf("ast: BooleanLiteral value must be a bool, got %T", node["value"])
		}
		return NewBooleanLiteral(val), nil
	case NodeVariable:
		name, _ := node["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("ast: Variable requires a name")
		}
		return NewVariable(name), nil
	case NodeAssign:
		target, err := decodeChild(node, "variable")
		if err != nil {
			return nil, err
		}
		variable, ok := target.(*Variable)
		if !ok {
			return nil, fmt.Errorf("ast: Assign target must be a Variable, got %s", target.NodeType())
		}
		value, err := decodeChild(node, "value")
		if err != nil {
			return nil, err
		}
		return NewAssignment(variable, value), nil
	case NodeAdd, NodeSubtract, NodeMultiply, NodeDivide,
		NodeAnd, NodeOr,
		NodeLt, NodeLte, NodeGt, NodeGte, NodeEq, NodeNe:
		left, err := decodeChild(node, "left")
		if err != nil {
			return nil, err
		}
		right, err := decodeChild(node, "right")
		if err != nil {
			return nil, err
		}
		return NewBinaryExpression(BinaryOperator(typ), left, right), nil
	case NodeNot:
		operand, err := decodeChild(node, "expr")
		if err != nil {
			return nil, err
		}
		return NewUnaryExpression(OpNot, operand), nil
	case NodeIf:
		cond, err := decodeChild(node, "condition")
		if err != nil {
			return nil, err
		}
		then, err := decodeChild(node, "true")
		if err != nil {
			return nil, err
		}
		otherwise, err := decodeChild(node, "false")
		if err != nil {
			return nil, err
		}
		return NewIfExpression(cond, then, otherwise), nil
	case NodeWhile:
		cond, err := decodeChild(node, "condition")
		if err != nil {
			return nil, err
		}
		body, err := decodeChild(node, "body")
		if err != nil {
			return nil, err
		}
		return NewWhileLoop(cond, body), nil
	case NodeSequence, NodeProgram:
		exprs, err := decodeList(node, "exprs")
		if err != nil {
			return nil, err
		}
		if NodeType(typ) == NodeProgram {
			return NewProgram(exprs), nil
		}
		return NewSequence(exprs), nil
	case NodePrint:
		expr, err := decodeChild(node, "expr")
		if err != nil {
			return nil, err
		}
		return NewPrintExpression(expr), nil
	case "":
		return nil, fmt.Errorf("ast: node is missing its type")
	default:
		return nil, fmt.Errorf("ast: unsupported node type %q", typ)
	}
}

func decodeChild(node map[string]any, field string) (Expression, error) {
	raw, ok := node[field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("ast: %s is missing %q", node["type"], field)
	}
	child, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ast: %s.%s must be a node, got %T", node["type"], field, raw)
	}
	return DecodeNode(child)
}

func decodeList(node map[string]any, field string) ([]Expression, error) {
	raw, _ := node[field].([]any)
	exprs := make([]Expression, 0, len(raw))
	for idx, entry := range raw {
		child, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("ast: %s.%s[%d] must be a node, got %T", node["type"], field, idx, entry)
		}
		expr, err := DecodeNode(child)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func parseBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case json.Number:
		if bi, ok := new(big.Int).SetString(v.String(), 0); ok {
			return bi, nil
		}
		return nil, fmt.Errorf("ast: invalid integer literal %q", v.String())
	case string:
		if bi, ok := new(big.Int).SetString(v, 0); ok {
			return bi, nil
		}
		return nil, fmt.Errorf("ast: invalid integer literal %q", v)
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("ast: integer literal %v is not integral", v)
		}
		bi, _ := big.NewFloat(v).Int(nil)
		return bi, nil
	default:
		return nil, fmt.Errorf("ast: IntegerLiteral value must be a number, got %T", value)
	}
}

func parseFloat(value any) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("ast: invalid float literal %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("ast: FloatLiteral value must be a number, got %T", value)
	}
}
