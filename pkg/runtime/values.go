package runtime

import (
	"fmt"
	"math/big"

	"github.com/shindesc/stimpl/pkg/ast"
)

// Type is the runtime type tag attached to every value and binding.
type Type int

const (
	TypeUnit Type = iota
	TypeInteger
	TypeFloatingPoint
	TypeString
	TypeBoolean
)

func (t Type) String() string {
	switch t {
	case TypeUnit:
		return "Unit"
	case TypeInteger:
		return "Integer"
	case TypeFloatingPoint:
		return "FloatingPoint"
	case TypeString:
		return "String"
	case TypeBoolean:
		return "Boolean"
	default:
		return fmt.Sprintf("unknown_type_%d", int(t))
	}
}

// ParseType maps a rendered type name back to its tag.
func ParseType(name string) (Type, bool) {
	for _, t := range []Type{TypeUnit, TypeInteger, TypeFloatingPoint, TypeString, TypeBoolean} {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Type() Type
	String() string
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type UnitValue struct{}

func (UnitValue) Type() Type     { return TypeUnit }
func (UnitValue) String() string { return "Unit" }

type IntegerValue struct {
	Val *big.Int
}

func (v IntegerValue) Type() Type { return TypeInteger }

func (v IntegerValue) String() string {
	if v.Val == nil {
		return "0"
	}
	return v.Val.String()
}

// NewInteger wraps an int64 in an IntegerValue.
func NewInteger(n int64) IntegerValue {
	return IntegerValue{Val: big.NewInt(n)}
}

type FloatValue struct {
	Val float64
}

func (v FloatValue) Type() Type     { return TypeFloatingPoint }
func (v FloatValue) String() string { return ast.FormatFloat(v.Val) }

type StringValue struct {
	Val string
}

func (v StringValue) Type() Type     { return TypeString }
func (v StringValue) String() string { return v.Val }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Type() Type { return TypeBoolean }

func (v BoolValue) String() string {
	if v.Val {
		return "True"
	}
	return "False"
}

// CloneBigInt returns a copy of v, treating nil as zero.
func CloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// Inspect renders v the way diagnostics show it: strings are quoted so that
// "1" and 1 stay distinguishable.
func Inspect(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case StringValue:
		return fmt.Sprintf("%q", val.Val)
	default:
		return val.String()
	}
}
