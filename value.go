package dialogscript

import (
	"fmt"
	"strconv"

	"github.com/fableforge/dialogscript/bytecode"
)

// Kind tags which alternative a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is the VM's tagged value: Null, Bool, Number (32-bit float, to match
// the compiled program's operand encoding) or String. It is the element type
// of both the operand stack and the variable store.
//
// Values are plain structs, not pointers: copying a Value copies the whole
// thing, so stack/store entries never alias each other (spec.md §3,
// "Ownership").
type Value struct {
	kind   Kind
	b      bool
	n      float32
	s      string
}

// Null is the zero Value.
var Null = Value{kind: KindNull}

// Bool constructs a Bool Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number constructs a Number Value.
func Number(n float32) Value { return Value{kind: KindNumber, n: n} }

// String constructs a String Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports which alternative v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload and whether v actually held one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Number returns the numeric payload and whether v actually held one.
func (v Value) Number() (float32, bool) { return v.n, v.kind == KindNumber }

// Str returns the string payload and whether v actually held one.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Truthy implements the VM's falsiness rule (spec.md §4.3, JUMP_IF_FALSE):
// Null, boolean false, and numeric zero are falsy; everything else,
// including the empty string, is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	default:
		return true
	}
}

// String implements fmt.Stringer: the textual form used when a Value is
// spliced into a line via {k} substitution (spec.md §4.3/§8 invariant 10) or
// interpolated into a select/plural/ordinal replacement.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(float64(v.n), 'g', -1, 32)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// GoString supports %#v / debug dumps.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %s}", v.kind, v.String())
}

// FromOperand widens a compiled-program Operand (a one-of) into a Value.
func FromOperand(op bytecode.Operand) Value {
	switch op.Kind {
	case bytecode.OperandBool:
		return Bool(op.BoolValue)
	case bytecode.OperandFloat:
		return Number(op.FloatValue)
	case bytecode.OperandString:
		return String(op.StringValue)
	default:
		return Null
	}
}
