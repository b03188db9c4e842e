// Package bytecode models the in-memory shape of a compiled dialogue
// program: nodes, instructions, labels, and initial variable values.
//
// The wire schema that produces this shape is owned by the compiler and is
// explicitly out of scope here (see the runtime's design spec, §6); this
// package only defines the structures the VM walks and a small Decoder seam
// for turning bytes into a *Program. See decode.go for the default decoder.
package bytecode

// Opcode identifies the operation an Instruction performs.
type Opcode int

const (
	OpJumpTo Opcode = iota
	OpJump
	OpRunLine
	OpRunCommand
	OpAddOption
	OpShowOptions
	OpPushString
	OpPushFloat
	OpPushBool
	OpPushNull
	OpJumpIfFalse
	OpPop
	OpCallFunc
	OpPushVariable
	OpStoreVariable
	OpStop
	OpRunNode

	opcodeCount
)

var opcodeNames = [...]string{
	OpJumpTo:        "JUMP_TO",
	OpJump:          "JUMP",
	OpRunLine:       "RUN_LINE",
	OpRunCommand:    "RUN_COMMAND",
	OpAddOption:     "ADD_OPTION",
	OpShowOptions:   "SHOW_OPTIONS",
	OpPushString:    "PUSH_STRING",
	OpPushFloat:     "PUSH_FLOAT",
	OpPushBool:      "PUSH_BOOL",
	OpPushNull:      "PUSH_NULL",
	OpJumpIfFalse:   "JUMP_IF_FALSE",
	OpPop:           "POP",
	OpCallFunc:      "CALL_FUNC",
	OpPushVariable:  "PUSH_VARIABLE",
	OpStoreVariable: "STORE_VARIABLE",
	OpStop:          "STOP",
	OpRunNode:       "RUN_NODE",
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	if op < 0 || int(op) >= len(opcodeNames) || opcodeNames[op] == "" {
		return "UNKNOWN_OPCODE"
	}
	return opcodeNames[op]
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool { return op >= 0 && int(op) < int(opcodeCount) }

// OperandKind tags the one-of in Operand.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandBool
	OperandFloat
	OperandString
)

// Operand is a compile-time argument to an Instruction. Exactly one of the
// typed fields is meaningful, selected by Kind; this mirrors the compiler's
// one-of {bool_value, float_value, string_value} wire shape (spec.md §6).
type Operand struct {
	Kind        OperandKind
	BoolValue   bool
	FloatValue  float32
	StringValue string
}

// BoolOperand builds a bool-kind Operand.
func BoolOperand(b bool) Operand { return Operand{Kind: OperandBool, BoolValue: b} }

// FloatOperand builds a float-kind Operand.
func FloatOperand(f float32) Operand { return Operand{Kind: OperandFloat, FloatValue: f} }

// StringOperand builds a string-kind Operand.
func StringOperand(s string) Operand { return Operand{Kind: OperandString, StringValue: s} }

// Instruction is one opcode plus its ordered operands.
type Instruction struct {
	Opcode   Opcode
	Operands []Operand
}

// Node is a named sequence of instructions with a local label table.
type Node struct {
	Name         string
	Instructions []Instruction
	Labels       map[string]int32
	Tags         []string
	Headers      map[string]string
}

// Program is a whole compiled dialogue module: its nodes and the initial
// values seeded into variable storage at load time.
type Program struct {
	Nodes         map[string]*Node
	InitialValues map[string]Operand
}
