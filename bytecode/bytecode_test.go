package bytecode

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleProgram() *Program {
	return &Program{
		Nodes: map[string]*Node{
			"Start": {
				Name: "Start",
				Instructions: []Instruction{
					{Opcode: OpPushFloat, Operands: []Operand{FloatOperand(3)}},
					{Opcode: OpPushFloat, Operands: []Operand{FloatOperand(4)}},
					{Opcode: OpCallFunc, Operands: []Operand{StringOperand("Number.Add")}},
					{Opcode: OpStoreVariable, Operands: []Operand{StringOperand("$x")}},
					{Opcode: OpStop},
				},
				Labels: map[string]int32{},
			},
		},
		InitialValues: map[string]Operand{
			"$x": FloatOperand(0),
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleProgram()

	var buf bytes.Buffer
	if err := Encode(&buf, want); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := (GobDecoder{}).Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpJumpTo, "JUMP_TO"},
		{OpStop, "STOP"},
		{Opcode(-1), "UNKNOWN_OPCODE"},
		{opcodeCount, "UNKNOWN_OPCODE"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestDecoderRejectsEmptyProgram(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Program{}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := (GobDecoder{}).Decode(&buf); err == nil {
		t.Error("Decode(empty program) = nil error, want error")
	}
}
