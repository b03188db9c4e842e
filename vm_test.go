package dialogscript

import (
	"errors"
	"testing"

	"github.com/fableforge/dialogscript/bytecode"
)

type recordingHandler struct {
	lines        []Line
	optionSets   [][]Option
	commands     []string
	nodesStarted []string
	completed    bool
	NopHandlerExtras
}

func (h *recordingHandler) Line(line Line) error {
	h.lines = append(h.lines, line)
	return nil
}
func (h *recordingHandler) Command(cmd string) error {
	h.commands = append(h.commands, cmd)
	return nil
}
func (h *recordingHandler) Options(opts []Option) error {
	h.optionSets = append(h.optionSets, opts)
	return nil
}
func (h *recordingHandler) NodeStart(node string) error {
	h.nodesStarted = append(h.nodesStarted, node)
	return nil
}
func (h *recordingHandler) DialogueComplete() error {
	h.completed = true
	return nil
}

// S1: a single RUN_LINE then STOP.
func TestRunSingleLineThenStop(t *testing.T) {
	prog := &bytecode.Program{
		Nodes: map[string]*bytecode.Node{
			"Start": {
				Name: "Start",
				Instructions: []bytecode.Instruction{
					{Opcode: bytecode.OpRunLine, Operands: []bytecode.Operand{
						bytecode.StringOperand("L1"),
						bytecode.FloatOperand(0),
					}},
					{Opcode: bytecode.OpStop},
				},
			},
		},
	}
	h := &recordingHandler{}
	vm := &VirtualMachine{Program: prog, Handler: h, Vars: MapVariableStorage{}}
	if err := vm.Run("Start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.RunningState() != Stopped {
		t.Errorf("RunningState() = %v, want Stopped", vm.RunningState())
	}
	if len(h.lines) != 1 || h.lines[0].ID != "L1" {
		t.Errorf("lines = %+v", h.lines)
	}
	if !h.completed {
		t.Errorf("DialogueComplete was not called")
	}
}

// S2: ADD_OPTION x2, SHOW_OPTIONS, JUMP on the pushed destination.
func TestOptionsAndBranching(t *testing.T) {
	prog := &bytecode.Program{
		Nodes: map[string]*bytecode.Node{
			"Start": {
				Name: "Start",
				Instructions: []bytecode.Instruction{
					{Opcode: bytecode.OpAddOption, Operands: []bytecode.Operand{
						bytecode.StringOperand("L1"), bytecode.StringOperand("yes"),
					}},
					{Opcode: bytecode.OpAddOption, Operands: []bytecode.Operand{
						bytecode.StringOperand("L2"), bytecode.StringOperand("no"),
					}},
					{Opcode: bytecode.OpShowOptions},
					{Opcode: bytecode.OpJump},
					{Opcode: bytecode.OpRunLine, Operands: []bytecode.Operand{
						bytecode.StringOperand("yes_line"), bytecode.FloatOperand(0),
					}},
					{Opcode: bytecode.OpStop},
					{Opcode: bytecode.OpRunLine, Operands: []bytecode.Operand{
						bytecode.StringOperand("no_line"), bytecode.FloatOperand(0),
					}},
					{Opcode: bytecode.OpStop},
				},
				Labels: map[string]int32{"yes": 4, "no": 6},
			},
		},
	}
	h := &recordingHandler{}
	vm := &VirtualMachine{Program: prog, Handler: h, Vars: MapVariableStorage{}}
	if err := vm.Run("Start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.RunningState() != AwaitingInput {
		t.Fatalf("RunningState() = %v, want AwaitingInput", vm.RunningState())
	}
	if len(h.optionSets) != 1 || len(h.optionSets[0]) != 2 {
		t.Fatalf("optionSets = %+v", h.optionSets)
	}

	if err := vm.SetSelectedOption(0); err != nil {
		t.Fatalf("SetSelectedOption: %v", err)
	}
	if vm.RunningState() != Stopped {
		t.Errorf("RunningState() = %v, want Stopped", vm.RunningState())
	}
	if len(h.lines) != 1 || h.lines[0].ID != "yes_line" {
		t.Errorf("lines = %+v", h.lines)
	}
	if len(vm.PendingOptions()) != 0 {
		t.Errorf("PendingOptions should be empty after selection")
	}
}

// JUMP_IF_FALSE must peek, not pop, the condition value (Open Question 3).
func TestJumpIfFalsePeeksNotPops(t *testing.T) {
	prog := &bytecode.Program{
		Nodes: map[string]*bytecode.Node{
			"Start": {
				Name: "Start",
				Instructions: []bytecode.Instruction{
					{Opcode: bytecode.OpPushBool, Operands: []bytecode.Operand{bytecode.BoolOperand(true)}},
					{Opcode: bytecode.OpJumpIfFalse, Operands: []bytecode.Operand{bytecode.StringOperand("else")}},
					{Opcode: bytecode.OpPop},
					{Opcode: bytecode.OpStop},
				},
				Labels: map[string]int32{"else": 3},
			},
		},
	}
	h := &recordingHandler{}
	vm := &VirtualMachine{Program: prog, Handler: h, Vars: MapVariableStorage{}}
	if err := vm.Run("Start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.RunningState() != Stopped {
		t.Errorf("RunningState() = %v, want Stopped", vm.RunningState())
	}
	if len(vm.Stack()) != 0 {
		t.Errorf("stack = %v, want empty (POP should have consumed the peeked value)", vm.Stack())
	}
}

// Bool.Xor must be a true exclusive-or (Open Question 1).
func TestBoolXorIsTrueXor(t *testing.T) {
	vm := &VirtualMachine{Program: &bytecode.Program{Nodes: map[string]*bytecode.Node{}}, Handler: &recordingHandler{}, Vars: MapVariableStorage{}}
	if err := vm.ensureInit(); err != nil {
		t.Fatalf("ensureInit: %v", err)
	}
	xor := vm.FuncMap["Bool.Xor"].(func(bool, bool) bool)
	cases := []struct{ a, b, want bool }{
		{true, true, false},
		{true, false, true},
		{false, true, true},
		{false, false, false},
	}
	for _, c := range cases {
		if got := xor(c.a, c.b); got != c.want {
			t.Errorf("Bool.Xor(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRunLineSubstitutionPopOrder(t *testing.T) {
	prog := &bytecode.Program{
		Nodes: map[string]*bytecode.Node{
			"Start": {
				Name: "Start",
				Instructions: []bytecode.Instruction{
					{Opcode: bytecode.OpPushString, Operands: []bytecode.Operand{bytecode.StringOperand("hello")}},
					{Opcode: bytecode.OpPushString, Operands: []bytecode.Operand{bytecode.StringOperand("world")}},
					{Opcode: bytecode.OpRunLine, Operands: []bytecode.Operand{
						bytecode.StringOperand("L"), bytecode.FloatOperand(2),
					}},
					{Opcode: bytecode.OpStop},
				},
			},
		},
	}
	h := &recordingHandler{}
	vm := &VirtualMachine{Program: prog, Handler: h, Vars: MapVariableStorage{}}
	if err := vm.Run("Start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.lines) != 1 {
		t.Fatalf("lines = %+v", h.lines)
	}
	subs := h.lines[0].Substitutions
	if len(subs) != 2 {
		t.Fatalf("substitutions = %+v", subs)
	}
	s0, _ := subs[0].Str()
	s1, _ := subs[1].Str()
	if s0 != "world" || s1 != "hello" {
		t.Errorf("substitutions = [%q, %q], want [world, hello] (most-recent-first)", s0, s1)
	}
}

func TestRunNodeNotFound(t *testing.T) {
	vm := &VirtualMachine{Program: &bytecode.Program{Nodes: map[string]*bytecode.Node{}}, Handler: &recordingHandler{}, Vars: MapVariableStorage{}}
	err := vm.Run("Missing")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("err = %v, want ErrNodeNotFound", err)
	}
}

func TestSetWaitTimeAndResume(t *testing.T) {
	prog := &bytecode.Program{
		Nodes: map[string]*bytecode.Node{
			"Start": {
				Name: "Start",
				Instructions: []bytecode.Instruction{
					{Opcode: bytecode.OpRunLine, Operands: []bytecode.Operand{
						bytecode.StringOperand("before"), bytecode.FloatOperand(0),
					}},
					{Opcode: bytecode.OpStop},
				},
			},
		},
	}
	h := &recordingHandler{}
	vm := &VirtualMachine{Program: prog, Handler: h, Vars: MapVariableStorage{}}
	if err := vm.ensureInit(); err != nil {
		t.Fatalf("ensureInit: %v", err)
	}
	if err := vm.SetNode("Start"); err != nil {
		t.Fatalf("SetNode: %v", err)
	}
	vm.state.running = Running
	if err := vm.SetWaitTime(10); err != nil {
		t.Fatalf("SetWaitTime: %v", err)
	}
	if vm.RunningState() != Asleep {
		t.Fatalf("RunningState() = %v, want Asleep", vm.RunningState())
	}
	if err := vm.IncrementTime(5); err != nil {
		t.Fatalf("IncrementTime: %v", err)
	}
	if vm.RunningState() != Asleep {
		t.Fatalf("RunningState() = %v, want still Asleep", vm.RunningState())
	}
	if err := vm.IncrementTime(10); err != nil {
		t.Fatalf("IncrementTime: %v", err)
	}
	if vm.RunningState() != Stopped {
		t.Fatalf("RunningState() = %v, want Stopped after waking", vm.RunningState())
	}
	if len(h.lines) != 1 {
		t.Errorf("lines = %+v", h.lines)
	}
}
