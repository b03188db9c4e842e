package dialogscript

import (
	"testing"

	"github.com/fableforge/dialogscript/bytecode"
)

func awaitingInputProgram() *bytecode.Program {
	return &bytecode.Program{
		Nodes: map[string]*bytecode.Node{
			"Start": {
				Name: "Start",
				Instructions: []bytecode.Instruction{
					{Opcode: bytecode.OpAddOption, Operands: []bytecode.Operand{
						bytecode.StringOperand("L1"), bytecode.StringOperand("yes"),
					}},
					{Opcode: bytecode.OpShowOptions},
					{Opcode: bytecode.OpJump},
					{Opcode: bytecode.OpStop},
				},
				Labels: map[string]int32{"yes": 3},
			},
		},
	}
}

// S4: save under AWAITING_INPUT, restore into a fresh VM, expect an
// identical re-presentation of the pending options and identical
// subsequent behavior.
func TestSaveRestoreUnderAwaitingInput(t *testing.T) {
	prog := awaitingInputProgram()
	h1 := &recordingHandler{}
	vm1 := &VirtualMachine{Program: prog, Handler: h1, Vars: MapVariableStorage{"$x": Number(1)}, Settings: Settings{Seed: 99}}
	if err := vm1.Run("Start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm1.RunningState() != AwaitingInput {
		t.Fatalf("RunningState() = %v, want AwaitingInput", vm1.RunningState())
	}

	save, err := vm1.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	h2 := &recordingHandler{}
	vm2 := &VirtualMachine{Program: prog, Handler: h2, Vars: MapVariableStorage{}}
	if err := vm2.Restore(save); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if vm2.RunningState() != AwaitingInput {
		t.Fatalf("restored RunningState() = %v, want AwaitingInput", vm2.RunningState())
	}
	// S4: "onChangeNode fires once for the restored node". Restore must
	// reach this via SetNode, not by reconstructing state directly.
	if len(h2.nodesStarted) != 1 || h2.nodesStarted[0] != "Start" {
		t.Fatalf("restored nodesStarted = %+v, want [\"Start\"]", h2.nodesStarted)
	}
	if len(h2.optionSets) != 1 || len(h2.optionSets[0]) != 1 || h2.optionSets[0][0].Destination != "yes" {
		t.Fatalf("restored optionSets = %+v", h2.optionSets)
	}
	if v, ok := vm2.Vars.GetValue("$x"); !ok {
		t.Fatalf("restored variable $x missing")
	} else if n, _ := v.Number(); n != 1 {
		t.Fatalf("restored $x = %v, want 1", n)
	}

	if err := vm2.SetSelectedOption(0); err != nil {
		t.Fatalf("SetSelectedOption on restored VM: %v", err)
	}
	if vm2.RunningState() != Stopped {
		t.Fatalf("RunningState() = %v, want Stopped", vm2.RunningState())
	}
}

func TestSaveJSONRestoreJSONRoundTrip(t *testing.T) {
	prog := awaitingInputProgram()
	vm1 := &VirtualMachine{Program: prog, Handler: &recordingHandler{}, Vars: MapVariableStorage{}}
	if err := vm1.Run("Start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := vm1.SaveJSON()
	if err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	vm2 := &VirtualMachine{Program: prog, Handler: &recordingHandler{}, Vars: MapVariableStorage{}}
	if err := vm2.RestoreJSON(data); err != nil {
		t.Fatalf("RestoreJSON: %v", err)
	}
	if vm2.RunningState() != vm1.RunningState() {
		t.Errorf("restored state = %v, want %v", vm2.RunningState(), vm1.RunningState())
	}
	if vm2.InstructionPointer() != vm1.InstructionPointer() {
		t.Errorf("restored pc = %d, want %d", vm2.InstructionPointer(), vm1.InstructionPointer())
	}
}
