// Package dialogscript implements a cooperative, resumable virtual machine
// for a compiled interactive-dialogue bytecode: the stack machine, its
// built-in function library, and save/restore of complete VM state.
//
// A host loads a *bytecode.Program, selects a start node with SetNode (or
// Run, which also drives the instruction loop to completion), implements
// DialogueHandler to receive lines/commands/options, and drives time with
// SetTime/IncrementTime/SetWaitTime for the ASLEEP state. See
// github.com/fableforge/dialogscript/render for line-markup processing and
// github.com/fableforge/dialogscript/linedb for the CSV-backed line
// database these are typically paired with.
package dialogscript

import (
	"errors"
	"fmt"

	"github.com/fableforge/dialogscript/bytecode"
)

// Settings configures a VirtualMachine at construction.
type Settings struct {
	// Seed for the deterministic RNG (see rng.go). Zero is a valid seed.
	Seed uint64

	// EnableExceptions selects strict-fail (true) vs. lax (false, the zero
	// value) error handling. In lax mode a recoverable instruction error is
	// skipped by advancing past the instruction, without logging it; other
	// errors still end Run with an error.
	EnableExceptions bool
}

// VirtualMachine implements the dialogue virtual machine.
type VirtualMachine struct {
	// Program is the program to execute.
	Program *bytecode.Program

	// Handler receives content (lines, options, etc) and other events.
	Handler DialogueHandler

	// Vars stores variables used and provided by the dialogue.
	Vars VariableStorage

	// FuncMap provides built-in and host-registered functions. Use
	// RegisterFunc rather than mutating this directly before Run installs
	// the defaults.
	FuncMap FuncMap

	// TraceLogf, if not nil, is called before each instruction to log the
	// current stack, options, and the instruction about to be executed.
	TraceLogf func(string, ...interface{})

	// Settings controls the RNG seed and strict/lax error handling.
	Settings Settings

	rng   *RNG
	state state

	funcMapInstalled bool
}

// RegisterFunc adds or overrides a built-in function, callable from scripts
// via CALL_FUNC. fn's signature determines how CALL_FUNC's popped arguments
// are converted (see funcs.go).
func (vm *VirtualMachine) RegisterFunc(name string, fn interface{}) {
	if vm.FuncMap == nil {
		vm.FuncMap = FuncMap{}
	}
	vm.FuncMap[name] = fn
}

func (vm *VirtualMachine) ensureInit() error {
	if vm.Handler == nil {
		return ErrNilHandler
	}
	if vm.Vars == nil {
		return ErrNilVariableStorage
	}
	if vm.rng == nil {
		vm.rng = NewRNG(vm.Settings.Seed)
	}
	if !vm.funcMapInstalled {
		vm.FuncMap = defaultFuncMap(vm).merge(vm.FuncMap)
		vm.funcMapInstalled = true
	}
	return nil
}

// RunningState reports the VM's current state-machine state.
func (vm *VirtualMachine) RunningState() RunningState { return vm.state.running }

// CurrentNode returns the name of the current node, or "" before any
// SetNode call.
func (vm *VirtualMachine) CurrentNode() string { return vm.state.nodeName }

// InstructionPointer returns the current instruction index within the
// current node.
func (vm *VirtualMachine) InstructionPointer() int { return vm.state.pc }

// visitedNodeVar is the reserved variable name prefix bookkeeping node visit
// counts (spec.md §4.1). The compiler emits STORE_VARIABLE instructions for
// these; the VM only exposes the read helper, visitedCount.
func visitedNodeVar(node string) string {
	return "$Yarn.Internal.Visiting." + node
}

func (vm *VirtualMachine) visitedCount(node string) uint32 {
	v, ok := vm.Vars.GetValue(visitedNodeVar(node))
	if !ok {
		return 0
	}
	n, ok := v.Number()
	if !ok || n < 0 {
		return 0
	}
	return uint32(n)
}

// SetNode sets the VM to begin a node. If a node is already selected,
// NodeComplete is called for it first. Then NodeStart and PrepareForLines
// are called for the newly selected node. Passing the current node resets
// to its start (spec.md §4.2: loadNode transitions STOPPED→RUNNING and
// resets the instruction pointer).
func (vm *VirtualMachine) SetNode(name string) error {
	if vm.Program == nil {
		return ErrMissingProgram
	}
	node, found := vm.Program.Nodes[name]
	if !found {
		return fmt.Errorf("%q: %w", name, ErrNodeNotFound)
	}

	if vm.state.node != nil {
		if err := vm.Handler.NodeComplete(vm.state.nodeName); err != nil {
			return fmt.Errorf("handler.NodeComplete: %w", err)
		}
	}

	vm.state = state{
		nodeName: name,
		node:     node,
		running:  Running,
		now:      vm.state.now,
	}

	if err := vm.Handler.NodeStart(name); err != nil {
		return fmt.Errorf("handler.NodeStart: %w", err)
	}

	var ids []string
	for _, inst := range node.Instructions {
		switch inst.Opcode {
		case bytecode.OpRunLine, bytecode.OpAddOption:
			if len(inst.Operands) > 0 {
				ids = append(ids, inst.Operands[0].StringValue)
			}
		}
	}
	if err := vm.Handler.PrepareForLines(ids); err != nil {
		return fmt.Errorf("handler.PrepareForLines: %w", err)
	}
	return nil
}

// Run loads the initial variable values (if this is the first call),
// selects startNode, and runs the instruction loop (following RUN_NODE into
// other nodes) until the current node's instructions are exhausted, STOP
// executes, or ASLEEP/AWAITING_INPUT suspends it. For AWAITING_INPUT/ASLEEP,
// a host continues execution with SetSelectedOption or SetTime/
// IncrementTime, each of which resumes the instruction loop itself — Run
// returns at the first such stopping point, matching the cooperative model
// of spec.md §5 (the host owns the scheduling loop).
func (vm *VirtualMachine) Run(startNode string) error {
	if err := vm.ensureInit(); err != nil {
		return err
	}
	if vm.Program != nil && vm.state.node == nil {
		seedInitialValues(vm.Vars, vm.Program.InitialValues)
	}
	if err := vm.SetNode(startNode); err != nil {
		return err
	}
	return vm.drive()
}

func seedInitialValues(vars VariableStorage, initial map[string]bytecode.Operand) {
	for name, op := range initial {
		if _, exists := vars.GetValue(name); !exists {
			vars.SetValue(name, FromOperand(op))
		}
	}
}

// drive runs instructions until the VM leaves the RUNNING state.
func (vm *VirtualMachine) drive() error {
	for vm.state.running == Running {
		if vm.state.pc >= len(vm.state.node.Instructions) {
			vm.state.running = Stopped
			break
		}
		inst := vm.state.node.Instructions[vm.state.pc]
		if vm.TraceLogf != nil {
			vm.TraceLogf("stack %v; options %v", vm.state.stack, vm.state.options)
			vm.TraceLogf("%15s %06d %s", vm.state.nodeName, vm.state.pc, FormatInstruction(inst))
		}
		err := vm.Advance(inst)
		switch {
		case errors.Is(err, Stop):
			vm.state.running = Stopped
		case err != nil:
			if vm.Settings.EnableExceptions || !isRecoverable(err) {
				return fmt.Errorf("%s %06d %s: %w", vm.state.nodeName, vm.state.pc, FormatInstruction(inst), err)
			}
			// Lax mode: skip the offending instruction and continue.
			vm.state.pc++
		}
	}
	if vm.state.running == Stopped {
		if err := vm.finish(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VirtualMachine) finish() error {
	if vm.state.node != nil {
		if err := vm.Handler.NodeComplete(vm.state.nodeName); err != nil && !errors.Is(err, Stop) {
			return fmt.Errorf("handler.NodeComplete: %w", err)
		}
	}
	if err := vm.Handler.DialogueComplete(); err != nil && !errors.Is(err, Stop) {
		return fmt.Errorf("handler.DialogueComplete: %w", err)
	}
	return nil
}

// Advance executes a single instruction via the opcode dispatch table. Most
// handlers advance the instruction pointer themselves on success so that
// CALL_FUNC and RUN_COMMAND may overwrite it (spec.md §4.3).
func (vm *VirtualMachine) Advance(inst bytecode.Instruction) error {
	if vm.state.node == nil {
		return fmt.Errorf("no current node: %w", ErrMissingProgram)
	}
	if vm.state.running != Running {
		return fmt.Errorf("Advance: runningState is %v: %w", vm.state.running, ErrNotRunning)
	}
	if !inst.Opcode.Valid() || int(inst.Opcode) >= len(dispatchTable) || dispatchTable[inst.Opcode] == nil {
		return fmt.Errorf("%v: %w", inst.Opcode, ErrInvalidOpcode)
	}
	return dispatchTable[inst.Opcode](vm, inst.Operands)
}

// SetSelectedOption resolves a pending SHOW_OPTIONS by pushing the chosen
// option's destination label and returning the VM to RUNNING (spec.md §9,
// resolved Open Question 4: push-and-JUMP, not a direct pc write — scripts
// must have a JUMP instruction immediately after SHOW_OPTIONS).
func (vm *VirtualMachine) SetSelectedOption(index int) error {
	if vm.state.running != AwaitingInput {
		return fmt.Errorf("SetSelectedOption: %w", ErrNotRunning)
	}
	if index < 0 || index >= len(vm.state.options) {
		return fmt.Errorf("%d not in [0,%d): %w", index, len(vm.state.options), ErrOptionOutOfRange)
	}
	vm.state.push(String(vm.state.options[index].Destination))
	vm.state.options = nil
	vm.state.running = Running
	vm.state.pc++
	return vm.drive()
}

// SetTime sets the VM's clock. If the VM is ASLEEP and t has reached or
// passed the wake time, the VM transitions back to RUNNING and resumes
// driving instructions (spec.md §4.2/§5: "the check happens in setTime
// itself").
func (vm *VirtualMachine) SetTime(t int64) error {
	vm.state.now = t
	if vm.state.running == Asleep && vm.state.now >= vm.state.waitUntilTime {
		vm.state.running = Running
		return vm.drive()
	}
	return nil
}

// IncrementTime advances the clock by dt and applies the same wake check as
// SetTime.
func (vm *VirtualMachine) IncrementTime(dt int64) error {
	return vm.SetTime(vm.state.now + dt)
}

// SetWaitTime puts the VM to sleep for dt time units from now.
func (vm *VirtualMachine) SetWaitTime(dt int64) error {
	if vm.state.running != Running {
		return fmt.Errorf("SetWaitTime: %w", ErrNotRunning)
	}
	vm.state.waitUntilTime = vm.state.now + dt
	vm.state.running = Asleep
	return nil
}

// Stack returns a copy of the current operand stack, bottom-to-top. Used by
// tests and by Save.
func (vm *VirtualMachine) Stack() []Value {
	out := make([]Value, len(vm.state.stack))
	copy(out, vm.state.stack)
	return out
}

// PendingOptions returns the options list being accumulated or awaiting
// selection.
func (vm *VirtualMachine) PendingOptions() []Option {
	out := make([]Option, len(vm.state.options))
	copy(out, vm.state.options)
	return out
}
