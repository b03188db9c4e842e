package dialogscript

import (
	"encoding/json"
	"fmt"
)

// valueJSON is Value's wire shape for JSON save files: a kind discriminator
// plus whichever payload field applies, since Value's own fields are
// unexported (spec.md §3: the save file is the reference JSON encoding).
type valueJSON struct {
	Kind   string  `json:"kind"`
	Bool   bool    `json:"bool,omitempty"`
	Number float32 `json:"number,omitempty"`
	String string  `json:"string,omitempty"`
}

func valueToJSON(v Value) valueJSON {
	out := valueJSON{Kind: v.Kind().String()}
	switch v.Kind() {
	case KindBool:
		out.Bool, _ = v.Bool()
	case KindNumber:
		out.Number, _ = v.Number()
	case KindString:
		out.String, _ = v.Str()
	}
	return out
}

func valueFromJSON(in valueJSON) (Value, error) {
	switch in.Kind {
	case "null":
		return Null, nil
	case "bool":
		return Bool(in.Bool), nil
	case "number":
		return Number(in.Number), nil
	case "string":
		return String(in.String), nil
	default:
		return Null, fmt.Errorf("%w: unknown value kind %q", ErrWrongType, in.Kind)
	}
}

type optionJSON struct {
	Index       int       `json:"index"`
	LineID      string    `json:"lineId"`
	Subs        []valueJSON `json:"substitutions,omitempty"`
	Destination string    `json:"destination"`
	Enabled     bool      `json:"enabled"`
}

// SaveData is the JSON-serializable snapshot of a VirtualMachine's complete
// state: settings, RNG state, variables, operand stack, pending options,
// current node/instruction pointer, running state and clock (spec.md §3's
// save-file field list: settings, generator, variables, stack, options,
// currentNode, instructionPointer, runningState, time, waitUntilTime).
type SaveData struct {
	Settings Settings `json:"settings"`
	// Generator is the RNG's MarshalText output, carried as opaque text so
	// the save file round-trips the generator losslessly without exposing
	// its internals.
	Generator string `json:"generator"`

	Variables map[string]valueJSON `json:"variables"`
	Stack     []valueJSON          `json:"stack"`
	Options   []optionJSON         `json:"options"`

	CurrentNode        string `json:"currentNode"`
	InstructionPointer int    `json:"instructionPointer"`
	RunningState       string `json:"runningState"`

	Time          int64 `json:"time"`
	WaitUntilTime int64 `json:"waitUntilTime"`
}

// Save snapshots the VM's complete state as a SaveData value. Vars must be
// a MapVariableStorage (or something a host can enumerate itself) to
// capture every variable; Save only walks MapVariableStorage automatically.
func (vm *VirtualMachine) Save() (*SaveData, error) {
	if err := vm.ensureInit(); err != nil {
		return nil, err
	}
	gen, err := vm.rng.MarshalText()
	if err != nil {
		return nil, fmt.Errorf("save RNG: %w", err)
	}

	vars := map[string]valueJSON{}
	if mv, ok := vm.Vars.(MapVariableStorage); ok {
		for name, v := range mv {
			vars[name] = valueToJSON(v)
		}
	}

	stack := make([]valueJSON, len(vm.state.stack))
	for i, v := range vm.state.stack {
		stack[i] = valueToJSON(v)
	}

	options := make([]optionJSON, len(vm.state.options))
	for i, opt := range vm.state.options {
		subs := make([]valueJSON, len(opt.Line.Substitutions))
		for j, v := range opt.Line.Substitutions {
			subs[j] = valueToJSON(v)
		}
		options[i] = optionJSON{
			Index:       opt.Index,
			LineID:      opt.Line.ID,
			Subs:        subs,
			Destination: opt.Destination,
			Enabled:     opt.Enabled,
		}
	}

	return &SaveData{
		Settings:           vm.Settings,
		Generator:          string(gen),
		Variables:          vars,
		Stack:               stack,
		Options:             options,
		CurrentNode:        vm.state.nodeName,
		InstructionPointer: vm.state.pc,
		RunningState:       vm.state.running.String(),
		Time:               vm.state.now,
		WaitUntilTime:      vm.state.waitUntilTime,
	}, nil
}

// SaveJSON is a convenience wrapper returning Save's result as indented
// JSON text, the reference encoding spec.md §3 describes.
func (vm *VirtualMachine) SaveJSON() ([]byte, error) {
	data, err := vm.Save()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

func runningStateFromString(s string) (RunningState, error) {
	switch s {
	case "STOPPED":
		return Stopped, nil
	case "RUNNING":
		return Running, nil
	case "AWAITING_INPUT":
		return AwaitingInput, nil
	case "ASLEEP":
		return Asleep, nil
	default:
		return Stopped, fmt.Errorf("%w: unknown runningState %q", ErrWrongType, s)
	}
}

// Restore loads data into vm, replacing its current state entirely.
// Program must already be set to the same program the save was taken
// against. Restore calls SetNode(data.CurrentNode) to reconstruct
// vm.state.node, which fires Handler.NodeStart/PrepareForLines exactly as
// loadNode would during ordinary play (spec.md:165 names loadNode(currentNode)
// as an explicit restore step); it then overwrites the instruction pointer,
// stack, options, running state and clock with the saved values. If the
// restored state is AWAITING_INPUT, Restore re-invokes Handler.Options so
// the host can re-display the pending choices, matching what a normal
// SHOW_OPTIONS would have done (spec.md §3: "restoring mid-AWAITING_INPUT
// must re-present the same options"; spec.md §8 scenario S4: "onChangeNode
// fires once for the restored node").
func (vm *VirtualMachine) Restore(data *SaveData) error {
	if vm.Program == nil {
		return ErrMissingProgram
	}
	if vm.Handler == nil {
		return ErrNilHandler
	}
	if vm.Vars == nil {
		return ErrNilVariableStorage
	}
	if _, found := vm.Program.Nodes[data.CurrentNode]; !found {
		return fmt.Errorf("%q: %w", data.CurrentNode, ErrNodeNotFound)
	}

	vm.Settings = data.Settings
	vm.rng = NewRNG(data.Settings.Seed)
	if data.Generator != "" {
		if err := vm.rng.UnmarshalText([]byte(data.Generator)); err != nil {
			return fmt.Errorf("restore RNG: %w", err)
		}
	}
	vm.funcMapInstalled = false
	if err := vm.ensureInit(); err != nil {
		return err
	}

	vm.Vars.Clear()
	for name, vj := range data.Variables {
		v, err := valueFromJSON(vj)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		vm.Vars.SetValue(name, v)
	}

	stack := make([]Value, len(data.Stack))
	for i, vj := range data.Stack {
		v, err := valueFromJSON(vj)
		if err != nil {
			return fmt.Errorf("stack[%d]: %w", i, err)
		}
		stack[i] = v
	}

	options := make([]Option, len(data.Options))
	for i, oj := range data.Options {
		subs := make([]Value, len(oj.Subs))
		for j, vj := range oj.Subs {
			v, err := valueFromJSON(vj)
			if err != nil {
				return fmt.Errorf("options[%d].substitutions[%d]: %w", i, j, err)
			}
			subs[j] = v
		}
		options[i] = Option{
			// Index is re-derived from position, not trusted from the wire
			// data, so a tampered or stale oj.Index can't renumber the
			// list out from under handler.go's stable-position invariant.
			Index:       i,
			Line:        Line{ID: oj.LineID, Substitutions: subs},
			Destination: oj.Destination,
			Enabled:     oj.Enabled,
		}
	}

	running, err := runningStateFromString(data.RunningState)
	if err != nil {
		return err
	}

	if err := vm.SetNode(data.CurrentNode); err != nil {
		return err
	}
	vm.state.pc = data.InstructionPointer
	vm.state.stack = stack
	vm.state.options = options
	vm.state.running = running
	vm.state.now = data.Time
	vm.state.waitUntilTime = data.WaitUntilTime

	if running == AwaitingInput {
		if err := vm.Handler.Options(options); err != nil {
			return fmt.Errorf("handler.Options: %w", err)
		}
	}
	return nil
}

// RestoreJSON is a convenience wrapper around Restore that accepts
// SaveJSON's output.
func (vm *VirtualMachine) RestoreJSON(data []byte) error {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return fmt.Errorf("unmarshal save data: %w", err)
	}
	return vm.Restore(&sd)
}
