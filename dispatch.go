package dialogscript

import (
	"fmt"
	"reflect"

	"github.com/fableforge/dialogscript/bytecode"
)

// dispatchTable maps each opcode to its executor, indexed by bytecode.Opcode
// — the teacher's table-dispatch pattern (spec.md §9 allows either a table
// or a switch; the teacher picked a table, so this keeps it).
var dispatchTable = [...]func(*VirtualMachine, []bytecode.Operand) error{
	bytecode.OpJumpTo:        (*VirtualMachine).execJumpTo,
	bytecode.OpJump:          (*VirtualMachine).execJump,
	bytecode.OpRunLine:       (*VirtualMachine).execRunLine,
	bytecode.OpRunCommand:    (*VirtualMachine).execRunCommand,
	bytecode.OpAddOption:     (*VirtualMachine).execAddOption,
	bytecode.OpShowOptions:   (*VirtualMachine).execShowOptions,
	bytecode.OpPushString:    (*VirtualMachine).execPushString,
	bytecode.OpPushFloat:     (*VirtualMachine).execPushFloat,
	bytecode.OpPushBool:      (*VirtualMachine).execPushBool,
	bytecode.OpPushNull:      (*VirtualMachine).execPushNull,
	bytecode.OpJumpIfFalse:   (*VirtualMachine).execJumpIfFalse,
	bytecode.OpPop:           (*VirtualMachine).execPop,
	bytecode.OpCallFunc:      (*VirtualMachine).execCallFunc,
	bytecode.OpPushVariable:  (*VirtualMachine).execPushVariable,
	bytecode.OpStoreVariable: (*VirtualMachine).execStoreVariable,
	bytecode.OpStop:          (*VirtualMachine).execStop,
	bytecode.OpRunNode:       (*VirtualMachine).execRunNode,
}

func stringOperand(operands []bytecode.Operand, i int) (string, error) {
	if i >= len(operands) {
		return "", fmt.Errorf("operand %d: %w", i, ErrWrongType)
	}
	if operands[i].Kind != bytecode.OperandString {
		return "", fmt.Errorf("operand %d: %w", i, ErrWrongType)
	}
	return operands[i].StringValue, nil
}

func floatOperand(operands []bytecode.Operand, i int) (float32, error) {
	if i >= len(operands) {
		return 0, fmt.Errorf("operand %d: %w", i, ErrWrongType)
	}
	if operands[i].Kind != bytecode.OperandFloat {
		return 0, fmt.Errorf("operand %d: %w", i, ErrWrongType)
	}
	return operands[i].FloatValue, nil
}

func boolOperand(operands []bytecode.Operand, i int) (bool, error) {
	if i >= len(operands) {
		return false, fmt.Errorf("operand %d: %w", i, ErrWrongType)
	}
	if operands[i].Kind != bytecode.OperandBool {
		return false, fmt.Errorf("operand %d: %w", i, ErrWrongType)
	}
	return operands[i].BoolValue, nil
}

func (vm *VirtualMachine) lookupLabel(name string) (int, error) {
	pc, ok := vm.state.node.Labels[name]
	if !ok {
		return 0, fmt.Errorf("%q in node %q: %w", name, vm.state.nodeName, ErrLabelNotFound)
	}
	return int(pc), nil
}

// execJumpTo: set instruction pointer = labels[label]; fails if absent.
func (vm *VirtualMachine) execJumpTo(operands []bytecode.Operand) error {
	label, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	pc, err := vm.lookupLabel(label)
	if err != nil {
		return err
	}
	vm.state.pc = pc
	return nil
}

// execJump: pop string s from stack; jump to labels[s].
func (vm *VirtualMachine) execJump([]bytecode.Operand) error {
	label, err := vm.state.popString()
	if err != nil {
		return err
	}
	pc, err := vm.lookupLabel(label)
	if err != nil {
		return err
	}
	vm.state.pc = pc
	return nil
}

// execRunLine: pop subCount values (most-recent-first) into substitutions;
// emit Line to the handler.
func (vm *VirtualMachine) execRunLine(operands []bytecode.Operand) error {
	id, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	line := Line{ID: id}
	if len(operands) > 1 {
		n, err := floatOperand(operands, 1)
		if err != nil {
			return err
		}
		subs, err := vm.state.popNValues(int(n))
		if err != nil {
			return fmt.Errorf("RUN_LINE substitutions: %w", err)
		}
		line.Substitutions = subs
	}
	if err := vm.Handler.Line(line); err != nil {
		return fmt.Errorf("handler.Line: %w", err)
	}
	vm.state.pc++
	return nil
}

// execRunCommand delivers command text to the handler.
func (vm *VirtualMachine) execRunCommand(operands []bytecode.Operand) error {
	text, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	// Advance first: the command handler is allowed to overwrite pc (e.g. by
	// calling SetNode), same rationale as execCallFunc.
	vm.state.pc++
	if err := vm.Handler.Command(text); err != nil {
		return fmt.Errorf("handler.Command: %w", err)
	}
	return nil
}

// execAddOption appends an Option to the pending list being built between
// consecutive ADD_OPTION instructions.
func (vm *VirtualMachine) execAddOption(operands []bytecode.Operand) error {
	id, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	dest, err := stringOperand(operands, 1)
	if err != nil {
		return err
	}
	line := Line{ID: id}
	if len(operands) > 2 {
		n, err := floatOperand(operands, 2)
		if err != nil {
			return err
		}
		if n > 0 {
			subs, err := vm.state.popNValues(int(n))
			if err != nil {
				return fmt.Errorf("ADD_OPTION substitutions: %w", err)
			}
			line.Substitutions = subs
		}
	}
	enabled := true
	if len(operands) > 3 {
		hasCondition, err := boolOperand(operands, 3)
		if err != nil {
			return err
		}
		if hasCondition {
			enabled, err = vm.state.popBool()
			if err != nil {
				return fmt.Errorf("ADD_OPTION condition: %w", err)
			}
		}
	}
	vm.state.options = append(vm.state.options, Option{
		Index:       len(vm.state.options),
		Line:        line,
		Destination: dest,
		Enabled:     enabled,
	})
	vm.state.pc++
	return nil
}

// execShowOptions requires a non-empty pending list, transitions to
// AwaitingInput, and presents it to the handler. The list survives the
// suspension (for the serializer) until SetSelectedOption clears it.
func (vm *VirtualMachine) execShowOptions([]bytecode.Operand) error {
	if len(vm.state.options) == 0 {
		return recoverable(ErrNoOptions)
	}
	vm.state.running = AwaitingInput
	if err := vm.Handler.Options(vm.state.options); err != nil {
		return fmt.Errorf("handler.Options: %w", err)
	}
	return nil
}

func (vm *VirtualMachine) execPushString(operands []bytecode.Operand) error {
	s, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	vm.state.push(String(s))
	vm.state.pc++
	return nil
}

func (vm *VirtualMachine) execPushFloat(operands []bytecode.Operand) error {
	n, err := floatOperand(operands, 0)
	if err != nil {
		return err
	}
	vm.state.push(Number(n))
	vm.state.pc++
	return nil
}

func (vm *VirtualMachine) execPushBool(operands []bytecode.Operand) error {
	b, err := boolOperand(operands, 0)
	if err != nil {
		return err
	}
	vm.state.push(Bool(b))
	vm.state.pc++
	return nil
}

func (vm *VirtualMachine) execPushNull([]bytecode.Operand) error {
	vm.state.push(Null)
	vm.state.pc++
	return nil
}

// execJumpIfFalse peeks (does not pop) the top of stack; if falsy, jumps
// (spec.md §9 Open Question 3: peek-only, not the earlier pop-then-jump
// revision).
func (vm *VirtualMachine) execJumpIfFalse(operands []bytecode.Operand) error {
	top, err := vm.state.peek()
	if err != nil {
		return err
	}
	if top.Truthy() {
		vm.state.pc++
		return nil
	}
	label, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	pc, err := vm.lookupLabel(label)
	if err != nil {
		return err
	}
	vm.state.pc = pc
	return nil
}

func (vm *VirtualMachine) execPop([]bytecode.Operand) error {
	if _, err := vm.state.pop(); err != nil {
		return err
	}
	vm.state.pc++
	return nil
}

// execCallFunc pops the argument count, then that many arguments (topmost =
// last argument), converts them to the registered Go function's declared
// parameter types via reflection, calls it, and pushes any return value
// (spec.md §4.3/§4.4; conversion machinery in funcs.go).
func (vm *VirtualMachine) execCallFunc(operands []bytecode.Operand) error {
	name, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	fn, found := vm.FuncMap[name]
	if !found {
		return fmt.Errorf("%q: %w", name, ErrFunctionNotFound)
	}
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("%q: %w: not a function", name, ErrFunctionArgMismatch)
	}

	argc, err := vm.state.popNumber()
	if err != nil {
		return fmt.Errorf("CALL_FUNC argument count: %w", err)
	}
	wantArgc := fnType.NumIn()
	if int(argc) != wantArgc {
		return fmt.Errorf("%q: %w: got %d args, want %d", name, ErrFunctionArgMismatch, int(argc), wantArgc)
	}

	args, err := vm.state.popNValues(int(argc))
	if err != nil {
		return fmt.Errorf("CALL_FUNC arguments: %w", err)
	}
	// args is in pop order (most-recent/last-arg first); reverse to
	// source (left-to-right) order to match fnType.In(i).
	params := make([]reflect.Value, wantArgc)
	for i := 0; i < wantArgc; i++ {
		v := args[wantArgc-1-i]
		rv, err := valueToReflect(v, fnType.In(i))
		if err != nil {
			return fmt.Errorf("%q arg %d: %w", name, i, err)
		}
		params[i] = rv
	}

	// Advance first: a registered function is free to overwrite pc (mirrors
	// RUN_COMMAND/CALL_FUNC in the teacher's VM).
	vm.state.pc++

	results := reflect.ValueOf(fn).Call(params)
	if last := fnType.NumOut() - 1; last >= 0 && fnType.Out(last) == errorType {
		if errVal, _ := results[last].Interface().(error); errVal != nil {
			return errVal
		}
		results = results[:last]
	}
	if len(results) > 0 {
		rv, err := reflectToValue(results[0])
		if err != nil {
			return err
		}
		vm.state.push(rv)
	}
	return nil
}

func (vm *VirtualMachine) execPushVariable(operands []bytecode.Operand) error {
	name, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	v, ok := vm.Vars.GetValue(name)
	if !ok {
		v = Null
	}
	vm.state.push(v)
	vm.state.pc++
	return nil
}

func (vm *VirtualMachine) execStoreVariable(operands []bytecode.Operand) error {
	name, err := stringOperand(operands, 0)
	if err != nil {
		return err
	}
	v, err := vm.state.peek()
	if err != nil {
		return err
	}
	vm.Vars.SetValue(name, v)
	vm.state.pc++
	return nil
}

// execStop marks the VM Stopped; drive's finish() delivers NodeComplete and
// DialogueComplete once the instruction loop actually exits.
func (vm *VirtualMachine) execStop([]bytecode.Operand) error {
	vm.state.running = Stopped
	return Stop
}

// execRunNode pops a node name off the stack and loads it; SetNode resets
// the instruction pointer itself, so this does not additionally advance pc.
func (vm *VirtualMachine) execRunNode([]bytecode.Operand) error {
	name, err := vm.state.popString()
	if err != nil {
		return fmt.Errorf("RUN_NODE: %w", err)
	}
	return vm.SetNode(name)
}
