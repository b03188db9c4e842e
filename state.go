package dialogscript

import "github.com/fableforge/dialogscript/bytecode"

// RunningState is the VM's cooperative state machine (spec.md §4.2).
type RunningState int

const (
	Stopped RunningState = iota
	Running
	AwaitingInput
	Asleep
)

func (s RunningState) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Running:
		return "RUNNING"
	case AwaitingInput:
		return "AWAITING_INPUT"
	case Asleep:
		return "ASLEEP"
	default:
		return "UNKNOWN"
	}
}

// state is the VM's mutable run state: current node, instruction pointer,
// operand stack, pending options, running state and clock. It is the
// serializable unit described in spec.md §3 ("VM state"), split out from
// VirtualMachine so Save/Restore has one clear struct to snapshot.
type state struct {
	nodeName string
	node     *bytecode.Node // derived from Program + nodeName; not itself serialized
	pc       int

	stack   []Value
	options []Option

	running RunningState

	now           int64
	waitUntilTime int64
}

func (s *state) push(v Value) { s.stack = append(s.stack, v) }

func (s *state) pop() (Value, error) {
	v, err := s.peek()
	if err != nil {
		return Null, err
	}
	s.stack = s.stack[:len(s.stack)-1]
	return v, nil
}

func (s *state) peek() (Value, error) {
	if len(s.stack) == 0 {
		return Null, ErrStackUnderflow
	}
	return s.stack[len(s.stack)-1], nil
}

func (s *state) popString() (string, error) {
	v, err := s.pop()
	if err != nil {
		return "", err
	}
	str, ok := v.Str()
	if !ok {
		return "", ErrWrongType
	}
	return str, nil
}

func (s *state) peekString() (string, error) {
	v, err := s.peek()
	if err != nil {
		return "", err
	}
	str, ok := v.Str()
	if !ok {
		return "", ErrWrongType
	}
	return str, nil
}

func (s *state) popBool() (bool, error) {
	v, err := s.pop()
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, ErrWrongType
	}
	return b, nil
}

func (s *state) popNumber() (float32, error) {
	v, err := s.pop()
	if err != nil {
		return 0, err
	}
	n, ok := v.Number()
	if !ok {
		return 0, ErrWrongType
	}
	return n, nil
}

// popNValues pops n values off the stack, most-recently-pushed first, and
// returns them in pop order (spec.md §4.3: "the substitution order is
// preserved as popped").
func (s *state) popNValues(n int) ([]Value, error) {
	if n < 0 {
		return nil, ErrWrongType
	}
	if n == 0 {
		return nil, nil
	}
	if n > len(s.stack) {
		return nil, ErrStackUnderflow
	}
	rem := len(s.stack) - n
	out := make([]Value, n)
	copy(out, s.stack[rem:])
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.stack = s.stack[:rem]
	return out, nil
}
