package dialogscript

// Sentinel errors returned by the virtual machine, modeled as the teacher's
// vm.go models them: typed string consts rather than package vars, so they
// remain usable in const contexts and compare cheaply with errors.Is.
const (
	// ErrNilHandler indicates that Handler hasn't been set.
	ErrNilHandler = vmError("dialogscript: nil dialogue handler")

	// ErrNilVariableStorage indicates that Vars hasn't been set.
	ErrNilVariableStorage = vmError("dialogscript: nil variable storage")

	// ErrMissingProgram indicates that Program hasn't been set.
	ErrMissingProgram = vmError("dialogscript: missing or empty program")

	// ErrNodeNotFound is returned where Run or SetNode is passed the name of
	// a node that is not in the program.
	ErrNodeNotFound = vmError("dialogscript: node not found")

	// ErrLabelNotFound indicates the program tries to jump to a label that
	// isn't in the label table for the current node.
	ErrLabelNotFound = vmError("dialogscript: label not found")

	// ErrNoOptions indicates the program tried to show options but none had
	// been added.
	ErrNoOptions = vmError("dialogscript: no options were added")

	// ErrStackUnderflow indicates the program tried to pop or peek when the
	// stack was empty.
	ErrStackUnderflow = vmError("dialogscript: stack underflow")

	// ErrWrongType indicates a typed pop, peek, or function argument needed
	// one Kind but got another.
	ErrWrongType = vmError("dialogscript: wrong type")

	// ErrFunctionNotFound indicates CALL_FUNC named a function that isn't
	// registered.
	ErrFunctionNotFound = vmError("dialogscript: function not found")

	// ErrFunctionArgMismatch indicates a function call had the wrong number
	// or types of arguments.
	ErrFunctionArgMismatch = vmError("dialogscript: function argument mismatch")

	// ErrInvalidOpcode indicates an instruction carries an opcode outside
	// the fixed set the VM understands. A missing or wrongly typed operand
	// is reported as ErrWrongType instead.
	ErrInvalidOpcode = vmError("dialogscript: invalid opcode")

	// ErrNotRunning indicates a host call (e.g. SetSelectedOption) requires
	// a running state the VM isn't in.
	ErrNotRunning = vmError("dialogscript: not in required running state")

	// ErrOptionOutOfRange indicates SetSelectedOption was given an index
	// outside the pending options list.
	ErrOptionOutOfRange = vmError("dialogscript: selected option out of range")

	// ErrAdvancePastEnd indicates the instruction pointer would run past
	// the end of the current node.
	ErrAdvancePastEnd = vmError("dialogscript: advanced past end of node")
)

// Stop is returned by instruction execution (or may be returned by a
// DialogueHandler) to stop the VM without it being an error condition; Run
// treats it like a normal STOP.
const Stop = vmError("dialogscript: stop")

// vmError implements the sentinel errors above as consts instead of vars.
type vmError string

func (e vmError) Error() string { return string(e) }

// recoverableError is implemented by errors that lax mode (Settings with
// EnableExceptions=false) may swallow instead of propagating: malformed
// instruction state that can be skipped by advancing past the offending
// instruction. IO errors, a nil Handler/Vars, and a missing Program are
// never recoverable.
type recoverableError interface {
	error
	recoverable() bool
}

type recoverableVMError struct{ vmError }

func (recoverableVMError) recoverable() bool { return true }

func recoverable(e vmError) error { return recoverableVMError{e} }

func isRecoverable(err error) bool {
	re, ok := err.(recoverableError)
	return ok && re.recoverable()
}
