package dialogscript

// Line is a unit of dialogue: a line id plus the substitutions popped for
// its {k} placeholders, in pop order (spec.md §4.3).
type Line struct {
	ID            string
	Substitutions []Value
}

// Option is a single presented choice.
type Option struct {
	// Index is this option's position in the list passed to
	// DialogueHandler.Options, stable across the list's lifetime.
	Index int

	Line Line

	// Destination is the label (within the current node) to jump to if this
	// option is selected.
	Destination string

	// Enabled reports whether the option had a condition that evaluated
	// true (or no condition at all).
	Enabled bool
}

// DialogueHandler receives events from the VM as it runs. Line, Command and
// Options are mandatory; the rest have no-op defaults via
// NopHandlerExtras, which a Handler can embed.
type DialogueHandler interface {
	// Line delivers a line of dialogue to display.
	Line(line Line) error

	// Command delivers a command string for the host to dispatch.
	Command(command string) error

	// Options presents a list of choices. The VM has already transitioned to
	// AwaitingInput by the time this is called; per spec.md §5 the host owns
	// scheduling, so Options only needs to display the choices (or queue
	// them for display) and return — selection happens later via a separate
	// call to VirtualMachine.SetSelectedOption, not as this method's return
	// value.
	Options(options []Option) error

	// NodeStart is called when a node becomes current, before its first
	// instruction runs.
	NodeStart(node string) error

	// NodeComplete is called when a node finishes (falls off the end, is
	// replaced by SetNode, or the VM stops).
	NodeComplete(node string) error

	// DialogueComplete is called once Run's instruction loop ends.
	DialogueComplete() error

	// PrepareForLines is called at the start of a node with every line id
	// (from RUN_LINE and ADD_OPTION) the node might use, so a host can
	// prefetch assets.
	PrepareForLines(ids []string) error
}

// NopHandlerExtras implements the optional-feeling parts of DialogueHandler
// as no-ops. Embed it in a host's handler type to only override Line,
// Command and Options.
type NopHandlerExtras struct{}

func (NopHandlerExtras) NodeStart(string) error        { return nil }
func (NopHandlerExtras) NodeComplete(string) error      { return nil }
func (NopHandlerExtras) DialogueComplete() error        { return nil }
func (NopHandlerExtras) PrepareForLines([]string) error { return nil }

// VariableStorage stores variables used and provided by the dialogue.
// Implementations need not be numeric-only: scripts store strings and bools
// as well as numbers (spec.md §4.1).
type VariableStorage interface {
	GetValue(name string) (Value, bool)
	SetValue(name string, value Value)
	Clear()
}

// MapVariableStorage is the default in-memory VariableStorage.
type MapVariableStorage map[string]Value

// GetValue implements VariableStorage.
func (m MapVariableStorage) GetValue(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// SetValue implements VariableStorage.
func (m MapVariableStorage) SetValue(name string, value Value) { m[name] = value }

// Clear implements VariableStorage.
func (m MapVariableStorage) Clear() {
	for k := range m {
		delete(m, k)
	}
}
