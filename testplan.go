package dialogscript

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// StringTableRow is one row of a minimal line table, used by TestPlan to
// check line text without pulling in the full linedb package.
type StringTableRow struct {
	Text string
}

// StringTable maps line id to its row.
type StringTable map[string]StringTableRow

// ReadStringTable reads a CSV with at least "id" and "text" columns.
func ReadStringTable(r io.Reader) (StringTable, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol, textCol := -1, -1
	for i, h := range header {
		switch h {
		case "id":
			idCol = i
		case "text":
			textCol = i
		}
	}
	if idCol < 0 || textCol < 0 {
		return nil, errors.New("string table: missing id/text columns")
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	out := make(StringTable, len(rows))
	for _, row := range rows {
		out[row[idCol]] = StringTableRow{Text: row[textCol]}
	}
	return out, nil
}

// TestStep is one line of a .testplan file.
type TestStep struct {
	Type     string
	Contents string
}

// TestPlan drives a VirtualMachine against a scripted sequence of expected
// events, implementing DialogueHandler itself (adapted from the teacher's
// testplan.go to this package's Line/Option/Value types).
type TestPlan struct {
	Steps []TestStep
	Step  int

	DialogueCompleted bool

	StringTable    StringTable
	VirtualMachine *VirtualMachine

	NopHandlerExtras
}

// ReadTestPlan parses a "type: contents" line-oriented test plan, skipping
// "#"-prefixed comment lines.
func ReadTestPlan(r io.Reader) (*TestPlan, error) {
	var tp TestPlan
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		txt := sc.Text()
		if strings.HasPrefix(txt, "#") || strings.TrimSpace(txt) == "" {
			continue
		}
		tok := strings.SplitN(txt, ":", 2)
		if len(tok) < 2 {
			return nil, fmt.Errorf("malformed testplan step %q", txt)
		}
		tp.Steps = append(tp.Steps, TestStep{
			Type:     strings.TrimSpace(tok[0]),
			Contents: strings.TrimSpace(tok[1]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &tp, nil
}

// Complete reports whether every step ran and DialogueComplete fired.
func (p *TestPlan) Complete() error {
	if p.Step != len(p.Steps) {
		return fmt.Errorf("testplan incomplete on step %d of %d", p.Step, len(p.Steps))
	}
	if !p.DialogueCompleted {
		return errors.New("testplan did not receive DialogueComplete")
	}
	return nil
}

func (p *TestPlan) nextStep(wantType string) (TestStep, error) {
	if p.Step >= len(p.Steps) {
		return TestStep{}, fmt.Errorf("testplan ran out of steps, got %q", wantType)
	}
	step := p.Steps[p.Step]
	if step.Type != wantType {
		return TestStep{}, fmt.Errorf("testplan got %q, want %q", wantType, step.Type)
	}
	p.Step++
	return step, nil
}

// Line implements DialogueHandler: checks the line's string-table text
// against the plan's next "line" step. The text is compared as stored, with
// no {k} substitution and no markup processing.
func (p *TestPlan) Line(line Line) error {
	step, err := p.nextStep("line")
	if err != nil {
		return err
	}
	row, found := p.StringTable[line.ID]
	if !found {
		return fmt.Errorf("no string %q in string table", line.ID)
	}
	if row.Text != step.Contents {
		return fmt.Errorf("testplan got line %q, want %q", row.Text, step.Contents)
	}
	return nil
}

// Options implements DialogueHandler: checks each option against the
// plan's next "option" steps, then consumes a "select" step to choose one.
func (p *TestPlan) Options(opts []Option) error {
	for _, opt := range opts {
		step, err := p.nextStep("option")
		if err != nil {
			return err
		}
		row, found := p.StringTable[opt.Line.ID]
		if !found {
			return fmt.Errorf("no string %q in string table", opt.Line.ID)
		}
		if row.Text != step.Contents {
			return fmt.Errorf("testplan got option %q, want %q", row.Text, step.Contents)
		}
	}
	step, err := p.nextStep("select")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(step.Contents)
	if err != nil {
		return fmt.Errorf("converting testplan select step to int: %w", err)
	}
	return p.VirtualMachine.SetSelectedOption(n - 1)
}

// Command implements DialogueHandler. A "jump NodeName" command is treated
// as a host-triggered node change (RUN_NODE's host-facing equivalent);
// anything else is checked against the plan's next "command" step.
func (p *TestPlan) Command(command string) error {
	if rest, ok := strings.CutPrefix(command, "jump "); ok {
		return p.VirtualMachine.SetNode(rest)
	}
	_, err := p.nextStep("command")
	return err
}

// DialogueComplete implements DialogueHandler.
func (p *TestPlan) DialogueComplete() error {
	p.DialogueCompleted = true
	return nil
}
