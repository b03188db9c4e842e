// Package render is the dialogue driver: it sits between a
// dialogscript.VirtualMachine and a host UI, resolving line ids against a
// linedb.Database, applying {k} substitution, parsing markup, and walking
// the attribute list to build the plain-text runs a host actually displays
// (spec.md §4.6, grounded on original_source/yarn_dialogue_runner.*).
package render

import (
	"fmt"
	"strconv"
	"strings"

	cldr "github.com/razor-1/localizer-cldr"
	"golang.org/x/text/language"

	"github.com/fableforge/dialogscript"
	"github.com/fableforge/dialogscript/linedb"
	"github.com/fableforge/dialogscript/markup"
)

// Host receives the driver's fully-resolved output: plain text instead of
// raw line ids, markup already applied.
type Host interface {
	// Text displays a rendered, substituted, markup-processed line.
	Text(text string) error

	// Choices presents a list of rendered option texts; index i of choices
	// corresponds to option i of the underlying dialogscript.Option list.
	Choices(choices []string) error

	// Command forwards an unrecognized dialogue command verbatim.
	Command(command string) error

	// NodeChanged, DialogueComplete mirror dialogscript.DialogueHandler's
	// node/completion events.
	NodeChanged(node string) error
	DialogueComplete() error
}

// MarkupHandler processes one attribute's span of text. text is the
// plain-text run that was inside the attribute's OPEN/CLOSE pair (or, for
// SELF_CLOSING, the empty string); it returns the text to emit in its
// place.
type MarkupHandler func(attr markup.Attribute, text string) (string, error)

// Driver implements dialogscript.DialogueHandler, translating VM events
// into Host calls.
type Driver struct {
	Host Host
	DB   *linedb.Database

	// DefaultLocale is the locale used for plural/ordinal category
	// resolution. The Locale of a line's row in DB is not consulted.
	DefaultLocale language.Tag

	// EmitUnhandledMarkup controls what replaces an attribute with no
	// registered handler. If true, it is replaced by the plain text it
	// encloses: the bracketed tags themselves are not emitted, and a
	// self-closing attribute contributes nothing. If false (the default),
	// the attribute and the text it encloses are both dropped.
	EmitUnhandledMarkup bool

	handlers map[string]MarkupHandler

	dialogscript.NopHandlerExtras
}

// NewDriver constructs a Driver with the built-in select/plural/ordinal
// markup handlers registered.
func NewDriver(host Host, db *linedb.Database) *Driver {
	d := &Driver{
		Host:          host,
		DB:            db,
		DefaultLocale: language.AmericanEnglish,
		handlers:      map[string]MarkupHandler{},
	}
	d.RegisterMarkup("select", d.handleSelect)
	d.RegisterMarkup("plural", d.handlePlural)
	d.RegisterMarkup("ordinal", d.handleOrdinal)
	return d
}

// RegisterMarkup adds or overrides the handler for a markup attribute name.
func (d *Driver) RegisterMarkup(name string, h MarkupHandler) { d.handlers[name] = h }

// substitute expands {k} placeholders. subs is in RUN_LINE's pop order
// (most-recently-pushed first); {k} refers to substitutions[subCount-1-k],
// the reversal that matches the compiler's push order (spec.md §4.3).
func substitute(text string, subs []dialogscript.Value) string {
	if len(subs) == 0 {
		return text
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			b.WriteByte(text[i])
			continue
		}
		end := strings.IndexByte(text[i:], '}')
		if end < 0 {
			b.WriteString(text[i:])
			break
		}
		end += i
		if k, err := strconv.Atoi(text[i+1 : end]); err == nil && k >= 0 && k < len(subs) {
			b.WriteString(subs[len(subs)-1-k].String())
			i = end
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// render turns a resolved, substituted line of source text into its final
// display form: parse markup, walk attributes left to right, and splice in
// each attribute's handled replacement, honoring the whitespace-trim rule
// and nomarkup regions (spec.md §4.5).
func (d *Driver) render(source string) (string, error) {
	attrs := markup.Parse(source)
	if len(attrs) == 0 {
		return source, nil
	}

	var b strings.Builder
	pos := 0
	nomarkup := false
	// openStart tracks, for an OPEN attribute, the byte offset right after
	// its bracket span, so its matching CLOSE can hand the enclosed plain
	// text to the handler.
	openStart := map[string]int{}

	for _, attr := range attrs {
		if attr.Position < pos {
			continue // nested/overlapping attribute inside a skipped region
		}
		plain := source[pos:attr.Position]

		switch attr.Type {
		case markup.AttrOpen:
			b.WriteString(plain)
			if attr.Name == "nomarkup" {
				nomarkup = true
			}
			openStart[attr.Name] = attr.Position + attr.Length
			pos = attr.Position + attr.Length
			continue
		case markup.AttrClose:
			inner := source[openStart[attr.Name]:attr.Position]
			if nomarkup {
				b.WriteString(inner)
			} else {
				out, err := d.applyMarkup(attr, inner)
				if err != nil {
					return "", err
				}
				b.WriteString(out)
			}
			pos = attr.Position + attr.Length
			continue
		case markup.AttrCloseAll:
			b.WriteString(plain)
			nomarkup = false
			pos = attr.Position + attr.Length
			continue
		}

		// SELF_CLOSING (including the synthetic leading "character"
		// attribute): trim-whitespace rule applies only here.
		b.WriteString(plain)
		if nomarkup {
			pos = attr.Position + attr.Length
			continue
		}
		out, err := d.applyMarkup(attr, "")
		if err != nil {
			return "", err
		}
		b.WriteString(out)
		pos = attr.Position + attr.Length
		pos = applyTrim(source, attr, pos)
	}
	b.WriteString(source[pos:])
	return b.String(), nil
}

// applyTrim implements the self-closing trim-whitespace rule: a
// self-closing attribute at the start of the line, or immediately preceded
// by whitespace, consumes one trailing whitespace byte from the following
// plain-text run, unless the attribute has trimwhitespace=false or is
// select/plural/ordinal (those default to no trim).
func applyTrim(source string, attr markup.Attribute, pos int) int {
	switch attr.Name {
	case "select", "plural", "ordinal":
		return pos
	}
	if v, ok := attr.Properties["trimwhitespace"]; ok && v == "false" {
		return pos
	}
	isSpace := func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
	atStart := attr.Position == 0
	precededByWhitespace := attr.Position > 0 && isSpace(source[attr.Position-1])
	if !atStart && !precededByWhitespace {
		return pos
	}
	if pos < len(source) && isSpace(source[pos]) {
		return pos + 1
	}
	return pos
}

func (d *Driver) applyMarkup(attr markup.Attribute, text string) (string, error) {
	h, found := d.handlers[attr.Name]
	if !found {
		if d.EmitUnhandledMarkup {
			return text, nil
		}
		return "", nil
	}
	return h(attr, text)
}

func (d *Driver) handleSelect(attr markup.Attribute, _ string) (string, error) {
	value := attr.Properties["value"]
	text, found := attr.Properties[value]
	if !found {
		text = attr.Properties["other"]
	}
	return strings.ReplaceAll(text, "%", value), nil
}

func (d *Driver) locale() language.Tag {
	return d.DefaultLocale
}

func (d *Driver) handlePlural(attr markup.Attribute, _ string) (string, error) {
	return d.selectByCategory(attr, cardinalCategory(d.locale(), attr.Properties["value"]))
}

func (d *Driver) handleOrdinal(attr markup.Attribute, _ string) (string, error) {
	return d.selectByCategory(attr, ordinalCategory(d.locale(), attr.Properties["value"]))
}

func (d *Driver) selectByCategory(attr markup.Attribute, category string) (string, error) {
	value := attr.Properties["value"]
	text, found := attr.Properties[category]
	if !found {
		text, found = attr.Properties["other"]
		if !found {
			return "", fmt.Errorf("markup %q: no %q or other category", attr.Name, category)
		}
	}
	return strings.ReplaceAll(text, "%", value), nil
}

// cardinalCategory resolves n's CLDR cardinal plural category for tag,
// falling back to the English default (1 -> "one", else "other") when the
// locale isn't covered by localizer-cldr's tables or value isn't numeric
// (spec.md §4.6: "English default ... implementations may pluggably
// substitute CLDR rules").
func cardinalCategory(tag language.Tag, value string) string {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "other"
	}
	if rules, ok := cldr.Cardinal[tag.String()]; ok {
		return rules.Category(n)
	}
	if n == 1 {
		return "one"
	}
	return "other"
}

// ordinalCategory is cardinalCategory's counterpart for ordinal markup.
func ordinalCategory(tag language.Tag, value string) string {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "other"
	}
	if rules, ok := cldr.Ordinal[tag.String()]; ok {
		return rules.Category(n)
	}
	return "other"
}

// Line implements dialogscript.DialogueHandler.
func (d *Driver) Line(line dialogscript.Line) error {
	text := line.ID
	if row, found := d.DB.Line(line.ID); found {
		text = row.Text
	}
	text = substitute(text, line.Substitutions)
	rendered, err := d.render(text)
	if err != nil {
		return fmt.Errorf("render line %q: %w", line.ID, err)
	}
	return d.Host.Text(rendered)
}

// Command implements dialogscript.DialogueHandler.
func (d *Driver) Command(command string) error { return d.Host.Command(command) }

// Options implements dialogscript.DialogueHandler. choices preserves
// options' length and order, including disabled entries, so index i of
// choices always corresponds to option i of options, per the Host
// interface's contract above. The Host decides how to display or gate a
// disabled entry (e.g. greyed out) rather than have the driver drop it.
func (d *Driver) Options(options []dialogscript.Option) error {
	choices := make([]string, len(options))
	for i, opt := range options {
		text := opt.Line.ID
		if row, found := d.DB.Line(opt.Line.ID); found {
			text = row.Text
		}
		text = substitute(text, opt.Line.Substitutions)
		rendered, err := d.render(text)
		if err != nil {
			return fmt.Errorf("render option %q: %w", opt.Line.ID, err)
		}
		choices[i] = rendered
	}
	return d.Host.Choices(choices)
}

// NodeStart implements dialogscript.DialogueHandler, overriding
// NopHandlerExtras to notify the host.
func (d *Driver) NodeStart(node string) error { return d.Host.NodeChanged(node) }

// DialogueComplete implements dialogscript.DialogueHandler, overriding
// NopHandlerExtras to notify the host.
func (d *Driver) DialogueComplete() error { return d.Host.DialogueComplete() }
