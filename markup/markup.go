// Package markup tokenizes a line of dialogue text into plain-text runs and
// bracketed attribute events (spec.md §4.5). The outer scan — finding each
// `[...]` span and the leading `name:` character prefix — is hand-rolled so
// every Attribute's Position/Length are exact byte offsets into the source
// line (spec.md §8 invariant 9); the content between the brackets is parsed
// by a participle grammar, the idiomatic-Go replacement for the original's
// std::regex-based property parser (yarn_markup.h).
package markup

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// AttributeType classifies a parsed attribute event.
type AttributeType int

const (
	AttrNone AttributeType = iota
	AttrOpen
	AttrClose
	AttrSelfClosing
	AttrCloseAll
)

func (t AttributeType) String() string {
	switch t {
	case AttrOpen:
		return "OPEN"
	case AttrClose:
		return "CLOSE"
	case AttrSelfClosing:
		return "SELF_CLOSING"
	case AttrCloseAll:
		return "CLOSE_ALL"
	default:
		return "NONE"
	}
}

// Attribute is one bracketed markup event (or the synthetic leading
// "character" attribute), matching yarn_markup.h's Attribute struct.
type Attribute struct {
	Name       string
	Type       AttributeType
	Properties map[string]string

	// Position and Length are the byte offset and byte span, within the
	// source line, of the exact source text this attribute was parsed
	// from (spec.md §8 invariant 9: line[Position:Position+Length] must
	// reproduce it exactly).
	Position int
	Length   int
}

var bracketLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Slash", Pattern: `/`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Word", Pattern: `[^\s="/\]]+`},
})

type propertyValue struct {
	Quoted *string `parser:"  @String"`
	Bare   *string `parser:"| @Word"`
}

func (v propertyValue) text() string {
	if v.Quoted != nil {
		return strings.Trim(*v.Quoted, `"`)
	}
	if v.Bare != nil {
		return *v.Bare
	}
	return ""
}

type property struct {
	Key   string        `parser:"@Word Equals"`
	Value propertyValue `parser:"@@"`
}

// bracketBody is the grammar for the text between (but not including) a
// pair of square brackets, e.g. `select value=$gender m="he" f="she" /` or
// `/wave` or just `/`.
type bracketBody struct {
	Leading   bool           `parser:"@Slash?"`
	Name      string         `parser:"(@Word"`
	Shorthand *propertyValue `parser:"  (Equals @@)? )?"`
	Props     []*property    `parser:"@@*"`
	Trailing  bool           `parser:"@Slash?"`
}

var bracketParser = participle.MustBuild[bracketBody](
	participle.Lexer(bracketLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// parseCharacterPrefix recognizes the `Name: ` shorthand at the very start
// of a line (yarn_markup.h's parseCharacter), producing a synthetic
// self-closing "character" attribute. It only fires when the first colon
// appears before any bracket and is followed by at least one space or tab,
// so ordinary lines like "It's 3:00, we should go [wave/]" are left alone.
func parseCharacterPrefix(line string) (Attribute, int, bool) {
	bracket := strings.IndexByte(line, '[')
	colon := strings.IndexByte(line, ':')
	if colon < 0 || (bracket >= 0 && colon > bracket) {
		return Attribute{}, 0, false
	}
	name := line[:colon]
	if name == "" || strings.ContainsAny(name, "[]") {
		return Attribute{}, 0, false
	}
	end := colon + 1
	for end < len(line) && (line[end] == ' ' || line[end] == '\t') {
		end++
	}
	if end == colon+1 {
		return Attribute{}, 0, false
	}
	return Attribute{
		Name: "character",
		Type: AttrSelfClosing,
		Properties: map[string]string{
			"name": strings.TrimSpace(name),
		},
		Position: 0,
		Length:   end,
	}, end, true
}

// Parse tokenizes line into an ordered attribute list. The markup parser
// never fails (spec.md §7): malformed bracket content yields an attribute
// with best-effort fields rather than an error, so the driver can always
// fall back to passing the source through as literal text.
func Parse(line string) []Attribute {
	var attrs []Attribute

	if attr, _, ok := parseCharacterPrefix(line); ok {
		attrs = append(attrs, attr)
	}

	for i := 0; i < len(line); i++ {
		if line[i] != '[' {
			continue
		}
		end := strings.IndexByte(line[i+1:], ']')
		if end < 0 {
			break // unterminated bracket: stop, matching "never fails"
		}
		end += i + 1
		body := line[i+1 : end]
		length := end - i + 1

		attrs = append(attrs, parseBracket(body, i, length))
		i = end
	}

	return attrs
}

func parseBracket(body string, position, length int) Attribute {
	attr := Attribute{Position: position, Length: length, Properties: map[string]string{}}

	parsed, err := bracketParser.ParseString("", body)
	if err != nil {
		// Best-effort fallback: treat the raw content as the attribute name.
		attr.Name = strings.TrimSpace(body)
		attr.Type = AttrOpen
		return attr
	}

	attr.Name = parsed.Name
	for _, p := range parsed.Props {
		attr.Properties[p.Key] = p.Value.text()
		if attr.Name == "" {
			attr.Name = p.Key
		}
	}
	if parsed.Shorthand != nil && attr.Name != "" {
		attr.Properties[attr.Name] = parsed.Shorthand.text()
	}

	switch {
	case parsed.Leading:
		if attr.Name == "" {
			attr.Type = AttrCloseAll
		} else {
			attr.Type = AttrClose
		}
	case parsed.Trailing:
		attr.Type = AttrSelfClosing
	default:
		attr.Type = AttrOpen
	}
	return attr
}
