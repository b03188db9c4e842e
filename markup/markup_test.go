package markup

import "testing"

func checkSpan(t *testing.T, line string, attr Attribute) {
	t.Helper()
	got := line[attr.Position : attr.Position+attr.Length]
	if attr.Name == "character" {
		return // synthetic, not a literal bracket span
	}
	if got[0] != '[' || got[len(got)-1] != ']' {
		t.Errorf("span %q for attribute %q is not a bracketed run", got, attr.Name)
	}
}

func TestParseSelectAttribute(t *testing.T) {
	line := "I think [select value=gender m=he f=she nb=they /] will be there!"
	attrs := Parse(line)
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want 1: %+v", len(attrs), attrs)
	}
	a := attrs[0]
	checkSpan(t, line, a)
	if a.Name != "select" || a.Type != AttrSelfClosing {
		t.Fatalf("attr = %+v", a)
	}
	want := map[string]string{"value": "gender", "m": "he", "f": "she", "nb": "they"}
	for k, v := range want {
		if a.Properties[k] != v {
			t.Errorf("property %q = %q, want %q", k, a.Properties[k], v)
		}
	}
}

func TestParseOpenCloseShorthand(t *testing.T) {
	line := "a [bounce=2]big[/bounce] word"
	attrs := Parse(line)
	if len(attrs) != 2 {
		t.Fatalf("got %d attributes, want 2: %+v", len(attrs), attrs)
	}
	open, closeAttr := attrs[0], attrs[1]
	checkSpan(t, line, open)
	checkSpan(t, line, closeAttr)
	if open.Name != "bounce" || open.Type != AttrOpen || open.Properties["bounce"] != "2" {
		t.Errorf("open attr = %+v", open)
	}
	if closeAttr.Name != "bounce" || closeAttr.Type != AttrClose {
		t.Errorf("close attr = %+v", closeAttr)
	}
}

func TestParseCloseAll(t *testing.T) {
	attrs := Parse("a [wave]b[/] c")
	if len(attrs) != 2 {
		t.Fatalf("got %d attributes, want 2: %+v", len(attrs), attrs)
	}
	if attrs[1].Type != AttrCloseAll {
		t.Errorf("second attr = %+v, want CLOSE_ALL", attrs[1])
	}
}

func TestParseCharacterPrefix(t *testing.T) {
	attrs := Parse("Sally: Hello there!")
	if len(attrs) != 1 {
		t.Fatalf("got %d attributes, want 1: %+v", len(attrs), attrs)
	}
	a := attrs[0]
	if a.Name != "character" || a.Properties["name"] != "Sally" || a.Position != 0 {
		t.Errorf("character attr = %+v", a)
	}
}

func TestParseNoMarkup(t *testing.T) {
	attrs := Parse("No brackets here at all.")
	if len(attrs) != 0 {
		t.Errorf("got %d attributes, want 0: %+v", len(attrs), attrs)
	}
}

func TestParseUnterminatedBracketNeverFails(t *testing.T) {
	attrs := Parse("oops [wave never closes")
	if attrs == nil && len(attrs) != 0 {
		t.Fatalf("unexpected nil-vs-empty distinction")
	}
}
