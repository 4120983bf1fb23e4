package dom

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := ParseString(s)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	return d
}

func TestLang(t *testing.T) {
	d := mustParse(t, `<html lang=" pl-PL "><body>x</body></html>`)
	if got := d.Lang(); got != "pl-PL" {
		t.Errorf("Lang = %q, want pl-PL", got)
	}
	if got := mustParse(t, `<p>no lang</p>`).Lang(); got != "" {
		t.Errorf("Lang = %q, want empty", got)
	}
}

func TestAppendHTML_NotifiesChildList(t *testing.T) {
	d := mustParse(t, `<body><p>a</p></body>`)
	ch, unsub := d.Subscribe()
	defer unsub()

	if err := d.AppendHTML(`<p>b</p><p>c</p>`); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-ch:
		if m.Kind != ChildList || m.Added != 2 {
			t.Errorf("mutation = %+v, want childList added=2", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no mutation delivered")
	}
	if got := d.BodyText(); got != "abc" {
		t.Errorf("BodyText = %q, want abc", got)
	}
}

func TestSetText_NotifiesCharacterData(t *testing.T) {
	d := mustParse(t, `<body><p id="x">old</p></body>`)
	ch, unsub := d.Subscribe()
	defer unsub()

	ok := d.SetText(func(root *html.Node) *html.Node {
		p := Find(root, ByID("x"))
		return p.FirstChild
	}, "new")
	if !ok {
		t.Fatal("SetText returned false")
	}
	m := <-ch
	if m.Kind != CharacterData {
		t.Errorf("kind = %v, want characterData", m.Kind)
	}
	if !strings.Contains(d.String(), ">new</p>") {
		t.Errorf("render = %s", d.String())
	}
}

func TestSetText_NonTextNode(t *testing.T) {
	d := mustParse(t, `<body><p id="x">old</p></body>`)
	ok := d.SetText(func(root *html.Node) *html.Node { return Find(root, ByID("x")) }, "new")
	if ok {
		t.Error("SetText on element should fail")
	}
}

func TestReplaceBody(t *testing.T) {
	d := mustParse(t, `<body><p>a</p><p>b</p></body>`)
	ch, unsub := d.Subscribe()
	defer unsub()
	if err := d.ReplaceBody(`<div>z</div>`); err != nil {
		t.Fatal(err)
	}
	m := <-ch
	if m.Added != 1 || m.Removed != 2 {
		t.Errorf("mutation = %+v", m)
	}
	if d.BodyText() != "z" {
		t.Errorf("BodyText = %q", d.BodyText())
	}
}

func TestUnsubscribe_Idempotent(t *testing.T) {
	d := mustParse(t, `<body></body>`)
	ch, unsub := d.Subscribe()
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	// Notifying with no subscribers must not panic.
	_ = d.AppendHTML("<p>x</p>")
}

func TestNodeHelpers(t *testing.T) {
	n := Element(atom.Mark, "class", "date-hl extra")
	if !HasClass(n, "date-hl") || !HasClass(n, "extra") || HasClass(n, "date") {
		t.Error("HasClass mismatch")
	}
	SetAttr(n, "class", "other")
	if v, _ := Attr(n, "class"); v != "other" {
		t.Errorf("class = %q", v)
	}
	if Attached(n) {
		t.Error("detached element reported attached")
	}
	n.AppendChild(Text("hi"))
	if TextContent(n) != "hi" {
		t.Errorf("TextContent = %q", TextContent(n))
	}
}

func TestReplaceWith(t *testing.T) {
	d := mustParse(t, `<body><p>a</p></body>`)
	root := d.Root()
	p := Find(root, ByAtom(atom.P))
	txt := p.FirstChild
	ReplaceWith(txt, Text("b"))
	if txt.Parent != nil || Attached(txt) {
		t.Error("replaced node still attached")
	}
	if TextContent(p) != "b" {
		t.Errorf("TextContent = %q", TextContent(p))
	}
}
