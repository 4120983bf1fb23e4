package highlight

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/whatday/internal/dateparse"
	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/patterns"
	"github.com/starford/whatday/internal/scanner"
)

func newRenderer() *Renderer {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.Local)
	return NewRenderer(dateparse.New(dateparse.WithNow(func() time.Time { return now })), nil)
}

func mustPattern(t *testing.T, locale string) *patterns.Pattern {
	t.Helper()
	p, err := patterns.For(locale)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func parseDoc(t *testing.T, s string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

// highlightAll runs one pass over every candidate under root.
func highlightAll(t *testing.T, r *Renderer, root *html.Node, p *patterns.Pattern, s Settings) Counts {
	t.Helper()
	nodes, err := scanner.Collect(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	return r.ProcessBatch(nodes, p, s)
}

func TestHighlightNode_Markup(t *testing.T) {
	root := parseDoc(t, `<p>Due January 15, 2024 at noon</p>`)
	c := highlightAll(t, newRenderer(), root, mustPattern(t, "en"), DefaultSettings())
	if c.Nodes != 1 || c.Spans != 1 {
		t.Fatalf("counts = %+v", c)
	}
	got := render(t, dom.BodyOf(root))
	want := `<body><p><span data-date-hl="">Due <mark class="date-hl">January 15, 2024</mark>` +
		`<span class="date-hl-icon">🗓<span class="date-hl-tooltip">Monday</span></span> at noon</span></p></body>`
	if got != want {
		t.Errorf("render:\n got %s\nwant %s", got, want)
	}
}

func TestHighlightNode_IconBeforeNoBackground(t *testing.T) {
	root := parseDoc(t, `<p>2024-12-25</p>`)
	s := Settings{Enabled: true, Background: false, IconPosition: IconBefore}
	highlightAll(t, newRenderer(), root, mustPattern(t, "en"), s)
	got := render(t, dom.BodyOf(root))
	if !strings.Contains(got, `<span class="date-hl-icon">🗓<span class="date-hl-tooltip">Wednesday</span></span><mark class="date-hl-no-bg">2024-12-25</mark>`) {
		t.Errorf("unexpected markup: %s", got)
	}
}

func TestHighlightNode_UnparseableKeepsMarkWithoutIcon(t *testing.T) {
	// The short-month grammar accepts trailing letters the parser does not.
	root := parseDoc(t, `<p>Janx 5, 2024</p>`)
	c := highlightAll(t, newRenderer(), root, mustPattern(t, "en"), DefaultSettings())
	if c.Spans != 1 {
		t.Fatalf("counts = %+v", c)
	}
	got := render(t, dom.BodyOf(root))
	if !strings.Contains(got, `<mark class="date-hl">Janx 5, 2024</mark>`) {
		t.Errorf("no mark: %s", got)
	}
	if strings.Contains(got, ClassIcon) {
		t.Errorf("unparseable date got an indicator: %s", got)
	}
}

func TestHighlightNode_EscapesText(t *testing.T) {
	root := parseDoc(t, `<p>a &lt;b&gt; 2024-01-20 &amp; c</p>`)
	highlightAll(t, newRenderer(), root, mustPattern(t, "en"), DefaultSettings())
	got := render(t, dom.BodyOf(root))
	if !strings.Contains(got, `a &lt;b&gt; <mark`) || !strings.Contains(got, ` &amp; c`) {
		t.Errorf("text not escaped: %s", got)
	}
}

func TestProcessBatch_Idempotent(t *testing.T) {
	root := parseDoc(t, `<p>Event on January 15, 2024 ends on 2024-01-20</p><p>nothing</p><p>tomorrow</p>`)
	r := newRenderer()
	p := mustPattern(t, "en")
	first := highlightAll(t, r, root, p, DefaultSettings())
	if first.Spans != 3 || first.Nodes != 2 {
		t.Fatalf("first pass = %+v", first)
	}
	second := highlightAll(t, r, root, p, DefaultSettings())
	if second.Spans != 0 {
		t.Errorf("second pass added %d spans", second.Spans)
	}
	if n := len(dom.FindAll(root, isMark)); n != 3 {
		t.Errorf("marks = %d, want 3", n)
	}
}

func TestProcessBatch_StaleNodes(t *testing.T) {
	root := parseDoc(t, `<p>2024-01-20</p>`)
	nodes, _ := scanner.Collect(root, 0)
	r := newRenderer()
	p := mustPattern(t, "en")
	// The same collected list processed twice: the second time the node is detached.
	r.ProcessBatch(nodes, p, DefaultSettings())
	if c := r.ProcessBatch(nodes, p, DefaultSettings()); c.Nodes != 0 {
		t.Errorf("stale node rewritten: %+v", c)
	}
}

func TestRemove_RoundTrip(t *testing.T) {
	src := `<html><head></head><body><p>Event on January 15, 2024 ends on 2024-01-20.</p>` +
		`<div>Jutro <b>5 marca 2024</b> i dziś</div><p>plain</p></body></html>`
	root := parseDoc(t, src)
	before := dom.TextContent(dom.BodyOf(root))

	InjectStyles(root)
	c := highlightAll(t, newRenderer(), root, mustPattern(t, "pl"), DefaultSettings())
	if c.Spans == 0 {
		t.Fatal("nothing highlighted")
	}
	removed := Remove(root)
	if removed != c.Spans {
		t.Errorf("removed %d markers, created %d", removed, c.Spans)
	}
	if after := dom.TextContent(dom.BodyOf(root)); after != before {
		t.Errorf("text after removal = %q, want %q", after, before)
	}
	if dom.Find(root, dom.ByID(StyleID)) != nil {
		t.Error("stylesheet not removed")
	}
	if got := render(t, root); got != render(t, parseDoc(t, src)) {
		t.Errorf("tree not restored:\n got %s", got)
	}
}

func TestInjectStyles_Once(t *testing.T) {
	root := parseDoc(t, `<html><head></head><body></body></html>`)
	if !InjectStyles(root) {
		t.Fatal("first inject reported no-op")
	}
	if InjectStyles(root) {
		t.Error("second inject added another stylesheet")
	}
	if n := len(dom.FindAll(root, dom.ByID(StyleID))); n != 1 {
		t.Errorf("stylesheets = %d, want 1", n)
	}
	head := dom.HeadOf(root)
	if head.LastChild == nil || head.LastChild.Data != "style" {
		t.Error("stylesheet not in head")
	}
}

func TestHighlightText(t *testing.T) {
	out, n, err := newRenderer().HighlightText("a<b> 2024-12-25", mustPattern(t, "en"), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("spans = %d, want 1", n)
	}
	want := `a&lt;b&gt; <mark class="date-hl">2024-12-25</mark><span class="date-hl-icon">🗓<span class="date-hl-tooltip">Wednesday</span></span>`
	if out != want {
		t.Errorf("HighlightText:\n got %s\nwant %s", out, want)
	}
}

func TestSettings_Validate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	bad := DefaultSettings()
	bad.IconPosition = "left"
	if err := bad.Validate(); err == nil {
		t.Error("unknown icon position accepted")
	}
}

func TestEscapeHTML(t *testing.T) {
	if got := EscapeHTML(`<a & b>`); got != "&lt;a &amp; b&gt;" {
		t.Errorf("EscapeHTML = %q", got)
	}
}
