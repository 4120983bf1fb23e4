// Package highlight rewrites text nodes into marked date spans with weekday
// indicators, and undoes that rewrite.
package highlight

import (
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/whatday/internal/dateparse"
	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/patterns"
)

// Counts summarizes the work of one batch.
type Counts struct {
	Nodes int // text nodes rewritten
	Spans int // marked spans created
}

// Add returns the element-wise sum.
func (c Counts) Add(o Counts) Counts {
	return Counts{Nodes: c.Nodes + o.Nodes, Spans: c.Spans + o.Spans}
}

// Renderer rewrites text nodes. It is safe for concurrent use as long as
// callers serialize access to the trees they pass in.
type Renderer struct {
	parser *dateparse.Parser
	logger *slog.Logger
}

// NewRenderer returns a Renderer resolving dates with parser.
// A nil logger discards diagnostics.
func NewRenderer(parser *dateparse.Parser, logger *slog.Logger) *Renderer {
	if parser == nil {
		parser = dateparse.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{parser: parser, logger: logger}
}

// Excluded reports whether n sits inside an earlier rewrite: any ancestor is
// a wrapper, a marker or an indicator.
func Excluded(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if _, ok := dom.Attr(p, AttrWrapper); ok {
			return true
		}
		if dom.HasClass(p, ClassMark) || dom.HasClass(p, ClassMarkNoBg) || dom.HasClass(p, ClassIcon) {
			return true
		}
	}
	return false
}

// HighlightNode replaces n with a wrapper holding the original text split
// around marked spans. It returns the number of spans, 0 when n was left as is.
func (r *Renderer) HighlightNode(n *html.Node, p *patterns.Pattern, s Settings) int {
	if n == nil || n.Type != html.TextNode || !dom.Attached(n) || Excluded(n) {
		return 0
	}
	tokens, err := p.FindAll(n.Data)
	if err != nil {
		r.logger.Warn("highlight: match aborted, node left untouched",
			slog.String("error", err.Error()),
			slog.Int("length", len(n.Data)),
		)
		return 0
	}
	if len(tokens) == 0 {
		return 0
	}

	wrapper := dom.Element(atom.Span, AttrWrapper, "")
	runes := []rune(n.Data)
	last := 0
	for _, t := range tokens {
		if t.Offset > last {
			wrapper.AppendChild(dom.Text(string(runes[last:t.Offset])))
		}
		for _, c := range r.span(t.Text, s) {
			wrapper.AppendChild(c)
		}
		last = t.Offset + t.Length
	}
	if last < len(runes) {
		wrapper.AppendChild(dom.Text(string(runes[last:])))
	}
	dom.ReplaceWith(n, wrapper)
	return len(tokens)
}

// span builds the marker and, when the text resolves to a date, the
// indicator in the configured position.
func (r *Renderer) span(text string, s Settings) []*html.Node {
	mark := dom.Element(atom.Mark, "class", s.MarkClass())
	mark.AppendChild(dom.Text(text))

	d, ok := r.parser.Parse(text)
	if !ok {
		return []*html.Node{mark}
	}
	icon := iconNode(d.WeekdayName())
	if s.IconPosition == IconBefore {
		return []*html.Node{icon, mark}
	}
	return []*html.Node{mark, icon}
}

func iconNode(weekday string) *html.Node {
	icon := dom.Element(atom.Span, "class", ClassIcon)
	icon.AppendChild(dom.Text(IconGlyph))
	tip := dom.Element(atom.Span, "class", ClassTooltip)
	tip.AppendChild(dom.Text(weekday))
	icon.AppendChild(tip)
	return icon
}

// ProcessBatch highlights each node in order, skipping nodes made stale by
// earlier rewrites.
func (r *Renderer) ProcessBatch(nodes []*html.Node, p *patterns.Pattern, s Settings) Counts {
	var c Counts
	for _, n := range nodes {
		if spans := r.HighlightNode(n, p, s); spans > 0 {
			c.Nodes++
			c.Spans += spans
		}
	}
	return c
}

// HighlightText renders plain text as an HTML fragment with the same markup
// HighlightNode produces. Non-matched text is escaped.
func (r *Renderer) HighlightText(text string, p *patterns.Pattern, s Settings) (string, int, error) {
	tokens, err := p.FindAll(text)
	if err != nil {
		return EscapeHTML(text), 0, err
	}
	runes := []rune(text)
	var b strings.Builder
	last := 0
	for _, t := range tokens {
		b.WriteString(EscapeHTML(string(runes[last:t.Offset])))
		for _, n := range r.span(t.Text, s) {
			if err := html.Render(&b, n); err != nil {
				return EscapeHTML(text), 0, err
			}
		}
		last = t.Offset + t.Length
	}
	b.WriteString(EscapeHTML(string(runes[last:])))
	return b.String(), len(tokens), nil
}
