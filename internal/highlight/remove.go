package highlight

import (
	"golang.org/x/net/html"

	"github.com/starford/whatday/internal/dom"
)

func isIcon(n *html.Node) bool { return dom.HasClass(n, ClassIcon) }

func isMark(n *html.Node) bool {
	return dom.HasClass(n, ClassMark) || dom.HasClass(n, ClassMarkNoBg)
}

func isWrapper(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	_, ok := dom.Attr(n, AttrWrapper)
	return ok
}

// Count returns the number of markers under root.
func Count(root *html.Node) int {
	return len(dom.FindAll(root, isMark))
}

// Remove undoes every rewrite under root and drops the stylesheet. Indicators
// go first, then markers become plain text, then wrappers are unwrapped and
// the split text is merged back. It returns the number of markers removed.
func Remove(root *html.Node) int {
	for _, icon := range dom.FindAll(root, isIcon) {
		dom.Detach(icon)
	}

	marks := dom.FindAll(root, isMark)
	for _, m := range marks {
		dom.ReplaceWith(m, dom.Text(dom.TextContent(m)))
	}

	parents := make(map[*html.Node]struct{})
	for _, w := range dom.FindAll(root, isWrapper) {
		p := w.Parent
		if p == nil {
			continue
		}
		for c := w.FirstChild; c != nil; c = w.FirstChild {
			w.RemoveChild(c)
			p.InsertBefore(c, w)
		}
		p.RemoveChild(w)
		parents[p] = struct{}{}
	}
	for p := range parents {
		mergeText(p)
	}

	RemoveStyles(root)
	return len(marks)
}

// mergeText joins adjacent text children of n.
func mergeText(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			n.RemoveChild(next)
			continue
		}
		c = next
	}
}
