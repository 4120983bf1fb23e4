// Package scanner enumerates the visible text nodes of an HTML tree.
package scanner

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxNodes bounds a single highlight pass.
const DefaultMaxNodes = 50000

// ErrTooManyNodes is returned by Collect when the tree holds more candidate
// text nodes than allowed.
var ErrTooManyNodes = errors.New("too many text nodes")

// skipParents lists elements whose text children are never candidates.
var skipParents = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
	atom.Input:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// Walker is a lazy, single-pass depth-first enumeration of candidate text
// nodes. It is not restartable; create a new Walker for another pass.
type Walker struct {
	root *html.Node
	next *html.Node
	done bool
}

// NewWalker starts a walk under root.
func NewWalker(root *html.Node) *Walker {
	return &Walker{root: root, next: root}
}

// Next returns the next candidate text node, or nil when the walk is over.
func (w *Walker) Next() *html.Node {
	for !w.done {
		n := w.next
		if n == nil {
			w.done = true
			return nil
		}
		w.next = w.successor(n)
		if Candidate(n) {
			return n
		}
	}
	return nil
}

// successor returns the node after n in document order without leaving root.
// Subtrees of skipped elements are not entered.
func (w *Walker) successor(n *html.Node) *html.Node {
	if n.FirstChild != nil && !(n.Type == html.ElementNode && skipParents[n.DataAtom]) {
		return n.FirstChild
	}
	for p := n; p != nil && p != w.root; p = p.Parent {
		if p.NextSibling != nil {
			return p.NextSibling
		}
	}
	return nil
}

// Candidate reports whether n is a text node worth scanning.
func Candidate(n *html.Node) bool {
	if n == nil || n.Type != html.TextNode {
		return false
	}
	if p := n.Parent; p != nil && p.Type == html.ElementNode && skipParents[p.DataAtom] {
		return false
	}
	return strings.TrimSpace(n.Data) != ""
}

// Collect materializes up to max candidates under root. When there are more
// it stops early and returns ErrTooManyNodes; max <= 0 means unbounded.
func Collect(root *html.Node, max int) ([]*html.Node, error) {
	w := NewWalker(root)
	var out []*html.Node
	for n := w.Next(); n != nil; n = w.Next() {
		out = append(out, n)
		if max > 0 && len(out) > max {
			return nil, fmt.Errorf("scanner: %w: more than %d", ErrTooManyNodes, max)
		}
	}
	return out, nil
}
