// Package dom wraps a parsed HTML tree as a live document: a mutex-guarded
// node tree that notifies subscribers about structural and text changes.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MutationKind classifies a document change.
type MutationKind int

const (
	// ChildList is a change to the children of an element.
	ChildList MutationKind = iota
	// CharacterData is a change to the content of a text node.
	CharacterData
)

func (k MutationKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case CharacterData:
		return "characterData"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// Mutation describes one change observed under the document body.
type Mutation struct {
	Kind    MutationKind
	Added   int
	Removed int
}

// subscriberBuffer is the per-subscriber queue length. Sends never block;
// a full queue drops the record since receivers only need "something changed".
const subscriberBuffer = 16

// Document is a parsed HTML document shared between the highlight pipeline,
// mutators and readers. All tree access goes through Do or the mutators.
type Document struct {
	mu   sync.Mutex
	root *html.Node

	subMu sync.Mutex
	subs  map[chan Mutation]struct{}
}

// New wraps an already parsed document node.
func New(root *html.Node) *Document {
	return &Document{root: root, subs: make(map[chan Mutation]struct{})}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return New(root), nil
}

// ParseString reads an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Do runs fn with exclusive access to the tree. fn must not retain nodes
// for use outside another Do call.
func (d *Document) Do(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Root returns the document node without locking. Intended for
// single-goroutine use such as the one-shot CLI and tests.
func (d *Document) Root() *html.Node {
	return d.root
}

// Lang returns the lang attribute of the <html> element.
func (d *Document) Lang() string {
	var lang string
	d.Do(func(root *html.Node) {
		lang = LangOf(root)
	})
	return lang
}

// LangOf returns the lang attribute of the <html> element under root.
func LangOf(root *html.Node) string {
	h := Find(root, ByAtom(atom.Html))
	v, _ := Attr(h, "lang")
	return strings.TrimSpace(v)
}

// Title returns the trimmed text of the <title> element.
func (d *Document) Title() string {
	var title string
	d.Do(func(root *html.Node) {
		if n := Find(root, ByAtom(atom.Title)); n != nil {
			title = strings.TrimSpace(TextContent(n))
		}
	})
	return title
}

// BodyOf returns the <body> element under root, or root when there is none.
func BodyOf(root *html.Node) *html.Node {
	if b := Find(root, ByAtom(atom.Body)); b != nil {
		return b
	}
	return root
}

// HeadOf returns the <head> element under root, or nil.
func HeadOf(root *html.Node) *html.Node {
	return Find(root, ByAtom(atom.Head))
}

// Render serializes the document.
func (d *Document) Render(w io.Writer) error {
	var err error
	d.Do(func(root *html.Node) {
		err = html.Render(w, root)
	})
	return err
}

// String renders the document to a string.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

// BodyText returns the concatenated text content of the body.
func (d *Document) BodyText() string {
	var s string
	d.Do(func(root *html.Node) {
		s = TextContent(BodyOf(root))
	})
	return s
}

// AppendHTML parses fragment in body context and appends it to the body.
func (d *Document) AppendHTML(fragment string) error {
	var added int
	var err error
	d.Do(func(root *html.Node) {
		body := BodyOf(root)
		var nodes []*html.Node
		nodes, err = html.ParseFragment(strings.NewReader(fragment), body)
		if err != nil {
			return
		}
		for _, n := range nodes {
			body.AppendChild(n)
		}
		added = len(nodes)
	})
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	if added > 0 {
		d.notify(Mutation{Kind: ChildList, Added: added})
	}
	return nil
}

// ReplaceBody swaps the body children with those of fragment.
func (d *Document) ReplaceBody(fragment string) error {
	var added, removed int
	var err error
	d.Do(func(root *html.Node) {
		body := BodyOf(root)
		var nodes []*html.Node
		nodes, err = html.ParseFragment(strings.NewReader(fragment), body)
		if err != nil {
			return
		}
		for c := body.FirstChild; c != nil; c = body.FirstChild {
			body.RemoveChild(c)
			removed++
		}
		for _, n := range nodes {
			body.AppendChild(n)
		}
		added = len(nodes)
	})
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	d.notify(Mutation{Kind: ChildList, Added: added, Removed: removed})
	return nil
}

// SetText changes the content of a text node found by fn.
// It reports false when fn returns nil or a non-text node.
func (d *Document) SetText(find func(root *html.Node) *html.Node, text string) bool {
	ok := false
	d.Do(func(root *html.Node) {
		n := find(root)
		if n == nil || n.Type != html.TextNode {
			return
		}
		n.Data = text
		ok = true
	})
	if ok {
		d.notify(Mutation{Kind: CharacterData})
	}
	return ok
}

// Subscribe registers for mutation records. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (d *Document) Subscribe() (<-chan Mutation, func()) {
	ch := make(chan Mutation, subscriberBuffer)
	d.subMu.Lock()
	d.subs[ch] = struct{}{}
	d.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, ch)
			d.subMu.Unlock()
			close(ch)
		})
	}
}

func (d *Document) notify(m Mutation) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for ch := range d.subs {
		select {
		case ch <- m:
		default:
		}
	}
}
