// Package patterns holds the locale-partitioned date grammars and combines
// them into a single case-insensitive alternation.
package patterns

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single match attempt of the combined pattern.
const DefaultMatchTimeout = 250 * time.Millisecond

// Grammar is one declarative rule describing a class of date-like spans.
type Grammar struct {
	Locale string
	Name   string
	Source string
}

// Token is a matched candidate span before date resolution.
type Token struct {
	Text    string
	Offset  int // rune offset within the matched text
	Length  int // length in runes
	Locale  string
	Grammar string
}

// Locales returns the locale keys that have their own grammar set.
func Locales() []string {
	out := make([]string, 0, len(library))
	for k := range library {
		if k != Common {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Known reports whether key has its own grammar set.
func Known(key string) bool {
	_, ok := library[key]
	return ok && key != Common
}

// ForLocale returns a copy of the grammars registered under key, nil if none.
func ForLocale(key string) []Grammar {
	g, ok := library[key]
	if !ok {
		return nil
	}
	return append([]Grammar(nil), g...)
}

// Effective returns common grammars followed by the locale's own set;
// unknown locales get the English set.
func Effective(key string) []Grammar {
	own := key
	if !Known(own) {
		own = English
	}
	out := make([]Grammar, 0, len(library[Common])+len(library[own]))
	out = append(out, library[Common]...)
	out = append(out, library[own]...)
	return out
}

// Pattern is the combined alternation of a grammar list.
// It is safe for concurrent use.
type Pattern struct {
	re       *regexp2.Regexp
	grammars []Grammar
	groups   []string
}

// Combine compiles grammars into one alternation, each alternative wrapped in
// a named group so the originating grammar of a match can be recovered.
func Combine(grammars []Grammar) (*Pattern, error) {
	if len(grammars) == 0 {
		return nil, fmt.Errorf("patterns: no grammars to combine")
	}
	groups := make([]string, len(grammars))
	parts := make([]string, len(grammars))
	for i, g := range grammars {
		groups[i] = fmt.Sprintf("g%d", i)
		parts[i] = fmt.Sprintf("(?<%s>%s)", groups[i], g.Source)
	}
	re, err := regexp2.Compile(strings.Join(parts, "|"), regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("patterns: compile: %w", err)
	}
	re.MatchTimeout = DefaultMatchTimeout
	return &Pattern{
		re:       re,
		grammars: append([]Grammar(nil), grammars...),
		groups:   groups,
	}, nil
}

var cache sync.Map // locale key -> *Pattern

// For returns the cached combined pattern of Effective(key).
// Unknown keys share the English pattern.
func For(key string) (*Pattern, error) {
	if !Known(key) {
		key = English
	}
	if p, ok := cache.Load(key); ok {
		return p.(*Pattern), nil
	}
	p, err := Combine(Effective(key))
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(key, p)
	return actual.(*Pattern), nil
}

// Grammars returns the grammars the pattern was built from.
func (p *Pattern) Grammars() []Grammar {
	return append([]Grammar(nil), p.grammars...)
}

// String returns the combined expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// Match reports whether text contains at least one candidate span.
func (p *Pattern) Match(text string) (bool, error) {
	ok, err := p.re.MatchString(text)
	if err != nil {
		return false, fmt.Errorf("patterns: match: %w", err)
	}
	return ok, nil
}

// FindAll returns every non-overlapping candidate span in text, left to right.
// Matching always restarts from the beginning of text.
func (p *Pattern) FindAll(text string) ([]Token, error) {
	var out []Token
	m, err := p.re.FindStringMatch(text)
	for err == nil && m != nil {
		out = append(out, p.token(m))
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		return out, fmt.Errorf("patterns: find: %w", err)
	}
	return out, nil
}

func (p *Pattern) token(m *regexp2.Match) Token {
	t := Token{Text: m.String(), Offset: m.Index, Length: m.Length}
	for i, name := range p.groups {
		if g := m.GroupByName(name); g != nil && len(g.Captures) > 0 {
			t.Locale = p.grammars[i].Locale
			t.Grammar = p.grammars[i].Name
			break
		}
	}
	return t
}

// ReplaceFunc returns text with every candidate span replaced by repl(token).
// Text between spans is passed through unchanged.
func (p *Pattern) ReplaceFunc(text string, repl func(Token) string) (string, error) {
	tokens, err := p.FindAll(text)
	if err != nil {
		return text, err
	}
	runes := []rune(text)
	var b strings.Builder
	last := 0
	for _, t := range tokens {
		b.WriteString(string(runes[last:t.Offset]))
		b.WriteString(repl(t))
		last = t.Offset + t.Length
	}
	b.WriteString(string(runes[last:]))
	return b.String(), nil
}
