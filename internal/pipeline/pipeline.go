// Package pipeline composes locale resolution, scanning, highlighting and
// batch scheduling into one highlight pass over a live document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/highlight"
	"github.com/starford/whatday/internal/locale"
	"github.com/starford/whatday/internal/patterns"
	"github.com/starford/whatday/internal/scanner"
	"github.com/starford/whatday/internal/schedule"
)

// Result summarizes one pass. Matches counts the spans this pass created;
// Total counts every marker in the document afterwards.
type Result struct {
	Locale    string        `json:"locale"`
	Source    locale.Source `json:"locale_source"`
	Nodes     int           `json:"nodes"`
	Rewritten int           `json:"rewritten"`
	Matches   int           `json:"matches"`
	Total     int           `json:"total"`
	Grammars  int           `json:"grammars"`
	Skipped   bool          `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Pipeline runs highlight passes. One Pipeline serves many documents.
type Pipeline struct {
	renderer  *highlight.Renderer
	scheduler *schedule.Scheduler
	maxNodes  int
	ambient   string
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRenderer sets the renderer.
func WithRenderer(r *highlight.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithScheduler sets the batch scheduler.
func WithScheduler(s *schedule.Scheduler) Option {
	return func(p *Pipeline) { p.scheduler = s }
}

// WithMaxNodes bounds the number of candidate text nodes per pass.
func WithMaxNodes(n int) Option {
	return func(p *Pipeline) { p.maxNodes = n }
}

// WithAmbientLocale sets the host locale used when neither an override nor
// the page declares one.
func WithAmbientLocale(tag string) Option {
	return func(p *Pipeline) { p.ambient = tag }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New builds a Pipeline. Without options it uses the idle strategy, default
// batch timings and the default node bound.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{maxNodes: scanner.DefaultMaxNodes}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.renderer == nil {
		p.renderer = highlight.NewRenderer(nil, p.logger)
	}
	if p.scheduler == nil {
		p.scheduler = schedule.New(schedule.NewIdleStrategy(schedule.DefaultIdleBudget, nil))
	}
	return p
}

// Renderer returns the renderer used by passes.
func (p *Pipeline) Renderer() *highlight.Renderer { return p.renderer }

// scanSession is the state of one pass. It is never shared between passes.
type scanSession struct {
	nodes  []*html.Node
	cursor int
	counts highlight.Counts
}

// Run performs one pass over doc with settings s. It returns a context error
// when ctx is cancelled between steps; every other failure degrades into the
// Result (skipped pass, untouched nodes).
func (p *Pipeline) Run(ctx context.Context, doc *dom.Document, s highlight.Settings) (Result, error) {
	start := time.Now()
	key, src := locale.Sources{Override: s.Locale, Page: doc.Lang(), Ambient: p.ambient}.Resolve()
	res := Result{Locale: key, Source: src}

	pattern, err := patterns.For(key)
	if err != nil {
		return res, fmt.Errorf("pipeline: pattern: %w", err)
	}
	res.Grammars = len(pattern.Grammars())

	var nodes []*html.Node
	doc.Do(func(root *html.Node) {
		highlight.InjectStyles(root)
		nodes, err = scanner.Collect(dom.BodyOf(root), p.maxNodes)
	})
	if errors.Is(err, scanner.ErrTooManyNodes) {
		res.Skipped = true
		res.Duration = time.Since(start)
		p.logger.Warn("pipeline: too many text nodes, skipping",
			slog.Int("max_nodes", p.maxNodes),
		)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("pipeline: collect: %w", err)
	}

	sess := &scanSession{nodes: nodes}
	res.Nodes = len(nodes)
	_, err = p.scheduler.Run(ctx, sess.nodes, func(batch []*html.Node) int {
		var c highlight.Counts
		doc.Do(func(*html.Node) {
			c = p.renderer.ProcessBatch(batch, pattern, s)
		})
		sess.cursor += len(batch)
		sess.counts = sess.counts.Add(c)
		return c.Spans
	})
	res.Rewritten = sess.counts.Nodes
	res.Matches = sess.counts.Spans
	doc.Do(func(root *html.Node) {
		res.Total = highlight.Count(root)
	})
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	p.logger.Info(fmt.Sprintf("pipeline: %d dates found in %s", res.Matches, res.Duration.Round(time.Millisecond)),
		slog.String("locale", res.Locale),
		slog.String("locale_source", string(res.Source)),
		slog.Int("nodes", res.Nodes),
		slog.Int("grammars", res.Grammars),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// Remove undoes every highlight in doc. It returns the number of markers removed.
func Remove(doc *dom.Document) int {
	var n int
	doc.Do(func(root *html.Node) {
		n = highlight.Remove(root)
	})
	return n
}
