// Package session controls one live document: its settings, its highlight
// passes, its mutation watcher and the badge count it reports.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/highlight"
	"github.com/starford/whatday/internal/models"
	"github.com/starford/whatday/internal/pipeline"
	"github.com/starford/whatday/internal/watch"
)

// Reporter receives the marker count after every pass. *badge.Manager
// satisfies it.
type Reporter interface {
	Set(path string, count int) models.Badge
}

// Session owns the settings of one document. Settings are swapped as whole
// values; a pass reads one value from start to end.
type Session struct {
	path     string
	doc      *dom.Document
	pipe     *pipeline.Pipeline
	watcher  *watch.Watcher
	reporter Reporter
	onScan   func(path string, res pipeline.Result)
	logger   *slog.Logger
	quiet    time.Duration

	settings atomic.Pointer[highlight.Settings]

	// mu serializes lifecycle changes; passMu is held shared by every pass
	// and exclusively by removal, so a removal never interleaves with a batch.
	mu     sync.Mutex
	passMu sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithSettings sets the initial settings.
func WithSettings(s highlight.Settings) Option {
	return func(ss *Session) { ss.settings.Store(&s) }
}

// WithReporter sets the badge reporter.
func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

// WithOnScan registers a hook called after every completed pass.
func WithOnScan(fn func(path string, res pipeline.Result)) Option {
	return func(s *Session) { s.onScan = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithQuietPeriod sets the mutation debounce period.
func WithQuietPeriod(d time.Duration) Option {
	return func(s *Session) { s.quiet = d }
}

// New creates an idle session; call Start to run the first pass.
func New(path string, doc *dom.Document, pipe *pipeline.Pipeline, opts ...Option) *Session {
	s := &Session{path: path, doc: doc, pipe: pipe}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings.Load() == nil {
		def := highlight.DefaultSettings()
		s.settings.Store(&def)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.watcher = watch.New(doc, s.quiet, s.rescan)
	return s
}

// Path returns the page path the session reports under.
func (s *Session) Path() string { return s.path }

// Document returns the live document.
func (s *Session) Document() *dom.Document { return s.doc }

// Settings returns the current settings value.
func (s *Session) Settings() highlight.Settings { return *s.settings.Load() }

// Watching reports whether the mutation watcher is active.
func (s *Session) Watching() bool { return s.watcher.Active() }

// Start runs the first pass and starts watching when enabled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Settings().Enabled {
		return nil
	}
	return s.enableLocked(ctx)
}

// Close stops watching and abandons pending passes. Highlights stay in place.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.watcher.Stop()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Apply handles a configuration-change message: disabling stops the watcher
// and removes every highlight, enabling scans and starts the watcher, and a
// rendering change on an enabled page removes then rescans.
func (s *Session) Apply(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.Settings()
	next, refresh := msg.Apply(prev)
	s.settings.Store(&next)

	switch {
	case msg.Action == ActionToggle && !next.Enabled:
		s.disableLocked()
		return nil
	case msg.Action == ActionToggle && next.Enabled:
		return s.enableLocked(ctx)
	case refresh && next.Enabled:
		s.disableLocked()
		return s.enableLocked(ctx)
	}
	return nil
}

// Scan runs one pass with the current settings, unless the session is
// disabled. It is what the watcher calls after mutations settle.
func (s *Session) Scan(ctx context.Context) (pipeline.Result, error) {
	s.mu.Lock()
	gen := s.ctx
	s.mu.Unlock()
	if gen == nil {
		return pipeline.Result{}, nil
	}
	return s.pass(ctx, gen)
}

// Remove undoes every highlight without changing the settings.
func (s *Session) Remove() int {
	s.passMu.Lock()
	n := pipeline.Remove(s.doc)
	s.passMu.Unlock()
	s.report(0)
	return n
}

func (s *Session) enableLocked(ctx context.Context) error {
	if s.closed {
		return nil
	}
	if s.cancel == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	_, err := s.pass(ctx, s.ctx)
	s.watcher.Start()
	return err
}

func (s *Session) disableLocked() {
	s.watcher.Stop()
	if s.cancel != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
	}
	s.passMu.Lock()
	pipeline.Remove(s.doc)
	s.passMu.Unlock()
	s.report(0)
}

// pass runs the pipeline under both the caller's context and the enable
// generation, so disabling abandons passes started before it.
func (s *Session) pass(ctx, gen context.Context) (pipeline.Result, error) {
	s.passMu.RLock()
	defer s.passMu.RUnlock()
	if err := gen.Err(); err != nil {
		return pipeline.Result{}, err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(gen, cancel)
	defer stop()

	res, err := s.pipe.Run(runCtx, s.doc, s.Settings())
	if err != nil {
		return res, err
	}
	s.report(res.Total)
	if s.onScan != nil {
		s.onScan(s.path, res)
	}
	return res, nil
}

func (s *Session) rescan() {
	if _, err := s.Scan(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("session: rescan failed", slog.String("path", s.path), slog.String("error", err.Error()))
	}
}

func (s *Session) report(count int) {
	if s.reporter != nil {
		s.reporter.Set(s.path, count)
	}
}
