// Package workspace keeps every page of the page directory as a live,
// highlighted document and coordinates storage, the store and the badges.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/whatday/internal/apperr"
	"github.com/starford/whatday/internal/badge"
	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/highlight"
	"github.com/starford/whatday/internal/models"
	"github.com/starford/whatday/internal/page"
	"github.com/starford/whatday/internal/pipeline"
	"github.com/starford/whatday/internal/session"
	"github.com/starford/whatday/internal/sse"
	"github.com/starford/whatday/internal/storage"
	"github.com/starford/whatday/internal/store"
)

// Events receives badge, page and settings notifications. *sse.Broker
// satisfies it.
type Events interface {
	badge.Publisher
	PublishPageEvent(kind sse.PageEventKind, path string)
	PublishSettings(settings any)
}

// PageDetail is a page together with its highlighted HTML.
type PageDetail struct {
	models.Page
	HTML  string       `json:"html"`
	Badge models.Badge `json:"badge"`
}

// Workspace owns one session per page.
type Workspace struct {
	pages  storage.Provider
	db     store.Store
	loader *page.Loader
	pipe   *pipeline.Pipeline
	badges *badge.Manager
	events Events
	logger *slog.Logger
	quiet  time.Duration

	mu       sync.RWMutex
	sessions map[string]*session.Session
	meta     map[string]models.Page
	settings highlight.Settings
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithPipeline sets the pipeline shared by all sessions.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(w *Workspace) { w.pipe = p }
}

// WithBadges sets the badge manager.
func WithBadges(b *badge.Manager) Option {
	return func(w *Workspace) { w.badges = b }
}

// WithEvents sets the event publisher.
func WithEvents(e Events) Option {
	return func(w *Workspace) { w.events = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithQuietPeriod sets the mutation debounce period of every session.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Workspace) { w.quiet = d }
}

// WithSettings sets the settings used until persisted ones are loaded.
func WithSettings(s highlight.Settings) Option {
	return func(w *Workspace) { w.settings = s }
}

// New creates an empty workspace. Call Open to load the pages.
func New(pages storage.Provider, db store.Store, opts ...Option) *Workspace {
	w := &Workspace{
		pages:    pages,
		db:       db,
		loader:   page.NewLoader(),
		sessions: make(map[string]*session.Session),
		meta:     make(map[string]models.Page),
		settings: highlight.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w.pipe == nil {
		w.pipe = pipeline.New(pipeline.WithLogger(w.logger))
	}
	if w.badges == nil {
		var pub badge.Publisher
		if w.events != nil {
			pub = w.events
		}
		w.badges = badge.NewManager(pub)
	}
	return w
}

// Open restores persisted settings and loads every page.
func (w *Workspace) Open(ctx context.Context) error {
	s, ok, err := w.db.LoadSettings()
	if err != nil {
		return err
	}
	if ok {
		w.mu.Lock()
		w.settings = s
		w.mu.Unlock()
	}
	return w.Sync(ctx)
}

// Close stops every session. Highlights stay in the documents.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, s := range w.sessions {
		s.Close()
		delete(w.sessions, p)
	}
}

// Badges returns the badge manager.
func (w *Workspace) Badges() *badge.Manager { return w.badges }

// Settings returns the settings applied to new sessions.
func (w *Workspace) Settings() highlight.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// Paths returns the paths of every open page, sorted.
func (w *Workspace) Paths() []string {
	w.mu.RLock()
	out := make([]string, 0, len(w.sessions))
	for p := range w.sessions {
		out = append(out, p)
	}
	w.mu.RUnlock()
	sort.Strings(out)
	return out
}

// ListPages returns catalogued pages.
func (w *Workspace) ListPages(_ context.Context, limit, offset int) ([]store.PageRow, int, error) {
	return w.db.ListPages(limit, offset)
}

// Session returns the session of path.
func (w *Workspace) Session(path string) (*session.Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.sessions[path]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

// GetPage returns the live highlighted page. A non-empty locale renders a
// fresh copy of the page highlighted under that locale instead; the live
// document is left alone.
func (w *Workspace) GetPage(ctx context.Context, path, locale string) (*PageDetail, error) {
	s, err := w.Session(path)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	meta := w.meta[path]
	w.mu.RUnlock()

	detail := &PageDetail{Page: meta, Badge: w.badges.Get(path)}
	if locale == "" {
		detail.HTML = s.Document().String()
		return detail, nil
	}

	data, err := w.read(path)
	if err != nil {
		return nil, err
	}
	doc, _, err := w.loader.Load(path, data, meta.UpdatedAt)
	if err != nil {
		return nil, err
	}
	settings := s.Settings()
	settings.Locale = locale
	settings.Enabled = true
	res, err := w.pipe.Run(ctx, doc, settings)
	if err != nil {
		return nil, err
	}
	detail.HTML = doc.String()
	detail.Badge = models.Badge{Path: path, Count: res.Total, Text: badge.Text(res.Total)}
	return detail, nil
}

// PutPage replaces the content of path, creating it when missing. ifMatch
// is checked against the current content as described by storage.Matches.
func (w *Workspace) PutPage(ctx context.Context, path string, content []byte, ifMatch string) (*PageDetail, error) {
	if _, err := w.pages.Write(path, content, ifMatch); err != nil {
		return nil, err
	}
	if _, err := w.load(ctx, path, content); err != nil {
		return nil, err
	}
	return w.GetPage(ctx, path, "")
}

// DeletePage removes path from disk and closes its session.
func (w *Workspace) DeletePage(_ context.Context, path string) error {
	if err := w.pages.Delete(path); err != nil {
		return err
	}
	return w.drop(path)
}

// Mutate appends a Markdown or HTML fragment to the body of the live page.
// The session's watcher picks up the change.
func (w *Workspace) Mutate(_ context.Context, path, format string, fragment []byte) error {
	s, err := w.Session(path)
	if err != nil {
		return err
	}
	src, err := w.loader.Fragment(format, fragment)
	if err != nil {
		return err
	}
	return s.Document().AppendHTML(src)
}

// RemoveHighlights undoes every highlight of path and returns the number
// of markers removed.
func (w *Workspace) RemoveHighlights(_ context.Context, path string) (int, error) {
	s, err := w.Session(path)
	if err != nil {
		return 0, err
	}
	return s.Remove(), nil
}

// ApplySettings applies a configuration-change message to every session,
// persists the resulting settings and announces them.
func (w *Workspace) ApplySettings(ctx context.Context, msg session.Message) (highlight.Settings, error) {
	if err := msg.Validate(); err != nil {
		return highlight.Settings{}, err
	}
	w.mu.Lock()
	next, _ := msg.Apply(w.settings)
	w.settings = next
	sessions := make([]*session.Session, 0, len(w.sessions))
	for _, s := range w.sessions {
		sessions = append(sessions, s)
	}
	w.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Apply(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Path(), err))
		}
	}
	if err := w.db.SaveSettings(next); err != nil {
		errs = append(errs, err)
	}
	if w.events != nil {
		w.events.PublishSettings(next)
	}
	return next, errors.Join(errs...)
}

// Scans returns the latest scan records of path.
func (w *Workspace) Scans(_ context.Context, path string, limit int) ([]store.ScanRecord, error) {
	return w.db.Scans(path, limit)
}

// load (re)creates the session of path from data. Loading a page is a
// navigation: the old badge is cleared before the new document is scanned.
func (w *Workspace) load(ctx context.Context, path string, data []byte) (models.Page, error) {
	doc, meta, err := w.loader.Load(path, data, time.Now())
	if err != nil {
		return meta, err
	}
	if err := w.db.UpsertPage(store.PageRow{
		Path:      meta.Path,
		Title:     meta.Title,
		Lang:      meta.Lang,
		Format:    meta.Format,
		Checksum:  meta.Checksum,
		UpdatedAt: meta.UpdatedAt,
	}); err != nil {
		return meta, err
	}

	s := w.newSession(path, doc)
	w.mu.Lock()
	old := w.sessions[path]
	w.sessions[path] = s
	w.meta[path] = meta
	w.mu.Unlock()

	if old != nil {
		old.Close()
		w.badges.Clear(path)
	}
	if err := s.Start(ctx); err != nil {
		return meta, fmt.Errorf("workspace: start %s: %w", path, err)
	}
	return meta, nil
}

// drop closes the session of path and forgets it.
func (w *Workspace) drop(path string) error {
	w.mu.Lock()
	s := w.sessions[path]
	delete(w.sessions, path)
	delete(w.meta, path)
	w.mu.Unlock()

	if s != nil {
		s.Close()
	}
	w.badges.Clear(path)
	return w.db.DeletePage(path)
}

func (w *Workspace) newSession(path string, doc *dom.Document) *session.Session {
	return session.New(path, doc, w.pipe,
		session.WithSettings(w.Settings()),
		session.WithReporter(w.badges),
		session.WithLogger(w.logger),
		session.WithQuietPeriod(w.quiet),
		session.WithOnScan(w.recordScan),
	)
}

func (w *Workspace) recordScan(path string, res pipeline.Result) {
	err := w.db.RecordScan(store.ScanRecord{
		Path:     path,
		Locale:   res.Locale,
		Nodes:    res.Nodes,
		Matches:  res.Matches,
		Total:    res.Total,
		Skipped:  res.Skipped,
		Duration: res.Duration,
	})
	if err != nil {
		w.logger.Warn("workspace: record scan failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (w *Workspace) read(path string) ([]byte, error) {
	return w.pages.Read(path)
}

// loaded reports whether path has a session whose content has checksum cs.
func (w *Workspace) loaded(path, cs string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.sessions[path]
	return ok && w.meta[path].Checksum == cs
}
