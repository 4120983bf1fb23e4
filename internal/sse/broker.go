// Package sse implements a Server-Sent Events broker for badge and page updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/starford/whatday/internal/models"
)

// Event types published on the stream.
const (
	TypeBadgeUpdated  = "badge.updated"
	TypeBadgeCleared  = "badge.cleared"
	TypeBadgeSnapshot = "badge.snapshot"
	TypePageCreated   = "page.created"
	TypePageUpdated   = "page.updated"
	TypePageDeleted   = "page.deleted"
	TypePagesChanged  = "pages.changed"
	TypeSettings      = "settings.updated"
)

// PageEventKind is the kind of change seen on a page file.
type PageEventKind string

// Page change kinds accepted by PublishPageEvent.
const (
	PageCreated PageEventKind = "created"
	PageUpdated PageEventKind = "updated"
	PageDeleted PageEventKind = "deleted"
)

var pageEventTypes = map[PageEventKind]string{
	PageCreated: TypePageCreated,
	PageUpdated: TypePageUpdated,
	PageDeleted: TypePageDeleted,
}

// Defaults for NewBroker.
const (
	DefaultListThrottle = 2 * time.Second
	DefaultBadgeWindow  = 100 * time.Millisecond
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// badgeChange is the latest pending change of one page badge. A clear
// replaces any update queued before it.
type badgeChange struct {
	badge   models.Badge
	cleared bool
}

type pageEventReq struct {
	kind PageEventKind
	path string
}

// Option configures a Broker.
type Option func(*Broker)

// WithListThrottle sets the minimum interval between pages.changed events.
func WithListThrottle(d time.Duration) Option {
	return func(b *Broker) { b.listMin = d }
}

// WithBadgeWindow sets how long badge changes are coalesced before they are
// sent.
func WithBadgeWindow(d time.Duration) Option {
	return func(b *Broker) { b.badgeWindow = d }
}

// Broker manages SSE client connections and broadcasts events.
//
// One event loop owns the client set, the last badge sent per page, the
// pending badge changes and the listing throttle. Badge changes for the same
// page collapse to the latest within a window; pages.changed is throttled
// with a trailing edge so the final change of a burst is always announced.
type Broker struct {
	listMin     time.Duration
	badgeWindow time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	badgeCh       chan badgeChange
	pageEventCh   chan pageEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its event loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		listMin:       DefaultListThrottle,
		badgeWindow:   DefaultBadgeWindow,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		badgeCh:       make(chan badgeChange, 256),
		pageEventCh:   make(chan pageEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.listMin <= 0 {
		b.listMin = DefaultListThrottle
	}
	if b.badgeWindow <= 0 {
		b.badgeWindow = DefaultBadgeWindow
	}

	go b.run()
	return b
}

// Encode formats an event in the text/event-stream wire format.
func Encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", event.Type, err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

// loop is the state owned by run.
type loop struct {
	clients  map[chan []byte]struct{}
	badges   map[string]models.Badge
	pending  map[string]badgeChange
	lastList time.Time
	listDue  bool
}

func (l *loop) send(ch chan []byte, event Event) {
	raw, err := Encode(event)
	if err != nil {
		return
	}
	select {
	case ch <- raw:
	default:
		// Slow client; drop rather than block the loop.
	}
}

func (l *loop) broadcast(event Event) {
	for ch := range l.clients {
		l.send(ch, event)
	}
}

// snapshot lists the last badge sent for every page, ordered by path.
func (l *loop) snapshot() []models.Badge {
	out := make([]models.Badge, 0, len(l.badges))
	for _, b := range l.badges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// flushBadges sends the pending badge changes in path order, skipping those
// that leave the client-visible badge unchanged.
func (l *loop) flushBadges() {
	if len(l.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(l.pending))
	for p := range l.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		c := l.pending[p]
		cur, known := l.badges[p]
		if c.cleared {
			if !known {
				continue
			}
			delete(l.badges, p)
			l.broadcast(Event{Type: TypeBadgeCleared, Data: map[string]string{"path": p, "text": ""}})
			continue
		}
		if known && cur == c.badge {
			continue
		}
		l.badges[p] = c.badge
		l.broadcast(Event{Type: TypeBadgeUpdated, Data: c.badge})
	}
	clear(l.pending)
}

// announceList emits pages.changed unless one went out within every; a
// throttled announcement is deferred to the next tick.
func (l *loop) announceList(now time.Time, every time.Duration) {
	if now.Sub(l.lastList) < every {
		l.listDue = true
		return
	}
	l.lastList = now
	l.listDue = false
	l.broadcast(Event{Type: TypePagesChanged, Data: map[string]string{}})
}

func (b *Broker) run() {
	defer close(b.stopped)

	l := &loop{
		clients: make(map[chan []byte]struct{}),
		badges:  make(map[string]models.Badge),
		pending: make(map[string]badgeChange),
	}
	tick := time.NewTicker(b.badgeWindow)
	defer tick.Stop()

	for {
		select {
		case <-b.stopCh:
		drain:
			for {
				select {
				case c := <-b.badgeCh:
					l.pending[c.badge.Path] = c
				default:
					break drain
				}
			}
			l.flushBadges()
			for ch := range l.clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			l.clients[ch] = struct{}{}
			if len(l.badges) > 0 {
				l.send(ch, Event{Type: TypeBadgeSnapshot, Data: l.snapshot()})
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := l.clients[ch]; ok {
				delete(l.clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			l.broadcast(event)

		case c := <-b.badgeCh:
			l.pending[c.badge.Path] = c

		case req := <-b.pageEventCh:
			typ, ok := pageEventTypes[req.kind]
			if !ok {
				continue
			}
			l.broadcast(Event{Type: typ, Data: map[string]string{"path": req.path}})
			l.announceList(time.Now(), b.listMin)

		case now := <-tick.C:
			l.flushBadges()
			if l.listDue {
				l.announceList(now, b.listMin)
			}

		case resp := <-b.countReqCh:
			resp <- len(l.clients)
		}
	}
}

// Close flushes pending badge changes, stops the loop and closes all client
// channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The first message is
// a badge.snapshot when any badge has been sent.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients immediately.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSettings announces new highlight settings.
func (b *Broker) PublishSettings(settings any) {
	b.Publish(Event{Type: TypeSettings, Data: settings})
}

// PublishBadge queues the latest count of a page. Only the last badge per
// page within the window is sent.
func (b *Broker) PublishBadge(badge models.Badge) {
	b.queueBadge(badgeChange{badge: badge})
}

// ClearBadge queues the removal of a page badge.
func (b *Broker) ClearBadge(path string) {
	b.queueBadge(badgeChange{badge: models.Badge{Path: path}, cleared: true})
}

func (b *Broker) queueBadge(c badgeChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.badgeCh <- c:
	case <-b.stopped:
	}
}

// PublishPageEvent publishes a page change and a throttled pages.changed
// event. Unknown kinds are ignored.
func (b *Broker) PublishPageEvent(kind PageEventKind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.pageEventCh <- pageEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
