// Package watch re-runs a scan after a burst of document mutations settles.
package watch

import (
	"sync"
	"time"

	"github.com/starford/whatday/internal/dom"
)

// DefaultQuiet is the quiet period after the last mutation before a re-scan.
const DefaultQuiet = 300 * time.Millisecond

// Debouncer runs fn once calls to Trigger stop for the quiet period.
type Debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	fn    func()
	timer *time.Timer
}

// NewDebouncer returns a Debouncer calling fn after quiet.
func NewDebouncer(quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{quiet: quiet, fn: fn}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fn)
}

// Stop cancels a pending call. It reports whether one was pending.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// MutationSource delivers mutation records until the returned func is called.
type MutationSource interface {
	Subscribe() (<-chan dom.Mutation, func())
}

// State is the lifecycle state of a Watcher.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Watcher subscribes to a MutationSource while active and calls the re-scan
// function after relevant mutations settle.
type Watcher struct {
	src      MutationSource
	debounce *Debouncer

	mu    sync.Mutex
	state State
	unsub func()
	done  chan struct{}
}

// New returns an inactive watcher calling rescan after quiet.
func New(src MutationSource, quiet time.Duration, rescan func()) *Watcher {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Watcher{src: src, debounce: NewDebouncer(quiet, rescan)}
}

// Start subscribes to mutations. Starting an active watcher is a no-op.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Active {
		return
	}
	ch, unsub := w.src.Subscribe()
	w.unsub = unsub
	w.done = make(chan struct{})
	w.state = Active
	go w.loop(ch, w.done)
}

// Stop detaches and cancels a pending re-scan. Stopping an inactive watcher
// is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.state == Inactive {
		w.mu.Unlock()
		return
	}
	w.state = Inactive
	unsub, done := w.unsub, w.done
	w.unsub, w.done = nil, nil
	w.mu.Unlock()

	unsub()
	<-done
	w.debounce.Stop()
}

// Active reports whether the watcher is subscribed.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == Active
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) loop(ch <-chan dom.Mutation, done chan struct{}) {
	defer close(done)
	for m := range ch {
		if Relevant(m) {
			w.debounce.Trigger()
		}
	}
}

// Relevant reports whether m can introduce new text: added nodes or changed
// character data.
func Relevant(m dom.Mutation) bool {
	return m.Added > 0 || m.Kind == dom.CharacterData
}
