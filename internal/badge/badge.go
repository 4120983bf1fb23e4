// Package badge keeps the per-page match counters and announces changes.
package badge

import (
	"sort"
	"strconv"
	"sync"

	"github.com/starford/whatday/internal/models"
)

// Color is the badge background advertised to clients.
const Color = "#4CAF50"

// Publisher receives badge changes. *sse.Broker satisfies it.
type Publisher interface {
	PublishBadge(b models.Badge)
	ClearBadge(path string)
}

// Text renders a count as badge text: empty at zero.
func Text(count int) string {
	if count <= 0 {
		return ""
	}
	return strconv.Itoa(count)
}

func newBadge(path string, count int) models.Badge {
	return models.Badge{Path: path, Count: count, Text: Text(count), Color: Color}
}

// Manager maps page paths to their latest match count.
type Manager struct {
	mu     sync.Mutex
	counts map[string]int
	pub    Publisher
}

// NewManager returns an empty manager. pub may be nil.
func NewManager(pub Publisher) *Manager {
	return &Manager{counts: make(map[string]int), pub: pub}
}

// Set records the count reported by the latest scan of path.
func (m *Manager) Set(path string, count int) models.Badge {
	if count < 0 {
		count = 0
	}
	m.mu.Lock()
	m.counts[path] = count
	m.mu.Unlock()

	b := newBadge(path, count)
	if m.pub != nil {
		m.pub.PublishBadge(b)
	}
	return b
}

// Clear forgets path, as on navigation or removal of the page.
func (m *Manager) Clear(path string) {
	m.mu.Lock()
	_, ok := m.counts[path]
	delete(m.counts, path)
	m.mu.Unlock()
	if ok && m.pub != nil {
		m.pub.ClearBadge(path)
	}
}

// Get returns the badge of path; unknown paths have a zero badge.
func (m *Manager) Get(path string) models.Badge {
	m.mu.Lock()
	count := m.counts[path]
	m.mu.Unlock()
	return newBadge(path, count)
}

// All returns every known badge ordered by path.
func (m *Manager) All() []models.Badge {
	m.mu.Lock()
	out := make([]models.Badge, 0, len(m.counts))
	for p, c := range m.counts {
		out = append(out, newBadge(p, c))
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
