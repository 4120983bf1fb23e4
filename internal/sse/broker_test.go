package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/whatday/internal/models"
)

const window = 20 * time.Millisecond

func newBroker(t *testing.T, opts ...Option) *Broker {
	t.Helper()
	b := NewBroker(append([]Option{WithBadgeWindow(window)}, opts...)...)
	t.Cleanup(b.Close)
	return b
}

// drain collects the messages received on ch during d.
func drain(ch chan []byte, d time.Duration) []string {
	var out []string
	deadline := time.After(d)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		case <-deadline:
			return out
		}
	}
}

func ofType(msgs []string, typ string) []string {
	var out []string
	for _, m := range msgs {
		if strings.HasPrefix(m, "event: "+typ+"\n") {
			out = append(out, m)
		}
	}
	return out
}

func badgeOf(path string, count int) models.Badge {
	return models.Badge{Path: path, Count: count, Text: strconv.Itoa(count)}
}

func TestBadge_CoalescesPerPage(t *testing.T) {
	b := newBroker(t, WithBadgeWindow(200*time.Millisecond))
	ch := b.Subscribe()

	for i := 1; i <= 5; i++ {
		b.PublishBadge(badgeOf("a.html", i))
	}
	b.PublishBadge(badgeOf("b.md", 2))

	updates := ofType(drain(ch, 500*time.Millisecond), TypeBadgeUpdated)
	if len(updates) != 2 {
		t.Fatalf("badge.updated events = %d, want 2: %q", len(updates), updates)
	}
	if !strings.Contains(updates[0], `"path":"a.html","count":5`) {
		t.Errorf("first update = %q, want latest count of a.html", updates[0])
	}
	if !strings.Contains(updates[1], `"path":"b.md","count":2`) {
		t.Errorf("second update = %q", updates[1])
	}
}

func TestBadge_UnchangedCountNotResent(t *testing.T) {
	b := newBroker(t)
	ch := b.Subscribe()

	b.PublishBadge(badgeOf("a.html", 3))
	drain(ch, 5*window)
	b.PublishBadge(badgeOf("a.html", 3))

	if got := ofType(drain(ch, 5*window), TypeBadgeUpdated); len(got) != 0 {
		t.Errorf("identical badge resent: %q", got)
	}
}

func TestBadge_ClearSupersedesPendingUpdate(t *testing.T) {
	const slow = 200 * time.Millisecond
	b := newBroker(t, WithBadgeWindow(slow))
	ch := b.Subscribe()

	// Never sent, so clearing it is silent.
	b.PublishBadge(badgeOf("a.html", 4))
	b.ClearBadge("a.html")
	if msgs := drain(ch, 2*slow); len(msgs) != 0 {
		t.Fatalf("unexpected events: %q", msgs)
	}

	b.PublishBadge(badgeOf("a.html", 2))
	drain(ch, 2*slow)
	b.ClearBadge("a.html")
	cleared := ofType(drain(ch, 2*slow), TypeBadgeCleared)
	if len(cleared) != 1 || !strings.Contains(cleared[0], `"path":"a.html"`) {
		t.Errorf("badge.cleared = %q", cleared)
	}
}

func TestSubscribe_ReceivesBadgeSnapshot(t *testing.T) {
	b := newBroker(t)
	first := b.Subscribe()
	b.PublishBadge(badgeOf("b.md", 1))
	b.PublishBadge(badgeOf("a.html", 2))
	drain(first, 5*window)

	late := b.Subscribe()
	msgs := drain(late, 2*window)
	if len(msgs) == 0 || !strings.HasPrefix(msgs[0], "event: "+TypeBadgeSnapshot+"\n") {
		t.Fatalf("first message = %q, want snapshot", msgs)
	}
	if i, j := strings.Index(msgs[0], "a.html"), strings.Index(msgs[0], "b.md"); i < 0 || j < i {
		t.Errorf("snapshot not ordered by path: %q", msgs[0])
	}

	// No snapshot before any badge was sent.
	empty := newBroker(t).Subscribe()
	if msgs := drain(empty, 2*window); len(msgs) != 0 {
		t.Errorf("empty broker sent %q", msgs)
	}
}

func TestPageEvents_TrailingListThrottle(t *testing.T) {
	b := newBroker(t, WithListThrottle(100*time.Millisecond))
	ch := b.Subscribe()

	b.PublishPageEvent(PageCreated, "a.html")
	b.PublishPageEvent(PageUpdated, "b.md")
	b.PublishPageEvent(PageDeleted, "c.html")
	b.PublishPageEvent("renamed", "d.html")

	msgs := drain(ch, 300*time.Millisecond)
	for _, typ := range []string{TypePageCreated, TypePageUpdated, TypePageDeleted} {
		if n := len(ofType(msgs, typ)); n != 1 {
			t.Errorf("%s events = %d, want 1", typ, n)
		}
	}
	// One immediately, one trailing for the throttled burst.
	if n := len(ofType(msgs, TypePagesChanged)); n != 2 {
		t.Errorf("pages.changed events = %d, want 2", n)
	}
	if strings.Contains(strings.Join(msgs, ""), "d.html") {
		t.Error("unknown page event kind published")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := newBroker(t)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
	if _, ok := <-ch; ok {
		t.Error("channel left open after unsubscribe")
	}
}

func TestServeHTTP_StreamsBadgeEvents(t *testing.T) {
	b := newBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.PublishBadge(badgeOf("x.html", 7))
	b.PublishSettings(map[string]bool{"enabled": false})
	time.Sleep(5 * window)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: badge.updated\ndata: {\"path\":\"x.html\",\"count\":7") {
		t.Errorf("badge event missing: %q", body)
	}
	if !strings.Contains(body, "event: settings.updated") {
		t.Errorf("settings event missing: %q", body)
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
}

func TestClose_FlushesPendingBadges(t *testing.T) {
	b := NewBroker(WithBadgeWindow(time.Hour))
	ch := b.Subscribe()
	b.PublishBadge(badgeOf("a.html", 1))
	b.Close()

	msgs := drain(ch, time.Second)
	if len(ofType(msgs, TypeBadgeUpdated)) != 1 {
		t.Errorf("pending badge not flushed on close: %q", msgs)
	}
	if b.ClientCount() != 0 {
		t.Error("clients reported after close")
	}
	// No-ops after close.
	b.PublishBadge(badgeOf("a.html", 2))
	b.ClearBadge("a.html")
	b.PublishPageEvent(PageUpdated, "a.html")
	b.Publish(Event{Type: TypeSettings})
}

func TestEncode(t *testing.T) {
	raw, err := Encode(Event{Type: TypeBadgeUpdated, Data: map[string]any{"path": "a.html", "count": 3, "text": "3"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "event: badge.updated\ndata: {\"count\":3,\"path\":\"a.html\",\"text\":\"3\"}\n\n"
	if string(raw) != want {
		t.Errorf("Encode = %q, want %q", raw, want)
	}
	if _, err := Encode(Event{Type: "bad", Data: make(chan int)}); err == nil {
		t.Error("unencodable data accepted")
	}
}
