//go:build integration

package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/pipeline"
	"github.com/starford/whatday/internal/highlight"
)

// TestFetch_Integration renders a page whose date is written by script and
// highlights the snapshot.
func TestFetch_Integration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html lang="en"><body><p id="d"></p>
<script>document.getElementById("d").textContent = "Launch on March 3, 2025";</script></body></html>`))
	}))
	defer srv.Close()

	f := New(20 * time.Second)
	defer f.Close()

	snap, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.Lang == "" {
		t.Error("navigator.language not captured")
	}

	doc, err := dom.ParseString(snap.HTML)
	if err != nil {
		t.Fatal(err)
	}
	res, err := pipeline.New().Run(context.Background(), doc, highlight.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if res.Matches != 1 || !strings.Contains(doc.String(), "Monday") {
		t.Errorf("result %+v, html %s", res, doc.String())
	}
}
