package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHighlight_File(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plan.md")
	if err := os.WriteFile(src, []byte("---\nlang: pl\n---\nTermin: 15 stycznia 2024\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = 8 // errors only
	cfg.Scan.Strategy = "timer"

	var out bytes.Buffer
	res, err := Highlight(context.Background(), src, WithConfig(cfg), WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if res.Matches != 1 || res.Locale != "pl" {
		t.Errorf("result = %+v", res)
	}
	html := out.String()
	if !strings.Contains(html, `<mark class="date-hl">15 stycznia 2024</mark>`) || !strings.Contains(html, "Monday") {
		t.Errorf("output = %s", html)
	}
}

func TestHighlight_MissingFile(t *testing.T) {
	_, err := Highlight(context.Background(), filepath.Join(t.TempDir(), "nope.html"), WithConfig(NewDefaultConfig()))
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err != errConfigRequired {
		t.Errorf("err = %v, want errConfigRequired", err)
	}
}

func TestIsURL(t *testing.T) {
	for in, want := range map[string]bool{
		"https://example.com": true,
		"http://x":            true,
		"./page.html":         false,
		"file:///tmp/a.html":  false,
	} {
		if got := isURL(in); got != want {
			t.Errorf("isURL(%q) = %v", in, got)
		}
	}
}
