// Package browser renders pages in headless Chrome so dynamic content is
// highlighted as a reader would see it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultTimeout bounds one page load.
const DefaultTimeout = 30 * time.Second

var (
	ErrBrowserConnect = errors.New("browser: connect failed")
	ErrPageCreate     = errors.New("browser: page create failed")
	ErrPageLoad       = errors.New("browser: page load failed")
)

// Snapshot is the rendered state of a page.
type Snapshot struct {
	URL  string
	HTML string
	// Lang is navigator.language of the browser, the ambient locale of the page.
	Lang string
}

// Fetcher loads URLs in a lazily launched headless browser.
// Rod downloads Chromium on first use unless ROD_BROWSER_BIN names one.
type Fetcher struct {
	mu      sync.Mutex
	browser *rod.Browser
	timeout time.Duration
}

// New creates a Fetcher. timeout <= 0 means DefaultTimeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{timeout: timeout}
}

func (f *Fetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New()
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	f.browser = b
	return b, nil
}

// Fetch loads url and returns the rendered document.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	b, err := f.ensureBrowser()
	if err != nil {
		return Snapshot{}, err
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
		if timeout <= 0 {
			return Snapshot{}, context.DeadlineExceeded
		}
	}
	page = page.Timeout(timeout)
	if err := page.WaitLoad(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	src, err := page.HTML()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	snap := Snapshot{URL: url, HTML: src}
	if res, err := page.Eval(`() => navigator.language`); err == nil {
		snap.Lang = res.Value.Str()
	}
	return snap, nil
}

// Close releases browser resources.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
