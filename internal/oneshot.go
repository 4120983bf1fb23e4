package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/whatday/internal/browser"
	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/mcpserver"
	"github.com/starford/whatday/internal/page"
	"github.com/starford/whatday/internal/pipeline"
	"github.com/starford/whatday/internal/storage"
)

// isURL reports whether target should be fetched rather than read from disk.
func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// Highlight highlights one page, a local file or a URL rendered in headless
// Chrome, and writes the resulting HTML to the configured output.
func Highlight(ctx context.Context, target string, opts ...Option) (pipeline.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return pipeline.Result{}, err
	}
	cfg := app.config
	out := app.out
	if out == nil {
		out = os.Stdout
	}
	logger := newLogger(cfg, os.Stderr)

	ambient := cfg.Scan.AmbientLocale
	var doc *dom.Document
	if isURL(target) {
		f := browser.New(0)
		defer f.Close()
		snap, err := f.Fetch(ctx, target)
		if err != nil {
			return pipeline.Result{}, err
		}
		if snap.Lang != "" {
			ambient = snap.Lang
		}
		if doc, err = dom.ParseString(snap.HTML); err != nil {
			return pipeline.Result{}, fmt.Errorf("parse %s: %w", target, err)
		}
	} else {
		data, err := os.ReadFile(target)
		if err != nil {
			return pipeline.Result{}, err
		}
		info, err := os.Stat(target)
		modTime := time.Now()
		if err == nil {
			modTime = info.ModTime()
		}
		if doc, _, err = page.NewLoader().Load(filepath.Base(target), data, modTime); err != nil {
			return pipeline.Result{}, err
		}
	}

	cfg.Scan.AmbientLocale = ambient
	pipe, err := newPipeline(cfg, logger)
	if err != nil {
		return pipeline.Result{}, err
	}
	settings := cfg.Highlight
	settings.Enabled = true
	res, err := pipe.Run(ctx, doc, settings)
	if err != nil {
		return res, err
	}
	if err := doc.Render(out); err != nil {
		return res, fmt.Errorf("write output: %w", err)
	}
	return res, nil
}

// ServeMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)

	if err := os.MkdirAll(cfg.Pages.Path, 0o755); err != nil {
		return fmt.Errorf("create pages dir: %w", err)
	}
	pages, err := storage.NewFS(cfg.Pages.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	pipe, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("MCP server starting", slog.String("pages_path", cfg.Pages.Path))
	srv := mcpserver.New(pages,
		mcpserver.WithPipeline(pipe),
		mcpserver.WithAmbientLocale(cfg.Scan.AmbientLocale),
	)
	return srv.ServeStdio()
}
