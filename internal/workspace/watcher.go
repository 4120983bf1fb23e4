package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/whatday/internal/sse"
	"github.com/starford/whatday/internal/storage"
)

// reconcileDelay debounces rename reconciliation.
const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on root and reloads pages as their files
// change until ctx is cancelled. Every reload is a navigation: the page's
// badge is cleared and the new content scanned. Page events are published
// when the workspace has an event publisher.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a reconciliation pass over the whole directory.
func (w *Workspace) Watch(ctx context.Context, root string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile(ctx)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, root, ev, scheduleReconcile)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Workspace) handle(ctx context.Context, fw *fsnotify.Watcher, root string, ev fsnotify.Event, scheduleReconcile func()) {
	absPath := ev.Name
	rel, relErr := filepath.Rel(root, absPath)
	if relErr != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	// Hidden entries include the staging files of storage writes.
	if storage.Ignored(rel) {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(fw, absPath); addErr != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
				return
			}
			w.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			w.loadNewDir(ctx, root, absPath)
			return
		}
	}

	if !storage.IsPage(rel) {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, readErr := w.read(rel)
		if readErr != nil {
			w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			return
		}
		kind := sse.PageUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = sse.PageCreated
		}
		if w.loaded(rel, storage.Checksum(data)) {
			return
		}
		if _, loadErr := w.load(ctx, rel, data); loadErr != nil {
			w.logger.Warn("watcher: load failed", slog.String("path", rel), slog.String("error", loadErr.Error()))
			return
		}
		w.logger.Debug("watcher: loaded", slog.String("path", rel), slog.String("op", string(kind)))
		w.pageEvent(kind, rel)

	case ev.Op&fsnotify.Remove != 0:
		if delErr := w.drop(rel); delErr != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.pageEvent(sse.PageDeleted, rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the old path only; the new one arrives as a
		// Create when it stays inside a watched directory.
		if delErr := w.drop(rel); delErr != nil {
			w.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
		} else {
			w.pageEvent(sse.PageDeleted, rel)
		}
		scheduleReconcile()
	}
}

// reconcile drops pages whose files are gone and loads files that are new
// or changed.
func (w *Workspace) reconcile(ctx context.Context) {
	known, err := w.db.AllPaths()
	if err != nil {
		w.logger.Warn("reconcile: all paths failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.pages.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range known {
		if _, ok := disk[p]; !ok {
			if delErr := w.drop(p); delErr == nil {
				w.logger.Debug("reconcile: removed stale", slog.String("path", p))
				w.pageEvent(sse.PageDeleted, p)
			}
		}
	}

	for p, cs := range disk {
		if w.loaded(p, cs) {
			continue
		}
		if loadErr := w.loadPath(ctx, p); loadErr == nil {
			w.logger.Debug("reconcile: loaded new", slog.String("path", p))
			w.pageEvent(sse.PageCreated, p)
		}
	}
}

// loadNewDir loads pages already present in a newly created directory.
func (w *Workspace) loadNewDir(ctx context.Context, root, dirPath string) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsPage(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if storage.Ignored(rel) {
			return nil
		}
		if loadErr := w.loadPath(ctx, rel); loadErr == nil {
			w.logger.Debug("watcher: loaded from new dir", slog.String("path", rel))
			w.pageEvent(sse.PageCreated, rel)
		}
		return nil
	})
}

func (w *Workspace) pageEvent(kind sse.PageEventKind, path string) {
	if w.events != nil {
		w.events.PublishPageEvent(kind, path)
	}
}

// addDirsRecursive adds root and all its visible subdirectories to the
// watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
