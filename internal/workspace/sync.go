package workspace

import (
	"context"
	"log/slog"
)

// Sync walks the page directory and brings the workspace up to date:
//   - new/changed pages are loaded and scanned
//   - pages removed from disk are dropped together with their catalogue rows
func (w *Workspace) Sync(ctx context.Context) error {
	metas, err := w.pages.List("")
	if err != nil {
		return err
	}

	known, err := w.db.AllPaths()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if w.loaded(m.Path, m.Checksum) {
			continue
		}
		if err := w.loadPath(ctx, m.Path); err != nil {
			w.logger.Warn("sync: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			w.logger.Debug("sync: loaded", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range known {
		if _, ok := disk[p]; !ok {
			if err := w.drop(p); err != nil {
				w.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				w.logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}
	return nil
}

// loadPath reads path from storage and loads it.
func (w *Workspace) loadPath(ctx context.Context, path string) error {
	data, err := w.read(path)
	if err != nil {
		return err
	}
	_, err = w.load(ctx, path, data)
	return err
}
