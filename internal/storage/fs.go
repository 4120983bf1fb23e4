package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/starford/whatday/internal/apperr"
	"github.com/starford/whatday/internal/models"
)

// FS implements Provider over a directory of page files.
type FS struct {
	root string // absolute path to the page directory

	// mu serialises conditional writes so the checksum compared against
	// If-Match is the one replaced.
	mu sync.Mutex
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute page directory.
func (f *FS) Root() string { return f.root }

// resolve maps a relative path onto the page root, rejecting paths that
// escape it.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if abs != f.root && !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes page root: %s", rel)
	}
	return abs, nil
}

// page resolves rel and checks it names a visible page file.
func (f *FS) page(rel string) (string, error) {
	if !IsPage(rel) || Ignored(rel) {
		return "", fmt.Errorf("storage: %s: %w", rel, apperr.ErrUnsupported)
	}
	return f.resolve(rel)
}

// List walks dir and returns the metadata of every page, skipping hidden
// entries and staging files.
func (f *FS) List(dir string) ([]models.PageMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []models.PageMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, _ := filepath.Rel(f.root, p)
		rel = filepath.ToSlash(rel)
		if p != base && Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsPage(rel) {
			return nil
		}
		meta, err := f.stat(rel, p)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

func (f *FS) stat(rel, abs string) (models.PageMetadata, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return models.PageMetadata{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.PageMetadata{}, err
	}
	return models.PageMetadata{
		Path:      rel,
		Format:    FormatOf(rel),
		Checksum:  Checksum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a page.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.page(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, notFound(path, err)
	}
	return data, nil
}

// Write stages content in a hidden temp file, fsyncs it and renames it over
// path once ifMatch holds against the current content.
func (f *FS) Write(path string, content []byte, ifMatch string) (models.PageMetadata, error) {
	abs, err := f.page(path)
	if err != nil {
		return models.PageMetadata{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current := ""
	if existing, err := os.ReadFile(abs); err == nil {
		current = Checksum(existing)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return models.PageMetadata{}, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if !Matches(ifMatch, current) {
		if current == "" {
			return models.PageMetadata{}, fmt.Errorf("storage: %s: %w", path, apperr.ErrNotFound)
		}
		return models.PageMetadata{}, fmt.Errorf("storage: %s: checksum %s: %w", path, current, apperr.ErrConflict)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.PageMetadata{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := stage(dir, abs, content); err != nil {
		return models.PageMetadata{}, err
	}
	return f.stat(path, abs)
}

func stage(dir, dst string, content []byte) error {
	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	name := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(name, dst); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	committed = true
	return nil
}

// Delete removes a page file.
func (f *FS) Delete(path string) error {
	abs, err := f.page(path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(abs); err != nil {
		return notFound(path, err)
	}
	return nil
}

func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s: %w", path, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s: %w", path, err)
}

// Checksum returns the hex-encoded SHA-256 digest of data. It doubles as the
// page ETag.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
