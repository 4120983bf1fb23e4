package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/starford/whatday/internal/highlight"
)

// PageRow represents a row in the pages table.
type PageRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Lang      string    `json:"lang"`
	Format    string    `json:"format"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScanRecord is the summary of one highlight pass over a page.
type ScanRecord struct {
	ID        int64         `json:"id"`
	Path      string        `json:"path"`
	Locale    string        `json:"locale"`
	Nodes     int           `json:"nodes"`
	Matches   int           `json:"matches"`
	Total     int           `json:"total"`
	Skipped   bool          `json:"skipped"`
	Duration  time.Duration `json:"duration"`
	ScannedAt time.Time     `json:"scanned_at"`
}

// UpsertPage inserts or replaces a page row.
func (db *DB) UpsertPage(p PageRow) error {
	_, err := db.conn.Exec(`
		INSERT INTO pages (path, title, lang, format, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			lang       = excluded.lang,
			format     = excluded.format,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, p.Path, p.Title, p.Lang, p.Format, p.Checksum, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert page: %w", err)
	}
	return nil
}

// DeletePage removes a page and its scan history.
func (db *DB) DeletePage(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM scans WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete scans: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM pages WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete page: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a page, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM pages WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: checksum: %w", err)
	}
	return cs, nil
}

// ListPages returns a page of rows ordered by path plus the total row count.
func (db *DB) ListPages(limit, offset int) ([]PageRow, int, error) {
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count pages: %w", err)
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT path, title, lang, format, checksum, updated_at
		FROM pages ORDER BY path LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list pages: %w", err)
	}
	defer rows.Close()

	var out []PageRow
	for rows.Next() {
		var p PageRow
		if err := rows.Scan(&p.Path, &p.Title, &p.Lang, &p.Format, &p.Checksum, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// AllPaths returns every catalogued page path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("store: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// Settings keys, shared with clients of the settings endpoint.
const (
	keyEnabled      = "enabled"
	keyBackground   = "highlightEnabled"
	keyIconPosition = "iconPosition"
	keyLocale       = "locale"
)

// LoadSettings returns the persisted settings. ok is false when nothing was
// saved yet; missing keys keep their defaults.
func (db *DB) LoadSettings() (highlight.Settings, bool, error) {
	s := highlight.DefaultSettings()
	rows, err := db.conn.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return s, false, fmt.Errorf("store: load settings: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return s, false, err
		}
		found = true
		switch k {
		case keyEnabled:
			s.Enabled = v != "false"
		case keyBackground:
			s.Background = v != "false"
		case keyIconPosition:
			if v != "" {
				s.IconPosition = highlight.IconPosition(v)
			}
		case keyLocale:
			s.Locale = v
		}
	}
	return s, found, rows.Err()
}

// SaveSettings persists every settings field in one transaction.
func (db *DB) SaveSettings(s highlight.Settings) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("store: prepare settings: %w", err)
	}
	defer stmt.Close()

	values := [][2]string{
		{keyEnabled, strconv.FormatBool(s.Enabled)},
		{keyBackground, strconv.FormatBool(s.Background)},
		{keyIconPosition, string(s.IconPosition)},
		{keyLocale, s.Locale},
	}
	for _, kv := range values {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("store: save setting %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}

// RecordScan appends a scan summary.
func (db *DB) RecordScan(r ScanRecord) error {
	if r.ScannedAt.IsZero() {
		r.ScannedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO scans (path, locale, nodes, matches, total, skipped, duration_ms, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Path, r.Locale, r.Nodes, r.Matches, r.Total, r.Skipped, r.Duration.Milliseconds(), r.ScannedAt)
	if err != nil {
		return fmt.Errorf("store: record scan: %w", err)
	}
	return nil
}

// Scans returns the latest scans of path, newest first.
func (db *DB) Scans(path string, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, path, locale, nodes, matches, total, skipped, duration_ms, scanned_at
		FROM scans WHERE path = ? ORDER BY id DESC LIMIT ?
	`, path, limit)
	if err != nil {
		return nil, fmt.Errorf("store: scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var ms int64
		if err := rows.Scan(&r.ID, &r.Path, &r.Locale, &r.Nodes, &r.Matches, &r.Total, &r.Skipped, &ms, &r.ScannedAt); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
