package store

import (
	"github.com/starford/whatday/internal/highlight"
)

// Store defines the persistence operations used by the service layers.
// Consumers depend on this interface rather than on *DB.
type Store interface {
	UpsertPage(p PageRow) error
	DeletePage(path string) error
	GetChecksum(path string) (string, error)
	ListPages(limit, offset int) ([]PageRow, int, error)
	AllPaths() (map[string]struct{}, error)

	LoadSettings() (highlight.Settings, bool, error)
	SaveSettings(s highlight.Settings) error

	RecordScan(r ScanRecord) error
	Scans(path string, limit int) ([]ScanRecord, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
