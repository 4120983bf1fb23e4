// Package storage defines the page directory abstraction.
package storage

import (
	"path/filepath"
	"strings"

	"github.com/starford/whatday/internal/models"
)

// Provider is the interface for page file operations. Paths are relative to
// the page root and use forward slashes. Only page files are visible: other
// extensions fail with apperr.ErrUnsupported, missing pages with
// apperr.ErrNotFound.
type Provider interface {
	// List returns metadata for every page file under dir.
	List(dir string) ([]models.PageMetadata, error)
	// Read returns the raw bytes of the page at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the page at path. A non-empty ifMatch is a
	// precondition on the current content, see Matches.
	Write(path string, content []byte, ifMatch string) (models.PageMetadata, error)
	// Delete removes the page at path.
	Delete(path string) error
}

// Page file formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// TempPrefix names the files Write stages content in.
const TempPrefix = ".whatday-tmp-"

// FormatOf returns the page format implied by the file extension, or "" when
// the file is not a page.
func FormatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return FormatHTML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return ""
	}
}

// IsPage reports whether name has a page extension.
func IsPage(name string) bool {
	return FormatOf(name) != ""
}

// Ignored reports whether rel, a slash-separated path relative to the page
// root, lies in a hidden directory or names a hidden file. Staging files of
// Write are hidden.
func Ignored(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

// ETag quotes a page checksum as an HTTP entity tag.
func ETag(checksum string) string {
	return `"` + checksum + `"`
}

// ParseETag extracts the checksum from an If-Match header value. Weak tags
// compare like strong ones since checksums cover the full content.
func ParseETag(header string) string {
	v := strings.TrimSpace(header)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

// Matches reports whether a page with checksum current (empty when the page
// does not exist) satisfies ifMatch: "" always matches, "*" matches any
// existing page, anything else must equal current.
func Matches(ifMatch, current string) bool {
	switch ifMatch {
	case "":
		return true
	case "*":
		return current != ""
	default:
		return ifMatch == current
	}
}
