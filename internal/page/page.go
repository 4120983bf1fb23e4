// Package page turns page files into live documents: HTML is parsed as is,
// Markdown is rendered with goldmark into a standalone HTML document.
package page

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/whatday/internal/apperr"
	"github.com/starford/whatday/internal/dom"
	"github.com/starford/whatday/internal/models"
	"github.com/starford/whatday/internal/parser"
	"github.com/starford/whatday/internal/storage"
)

// ErrConversion indicates Markdown rendering failed.
var ErrConversion = errors.New("markdown conversion failed")

// documentTemplate wraps goldmark's fragment output in a complete document.
const documentTemplate = `<!DOCTYPE html>
<html%s>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>`

// Loader builds documents from page files.
type Loader struct {
	md goldmark.Markdown
}

// NewLoader creates a Loader with GFM extensions.
func NewLoader() *Loader {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
		),
		goldmark.WithRendererOptions(
			gmhtml.WithXHTML(),
		),
	)
	return &Loader{md: md}
}

// Load parses data as the page at path. The format follows the extension.
func (l *Loader) Load(path string, data []byte, modTime time.Time) (*dom.Document, models.Page, error) {
	meta := models.Page{
		Path:      path,
		Format:    storage.FormatOf(path),
		Checksum:  storage.Checksum(data),
		UpdatedAt: modTime,
	}
	switch meta.Format {
	case storage.FormatHTML:
		doc, err := dom.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, meta, fmt.Errorf("page: %s: %w", path, err)
		}
		meta.Lang = doc.Lang()
		meta.Title = doc.Title()
		return doc, meta, nil

	case storage.FormatMarkdown:
		src, err := l.Markdown(data)
		if err != nil {
			return nil, meta, fmt.Errorf("page: %s: %w", path, err)
		}
		doc, err := dom.ParseString(src.HTML)
		if err != nil {
			return nil, meta, fmt.Errorf("page: %s: %w", path, err)
		}
		meta.Lang = src.Lang
		meta.Title = src.Title
		meta.Frontmatter = src.Frontmatter
		return doc, meta, nil

	default:
		return nil, meta, fmt.Errorf("page: %s: %w", path, apperr.ErrUnsupported)
	}
}

// Rendered is a Markdown page rendered to a full HTML document.
type Rendered struct {
	HTML        string
	Title       string
	Lang        string
	Frontmatter map[string]any
}

// Markdown renders a Markdown page, carrying the frontmatter language into
// the lang attribute of the <html> element.
func (l *Loader) Markdown(data []byte) (Rendered, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return Rendered{}, err
	}
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(res.Body), &buf); err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	langAttr := ""
	if res.Lang != "" {
		langAttr = fmt.Sprintf(` lang="%s"`, html.EscapeString(res.Lang))
	}
	return Rendered{
		HTML:        fmt.Sprintf(documentTemplate, langAttr, html.EscapeString(res.Title), buf.String()),
		Title:       res.Title,
		Lang:        res.Lang,
		Frontmatter: res.Frontmatter,
	}, nil
}

// Fragment renders a Markdown or HTML snippet as an HTML fragment for
// insertion into a live document body.
func (l *Loader) Fragment(format string, data []byte) (string, error) {
	if format != storage.FormatMarkdown {
		return string(data), nil
	}
	var buf bytes.Buffer
	if err := l.md.Convert(data, &buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return buf.String(), nil
}
