// Package models defines the domain types shared by the service layers.
package models

import "time"

// Page is one document served from the page directory.
type Page struct {
	Path        string         `json:"path"`
	Format      string         `json:"format"` // "html" or "markdown"
	Title       string         `json:"title,omitempty"`
	Lang        string         `json:"lang,omitempty"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PageMetadata is a lightweight representation returned by list operations.
type PageMetadata struct {
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Badge is the per-page match counter. Text is empty when Count is zero.
type Badge struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
	Text  string `json:"text"`
	Color string `json:"color,omitempty"`
}
