package api

import (
	"github.com/starford/whatday/internal/models"
	"github.com/starford/whatday/internal/store"
	"github.com/starford/whatday/internal/workspace"
)

// PutPageRequest is the request body for replacing a page.
type PutPageRequest struct {
	Content string `json:"content" example:"<p>Due January 15, 2024</p>" validate:"required"`
}

// MutationRequest is the request body for appending a fragment to a live page.
type MutationRequest struct {
	Format  string `json:"format" example:"markdown" enums:"html,markdown"`
	Content string `json:"content" example:"Moved to **tomorrow**" validate:"required"`
}

// PageDetail is the highlighted page response type (aliased from the domain layer).
type PageDetail = workspace.PageDetail

// PageListItem is a lightweight item in a list response.
type PageListItem = store.PageRow

// PageListResponse wraps paginated page listings.
type PageListResponse struct {
	Pages []PageListItem `json:"pages" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// BadgeListResponse wraps every known badge.
type BadgeListResponse struct {
	Badges []models.Badge `json:"badges" validate:"required"`
}

// RemoveResponse reports how many markers a removal undid.
type RemoveResponse struct {
	Removed int `json:"removed" example:"3" validate:"required"`
}

// ScanListResponse wraps the scan history of a page.
type ScanListResponse struct {
	Scans []store.ScanRecord `json:"scans" validate:"required"`
}
