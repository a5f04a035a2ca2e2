package model

import "errors"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest is the client-facing page selector. Violating the bounds is a
// validation failure before any store access.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Validate() error {
	if p.Page < 1 {
		return errors.New("page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return errors.New("page size must be between 1 and 100")
	}
	return nil
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Pagination is the metadata attached to every paginated listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPagination(req PageRequest, total int64) Pagination {
	pages := int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	return Pagination{
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: pages,
		HasNext:    req.Page < pages,
		HasPrev:    req.Page > 1,
	}
}
