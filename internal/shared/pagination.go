package shared

import (
	"math"
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// ListParams carries paging, search and sort options parsed from a query string.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
}

// ParseListParams reads page, per_page, search, sort and dir.
func ParseListParams(q url.Values) ListParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	dir := "asc"
	if q.Get("dir") == "desc" {
		dir = "desc"
	}
	return ListParams{
		Page:    page,
		PerPage: perPage,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: dir,
	}
}

// Offset returns the row offset for the current page.
func (p ListParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}
