package helpers

import (
	"net/http"
	"strconv"

	"ticketinventory/internal/domain"
)

// DefaultPage is the page served when the query omits or mangles page.
const DefaultPage = 1

// PageLimits bounds the page_size a listing endpoint accepts.
type PageLimits struct {
	Default int
	Max     int
}

// Per-listing page size limits. Reservation pages are smaller: every row is a
// ledger entry and admins list them across all users.
var (
	EventPageLimits       = PageLimits{Default: 20, Max: 100}
	ReservationPageLimits = PageLimits{Default: 20, Max: 50}
)

// ParsePagination reads page and page_size from the query string. Missing or
// non-positive values fall back to the defaults; page_size is capped at limits.Max.
func ParsePagination(r *http.Request, limits PageLimits) domain.PaginationParams {
	q := r.URL.Query()
	params := domain.PaginationParams{Page: DefaultPage, PageSize: limits.Default}
	if v, ok := positiveInt(q.Get("page")); ok {
		params.Page = v
	}
	if v, ok := positiveInt(q.Get("page_size")); ok {
		params.PageSize = min(v, limits.Max)
	}
	return params
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// PaginationMeta is the pagination block shared by the event and reservation listings.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// NewPaginationMeta describes the page params served out of total matching rows.
func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	meta := PaginationMeta{
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    total,
	}
	if params.PageSize > 0 {
		meta.TotalPages = (total + params.PageSize - 1) / params.PageSize
	}
	meta.HasNext = params.Page < meta.TotalPages
	return meta
}
