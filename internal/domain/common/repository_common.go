// internal/domain/common/repository_common.go
package common

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Page is an offset paging request.
type Page struct {
	Number  int // 1-based
	PerPage int // <= 0 means implementation default
}

// PageResult is one page of items.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
}

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// NormalizePage clamps number/perPage into a usable range.
func NormalizePage(p Page) Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// ComputeTotalPages returns ceil(total/perPage) with a floor of 0.
func ComputeTotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Paginate slices an already ordered list into a page.
func Paginate[T any](items []T, p Page) PageResult[T] {
	p = NormalizePage(p)
	total := len(items)

	start := (p.Number - 1) * p.PerPage
	if start > total {
		start = total
	}
	end := start + p.PerPage
	if end > total {
		end = total
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	return PageResult[T]{
		Items:      out,
		TotalCount: total,
		TotalPages: ComputeTotalPages(total, p.PerPage),
		Page:       p.Number,
		PerPage:    p.PerPage,
	}
}
