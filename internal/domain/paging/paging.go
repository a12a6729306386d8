// Package paging slices an ordered sequence into 1-indexed pages.
package paging

import "fmt"

// Page is one window over an ordered sequence.
type Page[T any] struct {
	Items      []T
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Paginate returns page `page` of size pageSize over seq. A page past the
// end yields empty Items with accurate totals. Items never aliases seq.
func Paginate[T any](seq []T, page, pageSize int) (Page[T], error) {
	if page < 1 {
		return Page[T]{}, fmt.Errorf("%w: page %d must be >= 1", ErrInvalidPagination, page)
	}
	if pageSize < 1 {
		return Page[T]{}, fmt.Errorf("%w: page size %d must be >= 1", ErrInvalidPagination, pageSize)
	}

	total := len(seq)
	out := Page[T]{
		Items:      []T{},
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
		Page:       page,
		PageSize:   pageSize,
	}

	// page-1 may overflow for absurd page numbers; compare before multiplying.
	if page-1 >= out.TotalPages {
		return out, nil
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	out.Items = append(out.Items, seq[start:end]...)
	return out, nil
}
