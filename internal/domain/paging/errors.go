package paging

import "errors"

// ErrInvalidPagination is returned for a page or page size below 1.
var ErrInvalidPagination = errors.New("invalid pagination")
