package leaderboard

import (
	"errors"

	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/metric"
	"github.com/okian/standings/internal/domain/paging"
)

// Errors callers can match with errors.Is. The first four are shared with
// the component packages so a single import is enough.
var (
	ErrUnknownCategory      = metric.ErrUnknownCategory
	ErrMissingMetric        = metric.ErrMissingMetric
	ErrUnsupportedDimension = filter.ErrUnsupportedDimension
	ErrInvalidPagination    = paging.ErrInvalidPagination

	ErrInvalidQuery = errors.New("invalid query")
	ErrNotRanked    = errors.New("entity not ranked in this view")
)
