package metric

import (
	"errors"

	"github.com/okian/standings/internal/domain/model"
)

// Sentinel kinds for metric resolution errors.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrMissingMetric   = model.ErrMissingMetric
	ErrInvalidMetric   = model.ErrInvalidMetric
)
