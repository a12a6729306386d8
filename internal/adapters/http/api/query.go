package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/standings/internal/domain/filter"
	"github.com/okian/standings/internal/domain/leaderboard"
	"github.com/okian/standings/internal/domain/metric"
	"github.com/okian/standings/internal/domain/model"
)

// Query parameter names shared by the read routes.
const (
	paramCategory   = "category"
	paramScope      = "scope"
	paramViewer     = "viewer"
	paramFriends    = "friends"
	paramSearch     = "q"
	paramKind       = "kind"
	paramActiveFrom = "active_from"
	paramActiveTo   = "active_to"
	paramPage       = "page"
	paramPageSize   = "page_size"
	paramRadius     = "radius"

	attrPrefix = "attr."
)

// PageSizer reports the default and maximum page sizes.
type PageSizer interface {
	PageSizes() (def, maxSize int)
}

// parseQuery builds a leaderboard query from the request's query string.
// A missing category means overallScore and a missing scope means global.
// page_size above the maximum is rejected rather than clamped.
func parseQuery(r *http.Request, sizes PageSizer) (leaderboard.Query, error) {
	v := r.URL.Query()
	def, maxSize := sizes.PageSizes()

	q := leaderboard.Query{
		Category:   model.CategoryOverallScore,
		SearchText: v.Get(paramSearch),
		Page:       1,
		PageSize:   def,
	}
	if c := strings.TrimSpace(v.Get(paramCategory)); c != "" {
		q.Category = metric.ParseCategory(c)
	}

	scope, err := filter.ParseScope(v.Get(paramScope), v.Get(paramViewer), splitIDs(v[paramFriends]))
	if err != nil {
		return leaderboard.Query{}, err
	}
	q.Scope = scope

	if raw := v.Get(paramKind); raw != "" {
		kind, err := model.ParseKind(raw)
		if err != nil {
			return leaderboard.Query{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		q.Kind = kind
	}
	q.Attributes = attributes(v)

	if q.ActiveFrom, err = timeParam(v, paramActiveFrom); err != nil {
		return leaderboard.Query{}, err
	}
	if q.ActiveTo, err = timeParam(v, paramActiveTo); err != nil {
		return leaderboard.Query{}, err
	}

	if q.Page, err = intParam(v, paramPage, 1); err != nil {
		return leaderboard.Query{}, err
	}
	if q.PageSize, err = intParam(v, paramPageSize, def); err != nil {
		return leaderboard.Query{}, err
	}
	if q.PageSize > maxSize {
		return leaderboard.Query{}, fmt.Errorf("%w: page_size %d exceeds %d", leaderboard.ErrInvalidPagination, q.PageSize, maxSize)
	}
	return q, nil
}

// splitIDs accepts both friends=a,b and friends=a&friends=b.
func splitIDs(values []string) []string {
	var out []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// attributes collects attr.<name>=<value> pairs.
func attributes(v url.Values) map[string]string {
	var out map[string]string
	for key, vals := range v {
		name, ok := strings.CutPrefix(key, attrPrefix)
		if !ok || len(vals) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = vals[0]
	}
	return out
}

func intParam(v url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

func timeParam(v url.Values, name string) (time.Time, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", ErrBadRequest, name)
	}
	return t, nil
}
