// Package pagination parses and clamps page/limit query parameters so list
// endpoints share one set of bounds.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Pages reports how many pages a result set of the given size spans.
func (p Params) Pages(total int64) int {
	if total <= 0 {
		return 0
	}
	pages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		pages++
	}
	return pages
}

// Parse reads page and limit from the query string. Out-of-range values are
// clamped rather than rejected.
func Parse(c *gin.Context) Params {
	page := atoiOr(c.Query("page"), DefaultPage)
	limit := atoiOr(c.Query("limit"), DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func atoiOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
