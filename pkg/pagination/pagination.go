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

// Params is a 1-based page window
type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows before the page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Normalize replaces a non-positive page or limit with the default.
// The limit is not capped; internal callers such as exports page wider.
func Normalize(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return Params{Page: page, Limit: limit}
}

// Parse reads page and limit from the query string, capping limit at MaxLimit
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	p := Normalize(page, limit)
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}
