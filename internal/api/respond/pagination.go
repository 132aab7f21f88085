// pagination.go parses the page/limit query parameters shared by all listing endpoints.
package respond

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultPageSize is used when the limit parameter is absent or invalid
	DefaultPageSize = 10
	// MaxPageSize caps the limit parameter
	MaxPageSize = 100
)

// ParsePagination reads ?page= and ?limit= with clamped defaults and returns
// the page, the page size, and the matching SQL offset.
func ParsePagination(c *gin.Context) (page, limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageSize)))
	if err != nil || limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	return page, limit, (page - 1) * limit
}
