// Package respond holds the response envelope shared by every endpoint:
//
//	{"success": true,  "message": "...", "data": ..., "pagination": {...}}
//	{"success": false, "error": "<Kind>", "message": "..."}
//
// Error kinds are stable strings clients can switch on; messages are for humans
// and may change between releases.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// Error kinds returned in the envelope's error field
const (
	KindValidation     = "ValidationError"
	KindDuplicate      = "DuplicateResource"
	KindAuthFailed     = "AuthenticationFailed"
	KindInvalidToken   = "InvalidToken"
	KindLocked         = "AccountLocked"
	KindInactive       = "AccountInactive"
	KindUnauthorized   = "Unauthorized"
	KindNotFound       = "NotFound"
	KindAlreadyFollows = "AlreadyFollowing"
	KindNotFollowing   = "NotFollowing"
	KindSelfFollow     = "SelfFollow"
	KindInvalidCountry = "InvalidCountry"
	KindUpstream       = "UpstreamUnavailable"
	KindRateLimited    = "RateLimited"
	KindInternal       = "InternalError"
)

// Pagination is the page descriptor attached to list responses
type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

// NewPagination computes the page descriptor for a list response
func NewPagination(page, perPage, totalItems int) Pagination {
	totalPages := 0
	if totalItems > 0 {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: perPage,
	}
}

// OK writes a success envelope
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// OKPaginated writes a success envelope with a pagination block
func OKPaginated(c *gin.Context, message string, data any, pagination Pagination) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"data":       data,
		"pagination": pagination,
	})
}

// Fail writes an error envelope
func Fail(c *gin.Context, status int, kind, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   kind,
		"message": message,
	})
}

// Internal writes the generic 500 envelope
func Internal(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, KindInternal, message)
}

// IsUniqueViolation reports whether err is a Postgres unique_violation, i.e.
// the constraint arbitrated a concurrent duplicate insert.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
