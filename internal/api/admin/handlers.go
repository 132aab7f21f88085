// Package admin implements the administrative endpoints: user listing,
// activating and deactivating accounts, role changes, and system-wide
// statistics. All routes require an authenticated admin.
package admin

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/db/repositories"
)

// @Summary      List users
// @Tags         Admin
// @Produce      json
// @Param        page   query  int  false  "Page (default 1)"
// @Param        limit  query  int  false  "Page size (default 10, max 100)"
// @Success      200  {object}  map[string]interface{}  "data: [users], pagination"
// @Security     BearerAuth
// @Router       /api/admin/users [get]
// ListUsersHandler handles GET /api/admin/users
func ListUsersHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		page, limit, offset := respond.ParsePagination(c)

		found, err := userRepo.ListUsers(c.Request.Context(), limit, offset)
		if err != nil {
			respond.Internal(c, "Failed to list users")
			return
		}
		total, err := userRepo.CountUsers(c.Request.Context())
		if err != nil {
			respond.Internal(c, "Failed to count users")
			return
		}

		views := make([]gin.H, 0, len(found))
		for _, u := range found {
			views = append(views, gin.H{
				"id":         u.ID,
				"username":   u.Username,
				"email":      u.Email,
				"role":       u.Role,
				"is_active":  u.IsActive,
				"created_at": u.CreatedAt,
				"last_login": u.LastLogin,
			})
		}
		respond.OKPaginated(c, "Users retrieved", views, respond.NewPagination(page, limit, total))
	}
}

type statusRequest struct {
	IsActive *bool `json:"is_active"`
}

// @Summary      Activate or deactivate a user
// @Description  Deactivated users fail authentication on their next request.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "User ID"
// @Param        body  body  statusRequest  true  "New status"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Security     BearerAuth
// @Router       /api/admin/users/{id}/status [patch]
// UpdateStatusHandler handles PATCH /api/admin/users/:id/status
func UpdateStatusHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "is_active is required")
			return
		}

		updated, err := userRepo.UpdateStatus(c.Request.Context(), c.Param("id"), *req.IsActive)
		if err != nil {
			respond.Internal(c, "Failed to update user status")
			return
		}
		if !updated {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No user with that id")
			return
		}

		message := "User deactivated"
		if *req.IsActive {
			message = "User activated"
		}
		respond.OK(c, http.StatusOK, message, gin.H{"id": c.Param("id"), "is_active": *req.IsActive})
	}
}

type roleRequest struct {
	Role string `json:"role"`
}

// @Summary      Change a user's role
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "User ID"
// @Param        body  body  roleRequest  true  "New role (user or admin)"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Security     BearerAuth
// @Router       /api/admin/users/{id}/role [patch]
// UpdateRoleHandler handles PATCH /api/admin/users/:id/role
func UpdateRoleHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		var req roleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "Invalid request body")
			return
		}
		if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "role must be user or admin")
			return
		}

		updated, err := userRepo.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
		if err != nil {
			respond.Internal(c, "Failed to update user role")
			return
		}
		if !updated {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No user with that id")
			return
		}

		respond.OK(c, http.StatusOK, "User role updated", gin.H{"id": c.Param("id"), "role": req.Role})
	}
}

// @Summary      System statistics
// @Description  Counts of users, posts, follow edges, and API key activity.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: stats"
// @Security     BearerAuth
// @Router       /api/admin/stats [get]
// StatsHandler handles GET /api/admin/stats
func StatsHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		stats, err := userRepo.GetSystemStats(c.Request.Context())
		if err != nil {
			respond.Internal(c, "Failed to load statistics")
			return
		}
		respond.OK(c, http.StatusOK, "Statistics retrieved", stats)
	}
}
