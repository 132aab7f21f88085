// Package users implements public user profile endpoints and follow
// suggestions.
package users

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/middleware"
)

const suggestedLimit = 5

// @Summary      Suggested users to follow
// @Description  Random sample of users the caller does not already follow.
// @Tags         Users
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: [users]"
// @Router       /api/users/suggested [get]
// SuggestedHandler handles GET /api/users/suggested
func SuggestedHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		found, err := userRepo.GetSuggestedUsers(c.Request.Context(), c.GetString(middleware.UserIDKey), suggestedLimit)
		if err != nil {
			respond.Internal(c, "Failed to load suggestions")
			return
		}
		respond.OK(c, http.StatusOK, "Suggested users retrieved", found)
	}
}

// @Summary      User profile
// @Description  Public profile with post, follower, and following counts.
// @Tags         Users
// @Produce      json
// @Param        userId  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "data: profile"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Router       /api/users/{userId} [get]
// ProfileHandler handles GET /api/users/:userId
func ProfileHandler(db *sql.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		profile, err := userRepo.GetProfile(c.Request.Context(), c.Param("userId"))
		if err != nil {
			respond.Internal(c, "Failed to load profile")
			return
		}
		if profile == nil {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No user with that id")
			return
		}
		respond.OK(c, http.StatusOK, "Profile retrieved", profile)
	}
}
