// Package follow implements the social graph endpoints: follow and unfollow
// another user, list a user's followers and followings, and serve a paginated
// feed of posts from followed authors.
package follow

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/countries"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/middleware"
)

type edgeRequest struct {
	FollowingID string `json:"followingId"`
}

// checkTarget validates the edge target: self-edges are rejected and the
// target must exist. Returns false after writing the error response.
func checkTarget(c *gin.Context, userRepo *repositories.UserRepository, callerID, targetID string) bool {
	if targetID == "" {
		respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "followingId is required")
		return false
	}
	if targetID == callerID {
		respond.Fail(c, http.StatusBadRequest, respond.KindSelfFollow, "You cannot follow yourself")
		return false
	}
	target, err := userRepo.GetUserByID(c.Request.Context(), targetID)
	if err != nil {
		respond.Internal(c, "Failed to load user")
		return false
	}
	if target == nil {
		respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No user with that id")
		return false
	}
	return true
}

// @Summary      Follow a user
// @Tags         Follow
// @Accept       json
// @Produce      json
// @Param        body  body  edgeRequest  true  "Target user"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}  "SelfFollow"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Failure      409  {object}  map[string]interface{}  "AlreadyFollowing"
// @Router       /api/follow/follow [post]
// FollowHandler handles POST /api/follow/follow
func FollowHandler(db *sql.DB, sqlxDB *sqlx.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)
	followRepo := repositories.NewFollowRepository(sqlxDB)

	return func(c *gin.Context) {
		var req edgeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "Invalid request body")
			return
		}
		callerID := c.GetString(middleware.UserIDKey)
		if !checkTarget(c, userRepo, callerID, req.FollowingID) {
			return
		}

		already, err := followRepo.IsFollowing(c.Request.Context(), callerID, req.FollowingID)
		if err != nil {
			respond.Internal(c, "Failed to follow user")
			return
		}
		if already {
			respond.Fail(c, http.StatusConflict, respond.KindAlreadyFollows, "You are already following this user")
			return
		}

		err = followRepo.Follow(c.Request.Context(), callerID, req.FollowingID)
		if respond.IsUniqueViolation(err) {
			// The unique edge constraint still arbitrates follows racing past
			// the pre-check.
			respond.Fail(c, http.StatusConflict, respond.KindAlreadyFollows, "You are already following this user")
			return
		}
		if err != nil {
			respond.Internal(c, "Failed to follow user")
			return
		}

		respond.OK(c, http.StatusCreated, "Now following user", gin.H{"followingId": req.FollowingID})
	}
}

// @Summary      Unfollow a user
// @Description  Removes the follow edge and returns the target's updated follower count.
// @Tags         Follow
// @Accept       json
// @Produce      json
// @Param        body  body  edgeRequest  true  "Target user"
// @Success      200  {object}  map[string]interface{}  "data: followerCount"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Failure      409  {object}  map[string]interface{}  "NotFollowing"
// @Router       /api/follow/unfollow [post]
// UnfollowHandler handles POST /api/follow/unfollow
func UnfollowHandler(db *sql.DB, sqlxDB *sqlx.DB) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)
	followRepo := repositories.NewFollowRepository(sqlxDB)

	return func(c *gin.Context) {
		var req edgeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "Invalid request body")
			return
		}
		callerID := c.GetString(middleware.UserIDKey)
		if !checkTarget(c, userRepo, callerID, req.FollowingID) {
			return
		}

		removed, err := followRepo.Unfollow(c.Request.Context(), callerID, req.FollowingID)
		if err != nil {
			respond.Internal(c, "Failed to unfollow user")
			return
		}
		if !removed {
			respond.Fail(c, http.StatusConflict, respond.KindNotFollowing, "You are not following this user")
			return
		}

		count, err := followRepo.CountFollowers(c.Request.Context(), req.FollowingID)
		if err != nil {
			respond.Internal(c, "Failed to count followers")
			return
		}

		respond.OK(c, http.StatusOK, "Unfollowed user", gin.H{
			"followingId":   req.FollowingID,
			"followerCount": count,
		})
	}
}

// @Summary      List followers
// @Tags         Follow
// @Produce      json
// @Param        userId  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "data: [users]"
// @Router       /api/follow/followers/{userId} [get]
// FollowersHandler handles GET /api/follow/followers/:userId
func FollowersHandler(sqlxDB *sqlx.DB) gin.HandlerFunc {
	followRepo := repositories.NewFollowRepository(sqlxDB)

	return func(c *gin.Context) {
		found, err := followRepo.ListFollowers(c.Request.Context(), c.Param("userId"))
		if err != nil {
			respond.Internal(c, "Failed to list followers")
			return
		}
		respond.OK(c, http.StatusOK, "Followers retrieved", found)
	}
}

// @Summary      List followed users
// @Tags         Follow
// @Produce      json
// @Param        userId  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "data: [users]"
// @Router       /api/follow/following/{userId} [get]
// FollowingHandler handles GET /api/follow/following/:userId
func FollowingHandler(sqlxDB *sqlx.DB) gin.HandlerFunc {
	followRepo := repositories.NewFollowRepository(sqlxDB)

	return func(c *gin.Context) {
		found, err := followRepo.ListFollowing(c.Request.Context(), c.Param("userId"))
		if err != nil {
			respond.Internal(c, "Failed to list followed users")
			return
		}
		respond.OK(c, http.StatusOK, "Followed users retrieved", found)
	}
}

// @Summary      Feed
// @Description  Paginated posts from the users a given user follows, newest first. An empty feed is a normal response.
// @Tags         Follow
// @Produce      json
// @Param        userId  path   string  true   "User ID"
// @Param        page    query  int     false  "Page (default 1)"
// @Param        limit   query  int     false  "Page size (default 10, max 100)"
// @Success      200  {object}  map[string]interface{}  "data: [posts], pagination"
// @Router       /api/follow/feed/{userId} [get]
// FeedHandler handles GET /api/follow/feed/:userId
func FeedHandler(db *sql.DB, svc countries.Service) gin.HandlerFunc {
	postRepo := repositories.NewPostRepository(db)

	return func(c *gin.Context) {
		userID := c.Param("userId")
		page, limit, offset := respond.ParsePagination(c)

		found, err := postRepo.GetFeed(c.Request.Context(), userID, limit, offset)
		if err != nil {
			respond.Internal(c, "Failed to load feed")
			return
		}
		total, err := postRepo.CountFeed(c.Request.Context(), userID)
		if err != nil {
			respond.Internal(c, "Failed to count feed")
			return
		}

		enriched := make([]models.EnrichedPost, 0, len(found))
		for _, p := range found {
			enriched = append(enriched, models.EnrichedPost{
				BlogPost: *p,
				Country:  countries.Enrich(c.Request.Context(), svc, p.CountryName),
			})
		}

		message := "Feed retrieved"
		if len(enriched) == 0 {
			message = "No posts in feed yet"
		}
		respond.OKPaginated(c, message, enriched, respond.NewPagination(page, limit, total))
	}
}
