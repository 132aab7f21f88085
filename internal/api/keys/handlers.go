// Package keys implements the API key management endpoints: generation, listing
// with usage counts, soft revocation, and per-endpoint usage statistics. All
// endpoints run behind the JWT middleware; keys are scoped to the caller.
package keys

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/auth"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/middleware"
)

// @Summary      Generate API key
// @Description  Creates a new API key for the authenticated user.
// @Tags         Keys
// @Produce      json
// @Success      201  {object}  map[string]interface{}  "data: the new key"
// @Router       /api/keys/generate [post]
// GenerateHandler handles POST /api/keys/generate
func GenerateHandler(db *sql.DB) gin.HandlerFunc {
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	return func(c *gin.Context) {
		userID := c.GetString(middleware.UserIDKey)

		keyValue, err := auth.GenerateAPIKey()
		if err != nil {
			respond.Internal(c, "Failed to generate API key")
			return
		}

		apiKey := &models.APIKey{UserID: userID, KeyValue: keyValue}
		if err := apiKeyRepo.CreateAPIKey(c.Request.Context(), apiKey); err != nil {
			respond.Internal(c, "Failed to store API key")
			return
		}

		respond.OK(c, http.StatusCreated, "API key created", apiKey)
	}
}

// @Summary      List API keys
// @Description  Lists the caller's API keys, newest first, with per-key usage counts.
// @Tags         Keys
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: [keys]"
// @Router       /api/keys [get]
// ListHandler handles GET /api/keys
func ListHandler(db *sql.DB) gin.HandlerFunc {
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	return func(c *gin.Context) {
		userID := c.GetString(middleware.UserIDKey)

		keys, err := apiKeyRepo.ListAPIKeysByUser(c.Request.Context(), userID)
		if err != nil {
			respond.Internal(c, "Failed to list API keys")
			return
		}

		respond.OK(c, http.StatusOK, "API keys retrieved", keys)
	}
}

// @Summary      Revoke API key
// @Description  Soft-revokes a key owned by the caller. The key row is kept for the usage audit trail.
// @Tags         Keys
// @Produce      json
// @Param        id  path  string  true  "Key ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Router       /api/keys/{id} [delete]
// RevokeHandler handles DELETE /api/keys/:id
func RevokeHandler(db *sql.DB) gin.HandlerFunc {
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	return func(c *gin.Context) {
		userID := c.GetString(middleware.UserIDKey)
		keyID := c.Param("id")

		revoked, err := apiKeyRepo.RevokeAPIKey(c.Request.Context(), keyID, userID)
		if err != nil {
			respond.Internal(c, "Failed to revoke API key")
			return
		}
		if !revoked {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No active API key with that id")
			return
		}

		respond.OK(c, http.StatusOK, "API key revoked", nil)
	}
}

// @Summary      API key usage
// @Description  Returns total and per-endpoint request counts for one of the caller's keys.
// @Tags         Keys
// @Produce      json
// @Param        id  path  string  true  "Key ID"
// @Success      200  {object}  map[string]interface{}  "data: {key_id, total_requests, endpoints}"
// @Failure      404  {object}  map[string]interface{}  "NotFound"
// @Router       /api/keys/{id}/usage [get]
// UsageHandler handles GET /api/keys/:id/usage
func UsageHandler(sqlxDB *sqlx.DB) gin.HandlerFunc {
	usageRepo := repositories.NewUsageRepository(sqlxDB)

	return func(c *gin.Context) {
		userID := c.GetString(middleware.UserIDKey)
		keyID := c.Param("id")

		stats, err := usageRepo.GetKeyStats(c.Request.Context(), keyID, userID)
		if err != nil {
			respond.Internal(c, "Failed to load key usage")
			return
		}
		if stats == nil {
			respond.Fail(c, http.StatusNotFound, respond.KindNotFound, "No API key with that id")
			return
		}

		respond.OK(c, http.StatusOK, "API key usage retrieved", stats)
	}
}
