// auth.go provides Gin middleware for request authentication.
//
// Two schemes are supported, on separate route groups:
//
//   - JWT bearer tokens (Authorization: Bearer ...) for the journal, follow,
//     key-management, and admin endpoints. The user row is re-read on every
//     request so deactivation takes effect immediately, not at token expiry.
//   - API keys (x-api-key header) for the country lookup endpoints. Key usage
//     is recorded asynchronously so the lookup latency never includes the
//     bookkeeping writes.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Recovery → RequestID → Metrics → Security → RateLimit → Auth → Handler
//
// Security headers run before auth so they appear on all responses including
// errors, and rate limiting runs before auth to block brute force attempts
// before any DB work.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/auth"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/safego"
)

// Context keys set by the authentication middleware
const (
	UserKey     = "user"
	UserIDKey   = "user_id"
	APIKeyIDKey = "api_key_id"
)

// APIKeyHeader is the header carrying the key for the country endpoints
const APIKeyHeader = "x-api-key"

func abortUnauthorized(c *gin.Context, kind, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   kind,
		"message": message,
	})
}

// JWTAuthMiddleware validates the bearer token and loads the current user into
// the request context.
func JWTAuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, "Unauthorized", "Missing or malformed authorization header")
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			abortUnauthorized(c, "InvalidToken", "Invalid or expired token")
			return
		}

		// Re-read the user so deactivation and role changes apply immediately
		// instead of waiting out the token lifetime.
		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "InternalError",
				"message": "Failed to load user",
			})
			return
		}

		if user == nil {
			abortUnauthorized(c, "InvalidToken", "User no longer exists")
			return
		}

		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "AccountInactive",
				"message": "Account has been deactivated",
			})
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)

		c.Next()
	}
}

// RequireAdmin rejects requests whose authenticated user does not hold the
// admin role. Must run after JWTAuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "Unauthorized",
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by JWTAuthMiddleware, or nil
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// APIKeyMiddleware authenticates requests by the x-api-key header and records
// usage in the background.
func APIKeyMiddleware(apiKeyRepo *repositories.APIKeyRepository, usageRepo *repositories.UsageRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyValue := c.GetHeader(APIKeyHeader)
		if keyValue == "" {
			abortUnauthorized(c, "Unauthorized", "Missing x-api-key header")
			return
		}

		apiKey, err := apiKeyRepo.FindActiveByValue(c.Request.Context(), keyValue)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "InternalError",
				"message": "Authentication failed",
			})
			return
		}

		if apiKey == nil {
			abortUnauthorized(c, "Unauthorized", "Invalid or revoked API key")
			return
		}

		c.Set(APIKeyIDKey, apiKey.ID)

		// Stamp last_used and log the request off the hot path. The request
		// context is already done by the time these run, so use a fresh one.
		keyID := apiKey.ID
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiKeyRepo.UpdateLastUsed(ctx, keyID); err != nil {
				slog.Warn("failed to update api key last_used", "key_id", keyID, "error", err)
			}
			if err := usageRepo.RecordUsage(ctx, keyID, endpoint); err != nil {
				slog.Warn("failed to record api key usage", "key_id", keyID, "error", err)
			}
		})

		c.Next()
	}
}
