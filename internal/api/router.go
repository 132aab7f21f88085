// Package api wires the HTTP surface of the travel journal: the Gin router,
// the middleware chain, and the per-domain handler packages beneath it. The
// shared response envelope lives in the respond subpackage.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	adminapi "github.com/travelog/travelog/internal/api/admin"
	authapi "github.com/travelog/travelog/internal/api/auth"
	countriesapi "github.com/travelog/travelog/internal/api/countries"
	followapi "github.com/travelog/travelog/internal/api/follow"
	keysapi "github.com/travelog/travelog/internal/api/keys"
	postsapi "github.com/travelog/travelog/internal/api/posts"
	usersapi "github.com/travelog/travelog/internal/api/users"

	"github.com/travelog/travelog/internal/config"
	"github.com/travelog/travelog/internal/countries"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/middleware"
)

// BackgroundServices holds resources with goroutines that must be stopped
// during graceful shutdown. The caller (cmd/server) calls Shutdown after the
// HTTP server has drained in-flight requests.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. rdb may be nil, in which
// case the country cache is skipped and rate limiting falls back to the
// in-process token bucket.
func NewRouter(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	// Wrap *sql.DB with sqlx for the follow and usage repositories
	sqlxDB := sqlx.NewDb(db, "postgres")
	usageRepo := repositories.NewUsageRepository(sqlxDB)

	// Country lookup service: HTTP client to the upstream API, optionally
	// wrapped in the Redis TTL cache
	var countrySvc countries.Service = countries.NewClient(cfg.Countries.BaseURL, cfg.Countries.Timeout)
	if cfg.Countries.Cache.Enabled && rdb != nil {
		countrySvc = countries.NewCachedService(countrySvc, rdb, cfg.Countries.Cache.TTL)
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/version", versionHandler())

	bg := &BackgroundServices{}

	// Rate limiting: the Redis-backed GCRA limiter when Redis is configured,
	// otherwise a per-process token bucket. Auth routes get stricter limits.
	var generalLimit, authLimit gin.HandlerFunc
	if cfg.Security.RateLimiting.Enabled {
		rlCfg := cfg.Security.RateLimiting
		if rdb != nil {
			limiter := middleware.NewRedisRateLimiter(rdb)
			generalLimit = middleware.RedisRateLimitMiddleware(limiter, rlCfg.RequestsPerMinute, rlCfg.Burst)
			authLimit = middleware.RedisRateLimitMiddleware(limiter, rlCfg.AuthRequestsPerMinute, rlCfg.AuthBurst)
		} else {
			generalCfg := middleware.DefaultRateLimitConfig()
			generalCfg.RequestsPerMinute = rlCfg.RequestsPerMinute
			generalCfg.BurstSize = rlCfg.Burst
			authCfg := middleware.AuthRateLimitConfig()
			authCfg.RequestsPerMinute = rlCfg.AuthRequestsPerMinute
			authCfg.BurstSize = rlCfg.AuthBurst

			generalLimiter := middleware.NewRateLimiter(generalCfg)
			authLimiter := middleware.NewRateLimiter(authCfg)
			bg.rateLimiters = []*middleware.RateLimiter{generalLimiter, authLimiter}
			generalLimit = middleware.RateLimitMiddleware(generalLimiter)
			authLimit = middleware.RateLimitMiddleware(authLimiter)
		}
	} else {
		passthrough := func(c *gin.Context) { c.Next() }
		generalLimit, authLimit = passthrough, passthrough
	}

	jwtAuth := middleware.JWTAuthMiddleware(userRepo)

	apiGroup := router.Group("/api")
	apiGroup.Use(generalLimit)
	{
		// Public authentication endpoints, behind the stricter auth limiter
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(authLimit)
		{
			authGroup.POST("/register", authapi.RegisterHandler(db, cfg))
			authGroup.POST("/login", authapi.LoginHandler(db, cfg))
			authGroup.GET("/validate", jwtAuth, authapi.ValidateHandler(cfg))
		}

		// API key self-service (JWT)
		keysGroup := apiGroup.Group("/keys")
		keysGroup.Use(jwtAuth)
		{
			keysGroup.GET("", keysapi.ListHandler(db))
			keysGroup.POST("/generate", keysapi.GenerateHandler(db))
			keysGroup.DELETE("/:id", keysapi.RevokeHandler(db))
			keysGroup.GET("/:id/usage", keysapi.UsageHandler(sqlxDB))
		}

		// Country lookups are gated by API key, not JWT
		countriesGroup := apiGroup.Group("/countries")
		countriesGroup.Use(middleware.APIKeyMiddleware(apiKeyRepo, usageRepo))
		{
			countriesGroup.GET("", countriesapi.ListHandler(countrySvc))
			countriesGroup.GET("/name/:name", countriesapi.ByNameHandler(countrySvc))
			countriesGroup.GET("/region/:region", countriesapi.ByRegionHandler(countrySvc))
		}

		// Blog posts: reads are public, mutations require JWT
		postsGroup := apiGroup.Group("/posts")
		{
			postsGroup.GET("", postsapi.ListHandler(db, countrySvc))
			postsGroup.GET("/search/country", postsapi.SearchByCountryHandler(db, countrySvc))
			postsGroup.GET("/search/username", postsapi.SearchByUsernameHandler(db, countrySvc))
			postsGroup.GET("/:id", postsapi.GetHandler(db, countrySvc))

			postsGroup.POST("", jwtAuth, postsapi.CreateHandler(db, countrySvc))
			postsGroup.PUT("/:id", jwtAuth, postsapi.UpdateHandler(db, countrySvc))
			postsGroup.DELETE("/:id", jwtAuth, postsapi.DeleteHandler(db))
		}

		// Social graph (JWT)
		followGroup := apiGroup.Group("/follow")
		followGroup.Use(jwtAuth)
		{
			followGroup.POST("/follow", followapi.FollowHandler(db, sqlxDB))
			followGroup.POST("/unfollow", followapi.UnfollowHandler(db, sqlxDB))
			followGroup.GET("/followers/:userId", followapi.FollowersHandler(sqlxDB))
			followGroup.GET("/following/:userId", followapi.FollowingHandler(sqlxDB))
			followGroup.GET("/feed/:userId", followapi.FeedHandler(db, countrySvc))
		}

		// User profiles and suggestions (JWT)
		usersGroup := apiGroup.Group("/users")
		usersGroup.Use(jwtAuth)
		{
			usersGroup.GET("/suggested", usersapi.SuggestedHandler(db))
			usersGroup.GET("/:userId", usersapi.ProfileHandler(db))
		}

		// Admin endpoints (JWT + admin role)
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(jwtAuth, middleware.RequireAdmin())
		{
			adminGroup.GET("/users", adminapi.ListUsersHandler(db))
			adminGroup.PATCH("/users/:id/status", adminapi.UpdateStatusHandler(db))
			adminGroup.PATCH("/users/:id/role", adminapi.UpdateRoleHandler(db))
			adminGroup.GET("/stats", adminapi.StatsHandler(db))
		}
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware logs each request as a structured slog record. The output
// format (text or JSON) follows the handler installed by telemetry.SetupLogger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS for the browser frontend. Authentication uses
// bearer tokens rather than cookies, so reflecting any origin is safe here.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, x-api-key")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
