// Package auth implements the registration, login, and token validation endpoints.
//
// Login enforces a configurable lockout: after MaxAttempts consecutive failures
// the account is locked for Duration, and further attempts fail with
// AccountLocked even when the password is correct. Counters reset on success.
package auth

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/api/respond"
	"github.com/travelog/travelog/internal/auth"
	"github.com/travelog/travelog/internal/config"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/db/repositories"
	"github.com/travelog/travelog/internal/middleware"
	"github.com/travelog/travelog/internal/telemetry"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userView is the public user shape embedded in auth responses
func userView(u *models.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}
}

// @Summary      Register a new account
// @Description  Creates a user and issues the initial API key for the country endpoints.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  registerRequest  true  "Registration payload"
// @Success      201  {object}  map[string]interface{}  "data: {user, apiKey}"
// @Failure      400  {object}  map[string]interface{}  "ValidationError"
// @Failure      409  {object}  map[string]interface{}  "DuplicateResource"
// @Router       /api/auth/register [post]
// RegisterHandler handles POST /api/auth/register
func RegisterHandler(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)

	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "username, email, and password are required")
			return
		}

		if err := auth.ValidateUsername(req.Username); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, err.Error())
			return
		}
		if err := auth.ValidatePassword(req.Password); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, err.Error())
			return
		}

		// Pre-checks give friendly messages; the unique constraints still
		// arbitrate racing registrations (caught below as unique violations).
		if existing, err := userRepo.GetUserByUsername(c.Request.Context(), req.Username); err != nil {
			respond.Internal(c, "Failed to check username availability")
			return
		} else if existing != nil {
			respond.Fail(c, http.StatusConflict, respond.KindDuplicate, "Username is already taken")
			return
		}
		if existing, err := userRepo.GetUserByEmail(c.Request.Context(), req.Email); err != nil {
			respond.Internal(c, "Failed to check email availability")
			return
		} else if existing != nil {
			respond.Fail(c, http.StatusConflict, respond.KindDuplicate, "Email is already registered")
			return
		}

		hash, err := auth.HashPassword(req.Password, cfg.Auth.BcryptCost)
		if err != nil {
			respond.Internal(c, "Failed to hash password")
			return
		}

		user := &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
		}
		if err := userRepo.CreateUser(c.Request.Context(), user); err != nil {
			if respond.IsUniqueViolation(err) {
				respond.Fail(c, http.StatusConflict, respond.KindDuplicate, "Username or email is already registered")
				return
			}
			respond.Internal(c, "Failed to create user")
			return
		}

		// Every account starts with one API key so the country endpoints work
		// immediately after registration.
		keyValue, err := auth.GenerateAPIKey()
		if err != nil {
			respond.Internal(c, "Failed to generate API key")
			return
		}
		apiKey := &models.APIKey{UserID: user.ID, KeyValue: keyValue}
		if err := apiKeyRepo.CreateAPIKey(c.Request.Context(), apiKey); err != nil {
			respond.Internal(c, "Failed to create API key")
			return
		}

		respond.OK(c, http.StatusCreated, "Registration successful", gin.H{
			"user":   userView(user),
			"apiKey": keyValue,
		})
	}
}

// @Summary      Log in
// @Description  Verifies credentials and issues a bearer token. Repeated failures lock the account.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  loginRequest  true  "Login payload"
// @Success      200  {object}  map[string]interface{}  "data: {token, user}"
// @Failure      401  {object}  map[string]interface{}  "AuthenticationFailed or AccountLocked"
// @Router       /api/auth/login [post]
// LoginHandler handles POST /api/auth/login
func LoginHandler(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	userRepo := repositories.NewUserRepository(db)

	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Fail(c, http.StatusBadRequest, respond.KindValidation, "email and password are required")
			return
		}

		user, err := userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respond.Internal(c, "Failed to look up user")
			return
		}

		// A missing account and a wrong password produce the same response so
		// the endpoint cannot be used to probe for registered emails.
		if user == nil {
			telemetry.RecordLoginAttempt("bad_credentials")
			respond.Fail(c, http.StatusUnauthorized, respond.KindAuthFailed, "Invalid email or password")
			return
		}

		if !user.IsActive {
			telemetry.RecordLoginAttempt("inactive")
			respond.Fail(c, http.StatusUnauthorized, respond.KindAuthFailed, "Invalid email or password")
			return
		}

		now := time.Now()
		if cfg.Auth.Lockout.Enabled && user.IsLocked(now) {
			telemetry.RecordLoginAttempt("locked")
			respond.Fail(c, http.StatusUnauthorized, respond.KindLocked, "Account is temporarily locked, try again later")
			return
		}

		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			telemetry.RecordLoginAttempt("bad_credentials")

			var lockUntil *time.Time
			remaining := 0
			if cfg.Auth.Lockout.Enabled {
				attempts := user.FailedLoginAttempts + 1
				remaining = cfg.Auth.Lockout.MaxAttempts - attempts
				if attempts >= cfg.Auth.Lockout.MaxAttempts {
					until := now.Add(cfg.Auth.Lockout.Duration)
					lockUntil = &until
					remaining = 0
				}
			}
			if err := userRepo.RecordFailedLogin(c.Request.Context(), user.ID, lockUntil); err != nil {
				respond.Internal(c, "Failed to record login attempt")
				return
			}

			if lockUntil != nil {
				respond.Fail(c, http.StatusUnauthorized, respond.KindLocked, "Too many failed attempts, account locked")
				return
			}
			message := "Invalid email or password"
			if cfg.Auth.Lockout.Enabled && remaining > 0 {
				message = fmt.Sprintf("Invalid email or password, attempts remaining before lockout: %d", remaining)
			}
			respond.Fail(c, http.StatusUnauthorized, respond.KindAuthFailed, message)
			return
		}

		if err := userRepo.RecordSuccessfulLogin(c.Request.Context(), user.ID); err != nil {
			respond.Internal(c, "Failed to record login")
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Username, user.Role, cfg.Auth.TokenExpiry)
		if err != nil {
			respond.Internal(c, "Failed to issue token")
			return
		}

		telemetry.RecordLoginAttempt("success")
		respond.OK(c, http.StatusOK, "Login successful", gin.H{
			"token": token,
			"user":  userView(user),
		})
	}
}

// @Summary      Validate token
// @Description  Confirms the bearer token is valid and returns the current user with a refreshed token.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "data: {user, token}"
// @Failure      401  {object}  map[string]interface{}  "InvalidToken"
// @Router       /api/auth/validate [get]
// ValidateHandler handles GET /api/auth/validate. It runs behind the JWT
// middleware, which re-reads the user row, so the user here is always current.
func ValidateHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			respond.Fail(c, http.StatusUnauthorized, respond.KindInvalidToken, "Not authenticated")
			return
		}

		// Re-issue so active sessions keep sliding forward.
		token, err := auth.GenerateJWT(user.ID, user.Username, user.Role, cfg.Auth.TokenExpiry)
		if err != nil {
			respond.Internal(c, "Failed to refresh token")
			return
		}

		respond.OK(c, http.StatusOK, "Token is valid", gin.H{
			"user":  userView(user),
			"token": token,
		})
	}
}
