package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/travelog/travelog/internal/auth"
	"github.com/travelog/travelog/internal/db/repositories"
)

var userCols = []string{
	"id", "username", "email", "password_hash", "role", "is_active",
	"failed_login_attempts", "locked_until", "created_at", "last_login",
}

func userRow(role string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "wanderer", "w@example.com", "hash", role, active, 0, nil, time.Now(), nil)
}

func newAuthRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := repositories.NewUserRepository(db)
	router := gin.New()
	router.GET("/protected", JWTAuthMiddleware(userRepo), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey)})
	})
	router.GET("/admin", JWTAuthMiddleware(userRepo), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, mock
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateJWT("user-1", "wanderer", role, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	router, _ := newAuthRouter(t)
	w := doRequest(router, "GET", "/protected", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestJWTAuth_BadToken(t *testing.T) {
	router, _ := newAuthRouter(t)
	w := doRequest(router, "GET", "/protected", map[string]string{"Authorization": "Bearer junk"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WillReturnRows(userRow("user", true))

	w := doRequest(router, "GET", "/protected", map[string]string{
		"Authorization": "Bearer " + validToken(t, "user"),
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestJWTAuth_DeletedUser(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WillReturnRows(sqlmock.NewRows(userCols))

	w := doRequest(router, "GET", "/protected", map[string]string{
		"Authorization": "Bearer " + validToken(t, "user"),
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestJWTAuth_DeactivatedUser(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WillReturnRows(userRow("user", false))

	w := doRequest(router, "GET", "/protected", map[string]string{
		"Authorization": "Bearer " + validToken(t, "user"),
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireAdmin_NonAdmin(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WillReturnRows(userRow("user", true))

	w := doRequest(router, "GET", "/admin", map[string]string{
		"Authorization": "Bearer " + validToken(t, "user"),
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestRequireAdmin_Admin(t *testing.T) {
	router, mock := newAuthRouter(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WillReturnRows(userRow("admin", true))

	w := doRequest(router, "GET", "/admin", map[string]string{
		"Authorization": "Bearer " + validToken(t, "admin"),
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// ---------------------------------------------------------------------------
// API key middleware
// ---------------------------------------------------------------------------

func newAPIKeyRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	usageRepo := repositories.NewUsageRepository(sqlx.NewDb(db, "sqlmock"))
	router := gin.New()
	router.GET("/countries", APIKeyMiddleware(apiKeyRepo, usageRepo), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, mock
}

func TestAPIKey_MissingHeader(t *testing.T) {
	router, _ := newAPIKeyRouter(t)
	w := doRequest(router, "GET", "/countries", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIKey_UnknownKey(t *testing.T) {
	router, mock := newAPIKeyRouter(t)
	mock.ExpectQuery("SELECT.*FROM api_keys.*WHERE key_value").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "key_value", "is_active", "created_at", "last_used", "revoked_at",
		}))

	w := doRequest(router, "GET", "/countries", map[string]string{"x-api-key": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPIKey_ValidKey(t *testing.T) {
	router, mock := newAPIKeyRouter(t)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT.*FROM api_keys.*WHERE key_value").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "key_value", "is_active", "created_at", "last_used", "revoked_at",
		}).AddRow("key-1", "user-1", "a1b2c3", true, time.Now(), nil, nil))
	// Background bookkeeping may or may not land before the test exits
	mock.ExpectExec("UPDATE api_keys.*SET last_used").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO api_usage").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := doRequest(router, "GET", "/countries", map[string]string{"x-api-key": "a1b2c3"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	// Give the fire-and-forget goroutine a moment to run so the mock does not
	// see unexpected calls after close.
	time.Sleep(50 * time.Millisecond)
}
