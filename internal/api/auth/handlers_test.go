package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/travelog/travelog/internal/auth"
	"github.com/travelog/travelog/internal/config"
	"github.com/travelog/travelog/internal/db/models"
	"github.com/travelog/travelog/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMain(m *testing.M) {
	os.Setenv("TLG_JWT_SECRET", "test-auth-jwt-secret-that-is-32chars!!")
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// userSQLCols are the columns returned by user SELECT queries.
var userSQLCols = []string{
	"id", "username", "email", "password_hash", "role", "is_active",
	"failed_login_attempts", "locked_until", "created_at", "last_login",
}

const testPassword = "Str0ng!pass"

// testHash is a bcrypt hash of testPassword, computed once at low cost.
var testHash = func() string {
	h, err := auth.HashPassword(testPassword, 4)
	if err != nil {
		panic(err)
	}
	return h
}()

func userRow(failedAttempts int, lockedUntil any) *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols).
		AddRow("user-1", "alice", "alice@example.com", testHash, "user", true,
			failedAttempts, lockedUntil, time.Now(), nil)
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols)
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			TokenExpiry: time.Hour,
			BcryptCost:  4,
			Lockout: config.LockoutConfig{
				Enabled:     true,
				MaxAttempts: 5,
				Duration:    15 * time.Minute,
			},
		},
	}
}

func newAuthRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := testConfig()
	r := gin.New()
	r.POST("/register", RegisterHandler(db, cfg))
	r.POST("/login", LoginHandler(db, cfg))
	return mock, r
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

// ---------------------------------------------------------------------------
// RegisterHandler
// ---------------------------------------------------------------------------

func TestRegisterHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT").WithArgs("bob").WillReturnRows(emptyUserRows())
	mock.ExpectQuery("SELECT").WithArgs("bob@example.com").WillReturnRows(emptyUserRows())
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO api_keys").WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/register", jsonBody(gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"password": testPassword,
	})))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	data, _ := resp["data"].(map[string]interface{})
	if data["apiKey"] == nil {
		t.Error("response missing initial apiKey")
	}
	if data["user"] == nil {
		t.Error("response missing user")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegisterHandler_WeakPassword(t *testing.T) {
	_, r := newAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/register", jsonBody(gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "short",
	})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp := getJSON(w); resp["error"] != "ValidationError" {
		t.Errorf("error = %v, want ValidationError", resp["error"])
	}
}

func TestRegisterHandler_DuplicateUsername(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT").WithArgs("alice").WillReturnRows(userRow(0, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/register", jsonBody(gin.H{
		"username": "alice",
		"email":    "new@example.com",
		"password": testPassword,
	})))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if resp := getJSON(w); resp["error"] != "DuplicateResource" {
		t.Errorf("error = %v, want DuplicateResource", resp["error"])
	}
}

func TestRegisterHandler_MissingFields(t *testing.T) {
	_, r := newAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/register", jsonBody(gin.H{
		"username": "bob",
	})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// LoginHandler
// ---------------------------------------------------------------------------

func TestLoginHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT").WithArgs("alice@example.com").WillReturnRows(userRow(2, nil))
	// Successful login resets the failure counters and stamps last_login
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "alice@example.com",
		"password": testPassword,
	})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	data, _ := resp["data"].(map[string]interface{})
	if token, _ := data["token"].(string); token == "" {
		t.Error("response missing token")
	}
}

func TestLoginHandler_UnknownEmail(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT").WithArgs("ghost@example.com").WillReturnRows(emptyUserRows())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "ghost@example.com",
		"password": testPassword,
	})))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	// Same message as a wrong password, so the endpoint cannot be used to
	// probe for registered emails.
	if resp := getJSON(w); resp["message"] != "Invalid email or password" {
		t.Errorf("message = %v, want generic invalid-credentials message", resp["message"])
	}
}

func TestLoginHandler_WrongPassword_CountsAttempt(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT").WithArgs("alice@example.com").WillReturnRows(userRow(0, nil))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "alice@example.com",
		"password": "Wr0ng!pass",
	})))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	resp := getJSON(w)
	if resp["error"] != "AuthenticationFailed" {
		t.Errorf("error = %v, want AuthenticationFailed", resp["error"])
	}
	message, _ := resp["message"].(string)
	if !strings.Contains(message, "attempts remaining before lockout: 4") {
		t.Errorf("message = %q, want remaining-attempts warning", message)
	}
}

func TestLoginHandler_WrongPassword_LocksAtThreshold(t *testing.T) {
	mock, r := newAuthRouter(t)

	// Four prior failures; this attempt is the fifth and triggers the lock
	mock.ExpectQuery("SELECT").WithArgs("alice@example.com").WillReturnRows(userRow(4, nil))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "alice@example.com",
		"password": "Wr0ng!pass",
	})))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if resp := getJSON(w); resp["error"] != "AccountLocked" {
		t.Errorf("error = %v, want AccountLocked", resp["error"])
	}
}

func TestLoginHandler_LockedAccount_CorrectPassword(t *testing.T) {
	mock, r := newAuthRouter(t)

	until := time.Now().Add(10 * time.Minute)
	mock.ExpectQuery("SELECT").WithArgs("alice@example.com").WillReturnRows(userRow(5, until))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "alice@example.com",
		"password": testPassword,
	})))

	// Correct credentials do not bypass an active lock
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if resp := getJSON(w); resp["error"] != "AccountLocked" {
		t.Errorf("error = %v, want AccountLocked", resp["error"])
	}
}

func TestLoginHandler_ExpiredLock_LoginSucceeds(t *testing.T) {
	mock, r := newAuthRouter(t)

	until := time.Now().Add(-time.Minute)
	mock.ExpectQuery("SELECT").WithArgs("alice@example.com").WillReturnRows(userRow(5, until))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "alice@example.com",
		"password": testPassword,
	})))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestLoginHandler_InactiveAccount(t *testing.T) {
	mock, r := newAuthRouter(t)

	rows := sqlmock.NewRows(userSQLCols).
		AddRow("user-1", "alice", "alice@example.com", testHash, "user", false,
			0, nil, time.Now(), nil)
	mock.ExpectQuery("SELECT").WithArgs("alice@example.com").WillReturnRows(rows)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/login", jsonBody(gin.H{
		"email":    "alice@example.com",
		"password": testPassword,
	})))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if resp := getJSON(w); resp["message"] != "Invalid email or password" {
		t.Errorf("message = %v, want generic invalid-credentials message", resp["message"])
	}
}

// ---------------------------------------------------------------------------
// ValidateHandler
// ---------------------------------------------------------------------------

func TestValidateHandler_ReturnsUserAndFreshToken(t *testing.T) {
	r := gin.New()
	r.GET("/validate", func(c *gin.Context) {
		c.Set(middleware.UserKey, &models.User{
			ID:       "user-1",
			Username: "alice",
			Email:    "alice@example.com",
			Role:     "user",
			IsActive: true,
		})
	}, ValidateHandler(testConfig()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/validate", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	data, _ := resp["data"].(map[string]interface{})
	if token, _ := data["token"].(string); token == "" {
		t.Error("response missing refreshed token")
	}
	if data["user"] == nil {
		t.Error("response missing user")
	}
}

func TestValidateHandler_NoUserInContext(t *testing.T) {
	r := gin.New()
	r.GET("/validate", ValidateHandler(testConfig()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/validate", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
