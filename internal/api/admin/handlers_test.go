package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// userSQLCols are the columns returned by user SELECT queries.
var userSQLCols = []string{
	"id", "username", "email", "password_hash", "role", "is_active",
	"failed_login_attempts", "locked_until", "created_at", "last_login",
}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userSQLCols).
		AddRow("user-1", "alice", "alice@example.com", "hash", "user", true, 0, nil, time.Now(), nil)
}

func newAdminRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	r.GET("/admin/users", ListUsersHandler(db))
	r.PATCH("/admin/users/:id/status", UpdateStatusHandler(db))
	r.PATCH("/admin/users/:id/role", UpdateRoleHandler(db))
	r.GET("/admin/stats", StatsHandler(db))
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

// errDB is a sentinel error for DB failures in tests.
var errDB = &dbError{"database error"}

type dbError struct{ msg string }

func (e *dbError) Error() string { return e.msg }

// ---------------------------------------------------------------------------
// ListUsersHandler
// ---------------------------------------------------------------------------

func TestListUsersHandler_Success(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT").WillReturnRows(sampleUserRow())
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["pagination"] == nil {
		t.Error("response missing pagination")
	}
	data, _ := resp["data"].([]interface{})
	if len(data) != 1 {
		t.Fatalf("len(data) = %d, want 1", len(data))
	}
	// The admin view must never expose the password hash
	user, _ := data[0].(map[string]interface{})
	if _, ok := user["password_hash"]; ok {
		t.Error("admin listing leaked password_hash")
	}
	if user["email"] != "alice@example.com" {
		t.Errorf("email = %v, want alice@example.com", user["email"])
	}
}

func TestListUsersHandler_DBError(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT").WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// UpdateStatusHandler
// ---------------------------------------------------------------------------

func TestUpdateStatusHandler_Deactivate(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectExec("UPDATE users").WithArgs("user-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/admin/users/user-1/status",
		jsonBody(gin.H{"is_active": false})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	if resp := getJSON(w); resp["message"] != "User deactivated" {
		t.Errorf("message = %v, want User deactivated", resp["message"])
	}
}

func TestUpdateStatusHandler_MissingFlag(t *testing.T) {
	_, r := newAdminRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/admin/users/user-1/status",
		jsonBody(gin.H{})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateStatusHandler_NotFound(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectExec("UPDATE users").WithArgs("ghost", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/admin/users/ghost/status",
		jsonBody(gin.H{"is_active": true})))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// UpdateRoleHandler
// ---------------------------------------------------------------------------

func TestUpdateRoleHandler_Promote(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectExec("UPDATE users").WithArgs("user-1", "admin").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/admin/users/user-1/role",
		jsonBody(gin.H{"role": "admin"})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
}

func TestUpdateRoleHandler_InvalidRole(t *testing.T) {
	_, r := newAdminRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("PATCH", "/admin/users/user-1/role",
		jsonBody(gin.H{"role": "superuser"})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if resp := getJSON(w); resp["error"] != "ValidationError" {
		t.Errorf("error = %v, want ValidationError", resp["error"])
	}
}

// ---------------------------------------------------------------------------
// StatsHandler
// ---------------------------------------------------------------------------

func TestStatsHandler_Success(t *testing.T) {
	mock, r := newAdminRouter(t)

	cols := []string{"users", "active_users", "posts", "follows", "api_keys", "active_api_keys", "requests"}
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(10, 9, 42, 30, 12, 11, 1234))
	mock.ExpectQuery("GROUP BY endpoint").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "count"}).
			AddRow("/api/countries", 900))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	data, _ := resp["data"].(map[string]interface{})
	if data["total_users"] != float64(10) {
		t.Errorf("total_users = %v, want 10", data["total_users"])
	}
	if data["total_api_requests"] != float64(1234) {
		t.Errorf("total_api_requests = %v, want 1234", data["total_api_requests"])
	}
	if data["total_follows"] != float64(30) {
		t.Errorf("total_follows = %v, want 30", data["total_follows"])
	}
	top, _ := data["top_endpoints"].([]interface{})
	if len(top) != 1 {
		t.Fatalf("top_endpoints = %v, want 1 entry", data["top_endpoints"])
	}
	first, _ := top[0].(map[string]interface{})
	if first["endpoint"] != "/api/countries" || first["count"] != float64(900) {
		t.Errorf("top endpoint = %v", first)
	}
}

func TestStatsHandler_DBError(t *testing.T) {
	mock, r := newAdminRouter(t)

	mock.ExpectQuery("SELECT").WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/admin/stats", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
