package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newUsageRepo(t *testing.T) (*UsageRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUsageRepository(sqlx.NewDb(db, "sqlmock")), mock
}

// ---------------------------------------------------------------------------
// RecordUsage
// ---------------------------------------------------------------------------

func TestRecordUsage(t *testing.T) {
	repo, mock := newUsageRepo(t)
	mock.ExpectExec("INSERT INTO api_usage").
		WithArgs(sqlmock.AnyArg(), "key-1", "/api/countries/all", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.RecordUsage(context.Background(), "key-1", "/api/countries/all"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecordUsage_DBError(t *testing.T) {
	repo, mock := newUsageRepo(t)
	mock.ExpectExec("INSERT INTO api_usage").
		WillReturnError(errDB)

	if err := repo.RecordUsage(context.Background(), "key-1", "/api/countries/all"); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// GetKeyStats
// ---------------------------------------------------------------------------

func TestGetKeyStats_Found(t *testing.T) {
	repo, mock := newUsageRepo(t)
	lastUsed := time.Now()
	mock.ExpectQuery("SELECT id, last_used FROM api_keys").
		WithArgs("key-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_used"}).
			AddRow("key-1", lastUsed))
	mock.ExpectQuery("SELECT endpoint, COUNT").
		WithArgs("key-1").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "count"}).
			AddRow("/api/countries/all", 30).
			AddRow("/api/countries/name/France", 12))

	stats, err := repo.GetKeyStats(context.Background(), "key-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	if stats.TotalRequests != 42 {
		t.Errorf("TotalRequests = %d, want 42", stats.TotalRequests)
	}
	if len(stats.Endpoints) != 2 {
		t.Errorf("len(Endpoints) = %d, want 2", len(stats.Endpoints))
	}
}

func TestGetKeyStats_KeyNotOwned(t *testing.T) {
	repo, mock := newUsageRepo(t)
	mock.ExpectQuery("SELECT id, last_used FROM api_keys").
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_used"}))

	stats, err := repo.GetKeyStats(context.Background(), "key-1", "other-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != nil {
		t.Error("expected nil, got non-nil")
	}
}

func TestGetKeyStats_NoUsage(t *testing.T) {
	repo, mock := newUsageRepo(t)
	mock.ExpectQuery("SELECT id, last_used FROM api_keys").
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_used"}).
			AddRow("key-1", nil))
	mock.ExpectQuery("SELECT endpoint, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "count"}))

	stats, err := repo.GetKeyStats(context.Background(), "key-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	if stats.TotalRequests != 0 {
		t.Errorf("TotalRequests = %d, want 0", stats.TotalRequests)
	}
	if stats.Endpoints == nil {
		t.Error("expected empty slice, got nil")
	}
}
