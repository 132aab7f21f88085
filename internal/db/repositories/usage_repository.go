// usage_repository.go implements UsageRepository, recording per-request rows for API
// keys and aggregating them into the per-key usage statistics.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/travelog/travelog/internal/db/models"
)

// UsageRepository handles API usage database operations
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *sqlx.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// RecordUsage inserts one usage row for a key
func (r *UsageRepository) RecordUsage(ctx context.Context, keyID, endpoint string) error {
	query := `
		INSERT INTO api_usage (id, api_key_id, endpoint, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), keyID, endpoint, time.Now())
	return err
}

// GetKeyStats aggregates total and per-endpoint request counts for one key.
// Returns nil when the key does not exist or belongs to another user.
func (r *UsageRepository) GetKeyStats(ctx context.Context, keyID, userID string) (*models.APIKeyStats, error) {
	var keyRow struct {
		ID       string     `db:"id"`
		LastUsed *time.Time `db:"last_used"`
	}
	err := r.db.GetContext(ctx, &keyRow,
		`SELECT id, last_used FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var endpoints []models.EndpointUsage
	query := `
		SELECT endpoint, COUNT(*) AS count
		FROM api_usage
		WHERE api_key_id = $1
		GROUP BY endpoint
		ORDER BY count DESC
	`
	if err := r.db.SelectContext(ctx, &endpoints, query, keyID); err != nil {
		return nil, err
	}

	stats := &models.APIKeyStats{
		KeyID:     keyRow.ID,
		LastUsed:  keyRow.LastUsed,
		Endpoints: endpoints,
	}
	if stats.Endpoints == nil {
		stats.Endpoints = []models.EndpointUsage{}
	}
	for _, e := range stats.Endpoints {
		stats.TotalRequests += e.Count
	}

	return stats, nil
}
