// api_key_repository.go implements APIKeyRepository, providing database queries for API key
// creation, lookup by value, soft revocation, and last-used timestamp updates.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/travelog/travelog/internal/db/models"
)

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// CreateAPIKey creates a new API key
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	apiKey.ID = uuid.New().String()
	apiKey.CreatedAt = time.Now()
	apiKey.IsActive = true

	query := `
		INSERT INTO api_keys (id, user_id, key_value, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		apiKey.ID,
		apiKey.UserID,
		apiKey.KeyValue,
		apiKey.IsActive,
		apiKey.CreatedAt,
	)

	return err
}

// GetAPIKeyByID retrieves an API key by ID
func (r *APIKeyRepository) GetAPIKeyByID(ctx context.Context, keyID string) (*models.APIKey, error) {
	query := `
		SELECT id, user_id, key_value, is_active, created_at, last_used, revoked_at
		FROM api_keys
		WHERE id = $1
	`

	apiKey := &models.APIKey{}
	err := r.db.QueryRowContext(ctx, query, keyID).Scan(
		&apiKey.ID,
		&apiKey.UserID,
		&apiKey.KeyValue,
		&apiKey.IsActive,
		&apiKey.CreatedAt,
		&apiKey.LastUsed,
		&apiKey.RevokedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return apiKey, nil
}

// FindActiveByValue retrieves an active API key by its secret value (for authentication)
func (r *APIKeyRepository) FindActiveByValue(ctx context.Context, keyValue string) (*models.APIKey, error) {
	query := `
		SELECT id, user_id, key_value, is_active, created_at, last_used, revoked_at
		FROM api_keys
		WHERE key_value = $1 AND is_active
	`

	apiKey := &models.APIKey{}
	err := r.db.QueryRowContext(ctx, query, keyValue).Scan(
		&apiKey.ID,
		&apiKey.UserID,
		&apiKey.KeyValue,
		&apiKey.IsActive,
		&apiKey.CreatedAt,
		&apiKey.LastUsed,
		&apiKey.RevokedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return apiKey, nil
}

// ListAPIKeysByUser retrieves all API keys for a user with per-key usage counts
func (r *APIKeyRepository) ListAPIKeysByUser(ctx context.Context, userID string) ([]*models.APIKey, error) {
	query := `
		SELECT ak.id, ak.user_id, ak.key_value, ak.is_active, ak.created_at, ak.last_used, ak.revoked_at,
		       (SELECT COUNT(*) FROM api_usage au WHERE au.api_key_id = ak.id) AS usage_count
		FROM api_keys ak
		WHERE ak.user_id = $1
		ORDER BY ak.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apiKeys := make([]*models.APIKey, 0)
	for rows.Next() {
		apiKey := &models.APIKey{}
		err := rows.Scan(
			&apiKey.ID,
			&apiKey.UserID,
			&apiKey.KeyValue,
			&apiKey.IsActive,
			&apiKey.CreatedAt,
			&apiKey.LastUsed,
			&apiKey.RevokedAt,
			&apiKey.UsageCount,
		)
		if err != nil {
			return nil, err
		}
		apiKeys = append(apiKeys, apiKey)
	}

	return apiKeys, rows.Err()
}

// RevokeAPIKey soft-revokes a key owned by the given user. Returns false when the
// key does not exist, belongs to someone else, or is already revoked.
func (r *APIKeyRepository) RevokeAPIKey(ctx context.Context, keyID, userID string) (bool, error) {
	query := `
		UPDATE api_keys
		SET is_active = FALSE, revoked_at = $3
		WHERE id = $1 AND user_id = $2 AND is_active
	`

	result, err := r.db.ExecContext(ctx, query, keyID, userID, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// UpdateLastUsed updates the last_used timestamp for an API key
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID string) error {
	query := `
		UPDATE api_keys
		SET last_used = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, keyID, time.Now())
	return err
}
