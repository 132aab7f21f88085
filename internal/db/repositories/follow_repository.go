// follow_repository.go implements FollowRepository, maintaining the directed follow
// graph and the follower/following listings built on it.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/travelog/travelog/internal/db/models"
)

// FollowRepository handles follow-graph database operations
type FollowRepository struct {
	db *sqlx.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *sqlx.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Follow inserts a follow edge. The unique constraint on (follower_id, following_id)
// rejects duplicates, including ones racing this insert.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followingID string) error {
	query := `
		INSERT INTO followers (id, follower_id, following_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), followerID, followingID, time.Now())
	return err
}

// Unfollow removes a follow edge. Returns false when no such edge existed.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	query := `DELETE FROM followers WHERE follower_id = $1 AND following_id = $2`
	result, err := r.db.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// IsFollowing reports whether follower already follows following
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM followers WHERE follower_id = $1 AND following_id = $2)`
	err := r.db.GetContext(ctx, &exists, query, followerID, followingID)
	return exists, err
}

// ListFollowers returns the users following the given user, newest edge first
func (r *FollowRepository) ListFollowers(ctx context.Context, userID string) ([]*models.UserSummary, error) {
	var users []*models.UserSummary
	query := `
		SELECT u.id, u.username
		FROM followers f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at DESC
	`
	err := r.db.SelectContext(ctx, &users, query, userID)
	if users == nil {
		users = []*models.UserSummary{}
	}
	return users, err
}

// ListFollowing returns the users the given user follows, newest edge first
func (r *FollowRepository) ListFollowing(ctx context.Context, userID string) ([]*models.UserSummary, error) {
	var users []*models.UserSummary
	query := `
		SELECT u.id, u.username
		FROM followers f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at DESC
	`
	err := r.db.SelectContext(ctx, &users, query, userID)
	if users == nil {
		users = []*models.UserSummary{}
	}
	return users, err
}

// CountFollowers returns how many users follow the given user
func (r *FollowRepository) CountFollowers(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM followers WHERE following_id = $1`, userID)
	return count, err
}
