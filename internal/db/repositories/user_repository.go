// user_repository.go implements UserRepository, providing database queries for account
// creation, credential lookup, login-lockout bookkeeping, profiles, and admin management.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/travelog/travelog/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, role, is_active, failed_login_attempts, locked_until, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser creates a new user account
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.IsActive = true

	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_active, failed_login_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.FailedLoginAttempts,
		user.CreatedAt,
	)

	return err
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// RecordFailedLogin increments the failed-attempt counter and, when lockUntil is
// non-nil, stamps the lockout window in the same statement.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, userID string, lockUntil *time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = COALESCE($2, locked_until)
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, lockUntil)
	return err
}

// RecordSuccessfulLogin clears the lockout state and stamps last_login
func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_login = $2
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, time.Now())
	return err
}

// GetProfile retrieves a user's public profile with post and follow-graph counts
func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `
		SELECT u.id, u.username, u.created_at, u.last_login,
		       (SELECT COUNT(*) FROM blog_posts p WHERE p.user_id = u.id) AS post_count,
		       (SELECT COUNT(*) FROM followers f WHERE f.following_id = u.id) AS follower_count,
		       (SELECT COUNT(*) FROM followers f WHERE f.follower_id = u.id) AS following_count
		FROM users u
		WHERE u.id = $1
	`

	profile := &models.UserProfile{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.Username,
		&profile.CreatedAt,
		&profile.LastLogin,
		&profile.PostCount,
		&profile.FollowerCount,
		&profile.FollowingCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return profile, nil
}

// GetSuggestedUsers returns up to limit random active users the given user does not
// already follow, excluding the user themselves.
func (r *UserRepository) GetSuggestedUsers(ctx context.Context, userID string, limit int) ([]*models.UserSummary, error) {
	query := `
		SELECT u.id, u.username
		FROM users u
		WHERE u.id <> $1
		  AND u.is_active
		  AND NOT EXISTS (
		      SELECT 1 FROM followers f
		      WHERE f.follower_id = $1 AND f.following_id = u.id
		  )
		ORDER BY RANDOM()
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.UserSummary, 0)
	for rows.Next() {
		u := &models.UserSummary{}
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// ListUsers retrieves a page of users ordered by creation time (admin use)
func (r *UserRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// CountUsers returns the total number of users
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// UpdateStatus sets the is_active flag on a user account. Returns false when no
// such user exists.
func (r *UserRepository) UpdateStatus(ctx context.Context, userID string, isActive bool) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, userID, isActive)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// UpdateRole sets a user's role. Returns false when no such user exists.
func (r *UserRepository) UpdateRole(ctx context.Context, userID, role string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, userID, role)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// SystemStats aggregates headline counts for the admin dashboard
type SystemStats struct {
	TotalUsers    int                    `json:"total_users"`
	ActiveUsers   int                    `json:"active_users"`
	TotalPosts    int                    `json:"total_posts"`
	TotalFollows  int                    `json:"total_follows"`
	TotalAPIKeys  int                    `json:"total_api_keys"`
	ActiveAPIKeys int                    `json:"active_api_keys"`
	TotalRequests int                    `json:"total_api_requests"`
	TopEndpoints  []models.EndpointUsage `json:"top_endpoints"`
}

// GetSystemStats collects the counts shown on the admin stats endpoint
func (r *UserRepository) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_active),
			(SELECT COUNT(*) FROM blog_posts),
			(SELECT COUNT(*) FROM followers),
			(SELECT COUNT(*) FROM api_keys),
			(SELECT COUNT(*) FROM api_keys WHERE is_active),
			(SELECT COUNT(*) FROM api_usage)
	`

	stats := &SystemStats{TopEndpoints: []models.EndpointUsage{}}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.TotalPosts,
		&stats.TotalFollows,
		&stats.TotalAPIKeys,
		&stats.ActiveAPIKeys,
		&stats.TotalRequests,
	)
	if err != nil {
		return nil, err
	}

	topQuery := `
		SELECT endpoint, COUNT(*) AS count
		FROM api_usage
		GROUP BY endpoint
		ORDER BY count DESC
		LIMIT 5
	`
	rows, err := r.db.QueryContext(ctx, topQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e models.EndpointUsage
		if err := rows.Scan(&e.Endpoint, &e.Count); err != nil {
			return nil, err
		}
		stats.TopEndpoints = append(stats.TopEndpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
