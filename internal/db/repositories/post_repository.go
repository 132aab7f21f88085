// post_repository.go implements PostRepository, providing database queries for blog
// post CRUD, filtered listing with pagination, and the followed-users feed.
package repositories

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/travelog/travelog/internal/db/models"
)

// PostRepository handles blog post database operations
type PostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// PostFilter narrows post listings. Empty fields are not applied; Country and
// Username match case-insensitively as substrings.
type PostFilter struct {
	Country  string
	Username string
	UserID   string
}

const postColumns = `p.id, p.title, p.content, p.country_name, p.date_of_visit, p.user_id, u.username, p.created_at, p.updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.BlogPost, error) {
	post := &models.BlogPost{}
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.CountryName,
		&post.DateOfVisit,
		&post.UserID,
		&post.Username,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePost creates a new blog post
func (r *PostRepository) CreatePost(ctx context.Context, post *models.BlogPost) error {
	post.ID = uuid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	query := `
		INSERT INTO blog_posts (id, title, content, country_name, date_of_visit, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.Title,
		post.Content,
		post.CountryName,
		post.DateOfVisit,
		post.UserID,
		post.CreatedAt,
		post.UpdatedAt,
	)

	return err
}

// GetPostByID retrieves a post with its author's username
func (r *PostRepository) GetPostByID(ctx context.Context, postID string) (*models.BlogPost, error) {
	query := `
		SELECT ` + postColumns + `
		FROM blog_posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`
	return scanPost(r.db.QueryRowContext(ctx, query, postID))
}

func buildPostWhere(filter PostFilter) (string, []any) {
	where := ""
	args := make([]any, 0, 3)
	and := func(clause string) {
		if where == "" {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	if filter.Country != "" {
		args = append(args, "%"+filter.Country+"%")
		and("p.country_name ILIKE $" + strconv.Itoa(len(args)))
	}
	if filter.Username != "" {
		args = append(args, "%"+filter.Username+"%")
		and("u.username ILIKE $" + strconv.Itoa(len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		and("p.user_id = $" + strconv.Itoa(len(args)))
	}

	return where, args
}

// ListPosts retrieves a page of posts, newest first, applying the filter
func (r *PostRepository) ListPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.BlogPost, error) {
	where, args := buildPostWhere(filter)

	query := `
		SELECT ` + postColumns + `
		FROM blog_posts p
		JOIN users u ON u.id = p.user_id
		` + where + `
		ORDER BY p.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*models.BlogPost, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// CountPosts returns the number of posts matching the filter
func (r *PostRepository) CountPosts(ctx context.Context, filter PostFilter) (int, error) {
	where, args := buildPostWhere(filter)

	query := `
		SELECT COUNT(*)
		FROM blog_posts p
		JOIN users u ON u.id = p.user_id
		` + where

	var count int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// UpdatePost updates a post's editable fields when it belongs to the given user.
// Returns false when the post does not exist or is owned by someone else.
func (r *PostRepository) UpdatePost(ctx context.Context, post *models.BlogPost) (bool, error) {
	query := `
		UPDATE blog_posts
		SET title = $3, content = $4, country_name = $5, date_of_visit = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.UserID,
		post.Title,
		post.Content,
		post.CountryName,
		post.DateOfVisit,
		time.Now(),
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// DeletePost removes a post when it belongs to the given user. Returns false
// when the post does not exist or is owned by someone else.
func (r *PostRepository) DeletePost(ctx context.Context, postID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

// GetFeed retrieves a page of posts authored by users the given user follows
func (r *PostRepository) GetFeed(ctx context.Context, userID string, limit, offset int) ([]*models.BlogPost, error) {
	query := `
		SELECT ` + postColumns + `
		FROM blog_posts p
		JOIN users u ON u.id = p.user_id
		JOIN followers f ON f.following_id = p.user_id
		WHERE f.follower_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*models.BlogPost, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// CountFeed returns the number of posts in the given user's feed
func (r *PostRepository) CountFeed(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM blog_posts p
		JOIN followers f ON f.following_id = p.user_id
		WHERE f.follower_id = $1
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}
