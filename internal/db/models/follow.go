// follow.go defines the follow-graph edge model.
package models

import "time"

// FollowEdge is one directed follow relationship
type FollowEdge struct {
	ID          string    `db:"id"`
	FollowerID  string    `db:"follower_id"`
	FollowingID string    `db:"following_id"`
	CreatedAt   time.Time `db:"created_at"`
}
