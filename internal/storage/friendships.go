package storage

import (
	"context"
	"fmt"

	"github.com/meltforce/liftlog/internal/models"
)

// Friendships are stored as a canonical pair: user_a_id is always the smaller
// id. The core only ever reads accepted rows; pending/rejected bookkeeping is
// plain CRUD.

// CreateFriendRequest records a pending friendship initiated by fromUser.
// A request that already exists in either direction is a conflict.
func (db *DB) CreateFriendRequest(ctx context.Context, fromUser, toUser int) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO friendships (user_a_id, user_b_id, status, requested_by)
		 VALUES (LEAST($1, $2), GREATEST($1, $2), 'pending', $1)`,
		fromUser, toUser)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("inserting friend request: %w", err)
	}
	return nil
}

// AcceptFriendRequest accepts a pending request addressed to userID.
// Only the non-initiating side can accept.
func (db *DB) AcceptFriendRequest(ctx context.Context, userID, otherID int) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE friendships SET status = 'accepted'
		 WHERE user_a_id = LEAST($1, $2) AND user_b_id = GREATEST($1, $2)
		   AND status = 'pending' AND requested_by <> $1`,
		userID, otherID)
	if err != nil {
		return fmt.Errorf("accepting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AreFriends reports whether an accepted friendship exists between the two
// users.
func (db *DB) AreFriends(ctx context.Context, userA, userB int) (bool, error) {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM friendships
			WHERE user_a_id = LEAST($1, $2) AND user_b_id = GREATEST($1, $2)
			  AND status = 'accepted')`,
		userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying friendship: %w", err)
	}
	return exists, nil
}

// FriendIDs returns the ids of every accepted friend of userID.
func (db *DB) FriendIDs(ctx context.Context, userID int) ([]int, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END
		 FROM friendships
		 WHERE (user_a_id = $1 OR user_b_id = $1) AND status = 'accepted'
		 ORDER BY 1`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying friends: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
