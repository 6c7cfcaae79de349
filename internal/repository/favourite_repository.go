package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-directory/internal/pool"
)

// FavouriteRepo encapsulates the user-venue bookmark relation. Membership is
// presence-only; add and remove are idempotent no-op successes on
// duplicate or absent rows.
type FavouriteRepo struct{ pool *pool.Pool }

// NewFavouriteRepo constructs a FavouriteRepo over the shared pool.
func NewFavouriteRepo(p *pool.Pool) *FavouriteRepo { return &FavouriteRepo{pool: p} }

// Add marks a venue as favourited. Adding an existing favourite succeeds
// without change.
func (r *FavouriteRepo) Add(ctx context.Context, userID, venueID uint64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	_, err = conn.ExecContext(ctx,
		`INSERT INTO favourites (user_id, restaurant_id) VALUES (?,?)`, userID, venueID)
	if isDuplicateKey(err) {
		return nil
	}
	if isForeignKeyViolation(err) {
		return ErrVenueNotFound
	}
	return err
}

// Remove unmarks a venue. Removing an absent favourite succeeds without
// change.
func (r *FavouriteRepo) Remove(ctx context.Context, userID, venueID uint64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	_, err = conn.ExecContext(ctx,
		`DELETE FROM favourites WHERE user_id = ? AND restaurant_id = ?`, userID, venueID)
	return err
}

// Is reports whether a venue is favourited by the user.
func (r *FavouriteRepo) Is(ctx context.Context, userID, venueID uint64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer r.pool.Release(conn)

	var one int
	err = conn.QueryRowContext(ctx,
		`SELECT 1 FROM favourites WHERE user_id = ? AND restaurant_id = ?`, userID, venueID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
