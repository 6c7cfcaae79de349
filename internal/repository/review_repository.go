package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-directory/internal/pool"
)

// Review mirrors the 'reviews' table. The (user, venue) pair is unique; the
// database constraint, not handler logic, enforces it. Author and Response
// are joined in for listing and empty otherwise.
type Review struct {
	ID           uint64
	UserID       uint64
	RestaurantID uint64
	Stars        int
	Text         string
	Author       string
	Response     string // empty when the owner has not responded
}

// ReviewRepo encapsulates review and response queries. Responses live here
// because every response operation is keyed by a review.
type ReviewRepo struct{ pool *pool.Pool }

// NewReviewRepo constructs a ReviewRepo over the shared pool.
func NewReviewRepo(p *pool.Pool) *ReviewRepo { return &ReviewRepo{pool: p} }

// Add inserts a review. A second review for the same (user, venue) pair hits
// the unique key and is reported as ErrDuplicateReview.
func (r *ReviewRepo) Add(ctx context.Context, userID, venueID uint64, stars int, text string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	_, err = conn.ExecContext(ctx,
		`INSERT INTO reviews (user_id, restaurant_id, stars, text) VALUES (?,?,?,?)`,
		userID, venueID, stars, text)
	if isDuplicateKey(err) {
		return ErrDuplicateReview
	}
	if isForeignKeyViolation(err) {
		return ErrVenueNotFound
	}
	return err
}

// Edit replaces rating and text in place for the caller's review of a venue.
func (r *ReviewRepo) Edit(ctx context.Context, userID, venueID uint64, stars int, text string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	res, err := conn.ExecContext(ctx,
		`UPDATE reviews SET stars = ?, text = ? WHERE user_id = ? AND restaurant_id = ?`,
		stars, text, userID, venueID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// Remove deletes the caller's review of a venue along with its response
// inside one transaction, so a failed review delete never strands the review
// without its response.
func (r *ReviewRepo) Remove(ctx context.Context, userID, venueID uint64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE p FROM responses p
		 JOIN reviews v ON v.id = p.review_id
		 WHERE v.user_id = ? AND v.restaurant_id = ?`, userID, venueID); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx,
		`DELETE FROM reviews WHERE user_id = ? AND restaurant_id = ?`, userID, venueID); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrReviewNotFound
	}
	return err
}

// Mine fetches the caller's own review of a venue.
func (r *ReviewRepo) Mine(ctx context.Context, userID, venueID uint64) (Review, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return Review{}, err
	}
	defer r.pool.Release(conn)

	var v Review
	err = conn.QueryRowContext(ctx,
		`SELECT id, user_id, restaurant_id, stars, text
		 FROM reviews WHERE user_id = ? AND restaurant_id = ? LIMIT 1`, userID, venueID).
		Scan(&v.ID, &v.UserID, &v.RestaurantID, &v.Stars, &v.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, ErrReviewNotFound
	}
	return v, err
}

// ListByVenue returns every review of a venue with author display name and
// owner response joined in, newest first.
func (r *ReviewRepo) ListByVenue(ctx context.Context, venueID uint64) ([]Review, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	rows, err := conn.QueryContext(ctx,
		`SELECT v.id, v.user_id, v.restaurant_id, v.stars, v.text,
		        CONCAT(u.name, ' ', u.surname),
		        COALESCE(p.text, '')
		 FROM reviews v
		 JOIN users u ON u.id = v.user_id
		 LEFT JOIN responses p ON p.review_id = v.id
		 WHERE v.restaurant_id = ?
		 ORDER BY v.id DESC`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Review, 0)
	for rows.Next() {
		var v Review
		if err := rows.Scan(&v.ID, &v.UserID, &v.RestaurantID, &v.Stars, &v.Text, &v.Author, &v.Response); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CanRespond reports whether ownerID owns the venue the review was written
// for. A missing review yields no access.
func (r *ReviewRepo) CanRespond(ctx context.Context, ownerID, reviewID uint64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer r.pool.Release(conn)

	var one int
	err = conn.QueryRowContext(ctx,
		`SELECT 1 FROM reviews v
		 JOIN restaurants r ON r.id = v.restaurant_id
		 WHERE v.id = ? AND r.owner_id = ?`, reviewID, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// AddResponse inserts the owner response for a review. A review carries at
// most one response; a duplicate insert is reported as ErrResponseExists so
// the caller can direct the client to the edit operation.
func (r *ReviewRepo) AddResponse(ctx context.Context, reviewID uint64, text string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	_, err = conn.ExecContext(ctx,
		`INSERT INTO responses (review_id, text) VALUES (?,?)`, reviewID, text)
	if isDuplicateKey(err) {
		return ErrResponseExists
	}
	return err
}

// EditResponse replaces the response text for a review.
func (r *ReviewRepo) EditResponse(ctx context.Context, reviewID uint64, text string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	res, err := conn.ExecContext(ctx,
		`UPDATE responses SET text = ? WHERE review_id = ?`, text, reviewID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResponseNotFound
	}
	return nil
}

// RemoveResponse deletes the response of a review.
func (r *ReviewRepo) RemoveResponse(ctx context.Context, reviewID uint64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	res, err := conn.ExecContext(ctx, `DELETE FROM responses WHERE review_id = ?`, reviewID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrResponseNotFound
	}
	return nil
}
