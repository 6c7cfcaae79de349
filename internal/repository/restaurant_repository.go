package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-directory/internal/pool"
)

// Restaurant mirrors the 'restaurants' table. Average rating and review count
// are computed at query time, never stored.
type Restaurant struct {
	ID            uint64
	OwnerID       uint64
	Name          string
	Nation        string
	City          string
	Address       string
	Latitude      float64
	Longitude     float64
	Price         int
	Category      string
	Delivery      bool
	OnlineBooking bool
}

// RestaurantInfo is the detail view of a venue including the derived rating
// attributes.
type RestaurantInfo struct {
	Restaurant
	AvgStars    float64
	ReviewCount int
}

// RestaurantRow is the minimal (id, name) tuple returned by list endpoints.
type RestaurantRow struct {
	ID   uint64
	Name string
}

// RestaurantRepo encapsulates all database queries related to venues.
type RestaurantRepo struct{ pool *pool.Pool }

// NewRestaurantRepo constructs a RestaurantRepo over the shared pool.
func NewRestaurantRepo(p *pool.Pool) *RestaurantRepo { return &RestaurantRepo{pool: p} }

// Create inserts a venue and populates its ID.
func (r *RestaurantRepo) Create(ctx context.Context, v *Restaurant) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	res, err := conn.ExecContext(ctx,
		`INSERT INTO restaurants (owner_id, name, nation, city, address, latitude, longitude, price, category, delivery, online_booking)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		v.OwnerID, v.Name, v.Nation, v.City, v.Address, v.Latitude, v.Longitude,
		v.Price, v.Category, v.Delivery, v.OnlineBooking)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// Update rewrites the mutable venue fields. The ownership check happens
// separately through HasAccess; an update of a missing row returns
// ErrVenueNotFound.
func (r *RestaurantRepo) Update(ctx context.Context, v *Restaurant) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Release(conn)

	res, err := conn.ExecContext(ctx,
		`UPDATE restaurants
		 SET name = ?, nation = ?, city = ?, address = ?, latitude = ?, longitude = ?,
		     price = ?, category = ?, delivery = ?, online_booking = ?
		 WHERE id = ?`,
		v.Name, v.Nation, v.City, v.Address, v.Latitude, v.Longitude,
		v.Price, v.Category, v.Delivery, v.OnlineBooking, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVenueNotFound
	}
	return nil
}

// Delete removes a venue together with its reviews, responses and favourites
// inside one transaction.
func (r *RestaurantRepo) Delete(ctx context.Context, id uint64) error {
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
		 WHERE v.restaurant_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reviews WHERE restaurant_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM favourites WHERE restaurant_id = ?`, id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, `DELETE FROM restaurants WHERE id = ?`, id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrVenueNotFound
	}
	return err
}

// HasAccess reports whether ownerID owns venueID. A missing venue simply
// yields no access; callers respond with the same denial either way.
func (r *RestaurantRepo) HasAccess(ctx context.Context, ownerID, venueID uint64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer r.pool.Release(conn)

	var one int
	err = conn.QueryRowContext(ctx,
		`SELECT 1 FROM restaurants WHERE id = ? AND owner_id = ?`, venueID, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Info fetches the detail view of a venue with its derived average rating and
// review count.
func (r *RestaurantRepo) Info(ctx context.Context, id uint64) (RestaurantInfo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return RestaurantInfo{}, err
	}
	defer r.pool.Release(conn)

	var info RestaurantInfo
	err = conn.QueryRowContext(ctx,
		`SELECT r.id, r.owner_id, r.name, r.nation, r.city, r.address, r.latitude, r.longitude,
		        r.price, r.category, r.delivery, r.online_booking,
		        (SELECT COALESCE(AVG(v.stars), 0) FROM reviews v WHERE v.restaurant_id = r.id),
		        (SELECT COUNT(*) FROM reviews v WHERE v.restaurant_id = r.id)
		 FROM restaurants r WHERE r.id = ?`, id).
		Scan(&info.ID, &info.OwnerID, &info.Name, &info.Nation, &info.City, &info.Address,
			&info.Latitude, &info.Longitude, &info.Price, &info.Category,
			&info.Delivery, &info.OnlineBooking, &info.AvgStars, &info.ReviewCount)
	if errors.Is(err, sql.ErrNoRows) {
		return RestaurantInfo{}, ErrVenueNotFound
	}
	return info, err
}

// ListByOwner returns all venues belonging to an owner, ordered by name.
func (r *RestaurantRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]RestaurantRow, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Release(conn)

	rows, err := conn.QueryContext(ctx,
		`SELECT id, name FROM restaurants WHERE owner_id = ? ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RestaurantRow, 0)
	for rows.Next() {
		var row RestaurantRow
		if err := rows.Scan(&row.ID, &row.Name); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
