package repository

import (
	"context"
	"strings"
)

// The dynamic filter query. Every optional predicate is AND-ed into the base
// query only when present; the total count and the page fetch render from the
// same clause list so page count and row count never diverge for identical
// inputs.

// Search validates the criteria, computes the total match count and fetches
// the zero-based page of (id, name) rows ordered by name ascending.
// pages = ceil(total / PageSize). viewerID scopes the favourites predicate
// and is only consulted when OnlyFavourites is set.
func (r *RestaurantRepo) Search(ctx context.Context, q FilterCriteria, viewerID uint64) (int, []RestaurantRow, error) {
	if err := q.Validate(); err != nil {
		return 0, nil, err
	}

	cl := buildPredicates(q, viewerID)
	cond, args := cl.where()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer r.pool.Release(conn)

	var total int
	countSQL := `SELECT COUNT(*) FROM restaurants r` + cond
	if err := conn.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return 0, nil, err
	}

	dataSQL := `SELECT r.id, r.name FROM restaurants r` + cond +
		` ORDER BY r.name ASC LIMIT ? OFFSET ?`
	dataArgs := append(append([]any{}, args...), PageSize, q.Page*PageSize)

	rows, err := conn.QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	out := make([]RestaurantRow, 0, PageSize)
	for rows.Next() {
		var row RestaurantRow
		if err := rows.Scan(&row.ID, &row.Name); err != nil {
			return 0, nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	pages := (total + PageSize - 1) / PageSize
	return pages, out, nil
}

func buildPredicates(q FilterCriteria, viewerID uint64) *clauseList {
	cl := &clauseList{}
	if q.Lat != nil { // Validate guarantees lon and radius are present too
		rd := *q.RadiusKM / kmPerDegree
		cl.add(`POW(r.latitude - ?, 2) + POW(r.longitude - ?, 2) <= ?`, *q.Lat, *q.Lon, rd*rd)
	}
	if q.PriceMin != nil {
		cl.add(`r.price >= ?`, *q.PriceMin)
	}
	if q.PriceMax != nil {
		cl.add(`r.price <= ?`, *q.PriceMax)
	}
	if q.Delivery != nil {
		cl.add(`r.delivery = ?`, *q.Delivery)
	}
	if q.Online != nil {
		cl.add(`r.online_booking = ?`, *q.Online)
	}
	if q.StarsMin != nil {
		cl.add(`(SELECT COALESCE(AVG(v.stars), 0) FROM reviews v WHERE v.restaurant_id = r.id) >= ?`, *q.StarsMin)
	}
	if q.StarsMax != nil {
		cl.add(`(SELECT COALESCE(AVG(v.stars), 0) FROM reviews v WHERE v.restaurant_id = r.id) <= ?`, *q.StarsMax)
	}
	if q.Category != "" {
		cl.add(`LOWER(r.category) LIKE ?`, "%"+strings.ToLower(q.Category)+"%")
	}
	if q.OnlyFavourites {
		cl.add(`EXISTS (SELECT 1 FROM favourites f WHERE f.restaurant_id = r.id AND f.user_id = ?)`, viewerID)
	}
	return cl
}
