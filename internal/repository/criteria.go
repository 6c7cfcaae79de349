package repository

import "errors"

// PageSize is the fixed number of rows per paginated list response, shared by
// every list endpoint.
const PageSize = 10

// kmPerDegree approximates one degree of latitude in kilometers. Radius
// comparisons happen in degree space with straight-line distance, not a
// geodesic calculation.
const kmPerDegree = 111.045

var (
	// ErrGeoIncomplete is returned when only one or two of latitude,
	// longitude and radius are supplied. A partial geo filter is never
	// silently ignored.
	ErrGeoIncomplete = errors.New("geo filter requires latitude, longitude and radius together")
	// ErrPriceRange is returned when the price bounds are inverted.
	ErrPriceRange = errors.New("invalid price bounds")
	// ErrStarsRange is returned when the star bounds are inverted.
	ErrStarsRange = errors.New("invalid star bounds")
)

// FilterCriteria is an immutable bag of optional predicates used only as
// query-engine input. A nil pointer means the predicate is absent.
type FilterCriteria struct {
	Page           int
	Lat            *float64
	Lon            *float64
	RadiusKM       *float64
	PriceMin       *int
	PriceMax       *int
	Delivery       *bool
	Online         *bool
	StarsMin       *int
	StarsMax       *int
	Category       string // empty = no category filter; matched as substring
	OnlyFavourites bool
}

// Validate rejects criteria the engine must not run: a partial geo triple and
// inverted price or star bounds.
func (q FilterCriteria) Validate() error {
	geo := 0
	if q.Lat != nil {
		geo++
	}
	if q.Lon != nil {
		geo++
	}
	if q.RadiusKM != nil {
		geo++
	}
	if geo != 0 && geo != 3 {
		return ErrGeoIncomplete
	}
	if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
		return ErrPriceRange
	}
	if q.StarsMin != nil && q.StarsMax != nil && *q.StarsMin > *q.StarsMax {
		return ErrStarsRange
	}
	return nil
}
