package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// SearchHandler serves getRestaurants, the paginated multi-predicate filter
// query. Browsing is open to anonymous sessions except for the favourites
// scope, which needs an identity to scope to.
type SearchHandler struct {
	Venues VenueStore
}

// NewSearchHandler constructs the handler from its dependencies.
func NewSearchHandler(venues VenueStore) *SearchHandler {
	return &SearchHandler{Venues: venues}
}

// Handle claims getRestaurants.
func (h *SearchHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	if cmd != "getRestaurants" {
		return false, nil
	}
	return true, h.search(ctx, s)
}

func (h *SearchHandler) search(ctx context.Context, s *protocol.Session) error {
	// Fixed schema: page, lat, lon, radius, priceMin, priceMax, delivery,
	// online, starsMin, starsMax, category flag (+category), onlyFavourites.
	args, err := readArgs(s, 11)
	if err != nil {
		return err
	}
	category := ""
	if args[10] == "y" {
		if category, err = s.ReadLine(); err != nil {
			return err
		}
	}
	favLine, err := s.ReadLine()
	if err != nil {
		return err
	}

	page, err2 := strconv.Atoi(args[0])
	if err2 != nil || page < 0 {
		return s.WriteLine("error")
	}

	var q repository.FilterCriteria
	q.Page = page
	q.Category = category
	var ok bool
	if q.Lat, ok = optFloat(args[1]); !ok {
		return s.WriteLine("coordinates")
	}
	if q.Lon, ok = optFloat(args[2]); !ok {
		return s.WriteLine("coordinates")
	}
	if q.RadiusKM, ok = optFloat(args[3]); !ok {
		return s.WriteLine("coordinates")
	}
	if q.PriceMin, ok = optInt(args[4]); !ok {
		return s.WriteLine("price")
	}
	if q.PriceMax, ok = optInt(args[5]); !ok {
		return s.WriteLine("price")
	}
	if q.Delivery, ok = optBool(args[6]); !ok {
		return s.WriteLine("error")
	}
	if q.Online, ok = optBool(args[7]); !ok {
		return s.WriteLine("error")
	}
	if q.StarsMin, ok = optInt(args[8]); !ok {
		return s.WriteLine("stars")
	}
	if q.StarsMax, ok = optInt(args[9]); !ok {
		return s.WriteLine("stars")
	}
	q.OnlyFavourites = favLine == "y"
	if q.OnlyFavourites && !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}

	pages, rows, err := h.Venues.Search(ctx, q, s.UserID())
	switch {
	case errors.Is(err, repository.ErrGeoIncomplete):
		return s.WriteLine("coordinates")
	case errors.Is(err, repository.ErrPriceRange):
		return s.WriteLine("price")
	case errors.Is(err, repository.ErrStarsRange):
		return s.WriteLine("stars")
	case err != nil:
		return err
	}

	if err := s.WriteLine("ok"); err != nil {
		return err
	}
	if err := s.WriteLine(strconv.Itoa(pages)); err != nil {
		return err
	}
	if err := s.WriteLine(strconv.Itoa(len(rows))); err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.WriteLine(strconv.FormatUint(row.ID, 10)); err != nil {
			return err
		}
		if err := s.WriteLine(row.Name); err != nil {
			return err
		}
	}
	return nil
}
