package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/iliyamo/restaurant-directory/internal/cache"
	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// RestaurantHandler serves venue detail and CRUD commands. Creating and
// listing one's venues require the owner role; mutations of an existing venue
// additionally check ownership of the row and answer "denied" whether or not
// it exists.
type RestaurantHandler struct {
	Venues VenueStore
	Users  UserStore
	Cache  *cache.VenueCache
}

// NewRestaurantHandler constructs the handler from its dependencies. cache
// may wrap a nil client.
func NewRestaurantHandler(venues VenueStore, users UserStore, c *cache.VenueCache) *RestaurantHandler {
	return &RestaurantHandler{Venues: venues, Users: users, Cache: c}
}

// hasOwnerRole reports whether the session identity carries the owner flag.
func (h *RestaurantHandler) hasOwnerRole(ctx context.Context, s *protocol.Session) (bool, error) {
	u, err := h.Users.GetByID(ctx, s.UserID())
	if err != nil {
		return false, err
	}
	return u.IsOwner, nil
}

// Handle claims the venue command tokens.
func (h *RestaurantHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	switch cmd {
	case "getRestaurantInfo":
		return true, h.info(ctx, s)
	case "addRestaurant":
		return true, h.add(ctx, s)
	case "editRestaurant":
		return true, h.edit(ctx, s)
	case "deleteRestaurant":
		return true, h.remove(ctx, s)
	case "getMyRestaurants":
		return true, h.mine(ctx, s)
	}
	return false, nil
}

func (h *RestaurantHandler) info(ctx context.Context, s *protocol.Session) error {
	line, err := s.ReadLine()
	if err != nil {
		return err
	}
	id, ok := parseID(line)
	if !ok {
		return s.WriteLine("err")
	}

	info, hit := h.Cache.Get(ctx, id)
	if !hit {
		info, err = h.Venues.Info(ctx, id)
		if errors.Is(err, repository.ErrVenueNotFound) {
			return s.WriteLine("err")
		}
		if err != nil {
			return err
		}
		h.Cache.Set(ctx, id, info)
	}

	lines := []string{
		"ok",
		info.Name,
		info.Nation,
		info.City,
		info.Address,
		strconv.FormatFloat(info.Latitude, 'f', -1, 64),
		strconv.FormatFloat(info.Longitude, 'f', -1, 64),
		strconv.Itoa(info.Price),
		info.Category,
		yn(info.Delivery),
		yn(info.OnlineBooking),
		strconv.FormatFloat(info.AvgStars, 'f', 2, 64),
		strconv.Itoa(info.ReviewCount),
	}
	for _, l := range lines {
		if err := s.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

// parseVenueFields applies the fixed validation order for mutating venue
// data: required-field presence, coordinate parse, price parse, price
// non-negativity. It writes the failure token itself and reports whether the
// fields were accepted.
func parseVenueFields(s *protocol.Session, args []string, v *repository.Restaurant) (bool, error) {
	name := strings.TrimSpace(args[0])
	nation := strings.TrimSpace(args[1])
	city := strings.TrimSpace(args[2])
	address := strings.TrimSpace(args[3])
	category := strings.TrimSpace(args[7])
	if name == "" || nation == "" || city == "" || address == "" || category == "" {
		return false, s.WriteLine("missing")
	}
	lat, err := strconv.ParseFloat(args[4], 64)
	if err != nil {
		return false, s.WriteLine("coordinates")
	}
	lon, err := strconv.ParseFloat(args[5], 64)
	if err != nil {
		return false, s.WriteLine("coordinates")
	}
	price, err := strconv.Atoi(args[6])
	if err != nil {
		return false, s.WriteLine("price_format")
	}
	if price < 0 {
		return false, s.WriteLine("price_negative")
	}

	v.Name, v.Nation, v.City, v.Address = name, nation, city, address
	v.Latitude, v.Longitude = lat, lon
	v.Price, v.Category = price, category
	v.Delivery = args[8] == "y"
	v.OnlineBooking = args[9] == "y"
	return true, nil
}

func (h *RestaurantHandler) add(ctx context.Context, s *protocol.Session) error {
	args, err := readArgs(s, 10)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	owner, err := h.hasOwnerRole(ctx, s)
	if err != nil {
		return err
	}
	if !owner {
		return s.WriteLine("denied")
	}
	var v repository.Restaurant
	ok, err := parseVenueFields(s, args, &v)
	if !ok || err != nil {
		return err
	}
	v.OwnerID = s.UserID()
	if err := h.Venues.Create(ctx, &v); err != nil {
		return err
	}
	return s.WriteLine("ok")
}

func (h *RestaurantHandler) edit(ctx context.Context, s *protocol.Session) error {
	args, err := readArgs(s, 11) // venue fields plus trailing id
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	var v repository.Restaurant
	ok, err := parseVenueFields(s, args[:10], &v)
	if !ok || err != nil {
		return err
	}
	id, idOK := parseID(args[10])
	if !idOK {
		return s.WriteLine("error")
	}

	access, err := h.Venues.HasAccess(ctx, s.UserID(), id)
	if err != nil {
		return err
	}
	if !access {
		return s.WriteLine("denied")
	}

	v.ID = id
	v.OwnerID = s.UserID()
	if err := h.Venues.Update(ctx, &v); err != nil {
		return err
	}
	h.Cache.Invalidate(ctx, id)
	return s.WriteLine("ok")
}

func (h *RestaurantHandler) remove(ctx context.Context, s *protocol.Session) error {
	line, err := s.ReadLine()
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	id, ok := parseID(line)
	if !ok {
		return s.WriteLine("error")
	}

	access, err := h.Venues.HasAccess(ctx, s.UserID(), id)
	if err != nil {
		return err
	}
	if !access {
		return s.WriteLine("denied")
	}
	if err := h.Venues.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return s.WriteLine("error")
		}
		return err
	}
	h.Cache.Invalidate(ctx, id)
	return s.WriteLine("ok")
}

func (h *RestaurantHandler) mine(ctx context.Context, s *protocol.Session) error {
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	owner, err := h.hasOwnerRole(ctx, s)
	if err != nil {
		return err
	}
	if !owner {
		return s.WriteLine("denied")
	}
	rows, err := h.Venues.ListByOwner(ctx, s.UserID())
	if err != nil {
		return err
	}
	if err := s.WriteLine("ok"); err != nil {
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
