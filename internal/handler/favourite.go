package handler

import (
	"context"
	"errors"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// FavouriteHandler serves the bookmark commands. Add and remove are
// idempotent from the client's perspective: duplicate adds and absent
// removes both succeed as no-ops.
type FavouriteHandler struct {
	Favourites FavouriteStore
}

// NewFavouriteHandler constructs the handler from its dependencies.
func NewFavouriteHandler(favourites FavouriteStore) *FavouriteHandler {
	return &FavouriteHandler{Favourites: favourites}
}

// Handle claims the favourite command tokens.
func (h *FavouriteHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	switch cmd {
	case "isFavourite":
		return true, h.is(ctx, s)
	case "addFavourite":
		return true, h.toggle(ctx, s, h.Favourites.Add)
	case "removeFavourite":
		return true, h.toggle(ctx, s, h.Favourites.Remove)
	}
	return false, nil
}

func (h *FavouriteHandler) is(ctx context.Context, s *protocol.Session) error {
	line, err := s.ReadLine()
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	venueID, ok := parseID(line)
	if !ok {
		return s.WriteLine("error")
	}
	fav, err := h.Favourites.Is(ctx, s.UserID(), venueID)
	if err != nil {
		return err
	}
	return s.WriteLine(yn(fav))
}

func (h *FavouriteHandler) toggle(ctx context.Context, s *protocol.Session,
	op func(ctx context.Context, userID, venueID uint64) error) error {
	line, err := s.ReadLine()
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	venueID, ok := parseID(line)
	if !ok {
		return s.WriteLine("error")
	}
	if err := op(ctx, s.UserID(), venueID); err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return s.WriteLine("error")
		}
		return err
	}
	return s.WriteLine("ok")
}
