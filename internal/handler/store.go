// Package handler implements the protocol command handlers. Each handler is
// a stateless service shared by every session; the session is always passed
// in explicitly. Storage access goes through narrow per-capability
// interfaces so tests can substitute in-memory fakes.
package handler

import (
	"context"

	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// UserStore is the identity lookup and registration capability.
type UserStore interface {
	Create(ctx context.Context, u *repository.User) error
	GetByUsername(ctx context.Context, username string) (repository.User, error)
	GetByID(ctx context.Context, id uint64) (repository.User, error)
}

// VenueStore covers venue CRUD, the ownership check and the filter query.
type VenueStore interface {
	Create(ctx context.Context, v *repository.Restaurant) error
	Update(ctx context.Context, v *repository.Restaurant) error
	Delete(ctx context.Context, id uint64) error
	HasAccess(ctx context.Context, ownerID, venueID uint64) (bool, error)
	Info(ctx context.Context, id uint64) (repository.RestaurantInfo, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]repository.RestaurantRow, error)
	Search(ctx context.Context, q repository.FilterCriteria, viewerID uint64) (int, []repository.RestaurantRow, error)
}

// ReviewStore covers a user's own reviews and venue review listings.
type ReviewStore interface {
	Add(ctx context.Context, userID, venueID uint64, stars int, text string) error
	Edit(ctx context.Context, userID, venueID uint64, stars int, text string) error
	Remove(ctx context.Context, userID, venueID uint64) error
	Mine(ctx context.Context, userID, venueID uint64) (repository.Review, error)
	ListByVenue(ctx context.Context, venueID uint64) ([]repository.Review, error)
}

// ResponseStore covers owner responses to reviews, including the
// ownership check.
type ResponseStore interface {
	CanRespond(ctx context.Context, ownerID, reviewID uint64) (bool, error)
	AddResponse(ctx context.Context, reviewID uint64, text string) error
	EditResponse(ctx context.Context, reviewID uint64, text string) error
	RemoveResponse(ctx context.Context, reviewID uint64) error
}

// FavouriteStore covers the presence-only bookmark relation.
type FavouriteStore interface {
	Add(ctx context.Context, userID, venueID uint64) error
	Remove(ctx context.Context, userID, venueID uint64) error
	Is(ctx context.Context, userID, venueID uint64) (bool, error)
}
