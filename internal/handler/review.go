package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/restaurant-directory/internal/cache"
	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/queue"
	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// ReviewHandler serves the review commands. A user keeps at most one review
// per venue; the persistence layer enforces the pair uniqueness and the
// handler never merges rows.
type ReviewHandler struct {
	Reviews ReviewStore
	Cache   *cache.VenueCache
	// Publish emits a review event to the broker after a successful add or
	// edit. nil disables publishing; a publish failure never fails the
	// request.
	Publish func(ctx context.Context, ev queue.ReviewPostedEvent) error
}

// NewReviewHandler constructs the handler from its dependencies.
func NewReviewHandler(reviews ReviewStore, c *cache.VenueCache,
	publish func(ctx context.Context, ev queue.ReviewPostedEvent) error) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews, Cache: c, Publish: publish}
}

// Handle claims the review command tokens.
func (h *ReviewHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	switch cmd {
	case "addReview":
		return true, h.upsert(ctx, s, "added")
	case "editReview":
		return true, h.upsert(ctx, s, "edited")
	case "removeReview":
		return true, h.remove(ctx, s)
	case "getMyReview":
		return true, h.mine(ctx, s)
	case "getReviews":
		return true, h.list(ctx, s)
	}
	return false, nil
}

// upsert handles addReview and editReview, which share the argument schema.
func (h *ReviewHandler) upsert(ctx context.Context, s *protocol.Session, action string) error {
	args, err := readArgs(s, 3)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	venueID, ok := parseID(args[0])
	if !ok {
		return s.WriteLine("error")
	}
	stars, err2 := strconv.Atoi(args[1])
	if err2 != nil || stars < 1 || stars > 5 {
		return s.WriteLine("error")
	}
	text := args[2]

	if action == "added" {
		err = h.Reviews.Add(ctx, s.UserID(), venueID, stars, text)
	} else {
		err = h.Reviews.Edit(ctx, s.UserID(), venueID, stars, text)
	}
	if errors.Is(err, repository.ErrDuplicateReview) ||
		errors.Is(err, repository.ErrReviewNotFound) ||
		errors.Is(err, repository.ErrVenueNotFound) {
		return s.WriteLine("error")
	}
	if err != nil {
		return err
	}

	h.Cache.Invalidate(ctx, venueID) // derived rating changed
	if h.Publish != nil {
		_ = h.Publish(ctx, queue.ReviewPostedEvent{
			Action:       action,
			UserID:       s.UserID(),
			RestaurantID: venueID,
			Stars:        stars,
			Text:         text,
			PostedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	}
	return s.WriteLine("ok")
}

func (h *ReviewHandler) remove(ctx context.Context, s *protocol.Session) error {
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
	if err := h.Reviews.Remove(ctx, s.UserID(), venueID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return s.WriteLine("error")
		}
		return err
	}
	h.Cache.Invalidate(ctx, venueID)
	return s.WriteLine("ok")
}

func (h *ReviewHandler) mine(ctx context.Context, s *protocol.Session) error {
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
	v, err := h.Reviews.Mine(ctx, s.UserID(), venueID)
	if errors.Is(err, repository.ErrReviewNotFound) {
		if err := s.WriteLine("0"); err != nil {
			return err
		}
		return s.WriteLine("")
	}
	if err != nil {
		return err
	}
	if err := s.WriteLine(strconv.Itoa(v.Stars)); err != nil {
		return err
	}
	return s.WriteLine(v.Text)
}

func (h *ReviewHandler) list(ctx context.Context, s *protocol.Session) error {
	line, err := s.ReadLine()
	if err != nil {
		return err
	}
	venueID, ok := parseID(line)
	if !ok {
		return s.WriteLine("error")
	}
	reviews, err := h.Reviews.ListByVenue(ctx, venueID)
	if err != nil {
		return err
	}
	if err := s.WriteLine("ok"); err != nil {
		return err
	}
	if err := s.WriteLine(strconv.Itoa(len(reviews))); err != nil {
		return err
	}
	for _, v := range reviews {
		response := v.Response
		if response == "" {
			response = "-"
		}
		for _, l := range []string{
			strconv.FormatUint(v.ID, 10),
			v.Author,
			strconv.Itoa(v.Stars),
			v.Text,
			response,
		} {
			if err := s.WriteLine(l); err != nil {
				return err
			}
		}
	}
	return nil
}
