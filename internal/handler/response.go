package handler

import (
	"context"
	"errors"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
	"github.com/iliyamo/restaurant-directory/internal/repository"
)

// ResponseHandler serves owner responses to reviews. Every operation runs
// the can-respond check first and answers "denied" whether or not the review
// exists. add and edit stay distinct: a review holds at most one response
// and a duplicate add is an error, not an overwrite.
type ResponseHandler struct {
	Responses ResponseStore
}

// NewResponseHandler constructs the handler from its dependencies.
func NewResponseHandler(responses ResponseStore) *ResponseHandler {
	return &ResponseHandler{Responses: responses}
}

// Handle claims the response command tokens.
func (h *ResponseHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	switch cmd {
	case "addResponse":
		return true, h.write(ctx, s, h.Responses.AddResponse)
	case "editResponse":
		return true, h.write(ctx, s, h.Responses.EditResponse)
	case "removeResponse":
		return true, h.remove(ctx, s)
	}
	return false, nil
}

func (h *ResponseHandler) write(ctx context.Context, s *protocol.Session,
	op func(ctx context.Context, reviewID uint64, text string) error) error {
	args, err := readArgs(s, 2)
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	reviewID, ok := parseID(args[0])
	if !ok {
		return s.WriteLine("error")
	}

	can, err := h.Responses.CanRespond(ctx, s.UserID(), reviewID)
	if err != nil {
		return err
	}
	if !can {
		return s.WriteLine("denied")
	}
	if err := op(ctx, reviewID, args[1]); err != nil {
		if errors.Is(err, repository.ErrResponseExists) || errors.Is(err, repository.ErrResponseNotFound) {
			return s.WriteLine("error")
		}
		return err
	}
	return s.WriteLine("ok")
}

func (h *ResponseHandler) remove(ctx context.Context, s *protocol.Session) error {
	line, err := s.ReadLine()
	if err != nil {
		return err
	}
	if !s.Authenticated() {
		return s.WriteLine("unauthorized")
	}
	reviewID, ok := parseID(line)
	if !ok {
		return s.WriteLine("error")
	}

	can, err := h.Responses.CanRespond(ctx, s.UserID(), reviewID)
	if err != nil {
		return err
	}
	if !can {
		return s.WriteLine("denied")
	}
	if err := h.Responses.RemoveResponse(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrResponseNotFound) {
			return s.WriteLine("error")
		}
		return err
	}
	return s.WriteLine("ok")
}
