package handler

import (
	"context"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
)

// SystemHandler serves the liveness and disconnect commands.
type SystemHandler struct{}

// NewSystemHandler constructs the handler; it holds no state.
func NewSystemHandler() *SystemHandler { return &SystemHandler{} }

// Handle claims ping and quit.
func (h *SystemHandler) Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error) {
	switch cmd {
	case "ping":
		return true, s.WriteLine("pong")
	case "quit":
		if err := s.WriteLine("bye"); err != nil {
			return true, err
		}
		s.MarkClosed()
		return true, nil
	}
	return false, nil
}
