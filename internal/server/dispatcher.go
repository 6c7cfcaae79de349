package server

import (
	"context"

	"github.com/iliyamo/restaurant-directory/internal/protocol"
)

// Handler tries to claim a command token for a session. When it claims the
// token it consumes the remaining argument lines itself and writes the full
// response. Handlers are shared by all sessions concurrently and must keep no
// per-session state outside the session passed in. A non-nil error is a
// transport failure and tears the session down.
type Handler interface {
	Handle(ctx context.Context, cmd string, s *protocol.Session) (bool, error)
}

// Dispatcher walks a fixed, ordered handler list until one claims the
// command. Unclaimed commands get the fallback token and the session stays
// open.
type Dispatcher struct {
	handlers []Handler
}

// NewDispatcher builds a dispatcher over the given handlers in order.
func NewDispatcher(handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// Dispatch routes one command to the first claiming handler.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd string, s *protocol.Session) error {
	for _, h := range d.handlers {
		claimed, err := h.Handle(ctx, cmd, s)
		if err != nil {
			return err
		}
		if claimed {
			return nil
		}
	}
	return s.WriteLine("unknown")
}
