// Package server owns the TCP listener lifecycle and the per-connection
// serve loop: accept, spawn a worker, read-dispatch-write until stream end.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/iliyamo/restaurant-directory/internal/auth"
	"github.com/iliyamo/restaurant-directory/internal/protocol"
)

// Server accepts inbound connections and runs one session worker per
// connection. Stop closes the listening socket and joins the accept loop;
// in-flight sessions finish their current request on their own.
type Server struct {
	addr       string
	dispatcher *Dispatcher
	registry   *auth.Registry

	ln net.Listener
	wg sync.WaitGroup
}

// New wires a server from explicitly constructed dependencies.
func New(addr string, d *Dispatcher, registry *auth.Registry) *Server {
	return &Server{addr: addr, dispatcher: d, registry: registry}
}

// Start binds the listener and launches the accept loop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listening socket and waits for the accept loop to return.
func (s *Server) Stop() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.wg.Wait()
}

// Addr returns the bound listener address, useful when binding port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("accept: %v", err)
			continue
		}
		go s.serve(conn)
	}
}

// serve runs the synchronous read-dispatch-write loop for one connection.
// Transport errors close this session only; the identity held by the session
// is always released on the way out, even without an explicit logout.
func (s *Server) serve(conn net.Conn) {
	peer := conn.RemoteAddr().String()
	sess := protocol.NewSession(conn, func(dir, line string) {
		log.Printf("%s %s %s", peer, dir, line)
	})
	defer func() {
		if id := sess.UserID(); id != 0 {
			s.registry.Release(id)
		}
		_ = sess.Close()
	}()

	ctx := context.Background()
	for sess.Alive() {
		cmd, err := sess.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("%s read: %v", peer, err)
			}
			return
		}
		if cmd == "" {
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, cmd, sess); err != nil {
			log.Printf("%s dispatch %q: %v", peer, cmd, err)
			return
		}
	}
}
