// Package protocol implements the line-oriented wire protocol spoken over
// TCP. One logical request yields exactly one logical multi-line response;
// there are no server-initiated pushes.
package protocol

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// lineBreakToken is the reserved in-band escape for newlines embedded inside
// a single field. It is substituted on the way out and reversed on the way in
// so that one field always occupies one wire line.
const lineBreakToken = "[[NL]]"

// AuditFunc observes every line crossing the wire. direction is "in" or "out".
type AuditFunc func(direction, line string)

// Session is the server-side state for one client connection: transport
// handles, the authenticated identity (0 = anonymous) and a liveness flag.
// A single worker owns the session for the duration of each request, but the
// teardown path may inspect identity concurrently, so state is lock-guarded.
type Session struct {
	conn  net.Conn
	r     *bufio.Reader
	w     *bufio.Writer
	audit AuditFunc

	mu     sync.Mutex
	userID uint64
	alive  bool
}

// NewSession wraps an accepted connection. audit may be nil.
func NewSession(conn net.Conn, audit AuditFunc) *Session {
	return &Session{
		conn:  conn,
		r:     bufio.NewReader(conn),
		w:     bufio.NewWriter(conn),
		audit: audit,
		alive: true,
	}
}

// ReadLine returns the next newline-terminated UTF-8 line with embedded
// newline escapes restored, or the underlying transport error (io.EOF on a
// clean stream end).
func (s *Session) ReadLine() (string, error) {
	raw, err := s.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line := strings.TrimRight(raw, "\r\n")
	line = strings.ReplaceAll(line, lineBreakToken, "\n")
	if s.audit != nil {
		s.audit("in", line)
	}
	return line, nil
}

// WriteLine escapes embedded newlines, appends the terminator and flushes
// immediately.
func (s *Session) WriteLine(line string) error {
	if s.audit != nil {
		s.audit("out", line)
	}
	out := strings.ReplaceAll(line, "\n", lineBreakToken)
	if _, err := s.w.WriteString(out); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	return s.w.Flush()
}

// UserID returns the authenticated identity, 0 when anonymous.
func (s *Session) UserID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Authenticated reports whether an identity is bound to the session.
func (s *Session) Authenticated() bool { return s.UserID() != 0 }

// SetUserID binds an authenticated identity to the session.
func (s *Session) SetUserID(id uint64) {
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

// ClearUser returns the session to the anonymous state.
func (s *Session) ClearUser() {
	s.mu.Lock()
	s.userID = 0
	s.mu.Unlock()
}

// Alive reports whether the session should keep serving requests.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// MarkClosed flips the liveness flag so the serve loop exits after the
// current response.
func (s *Session) MarkClosed() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
}

// Close tears the transport down. Safe to call more than once.
func (s *Session) Close() error {
	s.MarkClosed()
	return s.conn.Close()
}

// RemoteAddr identifies the peer for logging.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}
