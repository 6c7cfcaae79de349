// Package pool hands out and reclaims dedicated backing-store connections
// under a hard concurrency cap shared by every session worker.
package pool

import (
	"context"
	"database/sql"
	"sync"
)

// Opener yields dedicated backing-store connections. *sql.DB satisfies it.
type Opener interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Pool bounds the number of simultaneously checked-out connections. Permits
// are granted in arrival order (blocked Acquire calls queue on the permit
// channel), and released connections are cached and reused before a new one
// is opened.
type Pool struct {
	opener  Opener
	permits chan struct{}

	mu   sync.Mutex
	free []*sql.Conn
}

// New builds a pool with the given maximum number of concurrent checkouts.
func New(opener Opener, size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		opener:  opener,
		permits: make(chan struct{}, size),
		free:    make([]*sql.Conn, 0, size),
	}
	for i := 0; i < size; i++ {
		p.permits <- struct{}{}
	}
	return p
}

// Acquire blocks until a permit is available, then returns a cached
// connection when a live one exists or opens a new one. Cached connections
// are pinged before reuse; dead ones are closed and skipped, so a stale
// cache entry costs one ping, never a broken checkout. An open failure frees
// the permit again and propagates to the caller; it is not retried.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	select {
	case <-p.permits:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for {
		p.mu.Lock()
		n := len(p.free)
		if n == 0 {
			p.mu.Unlock()
			break
		}
		conn := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		if conn.PingContext(ctx) == nil {
			return conn, nil
		}
		_ = conn.Close()
	}

	conn, err := p.opener.Conn(ctx)
	if err != nil {
		p.permits <- struct{}{}
		return nil, err
	}
	return conn, nil
}

// Release returns a connection to the cache and frees one permit. Liveness is
// not checked here; Acquire verifies a cached connection before handing it
// out, keeping the release path off the backing store.
func (p *Pool) Release(conn *sql.Conn) {
	if conn != nil {
		p.mu.Lock()
		p.free = append(p.free, conn)
		p.mu.Unlock()
	}
	p.permits <- struct{}{}
}

// Flush closes every cached connection and empties the cache. Used at
// shutdown, after the listener has stopped handing sessions to workers.
func (p *Pool) Flush() {
	p.mu.Lock()
	conns := p.free
	p.free = nil
	p.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
