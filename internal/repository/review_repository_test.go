package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/iliyamo/restaurant-directory/internal/pool"
)

// txRecorder is a database/sql driver that records transaction boundaries and
// statements, so cascade deletes can be checked for atomicity without a
// running backing store.
type txRecorder struct {
	mu           sync.Mutex
	calls        []string
	failContains string // statements containing this substring fail
}

func (d *txRecorder) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *txRecorder) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *txRecorder) reset() {
	d.mu.Lock()
	d.calls = nil
	d.mu.Unlock()
}

func (d *txRecorder) Open(name string) (driver.Conn, error) { return &txRecorderConn{d: d}, nil }

type txRecorderConn struct{ d *txRecorder }

func (c *txRecorderConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("unexpected prepare")
}

func (c *txRecorderConn) Close() error { return nil }

func (c *txRecorderConn) Begin() (driver.Tx, error) {
	c.d.record("begin")
	return &txRecorderTx{d: c.d}, nil
}

func (c *txRecorderConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.d.record(query)
	if c.d.failContains != "" && strings.Contains(query, c.d.failContains) {
		return nil, errors.New("backing store failure")
	}
	return driver.RowsAffected(1), nil
}

type txRecorderTx struct{ d *txRecorder }

func (t *txRecorderTx) Commit() error {
	t.d.record("commit")
	return nil
}

func (t *txRecorderTx) Rollback() error {
	t.d.record("rollback")
	return nil
}

var (
	txOK   = &txRecorder{}
	txFail = &txRecorder{failContains: "DELETE FROM reviews"}
)

func init() {
	sql.Register("reviewtx", txOK)
	sql.Register("reviewtx-fail", txFail)
}

func newRecordedReviewRepo(t *testing.T, driverName string) *ReviewRepo {
	t.Helper()
	db, err := sql.Open(driverName, "")
	if err != nil {
		t.Fatalf("open recorder db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewReviewRepo(pool.New(db, 1))
}

func TestRemoveDeletesInsideOneTransaction(t *testing.T) {
	txOK.reset()
	r := newRecordedReviewRepo(t, "reviewtx")

	if err := r.Remove(context.Background(), 7, 3); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	calls := txOK.recorded()
	if len(calls) != 4 {
		t.Fatalf("recorded %d calls, want 4: %q", len(calls), calls)
	}
	if calls[0] != "begin" {
		t.Fatalf("first call = %q, want begin", calls[0])
	}
	if !strings.Contains(calls[1], "responses") {
		t.Fatalf("response delete must run first, got %q", calls[1])
	}
	if !strings.Contains(calls[2], "DELETE FROM reviews") {
		t.Fatalf("review delete missing, got %q", calls[2])
	}
	if calls[3] != "commit" {
		t.Fatalf("last call = %q, want commit", calls[3])
	}
}

func TestRemoveRollsBackWhenReviewDeleteFails(t *testing.T) {
	txFail.reset()
	r := newRecordedReviewRepo(t, "reviewtx-fail")

	if err := r.Remove(context.Background(), 7, 3); err == nil {
		t.Fatal("expected the statement failure to propagate")
	}

	calls := txFail.recorded()
	last := calls[len(calls)-1]
	if last != "rollback" {
		t.Fatalf("last call = %q, want rollback", last)
	}
	for _, call := range calls {
		if call == "commit" {
			t.Fatal("a failed cascade must not commit")
		}
	}
}
