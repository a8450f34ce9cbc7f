package storage

import "testing"

// OpenMemory opens an in-memory database for tests. The pool is capped at
// one connection because each connection to ":memory:" is a separate
// database. Closing is registered as a test cleanup.
func OpenMemory(t testing.TB, opts ...Option) *Store {
	t.Helper()
	s, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}
