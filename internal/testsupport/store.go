package testsupport

import (
	"context"
	"testing"

	"ncmdump/internal/config"
	"ncmdump/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRecord inserts a running record for tests using the provided store.
func BeginRecord(t testing.TB, store *history.Store, runID, source, fingerprint string) *history.Record {
	t.Helper()

	rec, err := store.Begin(context.Background(), runID, source, fingerprint)
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return rec
}
