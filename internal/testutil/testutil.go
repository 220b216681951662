// Package testutil provides shared test helpers for setting up library
// roots, indexes, and graph caches.
package testutil

import (
	"testing"

	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/storage"
)

// TestStore creates a storage.Store over a temporary library directory.
func TestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestIndex creates an index over the store's index directory.
func TestIndex(t *testing.T, store *storage.Store) *index.Index {
	t.Helper()
	idx, err := index.Open(store.IndexDir())
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

// TestGraph creates an in-memory adjacency cache wired as the store's edge
// hook, loaded from whatever the store already holds.
func TestGraph(t *testing.T, store *storage.Store) *graph.DB {
	t.Helper()
	g, err := graph.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { g.Close() })
	if err := g.Load(store); err != nil {
		t.Fatal(err)
	}
	store.SetEdgeHook(g.Record)
	return g
}
