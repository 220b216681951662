package graph

import (
	"testing"

	"github.com/starford/othala/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadReplaysEdgeLogs(t *testing.T) {
	store := testStore(t)
	if err := store.AppendRelation("a", "snippet_of", "b"); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendRelation("b", "related_to", "c"); err != nil {
		t.Fatal(err)
	}
	if err := store.LinkTag("a", "some-tag"); err != nil {
		t.Fatal(err)
	}

	db := testDB(t)
	if err := db.Load(store); err != nil {
		t.Fatal(err)
	}

	pairs, err := db.RelatesPairs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 {
		t.Errorf("relates pairs = %d, want tag edges excluded", len(pairs))
	}
}

func TestLoadIsRepeatable(t *testing.T) {
	store := testStore(t)
	if err := store.AppendRelation("a", "related_to", "b"); err != nil {
		t.Fatal(err)
	}

	db := testDB(t)
	if err := db.Load(store); err != nil {
		t.Fatal(err)
	}
	if err := db.Load(store); err != nil {
		t.Fatal(err)
	}

	pairs, err := db.RelatesPairs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 {
		t.Errorf("pairs = %d, reload must wipe before replaying", len(pairs))
	}
}

func TestRecordAsEdgeHook(t *testing.T) {
	store := testStore(t)
	db := testDB(t)
	if err := db.Load(store); err != nil {
		t.Fatal(err)
	}
	store.SetEdgeHook(db.Record)

	if err := store.AppendRelation("x", "snippet_of", "y"); err != nil {
		t.Fatal(err)
	}

	pairs, err := db.RelatesPairs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0].Src != "x" || pairs[0].Dst != "y" {
		t.Errorf("pairs = %+v, want hook-fed edge visible", pairs)
	}
}

func TestExportDeduplicatesNodes(t *testing.T) {
	store := testStore(t)
	if err := store.AppendRelation("a", "related_to", "b"); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendRelation("a", "snippet_of", "c"); err != nil {
		t.Fatal(err)
	}

	db := testDB(t)
	if err := db.Load(store); err != nil {
		t.Fatal(err)
	}

	nodes, links, err := db.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Errorf("nodes = %d, want a, b, c once each", len(nodes))
	}
	if len(links) != 2 {
		t.Errorf("links = %d", len(links))
	}
	for _, l := range links {
		if l.Type != "related_to" && l.Type != "snippet_of" {
			t.Errorf("link type = %q", l.Type)
		}
	}
}
