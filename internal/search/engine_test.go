package search

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/testutil"
)

type fixture struct {
	store  *storage.Store
	idx    *index.Index
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.TestStore(t)
	idx := testutil.TestIndex(t, store)
	g := testutil.TestGraph(t, store)
	return &fixture{store: store, idx: idx, engine: NewEngine(store, idx, g)}
}

func (f *fixture) add(t *testing.T, p storage.CreateContentParams) string {
	t.Helper()
	node, err := f.store.CreateContent(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.idx.IndexDocument(node); err != nil {
		t.Fatal(err)
	}
	return node.ID
}

func ids(res *Result) []string {
	out := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.ID)
	}
	return out
}

func TestSearchEmptyIndex(t *testing.T) {
	f := newFixture(t)
	res, err := f.engine.Search(Request{Query: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 || len(res.Items) != 0 {
		t.Errorf("total = %d, items = %d, want empty", res.Total, len(res.Items))
	}
}

func TestRelevanceTermFrequencyWins(t *testing.T) {
	f := newFixture(t)
	c1 := f.add(t, storage.CreateContentParams{Content: "alpha beta gamma", Styles: []string{"post"}})
	c2 := f.add(t, storage.CreateContentParams{Content: "alpha alpha beta", Styles: []string{"post"}})

	res, err := f.engine.Search(Request{Query: "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d", res.Total)
	}
	got := ids(res)
	if got[0] != c2 || got[1] != c1 {
		t.Errorf("order = %v, want higher term frequency first", got)
	}
}

func TestRelevanceRareTermWeighsMore(t *testing.T) {
	f := newFixture(t)
	common := f.add(t, storage.CreateContentParams{Content: "shared word here", Styles: []string{"post"}})
	_ = common
	f.add(t, storage.CreateContentParams{Content: "shared text again", Styles: []string{"post"}})
	rare := f.add(t, storage.CreateContentParams{Content: "shared unique", Styles: []string{"post"}})

	res, err := f.engine.Search(Request{Query: "shared unique"})
	if err != nil {
		t.Fatal(err)
	}
	if ids(res)[0] != rare {
		t.Errorf("order = %v, want the document with the rare term first", ids(res))
	}
}

func TestFilterByTag(t *testing.T) {
	f := newFixture(t)
	tagged := f.add(t, storage.CreateContentParams{Content: "alpha", Styles: []string{"post"}, Tags: []string{"keep"}})
	f.add(t, storage.CreateContentParams{Content: "alpha", Styles: []string{"post"}, Tags: []string{"other"}})

	res, err := f.engine.Search(Request{Filters: Filters{Tag: []string{"keep"}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Items[0].ID != tagged {
		t.Errorf("total = %d, want only the tagged node", res.Total)
	}

	res, err = f.engine.Search(Request{Filters: Filters{Tag: []string{"no-such-tag"}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 {
		t.Errorf("nonexistent tag matched %d documents", res.Total)
	}
}

func TestFilterByStyleDropsUnknownEntries(t *testing.T) {
	f := newFixture(t)
	f.add(t, storage.CreateContentParams{Content: "alpha", Styles: []string{"blog"}})

	// "sonnet" is outside the enumeration and is dropped, so the filter
	// reduces to the blog entry.
	res, err := f.engine.Search(Request{Filters: Filters{Style: []string{"sonnet", "blog"}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 {
		t.Errorf("total = %d, want unknown style entry ignored", res.Total)
	}

	res, err = f.engine.Search(Request{Filters: Filters{Style: []string{"tweet"}}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 0 {
		t.Errorf("tweet filter matched %d", res.Total)
	}
}

func TestFilterByTitleAndContentSubstrings(t *testing.T) {
	f := newFixture(t)
	hit := f.add(t, storage.CreateContentParams{Content: "The QUICK brown fox", Title: "Morning Notes", Styles: []string{"post"}})
	f.add(t, storage.CreateContentParams{Content: "something else", Title: "Evening Notes", Styles: []string{"post"}})

	res, err := f.engine.Search(Request{Filters: Filters{Title: "morning"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Items[0].ID != hit {
		t.Errorf("title filter total = %d", res.Total)
	}

	res, err = f.engine.Search(Request{Filters: Filters{Content: "quick BROWN"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Items[0].ID != hit {
		t.Errorf("content filter total = %d", res.Total)
	}
}

func TestRelatesFilterSymmetric(t *testing.T) {
	f := newFixture(t)
	a := f.add(t, storage.CreateContentParams{Content: "alpha", Styles: []string{"post"}})
	b := f.add(t, storage.CreateContentParams{Content: "beta", Styles: []string{"post"}})
	f.add(t, storage.CreateContentParams{Content: "gamma", Styles: []string{"post"}})

	// Edge direction b -> a; filtering on either endpoint finds the pair.
	if err := f.store.AppendRelation(b, "snippet_of", a); err != nil {
		t.Fatal(err)
	}

	for _, anchor := range []string{a, b} {
		res, err := f.engine.Search(Request{Filters: Filters{Relates: []string{anchor}}})
		if err != nil {
			t.Fatal(err)
		}
		got := ids(res)
		want := map[string]bool{a: true, b: true}
		if len(got) != 2 || !want[got[0]] || !want[got[1]] {
			t.Errorf("relates(%s) = %v, want both edge endpoints", anchor, got)
		}
	}
}

func TestDateSortDescending(t *testing.T) {
	f := newFixture(t)
	older := f.add(t, storage.CreateContentParams{Content: "x", Date: "2023-05-01T00:00:00.000000Z", Styles: []string{"post"}})
	newer := f.add(t, storage.CreateContentParams{Content: "x", Date: "2024-01-15T00:00:00.000000Z", Styles: []string{"post"}})

	res, err := f.engine.Search(Request{Sort: SortDate})
	if err != nil {
		t.Fatal(err)
	}
	got := ids(res)
	if got[0] != newer || got[1] != older {
		t.Errorf("date order = %v", got)
	}
}

func TestRandomSortSeedReproducible(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 8; i++ {
		f.add(t, storage.CreateContentParams{Content: "x", Styles: []string{"post"}})
	}

	seed := int64(42)
	first, err := f.engine.Search(Request{Sort: SortRandom, Seed: &seed, PageSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.engine.Search(Request{Sort: SortRandom, Seed: &seed, PageSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Error("same seed produced different orders")
	}
	if first.Total != 8 {
		t.Errorf("total = %d", first.Total)
	}
}

func TestPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.add(t, storage.CreateContentParams{Content: "x", Styles: []string{"post"}})
	}

	page1, err := f.engine.Search(Request{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	page3, err := f.engine.Search(Request{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	beyond, err := f.engine.Search(Request{Page: 9, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	if page1.Total != 5 || page3.Total != 5 || beyond.Total != 5 {
		t.Error("total must be computed before pagination")
	}
	if len(page1.Items) != 2 {
		t.Errorf("page 1 items = %d", len(page1.Items))
	}
	if len(page3.Items) != 1 {
		t.Errorf("page 3 items = %d, want the remainder", len(page3.Items))
	}
	if len(beyond.Items) != 0 {
		t.Errorf("page beyond range items = %d, want 0", len(beyond.Items))
	}

	// Defaults: page 0 clamps to 1, size 0 to 10.
	defaults, err := f.engine.Search(Request{})
	if err != nil {
		t.Fatal(err)
	}
	if defaults.Page != 1 || defaults.PageSize != 10 {
		t.Errorf("defaults = page %d size %d", defaults.Page, defaults.PageSize)
	}
}

func TestHydrationSkipsMissingNodeFiles(t *testing.T) {
	f := newFixture(t)
	gone := f.add(t, storage.CreateContentParams{Content: "x", Styles: []string{"post"}})
	kept := f.add(t, storage.CreateContentParams{Content: "x", Styles: []string{"post"}})

	// Delete a node file out-of-band; the index still lists it.
	if err := os.Remove(filepath.Join(f.store.ContentDir(), gone+".json")); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.Search(Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 {
		t.Errorf("total = %d, computed over the index", res.Total)
	}
	if len(res.Items) != 1 || res.Items[0].ID != kept {
		t.Errorf("items = %v, want the missing file silently skipped", ids(res))
	}
}

func TestUnknownSortRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Search(Request{Sort: "alphabetical"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestEmptyQueryRelevanceKeepsDeterministicOrder(t *testing.T) {
	f := newFixture(t)
	f.add(t, storage.CreateContentParams{Content: "x", Styles: []string{"post"}})
	f.add(t, storage.CreateContentParams{Content: "y", Styles: []string{"post"}})

	first, err := f.engine.Search(Request{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.engine.Search(Request{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Error("empty query order varied between calls")
	}
}
