package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/models"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func contentNode(id, title, body string) *models.ContentNode {
	return &models.ContentNode{
		ID:      id,
		Type:    models.KindContent,
		Title:   title,
		Date:    "2024-01-01T00:00:00.000000Z",
		Content: body,
	}
}

type sliceSource []*models.ContentNode

func (s sliceSource) EachContent(fn func(*models.ContentNode)) error {
	for _, n := range s {
		fn(n)
	}
	return nil
}

func TestIndexDocumentBasics(t *testing.T) {
	idx := testIndex(t)

	if err := idx.IndexDocument(contentNode("d1", "Alpha", "beta gamma")); err != nil {
		t.Fatal(err)
	}
	if idx.DocCount() != 1 {
		t.Errorf("DocCount = %d", idx.DocCount())
	}
	if idx.DocFrequency("alpha") != 1 || idx.DocFrequency("beta") != 1 {
		t.Error("title and body tokens should both be indexed")
	}
	if idx.Length("d1") != 3 {
		t.Errorf("Length = %d, want 3", idx.Length("d1"))
	}
}

func TestIndexDocumentEmptyBodyLengthOne(t *testing.T) {
	idx := testIndex(t)
	if err := idx.IndexDocument(contentNode("d1", "", "")); err != nil {
		t.Fatal(err)
	}
	if idx.Length("d1") != 1 {
		t.Errorf("empty document length = %d, want floor of 1", idx.Length("d1"))
	}
}

func TestIndexDocumentMergeKeepsStaleTokens(t *testing.T) {
	idx := testIndex(t)

	if err := idx.IndexDocument(contentNode("d1", "", "alpha beta")); err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocument(contentNode("d1", "", "beta gamma")); err != nil {
		t.Fatal(err)
	}

	// Incremental updates only merge; alpha still points at d1 until a rebuild.
	if idx.DocFrequency("alpha") != 1 {
		t.Error("stale token should survive an incremental reindex")
	}
	if idx.Length("d1") != 2 {
		t.Errorf("length = %d, want the latest token count", idx.Length("d1"))
	}
	if idx.DocCount() != 1 {
		t.Errorf("DocCount = %d, reindexing must not duplicate the document", idx.DocCount())
	}
}

func TestRebuildReconcilesStaleTokens(t *testing.T) {
	idx := testIndex(t)

	if err := idx.IndexDocument(contentNode("d1", "", "alpha beta")); err != nil {
		t.Fatal(err)
	}
	current := sliceSource{contentNode("d1", "", "beta gamma")}
	if err := idx.Rebuild(current); err != nil {
		t.Fatal(err)
	}

	if idx.DocFrequency("alpha") != 0 {
		t.Error("rebuild should drop tokens the store no longer contains")
	}
	if idx.DocFrequency("gamma") != 1 {
		t.Error("rebuild should index current tokens")
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	idx := testIndex(t)
	src := sliceSource{
		contentNode("d1", "One", "alpha beta"),
		contentNode("d2", "Two", "beta gamma"),
	}

	if err := idx.Rebuild(src); err != nil {
		t.Fatal(err)
	}
	first := idx.MetaTable()
	firstAlpha := idx.Postings("alpha")

	if err := idx.Rebuild(src); err != nil {
		t.Fatal(err)
	}
	if len(idx.MetaTable()) != len(first) {
		t.Error("second rebuild changed the meta table size")
	}
	second := idx.Postings("alpha")
	if len(second) != len(firstAlpha) || second["d1"] != firstAlpha["d1"] {
		t.Error("second rebuild changed the postings")
	}
}

func TestOpenLoadsPersistedSnapshots(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocument(contentNode("d1", "Persisted", "alpha")); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.DocCount() != 1 {
		t.Errorf("DocCount after reopen = %d", reopened.DocCount())
	}
	if reopened.DocFrequency("alpha") != 1 {
		t.Error("postings not recovered from snapshots")
	}
	meta := reopened.MetaTable()
	if meta["d1"].Title != "Persisted" {
		t.Errorf("meta title = %q", meta["d1"].Title)
	}
}

func TestOpenTamperedSnapshotStillLoads(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.IndexDocument(contentNode("d1", "", "alpha")); err != nil {
		t.Fatal(err)
	}

	// Out-of-band edit invalidates the manifest checksum but must not brick
	// the index; a rebuild is the remedy.
	path := filepath.Join(dir, doclensFile)
	if err := os.WriteFile(path, []byte(`{"d1":5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("tampered snapshot should load with a warning, got %v", err)
	}
	if reopened.Length("d1") != 5 {
		t.Error("tampered value should still be read")
	}
}

func TestMetaTableReturnsCopy(t *testing.T) {
	idx := testIndex(t)
	if err := idx.IndexDocument(contentNode("d1", "T", "alpha")); err != nil {
		t.Fatal(err)
	}
	m := idx.MetaTable()
	delete(m, "d1")
	if idx.DocCount() != 1 {
		t.Error("mutating the returned meta table affected the index")
	}
}
