// Package index maintains the inverted full-text index over content nodes:
// token postings, document lengths, and a per-document metadata snapshot,
// persisted as whole-file JSON snapshots under the library's index/ dir.
//
// The three tables are guarded as one unit by a single RW mutex; every
// mutation rewrites all three snapshots. The index is derived data and never
// a source of truth — Rebuild reconciles any drift from the node store.
package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/models"
)

// Snapshot file names inside the index directory.
const (
	invertedFile = "inverted.json"
	doclensFile  = "doclens.json"
	metaFile     = "meta.json"
	manifestFile = "manifest.json"
)

// DocMeta is the per-document metadata snapshot used by filters and sorts,
// avoiding node-file reads for the cheap predicates.
type DocMeta struct {
	Date    string   `json:"date"`
	Title   string   `json:"title"`
	Style   []string `json:"style"`
	Tags    []string `json:"tags"`
	Authors []string `json:"authors"`
}

// manifest records when the snapshots were written and their digests, so
// torn or out-of-band edits are detectable on load.
type manifest struct {
	CreatedAt string            `json:"created_at"`
	Checksums map[string]string `json:"checksums"`
}

// Source yields every content node currently in the node store.
type Source interface {
	EachContent(fn func(*models.ContentNode)) error
}

// Index owns the three snapshot tables.
type Index struct {
	dir string

	mu       sync.RWMutex
	postings map[string]map[string]int // token -> docID -> term frequency
	lens     map[string]int            // docID -> token count (min 1)
	meta     map[string]DocMeta        // docID -> metadata snapshot
}

// Open loads the index from dir, creating the directory and starting empty
// when no snapshots exist. A manifest checksum mismatch is logged but not
// fatal: the snapshots are still loaded and a rebuild is the remedy.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: create dir: %w", err)
	}
	idx := &Index{
		dir:      dir,
		postings: map[string]map[string]int{},
		lens:     map[string]int{},
		meta:     map[string]DocMeta{},
	}
	idx.verifyManifest()
	if err := loadJSON(filepath.Join(dir, invertedFile), &idx.postings); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(dir, doclensFile), &idx.lens); err != nil {
		return nil, err
	}
	if err := loadJSON(filepath.Join(dir, metaFile), &idx.meta); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) verifyManifest() {
	var m manifest
	if err := loadJSON(filepath.Join(idx.dir, manifestFile), &m); err != nil || m.Checksums == nil {
		return
	}
	for name, want := range m.Checksums {
		got := checksum.SumFile(filepath.Join(idx.dir, name))
		if got != "" && got != want {
			slog.Warn("index: snapshot checksum mismatch, consider reindexing",
				slog.String("file", name))
		}
	}
}

// loadJSON reads path into v; a missing file leaves v untouched.
func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("index: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("index: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// IndexDocument tokenizes the node's title and body, merges its term
// frequencies into the postings (only this document's own entries are
// touched; tokens it no longer contains stay in other documents' postings),
// records its length and metadata snapshot, and persists all three tables.
func (idx *Index) IndexDocument(node *models.ContentNode) error {
	tokens := Tokenize(node.Title + "\n" + node.Content)
	tf := termFrequencies(tokens)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for tok, cnt := range tf {
		docs := idx.postings[tok]
		if docs == nil {
			docs = map[string]int{}
			idx.postings[tok] = docs
		}
		docs[node.ID] = cnt
	}
	n := len(tokens)
	if n == 0 {
		n = 1 // avoid division by zero in scoring
	}
	idx.lens[node.ID] = n
	idx.meta[node.ID] = metaOf(node)

	return idx.persistLocked()
}

// Rebuild recomputes every table from the node store, replacing the current
// snapshots. It holds the writer lock for the whole swap so incremental
// updates cannot interleave with it. Running it twice with no intervening
// writes yields identical snapshots.
func (idx *Index) Rebuild(src Source) error {
	postings := map[string]map[string]int{}
	lens := map[string]int{}
	meta := map[string]DocMeta{}

	err := src.EachContent(func(node *models.ContentNode) {
		tokens := Tokenize(node.Title + "\n" + node.Content)
		for tok, cnt := range termFrequencies(tokens) {
			docs := postings[tok]
			if docs == nil {
				docs = map[string]int{}
				postings[tok] = docs
			}
			docs[node.ID] = cnt
		}
		n := len(tokens)
		if n == 0 {
			n = 1
		}
		lens[node.ID] = n
		meta[node.ID] = metaOf(node)
	})
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings = postings
	idx.lens = lens
	idx.meta = meta
	return idx.persistLocked()
}

func metaOf(node *models.ContentNode) DocMeta {
	return DocMeta{
		Date:    node.Date,
		Title:   node.Title,
		Style:   append([]string{}, node.Style...),
		Tags:    append([]string{}, node.Tags...),
		Authors: append([]string{}, node.Authors...),
	}
}

// persistLocked writes the three snapshots plus the manifest. Caller holds
// the writer lock.
func (idx *Index) persistLocked() error {
	if err := writeSnapshot(filepath.Join(idx.dir, invertedFile), idx.postings); err != nil {
		return err
	}
	if err := writeSnapshot(filepath.Join(idx.dir, doclensFile), idx.lens); err != nil {
		return err
	}
	if err := writeSnapshot(filepath.Join(idx.dir, metaFile), idx.meta); err != nil {
		return err
	}
	m := manifest{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Checksums: map[string]string{
			invertedFile: checksum.SumFile(filepath.Join(idx.dir, invertedFile)),
			doclensFile:  checksum.SumFile(filepath.Join(idx.dir, doclensFile)),
			metaFile:     checksum.SumFile(filepath.Join(idx.dir, metaFile)),
		},
	}
	return writeSnapshot(filepath.Join(idx.dir, manifestFile), m)
}

// writeSnapshot atomically replaces a snapshot file: temp, fsync, rename.
func writeSnapshot(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("index: marshal %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".othala-tmp-*")
	if err != nil {
		return fmt.Errorf("index: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("index: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("index: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("index: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("index: rename: %w", err)
	}
	success = true
	return nil
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.meta)
}

// Postings returns a copy of the posting list for token.
func (idx *Index) Postings(token string) map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	docs := idx.postings[token]
	out := make(map[string]int, len(docs))
	for d, tf := range docs {
		out[d] = tf
	}
	return out
}

// DocFrequency returns the number of documents containing token.
func (idx *Index) DocFrequency(token string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings[token])
}

// Length returns the recorded token count for doc, defaulting to 1.
func (idx *Index) Length(doc string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if n, ok := idx.lens[doc]; ok && n > 0 {
		return n
	}
	return 1
}

// MetaTable returns a copy of the metadata snapshot table.
func (idx *Index) MetaTable() map[string]DocMeta {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]DocMeta, len(idx.meta))
	for d, m := range idx.meta {
		out[d] = m
	}
	return out
}
