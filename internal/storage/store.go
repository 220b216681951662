// Package storage implements the durable node store and the append-only
// edge log, both rooted at a single library directory.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/slug"
)

// isoFormat is fixed-width so date strings compare correctly as plain strings.
const isoFormat = "2006-01-02T15:04:05.000000Z07:00"

func isoNow() string {
	return time.Now().UTC().Format(isoFormat)
}

// Store provides node persistence and edge appends under a library root.
type Store struct {
	root string
	hook EdgeHook
}

// New creates a Store rooted at dir, creating the directory layout if absent.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	for _, kind := range models.Kinds {
		if err := os.MkdirAll(filepath.Join(abs, "nodes", kind), 0o755); err != nil {
			return nil, fmt.Errorf("storage: create node dir: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(abs, "edges"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create edge dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute library root.
func (s *Store) Root() string { return s.root }

// ContentDir returns the directory holding content node files.
func (s *Store) ContentDir() string { return filepath.Join(s.root, "nodes", models.KindContent) }

// IndexDir returns the directory reserved for search index snapshots.
func (s *Store) IndexDir() string { return filepath.Join(s.root, "index") }

func (s *Store) nodePath(kind, id string) string {
	return filepath.Join(s.root, "nodes", kind, id+".json")
}

// writeNode atomically persists a node file: temp file, fsync, rename.
// A reader never observes a partially written node.
func (s *Store) writeNode(kind, id string, node any) error {
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal node: %w", err)
	}
	dest := s.nodePath(kind, id)

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".othala-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
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
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// CreateContentParams carries the caller-supplied fields of a new content node.
type CreateContentParams struct {
	Content string
	Title   string
	Date    string
	Styles  []string
	Tags    []string
	Authors []string
}

// CreateContent validates styles, writes a fresh content node, and appends
// one tag edge per tag and one author edge per author (lazily creating the
// referenced tag/author nodes). Validation failures abort before any write.
// The search index is not touched here; callers decide how to handle the
// best-effort index update.
func (s *Store) CreateContent(p CreateContentParams) (*models.ContentNode, error) {
	if err := models.EnsureStyles(p.Styles); err != nil {
		return nil, err
	}

	node := &models.ContentNode{
		ID:      uuid.NewString(),
		Type:    models.KindContent,
		Title:   p.Title,
		Date:    p.Date,
		Style:   append([]string{}, p.Styles...),
		Tags:    make([]string, 0, len(p.Tags)),
		Authors: make([]string, 0, len(p.Authors)),
		Content: p.Content,
	}
	if node.Date == "" {
		node.Date = isoNow()
	}
	// Tags and authors are stored as slugs, in order, duplicates kept.
	for _, t := range p.Tags {
		node.Tags = append(node.Tags, slug.Normalize(t))
	}
	for _, a := range p.Authors {
		node.Authors = append(node.Authors, slug.Normalize(a))
	}

	if err := s.writeNode(models.KindContent, node.ID, node); err != nil {
		return nil, err
	}
	for _, t := range node.Tags {
		if err := s.LinkTag(node.ID, t); err != nil {
			return nil, err
		}
	}
	for _, a := range node.Authors {
		if err := s.LinkAuthor(node.ID, a); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// GetOrCreateTag returns the slug for name, creating the tag node on first use.
// Re-creation with an equivalent normalized name is a no-op.
func (s *Store) GetOrCreateTag(name string) (string, error) {
	id := slug.Normalize(name)
	path := s.nodePath(models.KindTag, id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	node := &models.TagNode{ID: id, Type: models.KindTag, Name: name}
	if err := s.writeNode(models.KindTag, id, node); err != nil {
		return "", err
	}
	return id, nil
}

// GetOrCreateStyle validates name against the style enumeration, then behaves
// like the other get-or-create operations.
func (s *Store) GetOrCreateStyle(name string) (string, error) {
	if err := models.EnsureStyle(name); err != nil {
		return "", err
	}
	id := slug.Normalize(name)
	path := s.nodePath(models.KindStyle, id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	node := &models.StyleNode{ID: id, Type: models.KindStyle, Name: name}
	if err := s.writeNode(models.KindStyle, id, node); err != nil {
		return "", err
	}
	return id, nil
}

// AuthorHandles carries optional social usernames for an author node.
// Handles supplied for an already existing slug are ignored; the first
// creation wins.
type AuthorHandles struct {
	Linkedin string
	Twitter  string
	Substack string
	Reddit   string
}

// GetOrCreateAuthor returns the slug for name, creating the author node on
// first use.
func (s *Store) GetOrCreateAuthor(name string, handles AuthorHandles) (string, error) {
	id := slug.Normalize(name)
	path := s.nodePath(models.KindAuthor, id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	node := &models.AuthorNode{
		ID:               id,
		Type:             models.KindAuthor,
		Name:             name,
		LinkedinUsername: handles.Linkedin,
		TwitterUsername:  handles.Twitter,
		SubstackUsername: handles.Substack,
		RedditUsername:   handles.Reddit,
	}
	if err := s.writeNode(models.KindAuthor, id, node); err != nil {
		return "", err
	}
	return id, nil
}

// GetOrCreateLink returns the slug for url, creating the link node on first use.
func (s *Store) GetOrCreateLink(url, title, description string) (string, error) {
	id := slug.Normalize(url)
	path := s.nodePath(models.KindLink, id)
	if _, err := os.Stat(path); err == nil {
		return id, nil
	}
	node := &models.LinkNode{ID: id, Type: models.KindLink, URL: url, Title: title, Description: description}
	if err := s.writeNode(models.KindLink, id, node); err != nil {
		return "", err
	}
	return id, nil
}

// GetNode looks up id across every node kind. Content ids and slugs live in
// disjoint namespaces, so the first hit wins.
func (s *Store) GetNode(id string) (models.Node, error) {
	for _, kind := range models.Kinds {
		data, err := os.ReadFile(s.nodePath(kind, id))
		if err != nil {
			continue
		}
		node, err := decodeNode(kind, data)
		if err != nil {
			return nil, fmt.Errorf("storage: decode %s node %s: %w", kind, id, err)
		}
		return node, nil
	}
	return nil, fmt.Errorf("storage: node %s: %w", id, apperr.ErrNotFound)
}

func decodeNode(kind string, data []byte) (models.Node, error) {
	switch kind {
	case models.KindContent:
		n := &models.ContentNode{}
		return n, json.Unmarshal(data, n)
	case models.KindTag:
		n := &models.TagNode{}
		return n, json.Unmarshal(data, n)
	case models.KindStyle:
		n := &models.StyleNode{}
		return n, json.Unmarshal(data, n)
	case models.KindAuthor:
		n := &models.AuthorNode{}
		return n, json.Unmarshal(data, n)
	case models.KindLink:
		n := &models.LinkNode{}
		return n, json.Unmarshal(data, n)
	}
	return nil, fmt.Errorf("unknown node kind %q", kind)
}

// GetContent reads a content node by id.
func (s *Store) GetContent(id string) (*models.ContentNode, error) {
	data, err := os.ReadFile(s.nodePath(models.KindContent, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage: content %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read content %s: %w", id, err)
	}
	n := &models.ContentNode{}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("storage: decode content %s: %w", id, err)
	}
	return n, nil
}

// CountContent returns the number of content node files. It is a best-effort
// metric: any I/O error yields 0 rather than propagating.
func (s *Store) CountContent() int {
	entries, err := os.ReadDir(s.ContentDir())
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n
}

// EachContent invokes fn for every readable content node. Unreadable or
// malformed files are skipped; the scan itself only fails if the directory
// cannot be listed.
func (s *Store) EachContent(fn func(*models.ContentNode)) error {
	entries, err := os.ReadDir(s.ContentDir())
	if err != nil {
		return fmt.Errorf("storage: list content: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.ContentDir(), e.Name()))
		if err != nil {
			continue
		}
		n := &models.ContentNode{}
		if err := json.Unmarshal(data, n); err != nil {
			continue
		}
		fn(n)
	}
	return nil
}
