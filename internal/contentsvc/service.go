// Package contentsvc coordinates the node store, edge log, index, and query
// engine behind the operation set consumed by the MCP and HTTP surfaces.
package contentsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/storage"
)

// IndexStatus reports whether the best-effort index update succeeded.
type IndexStatus string

const (
	// IndexStatusOK means the document is searchable.
	IndexStatusOK IndexStatus = "indexed"
	// IndexStatusDegraded means the node is durably stored but the index
	// update failed; a reindex will reconcile.
	IndexStatusDegraded IndexStatus = "index_degraded"
)

// Notifier receives content-graph change announcements. The SSE broker
// satisfies it; a nil notifier disables events.
type Notifier interface {
	ContentCreated(id string)
	ContentIndexed(id string)
	IndexRebuilt()
}

// Service is the operation layer over storage, index, and search.
type Service struct {
	store  *storage.Store
	idx    *index.Index
	engine *search.Engine
	logger *slog.Logger
	events Notifier
}

// NewService creates a content service.
func NewService(store *storage.Store, idx *index.Index, engine *search.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, idx: idx, engine: engine, logger: logger}
}

// SetNotifier attaches an event sink for content-graph changes.
func (s *Service) SetNotifier(n Notifier) { s.events = n }

// CreateContent stores a new content node with its tag/author edges, then
// attempts the index update. Node durability is primary: an index failure
// degrades the status instead of failing the call.
func (s *Service) CreateContent(_ context.Context, p storage.CreateContentParams) (string, IndexStatus, error) {
	node, err := s.store.CreateContent(p)
	if err != nil {
		return "", "", err
	}
	if s.events != nil {
		s.events.ContentCreated(node.ID)
	}
	if err := s.idx.IndexDocument(node); err != nil {
		degraded := fmt.Errorf("%w: %w", apperr.ErrIndexDegraded, err)
		s.logger.Warn("content stored but not searchable",
			slog.String("id", node.ID), slog.String("error", degraded.Error()))
		return node.ID, IndexStatusDegraded, nil
	}
	if s.events != nil {
		s.events.ContentIndexed(node.ID)
	}
	return node.ID, IndexStatusOK, nil
}

// NodeDetail is a node plus, for content nodes, its attached links.
type NodeDetail struct {
	Node  models.Node
	Links []*models.LinkNode
}

// MarshalJSON flattens the node fields and appends links for content nodes.
func (d NodeDetail) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(d.Node)
	if err != nil {
		return nil, err
	}
	if d.Node.NodeKind() != models.KindContent {
		return raw, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	links := d.Links
	if links == nil {
		links = []*models.LinkNode{}
	}
	obj["links"] = links
	return json.Marshal(obj)
}

// GetNode looks up a node by id or slug across every kind. Content nodes are
// returned with their links attached; a link-log read failure degrades to an
// empty list.
func (s *Service) GetNode(_ context.Context, id string) (*NodeDetail, error) {
	node, err := s.store.GetNode(id)
	if err != nil {
		return nil, err
	}
	detail := &NodeDetail{Node: node}
	if node.NodeKind() == models.KindContent {
		links, err := s.store.LinksOf(id)
		if err != nil {
			s.logger.Warn("link hydration failed", slog.String("id", id), slog.String("error", err.Error()))
			links = []*models.LinkNode{}
		}
		detail.Links = links
	}
	return detail, nil
}

// Relate records a directed relation between two content nodes.
func (s *Service) Relate(_ context.Context, srcID, relType, dstID string) error {
	return s.store.AppendRelation(srcID, relType, dstID)
}

// Tag attaches a tag to a content node.
func (s *Service) Tag(_ context.Context, contentID, tag string) error {
	return s.store.LinkTag(contentID, tag)
}

// Author attaches an author to a content node.
func (s *Service) Author(_ context.Context, contentID, author string) error {
	return s.store.LinkAuthor(contentID, author)
}

// AttachLink associates a URL with a content node.
func (s *Service) AttachLink(_ context.Context, contentID, url, title, description string) error {
	return s.store.LinkURL(contentID, url, title, description)
}

// LinksOf returns the link nodes attached to a content node.
func (s *Service) LinksOf(_ context.Context, contentID string) ([]*models.LinkNode, error) {
	return s.store.LinksOf(contentID)
}

// Search delegates to the query engine.
func (s *Service) Search(_ context.Context, req search.Request) (*search.Result, error) {
	return s.engine.Search(req)
}

// Rebuild recomputes the search index from the node store.
func (s *Service) Rebuild(_ context.Context) error {
	if err := s.idx.Rebuild(s.store); err != nil {
		return err
	}
	if s.events != nil {
		s.events.IndexRebuilt()
	}
	return nil
}

// Count returns the best-effort content node count.
func (s *Service) Count(_ context.Context) int {
	return s.store.CountContent()
}

// IndexedCount returns the number of documents the index currently covers.
func (s *Service) IndexedCount(_ context.Context) int {
	return s.idx.DocCount()
}

// GetOrCreateTag exposes idempotent tag creation.
func (s *Service) GetOrCreateTag(_ context.Context, name string) (string, error) {
	return s.store.GetOrCreateTag(name)
}

// GetOrCreateStyle exposes idempotent style creation with enum validation.
func (s *Service) GetOrCreateStyle(_ context.Context, name string) (string, error) {
	return s.store.GetOrCreateStyle(name)
}

// GetOrCreateAuthor exposes idempotent author creation.
func (s *Service) GetOrCreateAuthor(_ context.Context, name string, handles storage.AuthorHandles) (string, error) {
	return s.store.GetOrCreateAuthor(name, handles)
}

// GetOrCreateLink exposes idempotent link creation.
func (s *Service) GetOrCreateLink(_ context.Context, url, title, description string) (string, error) {
	return s.store.GetOrCreateLink(url, title, description)
}
