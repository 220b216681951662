package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/slug"
)

// Edge log families.
const (
	EdgeRelates = "relates"
	EdgeTags    = "tags"
	EdgeAuthors = "authors"
	EdgeLinks   = "links"
)

// EdgeHook is invoked after every successful edge append, so derived
// structures (the adjacency cache) can stay current. src/dst are ids or
// slugs depending on the family.
type EdgeHook func(family, src, relType, dst, date string)

// SetEdgeHook registers the append observer. Not safe to call concurrently
// with writes; wire it once at startup.
func (s *Store) SetEdgeHook(h EdgeHook) { s.hook = h }

func (s *Store) edgePath(family string) string {
	return filepath.Join(s.root, "edges", family+".jsonl")
}

// appendEdge writes one complete JSON record plus newline in a single write
// call, so concurrent appends from different callers never tear.
func (s *Store) appendEdge(family string, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: marshal edge: %w", err)
	}
	f, err := os.OpenFile(s.edgePath(family), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open edge log %s: %w", family, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("storage: append edge %s: %w", family, err)
	}
	return nil
}

// AppendRelation records a directed relation between two content nodes.
// The type must be snippet_of or related_to; anything else fails before
// any write.
func (s *Store) AppendRelation(srcID, relType, dstID string) error {
	if err := models.EnsureRelation(relType); err != nil {
		return err
	}
	e := models.RelatesEdge{Src: srcID, Type: relType, Dst: dstID, Date: isoNow()}
	if err := s.appendEdge(EdgeRelates, e); err != nil {
		return err
	}
	if s.hook != nil {
		s.hook(EdgeRelates, e.Src, e.Type, e.Dst, e.Date)
	}
	return nil
}

// LinkTag attaches a tag to a content node, creating the tag node if needed.
func (s *Store) LinkTag(contentID, nameOrSlug string) error {
	tagSlug, err := s.GetOrCreateTag(slug.Normalize(nameOrSlug))
	if err != nil {
		return err
	}
	e := models.TagEdge{Content: contentID, Type: "is_tagged", Tag: tagSlug, Date: isoNow()}
	if err := s.appendEdge(EdgeTags, e); err != nil {
		return err
	}
	if s.hook != nil {
		s.hook(EdgeTags, e.Content, e.Type, e.Tag, e.Date)
	}
	return nil
}

// LinkAuthor attaches an author to a content node, creating the author node
// if needed.
func (s *Store) LinkAuthor(contentID, nameOrSlug string) error {
	authorSlug, err := s.GetOrCreateAuthor(slug.Normalize(nameOrSlug), AuthorHandles{})
	if err != nil {
		return err
	}
	e := models.AuthorEdge{Content: contentID, Type: "authored", Author: authorSlug, Date: isoNow()}
	if err := s.appendEdge(EdgeAuthors, e); err != nil {
		return err
	}
	if s.hook != nil {
		s.hook(EdgeAuthors, e.Content, e.Type, e.Author, e.Date)
	}
	return nil
}

// LinkURL attaches an external URL to a content node, creating the link node
// if needed.
func (s *Store) LinkURL(contentID, url, title, description string) error {
	linkSlug, err := s.GetOrCreateLink(url, title, description)
	if err != nil {
		return err
	}
	e := models.LinkEdge{Content: contentID, Type: "has_link", Link: linkSlug, Date: isoNow()}
	if err := s.appendEdge(EdgeLinks, e); err != nil {
		return err
	}
	if s.hook != nil {
		s.hook(EdgeLinks, e.Content, e.Type, e.Link, e.Date)
	}
	return nil
}

// LinksOf scans the links log and hydrates every link node attached to
// contentID. Malformed lines and dangling link references are skipped, not
// surfaced: being linked means appearing at least once in the log with a
// resolvable target.
func (s *Store) LinksOf(contentID string) ([]*models.LinkNode, error) {
	f, err := os.Open(s.edgePath(EdgeLinks))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.LinkNode{}, nil
		}
		return nil, fmt.Errorf("storage: open links log: %w", err)
	}
	defer f.Close()

	out := []*models.LinkNode{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e models.LinkEdge
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if e.Content != contentID {
			continue
		}
		data, err := os.ReadFile(s.nodePath(models.KindLink, e.Link))
		if err != nil {
			continue
		}
		node := &models.LinkNode{}
		if err := json.Unmarshal(data, node); err != nil {
			continue
		}
		out = append(out, node)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("storage: scan links log: %w", err)
	}
	return out, nil
}

// EachEdge replays one edge-log family through fn, skipping malformed lines.
// Used to rebuild the adjacency cache at startup.
func (s *Store) EachEdge(family string, fn func(src, relType, dst, date string)) error {
	f, err := os.Open(s.edgePath(family))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("storage: open edge log %s: %w", family, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		switch family {
		case EdgeRelates:
			var e models.RelatesEdge
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				continue
			}
			fn(e.Src, e.Type, e.Dst, e.Date)
		case EdgeTags:
			var e models.TagEdge
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				continue
			}
			fn(e.Content, e.Type, e.Tag, e.Date)
		case EdgeAuthors:
			var e models.AuthorEdge
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				continue
			}
			fn(e.Content, e.Type, e.Author, e.Date)
		case EdgeLinks:
			var e models.LinkEdge
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				continue
			}
			fn(e.Content, e.Type, e.Link, e.Date)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("storage: scan edge log %s: %w", family, err)
	}
	return nil
}

// EdgeCount returns the number of lines in an edge log. Test helper quality:
// 0 on any error.
func (s *Store) EdgeCount(family string) int {
	f, err := os.Open(s.edgePath(family))
	if err != nil {
		return 0
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		n++
	}
	return n
}
