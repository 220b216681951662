package contentsvc

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/parser"
	"github.com/starford/othala/internal/slug"
	"github.com/starford/othala/internal/storage"
)

// ImportResult summarizes one directory import.
type ImportResult struct {
	Created  []string // new content node ids, in import order
	Related  int      // wikilink relations recorded
	Skipped  int      // unreadable files
	Degraded int      // nodes stored but not indexed
}

// ImportDir walks dir recursively and turns every .md file into a content
// node: frontmatter supplies metadata, inline #tags merge in, the first H1
// backstops a missing title. Wikilinks between imported files resolve by
// slugged title to related_to edges in a second pass; unresolved targets are
// dropped. Unreadable files are skipped and counted, never fatal.
func (s *Service) ImportDir(ctx context.Context, dir string) (*ImportResult, error) {
	type imported struct {
		id    string
		links []string
	}

	res := &ImportResult{}
	byTitle := map[string]string{} // slugged title -> node id, first wins
	var docs []imported

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("import: read failed", slog.String("path", path), slog.String("error", err.Error()))
			res.Skipped++
			return nil
		}
		doc := parser.Parse(data)
		title := doc.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		styles := doc.Styles
		if len(styles) == 0 {
			styles = []string{"post"}
		}

		id, status, err := s.CreateContent(ctx, storage.CreateContentParams{
			Content: doc.Body,
			Title:   title,
			Date:    doc.Date,
			Styles:  styles,
			Tags:    doc.Tags,
			Authors: doc.Authors,
		})
		if err != nil {
			s.logger.Warn("import: create failed", slog.String("path", path), slog.String("error", err.Error()))
			res.Skipped++
			return nil
		}
		if status == IndexStatusDegraded {
			res.Degraded++
		}
		res.Created = append(res.Created, id)
		docs = append(docs, imported{id: id, links: doc.Links})

		key := slug.Normalize(title)
		if _, taken := byTitle[key]; !taken {
			byTitle[key] = id
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", dir, err)
	}

	for _, doc := range docs {
		for _, target := range doc.links {
			dst, ok := byTitle[slug.Normalize(target)]
			if !ok || dst == doc.id {
				continue
			}
			if err := s.store.AppendRelation(doc.id, models.RelRelatedTo, dst); err != nil {
				return res, err
			}
			res.Related++
		}
	}
	return res, nil
}
