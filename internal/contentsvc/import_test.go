package contentsvc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImportDirCreatesNodesAndResolvesWikilinks(t *testing.T) {
	svc, store := newTestService(t)
	dir := t.TempDir()

	writeFile(t, dir, "first.md", `---
title: First Note
tags: [imported]
style: [blog]
---

Points at [[Second Note]] for context.`)
	writeFile(t, dir, "second.md", `---
title: Second Note
---

Standalone text with a [[Nowhere]] link.`)
	writeFile(t, dir, "ignore.txt", "not markdown")

	res, err := svc.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 2 {
		t.Fatalf("created = %d, want 2", len(res.Created))
	}
	if res.Related != 1 {
		t.Errorf("related = %d, want one resolved wikilink", res.Related)
	}
	if res.Skipped != 0 {
		t.Errorf("skipped = %d, want 0", res.Skipped)
	}

	var firstID, secondID string
	err = store.EachContent(func(n *models.ContentNode) {
		switch n.Title {
		case "First Note":
			firstID = n.ID
			if len(n.Tags) != 1 || n.Tags[0] != "imported" {
				t.Errorf("first tags = %v", n.Tags)
			}
			if len(n.Style) != 1 || n.Style[0] != "blog" {
				t.Errorf("first style = %v", n.Style)
			}
		case "Second Note":
			secondID = n.ID
			if len(n.Style) != 1 || n.Style[0] != "post" {
				t.Errorf("second style = %v, want default [post]", n.Style)
			}
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if firstID == "" || secondID == "" {
		t.Fatal("imported nodes not found in store")
	}

	var hit bool
	err = store.EachEdge(storage.EdgeRelates, func(src, relType, dst, _ string) {
		if src == firstID && dst == secondID && relType == models.RelRelatedTo {
			hit = true
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if !hit {
		t.Error("wikilink did not produce a related_to edge")
	}
}

func TestImportDirTitleFallsBackToFilename(t *testing.T) {
	svc, store := newTestService(t)
	dir := t.TempDir()
	writeFile(t, dir, "untitled-note.md", "No frontmatter, no heading.")

	res, err := svc.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("created = %d", len(res.Created))
	}
	node, err := store.GetContent(res.Created[0])
	if err != nil {
		t.Fatal(err)
	}
	if node.Title != "untitled-note" {
		t.Errorf("title = %q, want filename stem", node.Title)
	}
}
