// Package search implements the query engine: tokenized full-text queries
// scored with TF-IDF over the index snapshots, narrowed by metadata filters,
// sorted, paginated, and hydrated from the node store.
package search

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Sort strategies.
const (
	SortRelevance = "relevance"
	SortDate      = "date"
	SortRandom    = "random"
)

// Filters narrows the candidate set. Empty fields are skipped. Filters apply
// in declaration order, cheapest first; the content filter reads node files
// and therefore runs after the metadata predicates have narrowed the set.
type Filters struct {
	Style   []string `json:"style,omitempty"`
	Tag     []string `json:"tag,omitempty"`
	Author  []string `json:"author,omitempty"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Relates []string `json:"relates,omitempty"`
}

// Request describes one search call.
type Request struct {
	Query    string
	Filters  Filters
	Sort     string // relevance (default), date, random
	Page     int    // 1-based
	PageSize int
	Seed     *int64 // random sort only; nil means non-reproducible
}

// Result is the paginated answer.
type Result struct {
	Items    []*models.ContentNode `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// Engine evaluates search requests against the index, the adjacency cache,
// and the node store.
type Engine struct {
	store *storage.Store
	idx   *index.Index
	graph *graph.DB
}

// NewEngine creates a query engine.
func NewEngine(store *storage.Store, idx *index.Index, g *graph.DB) *Engine {
	return &Engine{store: store, idx: idx, graph: g}
}

// Search runs the full pipeline: filter, score, sort, paginate, hydrate.
func (e *Engine) Search(req Request) (*Result, error) {
	if req.Sort == "" {
		req.Sort = SortRelevance
	}
	switch req.Sort {
	case SortRelevance, SortDate, SortRandom:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", apperr.ErrValidation, req.Sort)
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 10
	}

	meta := e.idx.MetaTable()

	// Deterministic base iteration order; tie-breaks and the random shuffle
	// are stable against it.
	candidates := make([]string, 0, len(meta))
	for doc := range meta {
		candidates = append(candidates, doc)
	}
	sort.Strings(candidates)

	candidates = e.applyFilters(candidates, meta, req.Filters)

	switch req.Sort {
	case SortRelevance:
		e.sortByRelevance(candidates, index.Tokenize(req.Query))
	case SortDate:
		sort.SliceStable(candidates, func(i, j int) bool {
			return meta[candidates[i]].Date > meta[candidates[j]].Date
		})
	case SortRandom:
		shuffle(candidates, req.Seed)
	}

	total := len(candidates)
	start := (req.Page - 1) * req.PageSize
	if start < 0 {
		start = 0
	}
	end := start + req.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	items := make([]*models.ContentNode, 0, end-start)
	for _, doc := range candidates[start:end] {
		node, err := e.store.GetContent(doc)
		if err != nil {
			// Index may lag the store; drop ids whose files are gone.
			continue
		}
		items = append(items, node)
	}

	return &Result{Items: items, Total: total, Page: req.Page, PageSize: req.PageSize}, nil
}

func (e *Engine) applyFilters(candidates []string, meta map[string]index.DocMeta, f Filters) []string {
	if len(f.Style) > 0 {
		// Styles outside the enumeration cannot match anything.
		styles := make([]string, 0, len(f.Style))
		for _, s := range f.Style {
			if _, ok := models.StyleEnum[s]; ok {
				styles = append(styles, s)
			}
		}
		candidates = keep(candidates, func(doc string) bool {
			return intersects(meta[doc].Style, styles)
		})
	}
	if len(f.Tag) > 0 {
		candidates = keep(candidates, func(doc string) bool {
			return intersects(meta[doc].Tags, f.Tag)
		})
	}
	if len(f.Author) > 0 {
		candidates = keep(candidates, func(doc string) bool {
			return intersects(meta[doc].Authors, f.Author)
		})
	}
	if f.Title != "" {
		substr := strings.ToLower(f.Title)
		candidates = keep(candidates, func(doc string) bool {
			return strings.Contains(strings.ToLower(meta[doc].Title), substr)
		})
	}
	if f.Content != "" {
		substr := strings.ToLower(f.Content)
		candidates = keep(candidates, func(doc string) bool {
			node, err := e.store.GetContent(doc)
			if err != nil {
				return false
			}
			return strings.Contains(strings.ToLower(node.Content), substr)
		})
	}
	if len(f.Relates) > 0 {
		candidates = e.relatesFilter(candidates, f.Relates)
	}
	return candidates
}

// relatesFilter keeps documents connected to the filter's id set through a
// relates edge, in either direction. Both endpoints of a qualifying edge are
// kept, intersected with the current candidate set.
func (e *Engine) relatesFilter(candidates []string, rels []string) []string {
	pairs, err := e.graph.RelatesPairs()
	if err != nil {
		// Cache unavailable: replay the log directly.
		_ = e.store.EachEdge(storage.EdgeRelates, func(src, _, dst, _ string) {
			pairs = append(pairs, graph.RelatesPair{Src: src, Dst: dst})
		})
	}

	docset := toSet(candidates)
	relSet := toSet(rels)
	kept := map[string]struct{}{}
	for _, p := range pairs {
		_, srcInDocs := docset[p.Src]
		_, dstInDocs := docset[p.Dst]
		_, srcInRels := relSet[p.Src]
		_, dstInRels := relSet[p.Dst]
		if (srcInDocs || dstInDocs) && (srcInRels || dstInRels) {
			kept[p.Src] = struct{}{}
			kept[p.Dst] = struct{}{}
		}
	}
	return keep(candidates, func(doc string) bool {
		_, ok := kept[doc]
		return ok
	})
}

// sortByRelevance orders candidates by descending TF-IDF score. An empty
// query scores everything 0 and leaves the order unchanged.
func (e *Engine) sortByRelevance(candidates []string, queryTokens []string) {
	if len(queryTokens) == 0 {
		return
	}
	n := e.idx.DocCount()
	idfCache := make(map[string]float64, len(queryTokens))
	scores := make(map[string]float64, len(candidates))
	for _, tok := range queryTokens {
		idf, ok := idfCache[tok]
		if !ok {
			df := e.idx.DocFrequency(tok)
			idf = math.Log(float64(1+n)/float64(1+df)) + 1.0
			idfCache[tok] = idf
		}
		for doc, tf := range e.idx.Postings(tok) {
			scores[doc] += float64(tf) * idf / math.Sqrt(float64(e.idx.Length(doc)))
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return scores[candidates[i]] > scores[candidates[j]]
	})
}

// shuffle applies a Fisher-Yates shuffle. The same seed over the same
// candidate set reproduces the same order.
func shuffle(candidates []string, seed *int64) {
	src := time.Now().UnixNano()
	if seed != nil {
		src = *seed
	}
	rng := rand.New(rand.NewSource(src))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
}

func keep(candidates []string, pred func(string) bool) []string {
	out := candidates[:0]
	for _, doc := range candidates {
		if pred(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
