package contentsvc

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Platform budgets and styles for social extraction.
var socialPlatforms = map[string]struct {
	maxLength int
	styles    []string
}{
	"twitter":   {280, []string{"tweet", "snippet"}},
	"linkedin":  {700, []string{"post", "snippet"}},
	"instagram": {500, []string{"post", "snippet"}},
}

// actionWords mark sentences worth quoting on their own.
var actionWords = []string{
	"discover", "learn", "build", "create", "think", "consider", "imagine", "remember",
}

const combineSeparator = "\n\n---\n\n"

// minSocialLength filters out fragments too short to stand alone.
const minSocialLength = 20

// ExtractRawParams configures ExtractRaw.
type ExtractRawParams struct {
	MaxLength       int // 0 means no truncation
	Styles          []string
	PreserveTags    bool
	PreserveAuthors bool
}

// ExtractRaw copies a content node's text into a new snippet node, optionally
// truncated, and links it back to the source with a snippet_of relation.
func (s *Service) ExtractRaw(ctx context.Context, contentID string, p ExtractRawParams) (string, error) {
	source, err := s.store.GetContent(contentID)
	if err != nil {
		return "", err
	}

	text := source.Content
	if p.MaxLength > 0 {
		// Truncation counts characters, not bytes, so a multi-byte rune is
		// never split.
		if r := []rune(text); len(r) > p.MaxLength {
			text = string(r[:p.MaxLength]) + "..."
		}
	}

	var tags, authors []string
	if p.PreserveTags {
		tags = source.Tags
	}
	if p.PreserveAuthors {
		authors = source.Authors
	}
	styles := p.Styles
	if len(styles) == 0 {
		styles = []string{"snippet"}
	}

	id, _, err := s.CreateContent(ctx, storage.CreateContentParams{
		Content: text,
		Title:   "Extract from: " + displayTitle(source),
		Styles:  styles,
		Tags:    tags,
		Authors: authors,
	})
	if err != nil {
		return "", err
	}
	if err := s.store.AppendRelation(id, models.RelSnippetOf, contentID); err != nil {
		return "", err
	}
	return id, nil
}

// ExtractParagraphs splits a content node on blank lines and stores each
// paragraph of at least minWords words as its own snippet, up to maxSnippets
// (0 means no cap). Each snippet inherits the source's tags and authors and
// links back with snippet_of.
func (s *Service) ExtractParagraphs(ctx context.Context, contentID string, minWords, maxSnippets int, styles []string) ([]string, error) {
	source, err := s.store.GetContent(contentID)
	if err != nil {
		return nil, err
	}
	if minWords <= 0 {
		minWords = 20
	}
	if len(styles) == 0 {
		styles = []string{"snippet"}
	}

	ids := []string{}
	for _, para := range strings.Split(source.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || len(strings.Fields(para)) < minWords {
			continue
		}
		id, _, err := s.CreateContent(ctx, storage.CreateContentParams{
			Content: para,
			Title:   "Paragraph from: " + displayTitle(source),
			Styles:  styles,
			Tags:    source.Tags,
			Authors: source.Authors,
		})
		if err != nil {
			return ids, err
		}
		if err := s.store.AppendRelation(id, models.RelSnippetOf, contentID); err != nil {
			return ids, err
		}
		ids = append(ids, id)
		if maxSnippets > 0 && len(ids) >= maxSnippets {
			break
		}
	}
	return ids, nil
}

// ExtractSections finds sentences containing keyword (case-insensitive) and
// stores each hit together with contextSentences sentences on either side.
// The keyword, slug-style, is appended to the inherited tags.
func (s *Service) ExtractSections(ctx context.Context, contentID, keyword string, contextSentences int, styles []string) ([]string, error) {
	source, err := s.store.GetContent(contentID)
	if err != nil {
		return nil, err
	}
	if contextSentences < 0 {
		contextSentences = 2
	}
	if len(styles) == 0 {
		styles = []string{"snippet"}
	}

	sentences := splitSentences(source.Content)
	needle := strings.ToLower(keyword)
	keywordTag := strings.ReplaceAll(needle, " ", "-")

	ids := []string{}
	for i, sentence := range sentences {
		if !strings.Contains(strings.ToLower(sentence), needle) {
			continue
		}
		start := i - contextSentences
		if start < 0 {
			start = 0
		}
		end := i + contextSentences + 1
		if end > len(sentences) {
			end = len(sentences)
		}
		block := strings.Join(sentences[start:end], " ")

		id, _, err := s.CreateContent(ctx, storage.CreateContentParams{
			Content: block,
			Title:   fmt.Sprintf("Section on %q from: %s", keyword, displayTitle(source)),
			Styles:  styles,
			Tags:    append(append([]string{}, source.Tags...), keywordTag),
			Authors: source.Authors,
		})
		if err != nil {
			return ids, err
		}
		if err := s.store.AppendRelation(id, models.RelSnippetOf, contentID); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExtractSocial picks quotable sentences for a platform: questions or
// sentences containing an action word, within the platform's length budget.
// Snippets inherit tags plus the platform name and "social-media", and copy
// the source's attached links. Unknown platforms fall back to twitter.
func (s *Service) ExtractSocial(ctx context.Context, contentID, platform string, maxCount int) ([]string, error) {
	source, err := s.store.GetContent(contentID)
	if err != nil {
		return nil, err
	}
	cfg, ok := socialPlatforms[platform]
	if !ok {
		platform = "twitter"
		cfg = socialPlatforms[platform]
	}
	if maxCount <= 0 {
		maxCount = 5
	}

	sourceLinks, err := s.store.LinksOf(contentID)
	if err != nil {
		sourceLinks = nil
	}

	ids := []string{}
	for _, sentence := range splitSentences(source.Content) {
		if len(ids) >= maxCount {
			break
		}
		lower := strings.ToLower(sentence)
		isQuestion := strings.Contains(sentence, "?")
		hasAction := false
		for _, w := range actionWords {
			if strings.Contains(lower, w) {
				hasAction = true
				break
			}
		}
		if !isQuestion && !hasAction {
			continue
		}
		if n := utf8.RuneCountInString(sentence); n < minSocialLength || n > cfg.maxLength {
			continue
		}

		id, _, err := s.CreateContent(ctx, storage.CreateContentParams{
			Content: sentence,
			Title:   capitalize(platform) + " snippet from: " + displayTitle(source),
			Styles:  cfg.styles,
			Tags:    append(append([]string{}, source.Tags...), platform, "social-media"),
			Authors: source.Authors,
		})
		if err != nil {
			return ids, err
		}
		if err := s.store.AppendRelation(id, models.RelSnippetOf, contentID); err != nil {
			return ids, err
		}
		for _, link := range sourceLinks {
			if err := s.store.LinkURL(id, link.URL, link.Title, link.Description); err != nil {
				return ids, err
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Combine joins the given content nodes into one longer piece, separated by
// separator (a horizontal rule when empty), with the union of their tags and
// authors in first-seen order. Missing ids are skipped. Each surviving source
// gets a related_to relation pointing at the combined node.
func (s *Service) Combine(ctx context.Context, contentIDs []string, title string, styles []string, separator string) (string, error) {
	if len(styles) == 0 {
		styles = []string{"blog", "post"}
	}
	if separator == "" {
		separator = combineSeparator
	}

	var parts []string
	var tags, authors []string
	seenTags := map[string]struct{}{}
	seenAuthors := map[string]struct{}{}
	var sources []string

	for _, id := range contentIDs {
		node, err := s.store.GetContent(id)
		if err != nil {
			continue
		}
		parts = append(parts, node.Content)
		sources = append(sources, node.ID)
		for _, t := range node.Tags {
			if _, ok := seenTags[t]; !ok {
				seenTags[t] = struct{}{}
				tags = append(tags, t)
			}
		}
		for _, a := range node.Authors {
			if _, ok := seenAuthors[a]; !ok {
				seenAuthors[a] = struct{}{}
				authors = append(authors, a)
			}
		}
	}

	combinedID, _, err := s.CreateContent(ctx, storage.CreateContentParams{
		Content: strings.Join(parts, separator),
		Title:   title,
		Styles:  styles,
		Tags:    tags,
		Authors: authors,
	})
	if err != nil {
		return "", err
	}
	for _, src := range sources {
		if err := s.store.AppendRelation(src, models.RelRelatedTo, combinedID); err != nil {
			return combinedID, err
		}
	}
	return combinedID, nil
}

// displayTitle names a source in derived titles, falling back to a short id.
func displayTitle(node *models.ContentNode) string {
	if node.Title != "" {
		return node.Title
	}
	if len(node.ID) > 8 {
		return node.ID[:8]
	}
	return node.ID
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace. Whitespace between sentences is dropped; the punctuation stays
// attached to its sentence.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			out = append(out, b.String())
			b.Reset()
			for i+1 < len(runes) && isSpace(runes[i+1]) {
				i++
			}
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
