// Package parser turns Markdown files into content-node material for the
// import path: YAML frontmatter metadata, inline #tags, [[wikilinks]] to
// other documents, and a title backstopped by the first H1.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe  = regexp.MustCompile(`\[\[(.*?)\]\]`)
	inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Document is the parsed form of one Markdown file, ready to become a
// content node. Links hold raw wikilink targets; resolving them to node ids
// is the importer's job.
type Document struct {
	Title   string
	Date    string
	Body    string
	Tags    []string
	Authors []string
	Styles  []string
	Links   []string
}

// frontmatter is the subset of YAML keys the importer understands.
type frontmatter struct {
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date"`
	Tags    []string `yaml:"tags"`
	Authors []string `yaml:"authors"`
	Style   []string `yaml:"style"`
}

// Parse extracts metadata and body from raw Markdown bytes. It never fails
// on malformed frontmatter; the whole input degrades to body text.
func Parse(data []byte) *Document {
	fm, body := splitFrontmatter(data)

	doc := &Document{
		Title:   fm.Title,
		Date:    fm.Date,
		Body:    body,
		Authors: cleanList(fm.Authors),
		Styles:  cleanList(fm.Style),
		Links:   extractLinks(body),
		Tags:    mergeTags(fm.Tags, body),
	}
	if doc.Title == "" {
		doc.Title = firstHeading(body)
	}
	return doc
}

// splitFrontmatter separates a leading YAML block delimited by --- lines
// from the Markdown body. Missing or invalid frontmatter yields an empty
// frontmatter and the full input as body.
func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return frontmatter{}, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return frontmatter{}, string(data)
	}

	var fm frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return frontmatter{}, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// extractLinks returns deduplicated wikilink targets with aliases stripped:
// [[Target|Alias]] resolves to Target.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// mergeTags combines frontmatter tags with inline #tags, frontmatter first,
// deduplicated in order.
func mergeTags(fmTags []string, body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range cleanList(fmTags) {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstHeading returns the first H1 text, or empty.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
