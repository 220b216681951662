// Package models defines the domain types for Othala: the five node kinds
// and the append-only edge records that connect them.
package models

import (
	"fmt"

	"github.com/starford/othala/internal/apperr"
)

// Node kinds.
const (
	KindContent = "content"
	KindTag     = "tag"
	KindStyle   = "style"
	KindAuthor  = "author"
	KindLink    = "link"
)

// Kinds lists every node kind in lookup order.
var Kinds = []string{KindContent, KindTag, KindStyle, KindAuthor, KindLink}

// StyleEnum is the fixed set of allowed content styles.
var StyleEnum = map[string]struct{}{
	"chapter": {},
	"blog":    {},
	"post":    {},
	"snippet": {},
	"tweet":   {},
}

// EnsureStyle validates a style name against the fixed enumeration.
func EnsureStyle(name string) error {
	if _, ok := StyleEnum[name]; !ok {
		return fmt.Errorf("%w: unknown style %q (allowed: blog, chapter, post, snippet, tweet)", apperr.ErrValidation, name)
	}
	return nil
}

// EnsureStyles validates every entry, failing on the first invalid one.
func EnsureStyles(names []string) error {
	for _, n := range names {
		if err := EnsureStyle(n); err != nil {
			return err
		}
	}
	return nil
}

// Node is implemented by every stored node kind.
type Node interface {
	NodeID() string
	NodeKind() string
}

// ContentNode is an immutable text item. Derivative operations always create
// new content nodes and link back via relates edges.
type ContentNode struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Date    string   `json:"date"`
	Style   []string `json:"style"`
	Tags    []string `json:"tags"`
	Authors []string `json:"authors"`
	Content string   `json:"content"`
}

func (n *ContentNode) NodeID() string   { return n.ID }
func (n *ContentNode) NodeKind() string { return KindContent }

// TagNode is identified by the slug of its name.
type TagNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

func (n *TagNode) NodeID() string   { return n.ID }
func (n *TagNode) NodeKind() string { return KindTag }

// StyleNode is one member of the fixed style enumeration.
type StyleNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

func (n *StyleNode) NodeID() string   { return n.ID }
func (n *StyleNode) NodeKind() string { return KindStyle }

// AuthorNode carries optional social handles alongside the name.
type AuthorNode struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Name             string `json:"name"`
	LinkedinUsername string `json:"linkedin_username,omitempty"`
	TwitterUsername  string `json:"twitter_username,omitempty"`
	SubstackUsername string `json:"substack_username,omitempty"`
	RedditUsername   string `json:"reddit_username,omitempty"`
}

func (n *AuthorNode) NodeID() string   { return n.ID }
func (n *AuthorNode) NodeKind() string { return KindAuthor }

// LinkNode represents an external URL, identified by the slug of the URL.
type LinkNode struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func (n *LinkNode) NodeID() string   { return n.ID }
func (n *LinkNode) NodeKind() string { return KindLink }

// Relation types allowed on relates edges.
const (
	RelSnippetOf = "snippet_of"
	RelRelatedTo = "related_to"
)

// EnsureRelation validates a relates edge type.
func EnsureRelation(relType string) error {
	if relType != RelSnippetOf && relType != RelRelatedTo {
		return fmt.Errorf("%w: unknown relation type %q (allowed: snippet_of, related_to)", apperr.ErrValidation, relType)
	}
	return nil
}

// RelatesEdge links two content nodes.
type RelatesEdge struct {
	Src  string `json:"src"`
	Type string `json:"type"`
	Dst  string `json:"dst"`
	Date string `json:"date"`
}

// TagEdge attaches a tag to a content node.
type TagEdge struct {
	Content string `json:"content"`
	Type    string `json:"type"` // always "is_tagged"
	Tag     string `json:"tag"`
	Date    string `json:"date"`
}

// AuthorEdge attaches an author to a content node.
type AuthorEdge struct {
	Content string `json:"content"`
	Type    string `json:"type"` // always "authored"
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// LinkEdge attaches an external link to a content node.
type LinkEdge struct {
	Content string `json:"content"`
	Type    string `json:"type"` // always "has_link"
	Link    string `json:"link"`
	Date    string `json:"date"`
}
