// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the Othala content graph to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/contentsvc"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/storage"
)

// Server wraps the MCP server with the Othala tool set.
type Server struct {
	mcp *server.MCPServer
	svc *contentsvc.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *contentsvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_content",
		mcp.WithDescription("Store a new content node. Styles must come from the fixed "+
			"enumeration (blog, chapter, post, snippet, tweet); see the othala://style-enum "+
			"resource. Tags and authors are created on first use."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Body text")),
		mcp.WithString("title", mcp.Description("Optional title")),
		mcp.WithString("style", mcp.Description("Comma-separated styles, e.g. blog,post")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names")),
		mcp.WithString("authors", mcp.Description("Comma-separated author names")),
	), s.addContent)

	s.mcp.AddTool(mcp.NewTool("add_tag",
		mcp.WithDescription("Create a tag node (idempotent; returns the slug)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Tag name")),
	), s.addTag)

	s.mcp.AddTool(mcp.NewTool("add_style",
		mcp.WithDescription("Create a style node from the fixed enumeration (idempotent)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Style name")),
	), s.addStyle)

	s.mcp.AddTool(mcp.NewTool("add_author",
		mcp.WithDescription("Create an author node with optional social handles (idempotent)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Author name")),
		mcp.WithString("linkedin", mcp.Description("LinkedIn username")),
		mcp.WithString("twitter", mcp.Description("Twitter username")),
		mcp.WithString("substack", mcp.Description("Substack username")),
		mcp.WithString("reddit", mcp.Description("Reddit username")),
	), s.addAuthor)

	s.mcp.AddTool(mcp.NewTool("add_link",
		mcp.WithDescription("Create a link node for an external URL (idempotent)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("External URL")),
		mcp.WithString("title", mcp.Description("Optional link title")),
		mcp.WithString("description", mcp.Description("Optional link description")),
	), s.addLink)

	s.mcp.AddTool(mcp.NewTool("link_relates",
		mcp.WithDescription("Record a relation between two content nodes. "+
			"Type must be snippet_of or related_to."),
		mcp.WithString("src", mcp.Required(), mcp.Description("Source content id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("snippet_of or related_to")),
		mcp.WithString("dst", mcp.Required(), mcp.Description("Destination content id")),
	), s.linkRelates)

	s.mcp.AddTool(mcp.NewTool("link_tag",
		mcp.WithDescription("Attach a tag to a content node, creating the tag if needed."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Content id")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag name or slug")),
	), s.linkTag)

	s.mcp.AddTool(mcp.NewTool("link_author",
		mcp.WithDescription("Attach an author to a content node, creating the author if needed."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Content id")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author name or slug")),
	), s.linkAuthor)

	s.mcp.AddTool(mcp.NewTool("link_url",
		mcp.WithDescription("Attach an external URL to a content node, creating the link node if needed."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Content id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("External URL")),
		mcp.WithString("title", mcp.Description("Optional link title")),
		mcp.WithString("description", mcp.Description("Optional link description")),
	), s.linkURL)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Search content nodes. Filters narrow; the query ranks when "+
			"sort is relevance. Sorts: relevance (default), date, random."),
		mcp.WithString("query", mcp.Description("Full-text query")),
		mcp.WithString("style", mcp.Description("Comma-separated style filter")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag slugs (any match)")),
		mcp.WithString("authors", mcp.Description("Comma-separated author slugs (any match)")),
		mcp.WithString("title", mcp.Description("Case-insensitive title substring")),
		mcp.WithString("content", mcp.Description("Case-insensitive body substring")),
		mcp.WithString("relates", mcp.Description("Comma-separated content ids to relate to")),
		mcp.WithString("sort", mcp.Description("relevance, date, or random")),
		mcp.WithNumber("page", mcp.Description("1-based page number")),
		mcp.WithNumber("page_size", mcp.Description("Results per page (default 10)")),
		mcp.WithNumber("seed", mcp.Description("Seed for reproducible random sort")),
	), s.searchContent)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Fetch any node by content id or slug. Content nodes include their links."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Content id or slug")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("reindex",
		mcp.WithDescription("Rebuild the search index from the node store."),
	), s.reindex)

	s.mcp.AddTool(mcp.NewTool("count_content",
		mcp.WithDescription("Count stored content nodes."),
	), s.countContent)

	s.mcp.AddTool(mcp.NewTool("extract_raw",
		mcp.WithDescription("Copy a content node's text into a new snippet, optionally "+
			"truncated, linked back with snippet_of."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Source content id")),
		mcp.WithNumber("max_length", mcp.Description("Character cap; 0 means no truncation")),
		mcp.WithString("style", mcp.Description("Comma-separated styles (default snippet)")),
		mcp.WithBoolean("preserve_tags", mcp.Description("Copy source tags (default true)")),
		mcp.WithBoolean("preserve_authors", mcp.Description("Copy source authors (default true)")),
	), s.extractRaw)

	s.mcp.AddTool(mcp.NewTool("extract_paragraphs",
		mcp.WithDescription("Split a content node on blank lines and store each sufficiently "+
			"long paragraph as its own snippet."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Source content id")),
		mcp.WithNumber("min_words", mcp.Description("Minimum words per paragraph (default 20)")),
		mcp.WithNumber("max_snippets", mcp.Description("Cap on snippets created; 0 means no cap")),
		mcp.WithString("style", mcp.Description("Comma-separated styles (default snippet)")),
	), s.extractParagraphs)

	s.mcp.AddTool(mcp.NewTool("extract_sections",
		mcp.WithDescription("Extract sentences matching a keyword with surrounding context; "+
			"snippets are additionally tagged with the keyword."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Source content id")),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Case-insensitive keyword or phrase")),
		mcp.WithNumber("context_sentences", mcp.Description("Sentences of context either side (default 2)")),
		mcp.WithString("style", mcp.Description("Comma-separated styles (default snippet)")),
	), s.extractSections)

	s.mcp.AddTool(mcp.NewTool("extract_social",
		mcp.WithDescription("Extract quotable sentences sized for a platform: "+
			"twitter (280), linkedin (700), or instagram (500)."),
		mcp.WithString("content_id", mcp.Required(), mcp.Description("Source content id")),
		mcp.WithString("platform", mcp.Description("twitter, linkedin, or instagram (default twitter)")),
		mcp.WithNumber("max_count", mcp.Description("Cap on snippets created (default 5)")),
	), s.extractSocial)

	s.mcp.AddTool(mcp.NewTool("combine_content",
		mcp.WithDescription("Join several content nodes into one longer piece. Missing ids "+
			"are skipped; sources get related_to edges to the result."),
		mcp.WithString("content_ids", mcp.Required(), mcp.Description("Comma-separated content ids, in order")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title for the combined node")),
		mcp.WithString("style", mcp.Description("Comma-separated styles (default blog,post)")),
		mcp.WithString("separator", mcp.Description("Text placed between the joined bodies (default a horizontal rule)")),
	), s.combineContent)

	// Resource: the fixed style enumeration and content format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://style-enum", "Content Style Enumeration",
			mcp.WithResourceDescription("The fixed set of content styles and how nodes are structured."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readStyleEnumResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// splitCSV parses a comma-separated argument into trimmed non-empty parts.
func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) addContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, status, err := s.svc.CreateContent(ctx, storage.CreateContentParams{
		Content: content,
		Title:   req.GetString("title", ""),
		Styles:  splitCSV(req.GetString("style", "")),
		Tags:    splitCSV(req.GetString("tags", "")),
		Authors: splitCSV(req.GetString("authors", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id, "status": string(status)}), nil
}

func (s *Server) addTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.GetOrCreateTag(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

func (s *Server) addStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.GetOrCreateStyle(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

func (s *Server) addAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.GetOrCreateAuthor(ctx, name, storage.AuthorHandles{
		Linkedin: req.GetString("linkedin", ""),
		Twitter:  req.GetString("twitter", ""),
		Substack: req.GetString("substack", ""),
		Reddit:   req.GetString("reddit", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

func (s *Server) addLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.GetOrCreateLink(ctx, url, req.GetString("title", ""), req.GetString("description", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

func (s *Server) linkRelates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("src")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	relType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dst, err := req.RequireString("dst")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Relate(ctx, src, relType, dst); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked: %s -[%s]-> %s", src, relType, dst)), nil
}

func (s *Server) linkTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Tag(ctx, contentID, tag); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("tagged: %s", contentID)), nil
}

func (s *Server) linkAuthor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Author(ctx, contentID, author); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("attributed: %s", contentID)), nil
}

func (s *Server) linkURL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AttachLink(ctx, contentID, url, req.GetString("title", ""), req.GetString("description", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked url to: %s", contentID)), nil
}

func (s *Server) searchContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	searchReq := search.Request{
		Query: req.GetString("query", ""),
		Filters: search.Filters{
			Style:   splitCSV(req.GetString("style", "")),
			Tag:     splitCSV(req.GetString("tags", "")),
			Author:  splitCSV(req.GetString("authors", "")),
			Title:   req.GetString("title", ""),
			Content: req.GetString("content", ""),
			Relates: splitCSV(req.GetString("relates", "")),
		},
		Sort:     req.GetString("sort", ""),
		Page:     req.GetInt("page", 0),
		PageSize: req.GetInt("page_size", 0),
	}
	if raw, ok := req.GetArguments()["seed"]; ok {
		if f, ok := raw.(float64); ok {
			seed := int64(f)
			searchReq.Seed = &seed
		}
	}

	res, err := s.svc.Search(ctx, searchReq)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(detail), nil
}

func (s *Server) reindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.Rebuild(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("index rebuilt"), nil
}

func (s *Server) countContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]int{"count": s.svc.Count(ctx)}), nil
}

func (s *Server) extractRaw(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.ExtractRaw(ctx, contentID, contentsvc.ExtractRawParams{
		MaxLength:       req.GetInt("max_length", 0),
		Styles:          splitCSV(req.GetString("style", "")),
		PreserveTags:    req.GetBool("preserve_tags", true),
		PreserveAuthors: req.GetBool("preserve_authors", true),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

func (s *Server) extractParagraphs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.svc.ExtractParagraphs(ctx, contentID,
		req.GetInt("min_words", 20),
		req.GetInt("max_snippets", 0),
		splitCSV(req.GetString("style", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"ids": ids}), nil
}

func (s *Server) extractSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.svc.ExtractSections(ctx, contentID, keyword,
		req.GetInt("context_sentences", 2),
		splitCSV(req.GetString("style", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"ids": ids}), nil
}

func (s *Server) extractSocial(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contentID, err := req.RequireString("content_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := s.svc.ExtractSocial(ctx, contentID,
		req.GetString("platform", "twitter"),
		req.GetInt("max_count", 5))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"ids": ids}), nil
}

func (s *Server) combineContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawIDs, err := req.RequireString("content_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.Combine(ctx, splitCSV(rawIDs), title,
		splitCSV(req.GetString("style", "")), req.GetString("separator", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

func (s *Server) readStyleEnumResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://style-enum",
			MIMEType: "text/markdown",
			Text:     StyleEnumContract,
		},
	}, nil
}
