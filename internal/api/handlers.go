package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/contentsvc"
	"github.com/starford/othala/internal/graph"
	"github.com/starford/othala/internal/search"
	"github.com/starford/othala/internal/storage"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *contentsvc.Service
	graph *graph.DB
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentsvc.Service, g *graph.DB) *Handler {
	return &Handler{svc: svc, graph: g}
}

// multiParam collects a repeatable query parameter (?tag=a&tag=b).
func multiParam(r *http.Request, name string) []string {
	vals := r.URL.Query()[name]
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Search handles GET /api/search.
//
//	@Summary		Search content nodes
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	false	"Full-text query"
//	@Param			style		query		[]string	false	"Style filter (repeatable)"
//	@Param			tag			query		[]string	false	"Tag filter (repeatable)"
//	@Param			author		query		[]string	false	"Author filter (repeatable)"
//	@Param			title		query		string	false	"Title substring"
//	@Param			content		query		string	false	"Body substring"
//	@Param			relates		query		[]string	false	"Related content ids (repeatable)"
//	@Param			sort		query		string	false	"Sort order"	Enums(relevance, date, random)
//	@Param			page		query		int		false	"1-based page"
//	@Param			page_size	query		int		false	"Page size"
//	@Param			seed		query		int		false	"Seed for random sort"
//	@Success		200			{object}	search.Result
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	req := search.Request{
		Query: q.Get("q"),
		Filters: search.Filters{
			Style:   multiParam(r, "style"),
			Tag:     multiParam(r, "tag"),
			Author:  multiParam(r, "author"),
			Title:   q.Get("title"),
			Content: q.Get("content"),
			Relates: multiParam(r, "relates"),
		},
		Sort:     q.Get("sort"),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := q.Get("seed"); raw != "" {
		if seed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.Seed = &seed
		}
	}

	res, err := h.svc.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("search failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a node by content id or slug
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Content id or slug"
//	@Success		200	{object}	contentsvc.NodeDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	detail, err := h.svc.GetNode(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get node failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateContent handles POST /api/content.
//
//	@Summary		Store a new content node
//	@Tags			content
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateContentRequest	true	"Content to store"
//	@Success		201		{object}	CreateContentResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content [post]
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorBody("request body is required"))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		}
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	id, status, err := h.svc.CreateContent(r.Context(), storage.CreateContentParams{
		Content: req.Content,
		Title:   req.Title,
		Styles:  req.Style,
		Tags:    req.Tags,
		Authors: req.Authors,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		} else {
			slog.Error("create content failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, CreateContentResponse{ID: id, Status: string(status)})
}

// Reindex handles POST /api/reindex.
//
//	@Summary		Rebuild the search index from the node store
//	@Tags			content
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Rebuild(r.Context()); err != nil {
		slog.Error("reindex failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Content: h.svc.Count(r.Context()),
		Indexed: h.svc.IndexedCount(r.Context()),
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Export the relates subgraph for visualization
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.graph.Export()
	if err != nil {
		slog.Error("graph export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if nodes == nil {
		nodes = []graph.Node{}
	}
	if links == nil {
		links = []graph.Link{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

// Stats handles GET /api/stats.
//
//	@Summary		Library statistics
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Content: h.svc.Count(r.Context()),
		Indexed: h.svc.IndexedCount(r.Context()),
	})
}
