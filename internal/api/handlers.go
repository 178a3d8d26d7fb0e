package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taxonomy-explorer/internal/checksum"
	"github.com/starford/taxonomy-explorer/internal/taxonomyservice"
)

const maxSourceBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *taxonomyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *taxonomyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam returns a URL parameter with percent-encoding removed.
// Category names routinely contain spaces and commas.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Tree handles GET /api/taxonomy/tree.
//
//	@Summary		Get the taxonomy tree document
//	@Tags			taxonomy
//	@Produce		json
//	@Param			If-None-Match	header		string	false	"ETag of a cached tree"
//	@Success		200				{object}	TreeNode
//	@Success		304
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	root, sum, err := h.svc.Tree(r.Context())
	if err != nil {
		writeServiceError(w, "tree", err)
		return
	}
	etag := checksum.ETag(sum)
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.Matches(inm, sum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// NodeInfo handles GET /api/taxonomy/node-info/{name}.
//
//	@Summary		Get the detail panel fragment of a category
//	@Tags			taxonomy
//	@Produce		html
//	@Param			name			path	string	true	"Category name"
//	@Param			generation_task	query	int		false	"Generation task id"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/node-info/{name} [get]
func (h *Handler) NodeInfo(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	task := 0
	if v := r.URL.Query().Get("generation_task"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("generation_task must be an integer"))
			return
		}
		task = n
	}
	fragment, err := h.svc.NodeInfoHTML(r.Context(), name, task)
	if err != nil {
		writeServiceError(w, "node info", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, fragment)
}

// Node handles GET /api/taxonomy/nodes/{bigID}.
//
//	@Summary		Get one placement of a category by bigId
//	@Tags			taxonomy
//	@Produce		json
//	@Param			bigID	path		string	true	"Comma-joined node id path"
//	@Success		200		{object}	NodeInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/nodes/{bigID} [get]
func (h *Handler) Node(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.NodeByBigID(r.Context(), pathParam(r, "bigID"))
	if err != nil {
		writeServiceError(w, "node", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Search handles GET /api/taxonomy/search.
//
//	@Summary		Search categories by name, description and FAQ
//	@Tags			taxonomy
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	resp := SearchResponse{Results: make([]SearchResult, len(hits))}
	for i, hit := range hits {
		resp.Results[i] = SearchResult{ID: hit.CategoryID, Name: hit.Name, Snippet: hit.Snippet}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Source handles GET /api/taxonomy/source.
//
//	@Summary		Get metadata of the indexed source file
//	@Tags			taxonomy
//	@Produce		json
//	@Success		200	{object}	SourceMetadata
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/source [get]
func (h *Handler) Source(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Source(r.Context())
	if err != nil {
		writeServiceError(w, "source", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(meta.Checksum))
	writeJSON(w, http.StatusOK, meta)
}

// ReplaceSource handles PUT /api/taxonomy/source. The body is the new source file.
//
//	@Summary		Replace the ontology source with optimistic concurrency
//	@Tags			taxonomy
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header		string	false	"Checksum of the source being replaced"
//	@Success		200			{object}	SourceMetadata
//	@Failure		400			{object}	errResponse
//	@Failure		412			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/taxonomy/source [put]
func (h *Handler) ReplaceSource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSourceBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	meta, err := h.svc.ReplaceSource(r.Context(), body, r.Header.Get("If-Match"))
	if err != nil {
		writeServiceError(w, "replace source", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(meta.Checksum))
	writeJSON(w, http.StatusOK, meta)
}
