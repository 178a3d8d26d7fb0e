// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the taxonomy to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/taxonomy"
	"github.com/starford/taxonomy-explorer/internal/taxonomyservice"
)

const sourceFormatURI = "taxonomy://source-format"

// Server wraps the MCP server with taxonomy tools.
type Server struct {
	mcp  *server.MCPServer
	svc  *taxonomyservice.Service
	skip []string
}

// New creates a new MCP server with all taxonomy tools registered. Categories named
// in skip are treated as pass-through when tools build the tree model.
func New(svc *taxonomyservice.Service, skip []string) *Server {
	s := &Server{svc: svc, skip: skip}

	s.mcp = server.NewMCPServer(
		"Taxonomy Explorer",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_categories",
		mcp.WithDescription("Search categories by name, description and FAQ."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchCategories)

	s.mcp.AddTool(mcp.NewTool("get_category",
		mcp.WithDescription("Get a category with its description, citation, FAQ and every placement in the tree. "+
			"Look it up either by display name or by ontology id."),
		mcp.WithString("name", mcp.Description("Category display name, e.g. Dog")),
		mcp.WithString("id", mcp.Description("Ontology id, e.g. /m/0bt9lr")),
	), s.getCategory)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Render the taxonomy as an indented outline of \"bigId name\" lines."),
		mcp.WithNumber("depth", mcp.Description("Maximum rendered depth (0 for the whole tree)")),
	), s.getTree)

	s.mcp.AddTool(mcp.NewTool("locate_category",
		mcp.WithDescription("Locate a node by bigId (comma-joined node ids such as 0,3,1): returns its "+
			"ancestor chain and the rows visible once the path to it is expanded."),
		mcp.WithString("big_id", mcp.Required(), mcp.Description("bigId of the node to locate")),
	), s.locateCategory)

	s.mcp.AddTool(mcp.NewTool("get_source_format",
		mcp.WithDescription("Returns the ontology source file format. "+
			"Read this before proposing edits to the source."),
	), s.getSourceFormat)

	s.mcp.AddResource(
		mcp.NewResource(sourceFormatURI, "Ontology Source Format",
			mcp.WithResourceDescription("Structure of the ontology source file the taxonomy is built from."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSourceFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no categories found"), nil
	}
	return jsonResult(results)
}

type categoryResult struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CitationURI string   `json:"citation_uri,omitempty"`
	FAQ         string   `json:"faq,omitempty"`
	Omitted     bool     `json:"omitted"`
	ChildIDs    []string `json:"child_ids,omitempty"`
	Placements  []string `json:"placements"`
}

func (s *Server) getCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if name := req.GetString("name", ""); id == "" && name != "" {
		info, err := s.svc.NodeInfo(ctx, name)
		if err != nil {
			return toolError(err), nil
		}
		id = info.CategoryID
	}
	if id == "" {
		return mcp.NewToolResultError("one of name or id is required"), nil
	}
	cat, occ, err := s.svc.CategoryByID(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	res := categoryResult{
		ID:          cat.ID,
		Name:        cat.Name,
		Description: cat.Description,
		CitationURI: cat.CitationURI,
		FAQ:         cat.FAQ,
		Omitted:     cat.Omitted(),
		ChildIDs:    cat.ChildIDs,
		Placements:  make([]string, len(occ)),
	}
	for i, o := range occ {
		res.Placements[i] = o.BigID
	}
	return jsonResult(res)
}

// model builds a tree model from the indexed taxonomy with no renderer attached.
func (s *Server) model(ctx context.Context) (*taxonomy.Tree, error) {
	raw, _, err := s.svc.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.Build(raw, taxonomy.WithSkip(s.skip...))
}

func (s *Server) getTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.model(ctx)
	if err != nil {
		return toolError(err), nil
	}
	maxDepth := req.GetInt("depth", 0)

	var b strings.Builder
	var walk func(entries []*taxonomy.Node, level int)
	walk = func(entries []*taxonomy.Node, level int) {
		for _, n := range entries {
			fmt.Fprintf(&b, "%s%s %s\n", strings.Repeat("  ", level), n.BigID, n.Name)
			if maxDepth == 0 || level+1 < maxDepth {
				walk(n.Entries, level+1)
			}
		}
	}
	walk(tree.Root().Entries, 0)
	return mcp.NewToolResultText(b.String()), nil
}

type locateResult struct {
	BigID     string   `json:"big_id"`
	Name      string   `json:"name"`
	Ancestors []string `json:"ancestors"`
	Expanded  []string `json:"expanded"`
	Visible   int      `json:"visible_rows"`
}

func (s *Server) locateCategory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bigID, err := req.RequireString("big_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.model(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if err := tree.Locate(ctx, bigID); err != nil {
		return toolError(err), nil
	}
	n, _ := tree.Lookup(bigID)
	res := locateResult{BigID: n.BigID, Name: n.Name, Ancestors: []string{}, Expanded: []string{}}
	for _, a := range n.Ancestors() {
		res.Ancestors = append(res.Ancestors, a.Name)
	}
	for _, e := range tree.Expanded() {
		res.Expanded = append(res.Expanded, e.BigID)
	}
	res.Visible = len(tree.Visible())
	return jsonResult(res)
}

func (s *Server) getSourceFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SourceFormat), nil
}

func (s *Server) readSourceFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      sourceFormatURI,
			MIMEType: "text/markdown",
			Text:     SourceFormat,
		},
	}, nil
}
