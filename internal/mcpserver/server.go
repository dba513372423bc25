// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the converted archive to LLM agents via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taviso/stfjson/internal/docservice"
	"github.com/taviso/stfjson/internal/index"
	"github.com/taviso/stfjson/internal/storage"
)

// Server wraps the MCP server with archive tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *index.DB
	svc   *docservice.Service
}

// New creates a new MCP server with all archive tools registered.
func New(store storage.Provider, db *index.DB, logger *slog.Logger) *Server {
	s := &Server{
		store: store,
		db:    db,
		svc:   docservice.NewService(store, db, logger),
	}

	s.mcp = server.NewMCPServer(
		"stfjson",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_archive",
		mcp.WithDescription("Full-text search through item text, notes, and category names of the converted Agenda exports."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArchive)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read one Agenda export converted to JSON: an array of blocks with their categories and items."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the export (e.g. exports/1990.stf)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all exports in the archive, or those in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

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

func (s *Server) searchArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(string(doc.Document)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("archive is empty"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}
