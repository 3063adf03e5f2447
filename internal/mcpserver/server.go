// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Sowilo search tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/docservice"
	"github.com/starford/sowilo/internal/models"
)

const querySyntaxURI = "sowilo://query-syntax"

// Server wraps the MCP server with Sowilo tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Sowilo tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Sowilo",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Full-text search through the watched documents (PDF, DOCX, Markdown, text). "+
			"The query accepts free text plus key:value filters; read sowilo://query-syntax or call "+
			"get_query_syntax for the full grammar."),
		mcp.WithString("query", mcp.Description("Search query, e.g. `invoice type:pdf from:2024-01-01`")),
		mcp.WithBoolean("fuzzy", mcp.Description("Also match words one edit away")),
		mcp.WithNumber("page", mcp.Description("1-based page number")),
		mcp.WithNumber("page_size", mcp.Description("Hits per page")),
		mcp.WithString("sort", mcp.Description("Sort order"),
			mcp.Enum(models.SortRelevance, models.SortModified, models.SortModifiedDesc,
				models.SortName, models.SortSize, models.SortSizeDesc)),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("get_file",
		mcp.WithDescription("Return catalog metadata for one file, looked up by absolute path or by id."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Absolute path or file id from a search hit")),
	), s.getFile)

	s.mcp.AddTool(mcp.NewTool("index_file",
		mcp.WithDescription("Index one file under a watched root immediately."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the file")),
	), s.indexFile)

	s.mcp.AddTool(mcp.NewTool("indexer_state",
		mcp.WithDescription("Report whether the indexer is running or paused, with file and document counts."),
	), s.indexerState)

	s.mcp.AddTool(mcp.NewTool("get_query_syntax",
		mcp.WithDescription("Returns the search query syntax reference."),
	), s.getQuerySyntax)

	s.mcp.AddResource(
		mcp.NewResource(querySyntaxURI, "Query Syntax",
			mcp.WithResourceDescription("Search mini-language accepted by search_files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQuerySyntaxResource,
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

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Search(ctx, docservice.SearchRequest{
		Query:    req.GetString("query", ""),
		Fuzzy:    req.GetBool("fuzzy", false),
		Page:     req.GetInt("page", 0),
		PageSize: req.GetInt("page_size", 0),
		Sort:     req.GetString("sort", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) getFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetFile(ctx, ref)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(d)
}

func (s *Server) indexFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.IndexFile(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	if d == nil {
		return mcp.NewToolResultText(fmt.Sprintf("not indexed: %s (missing or indexer paused)", path)), nil
	}
	return jsonResult(d)
}

func (s *Server) indexerState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Status(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(st)
}

func (s *Server) getQuerySyntax(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QuerySyntax), nil
}

func (s *Server) readQuerySyntaxResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      querySyntaxURI,
			MIMEType: "text/markdown",
			Text:     QuerySyntax,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}
