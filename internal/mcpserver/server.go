// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the bundler over stdio transport, so LLM clients can bundle notes
// and read the results.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bindrune/internal/bundler"
)

// Server wraps the MCP server with bundler tools.
type Server struct {
	mcp     *server.MCPServer
	builder *bundler.Builder
	outRoot string
}

// New creates an MCP server with all bundler tools registered.
func New(builder *bundler.Builder, outRoot string) *Server {
	s := &Server{builder: builder, outRoot: outRoot}

	s.mcp = server.NewMCPServer(
		"Bindrune",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("bundle_note",
		mcp.WithDescription("Bundle a Roam Research Markdown export: fetch its remote images "+
			"through the Local API and produce a self-contained .mdbundle directory. "+
			"Individual image failures are tolerated; the result reports counts."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the Markdown file to bundle")),
	), s.bundleNote)

	s.mcp.AddTool(mcp.NewTool("list_bundles",
		mcp.WithDescription("List the .mdbundle directories under the output root."),
	), s.listBundles)

	s.mcp.AddTool(mcp.NewTool("read_bundle",
		mcp.WithDescription("Read the rewritten Markdown inside a bundle."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Bundle directory name (e.g. my_note.mdbundle)")),
	), s.readBundle)

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

func (s *Server) bundleNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.builder.Run(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listBundles(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := os.ReadDir(s.outRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText("no bundles"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), bundler.BundleExt) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no bundles"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readBundle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if filepath.Clean(name) != filepath.Base(name) || !strings.HasSuffix(name, bundler.BundleExt) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid bundle name: %s", name)), nil
	}
	mdName := strings.TrimSuffix(name, bundler.BundleExt) + ".md"
	data, err := os.ReadFile(filepath.Join(s.outRoot, name, mdName))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
