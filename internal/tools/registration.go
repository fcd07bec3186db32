// Package tools exposes the dclist.net client as MCP tools.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registration pairs an MCP tool definition with its handler function.
type Registration struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// ToolAdder is the part of *server.MCPServer that RegisterAll needs.
type ToolAdder interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

var _ ToolAdder = (*server.MCPServer)(nil)

// RegisterAll adds every registration to s and returns the tool names in
// registration order.
func RegisterAll(s ToolAdder, registrations []Registration) []string {
	names := make([]string, 0, len(registrations))
	for _, r := range registrations {
		s.AddTool(r.Tool, r.Handler)
		names = append(names, r.Tool.Name)
	}
	return names
}
