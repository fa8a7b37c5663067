package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all MintGuard tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("mintguard", "0.1.0")
	client := NewGatewayClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScanToken, h.HandleScanToken)
	s.AddTool(ToolGetScanHistory, h.HandleGetScanHistory)

	return s
}
