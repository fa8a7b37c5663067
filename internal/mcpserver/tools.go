package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the MintGuard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanToken = mcp.NewTool("scan_token",
	mcp.WithDescription(
		"Scan a Solana token mint for rug-pull risk. "+
			"Aggregates signals from multiple data providers (mint authority, holder "+
			"concentration, liquidity locks, creator reputation) into a 0-100 risk score "+
			"with a safe/warn/block decision. Use this before trading or listing a token."),
	mcp.WithString("mint",
		mcp.Required(),
		mcp.Description("The token's base58-encoded mint address (e.g. 'So1111...')")),
)

var ToolGetScanHistory = mcp.NewTool("get_scan_history",
	mcp.WithDescription(
		"List recent token scans recorded by MintGuard. "+
			"Optionally filter to one mint to see how its risk score evolved over time."),
	mcp.WithString("mint",
		mcp.Description("Filter to this base58-encoded mint address")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of scans to return (default 20)")),
)
