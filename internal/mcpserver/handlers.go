package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *GatewayClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *GatewayClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScanToken evaluates one mint and renders the verdict.
func (h *Handlers) HandleScanToken(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mint := req.GetString("mint", "")
	if mint == "" {
		return mcp.NewToolResultError("mint is required"), nil
	}

	raw, err := h.client.ScanToken(ctx, mint)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	text, err := formatScan(mint, raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetScanHistory lists recent scans.
func (h *Handlers) HandleGetScanHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mint := req.GetString("mint", "")
	limit := req.GetInt("limit", 20)

	raw, err := h.client.GetScanHistory(ctx, mint, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get scan history: %v", err)), nil
	}

	text, err := formatHistory(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan history: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// scanResult mirrors the gateway's scan response shape.
type scanResult struct {
	Score    int    `json:"score"`
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
	Risk     struct {
		Factors []struct {
			Key    string `json:"key"`
			Score  int    `json:"score"`
			Detail string `json:"detail"`
		} `json:"factors"`
	} `json:"risk"`
	Upstreams map[string]struct {
		Status string `json:"status"`
	} `json:"upstreams"`
	Degraded bool `json:"degraded"`
}

func formatScan(mint string, raw json.RawMessage) (string, error) {
	var res scanResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Token: %s\n", mint)
	fmt.Fprintf(&sb, "Risk score: %d/100\n", res.Score)
	fmt.Fprintf(&sb, "Decision: %s\n", strings.ToUpper(res.Decision))
	fmt.Fprintf(&sb, "Reason: %s\n", res.Reason)

	if len(res.Risk.Factors) > 0 {
		sb.WriteString("\nFactors:\n")
		for _, f := range res.Risk.Factors {
			fmt.Fprintf(&sb, "  %+d  %s: %s\n", f.Score, f.Key, f.Detail)
		}
	}

	if len(res.Upstreams) > 0 {
		sb.WriteString("\nData sources:\n")
		for name, u := range res.Upstreams {
			fmt.Fprintf(&sb, "  %s: %s\n", name, u.Status)
		}
	}

	if res.Degraded {
		sb.WriteString("\nNote: some data sources were unavailable; the score may be incomplete.\n")
	}

	return sb.String(), nil
}

// historyResult mirrors the gateway's scan list response shape.
type historyResult struct {
	Scans []struct {
		Mint      string    `json:"mint"`
		Score     int       `json:"score"`
		Decision  string    `json:"decision"`
		Degraded  bool      `json:"degraded"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"scans"`
	Count int `json:"count"`
}

func formatHistory(raw json.RawMessage) (string, error) {
	var res historyResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", err
	}

	if len(res.Scans) == 0 {
		return "No scans recorded yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent scans (%d):\n\n", res.Count)
	for _, s := range res.Scans {
		flag := ""
		if s.Degraded {
			flag = " (degraded)"
		}
		fmt.Fprintf(&sb, "  %s  %-5s %3d  %s%s\n",
			s.CreatedAt.Format("2006-01-02 15:04"), s.Decision, s.Score, s.Mint, flag)
	}
	return sb.String(), nil
}
