package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	client := NewGatewayClient(Config{APIURL: ts.URL})
	h := NewHandlers(client)
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

const testMint = "So11111111111111111111111111111111111111112"

// ============================================================
// Client tests
// ============================================================

func TestClient_ScanToken_RequestShape(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"score": 0, "decision": "safe"}`))
	}))
	defer ts.Close()

	client := NewGatewayClient(Config{APIURL: ts.URL})
	_, err := client.ScanToken(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/scan", gotPath)
	assert.Equal(t, testMint, gotBody["mint"])
}

func TestClient_GetScanHistory_QueryParams(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"scans": [], "count": 0}`))
	}))
	defer ts.Close()

	client := NewGatewayClient(Config{APIURL: ts.URL})
	_, err := client.GetScanHistory(context.Background(), testMint, 5)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "mint="+testMint)
	assert.Contains(t, gotQuery, "limit=5")
}

func TestClient_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "invalid_mint",
			"message": "mint must be a base58-encoded Solana address",
		})
	}))
	defer ts.Close()

	client := NewGatewayClient(Config{APIURL: ts.URL})
	_, err := client.ScanToken(context.Background(), "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "base58")
}

func TestClient_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	client := NewGatewayClient(Config{APIURL: ts.URL})
	_, err := client.ScanToken(context.Background(), testMint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_ConnectionRefused(t *testing.T) {
	client := NewGatewayClient(Config{APIURL: "http://127.0.0.1:1"})
	_, err := client.ScanToken(context.Background(), testMint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

// ============================================================
// Handler tests
// ============================================================

func TestHandleScanToken(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"score":    65,
			"decision": "warn",
			"reason":   "mint authority is active; top 10 holders own 85.0% of supply",
			"risk": map[string]any{
				"level": "warn",
				"factors": []map[string]any{
					{"key": "mint_authority_active", "score": 25, "detail": "mint authority is active"},
					{"key": "holders_concentrated", "score": 25, "detail": "top 10 holders own 85.0% of supply"},
				},
			},
			"upstreams": map[string]any{
				"rugcheck": map[string]string{"status": "ok"},
				"birdeye":  map[string]string{"status": "timeout"},
			},
			"degraded": true,
		})
	}))
	defer cleanup()

	result, err := h.HandleScanToken(context.Background(), makeRequest(map[string]any{"mint": testMint}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "65/100")
	assert.Contains(t, text, "WARN")
	assert.Contains(t, text, "mint_authority_active")
	assert.Contains(t, text, "birdeye: timeout")
	assert.Contains(t, text, "some data sources were unavailable")
}

func TestHandleScanToken_MissingMint(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway should not be called without a mint")
	}))
	defer cleanup()

	result, err := h.HandleScanToken(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "mint is required")
}

func TestHandleScanToken_GatewayError(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "internal_error",
			"message": "Failed to evaluate token",
		})
	}))
	defer cleanup()

	result, err := h.HandleScanToken(context.Background(), makeRequest(map[string]any{"mint": testMint}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Scan failed")
}

func TestHandleGetScanHistory(t *testing.T) {
	created := time.Date(2026, 8, 28, 12, 30, 0, 0, time.UTC)
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"scans": []map[string]any{
				{"mint": testMint, "score": 90, "decision": "block", "degraded": true, "createdAt": created},
				{"mint": testMint, "score": 10, "decision": "safe", "createdAt": created.Add(-time.Hour)},
			},
			"count": 2,
		})
	}))
	defer cleanup()

	result, err := h.HandleGetScanHistory(context.Background(), makeRequest(map[string]any{"mint": testMint}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Recent scans (2)")
	assert.Contains(t, text, "block")
	assert.Contains(t, text, "(degraded)")
	assert.Contains(t, text, testMint)
}

func TestHandleGetScanHistory_Empty(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"scans": []any{}, "count": 0})
	}))
	defer cleanup()

	result, err := h.HandleGetScanHistory(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No scans recorded yet")
}
