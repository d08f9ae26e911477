package server_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/fieldlog/internal/metrics"
	"github.com/raphaelgruber/fieldlog/internal/server"
)

// testLogger creates a logger that writes to stderr for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type echoInput struct {
	Text string `json:"text"`
	Fail bool   `json:"fail,omitempty"`
}

func echoTool(_ context.Context, _ *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: in.Text}},
		IsError: in.Fail,
	}, nil, nil
}

// connect runs srv on an in-memory transport and returns a client session.
func connect(t *testing.T, ctx context.Context, srv *server.Server) *mcp.ClientSession {
	t.Helper()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	go func() {
		_ = srv.MCPServer().Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestServerCreation(t *testing.T) {
	srv := server.New("test-version", testLogger(), nil)
	require.NotNil(t, srv)
	require.NotNil(t, srv.MCPServer(), "underlying MCP server should not be nil")

	// Setup should not panic without a collector
	srv.Setup()
}

func TestServerWithInMemoryTransport(t *testing.T) {
	srv := server.New("0.1.0-test", testLogger(), nil)
	srv.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := connect(t, ctx, srv)

	initResult := session.InitializeResult()
	require.NotNil(t, initResult)
	assert.Equal(t, "fieldlog", initResult.ServerInfo.Name)
	assert.Equal(t, "0.1.0-test", initResult.ServerInfo.Version)

	toolsResult, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, toolsResult.Tools, "should have no tools registered")

	for i := 0; i < 3; i++ {
		_, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "request %d should succeed", i)
	}
}

func TestLoggingMiddleware_RecordsToolCalls(t *testing.T) {
	collector := metrics.NewCollector()
	srv := server.New("0.1.0-test", testLogger(), collector)
	srv.Setup()
	mcp.AddTool(srv.MCPServer(), &mcp.Tool{Name: "echo", Description: "Echo text back"}, echoTool)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := connect(t, ctx, srv)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "hi"}})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"text": "no", "fail": true}})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	_, err = session.ListTools(ctx, nil)
	require.NoError(t, err)

	snap := collector.Snapshot()
	require.NotNil(t, snap.ToolCall)
	assert.Equal(t, int64(1), snap.ToolCall.Count)
	assert.Equal(t, int64(1), snap.ToolCall.Errors)
}
