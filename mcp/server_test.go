package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/vizsync/internal/loader"
	"github.com/Benny93/vizsync/internal/session"
	"github.com/Benny93/vizsync/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Initialize("", false))
	s := session.New(session.Options{Backend: backend})
	t.Cleanup(func() { _ = s.Close() })

	_, _, err := s.LoadDocument("ppi.json", &loader.Document{
		Name:  "ppi",
		Style: "degree",
		Nodes: []loader.NodeDoc{
			{ID: "a", Name: "A", Attrs: map[string]any{"Degree": 2.0}},
			{ID: "b", Name: "B", Attrs: map[string]any{"Degree": 1.0}},
			{ID: "c", Name: "C", Attrs: map[string]any{"Degree": 1.0}},
		},
		Edges: []loader.EdgeDoc{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
		},
	})
	require.NoError(t, err)
	return NewServer(s), s
}

func TestNewServer(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.SDK())
}

func TestListTools(t *testing.T) {
	srv, _ := newTestServer(t)
	tools := srv.ListTools()

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
		assert.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.InputSchema)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}
	assert.Equal(t, []string{
		"vizsync_networks",
		"vizsync_view",
		"vizsync_select",
		"vizsync_bypass",
		"vizsync_associate",
		"vizsync_associations",
	}, names)
}

func TestCallTool_Networks(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.CallTool(context.Background(), "vizsync_networks", nil)

	require.NoError(t, err)
	assert.Contains(t, result, "**ppi** (`ppi.json`): 3 nodes, 2 edges")
	assert.Contains(t, result, `style "degree"`)
}

func TestCallTool_View(t *testing.T) {
	srv, _ := newTestServer(t)

	result, err := srv.CallTool(context.Background(), "vizsync_view", map[string]any{"document": "ppi.json"})

	require.NoError(t, err)
	assert.Contains(t, result, "## View of ppi")
	assert.Contains(t, result, "**Nodes:** 3 (0 selected)")
	assert.Contains(t, result, "| node | Degree |")

	_, err = srv.CallTool(context.Background(), "vizsync_view", map[string]any{"document": "missing.json"})
	assert.ErrorIs(t, err, session.ErrUnknownDocument)
}

func TestCallTool_Select(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	result, err := srv.CallTool(ctx, "vizsync_select", map[string]any{
		"document": "ppi.json",
		"nodes":    []any{"a", "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Selected 2 node(s) in ppi.json", result)

	sum, err := s.Summary("ppi.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, sum.SelectedNodes)

	result, err = srv.CallTool(ctx, "vizsync_select", map[string]any{
		"document": "ppi.json",
		"nodes":    []any{"a"},
		"selected": false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Deselected 1 node(s) in ppi.json", result)

	_, err = srv.CallTool(ctx, "vizsync_select", map[string]any{"document": "ppi.json", "nodes": []any{"zz"}})
	assert.ErrorIs(t, err, session.ErrUnknownNode)
}

func TestCallTool_Bypass(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	args := map[string]any{"document": "ppi.json", "node": "a", "property": "NODE_SIZE", "value": 60.0}

	result, err := srv.CallTool(ctx, "vizsync_bypass", args)
	require.NoError(t, err)
	assert.Equal(t, "Locked NODE_SIZE of a to 60", result)

	result, err = srv.CallTool(ctx, "vizsync_bypass", args)
	require.NoError(t, err)
	assert.Equal(t, "NODE_SIZE of a unchanged", result)

	delete(args, "value")
	result, err = srv.CallTool(ctx, "vizsync_bypass", args)
	require.NoError(t, err)
	assert.Equal(t, "Unlocked NODE_SIZE of a", result)

	args["property"] = "COLUMN_GRAVITY"
	_, err = srv.CallTool(ctx, "vizsync_bypass", args)
	assert.ErrorIs(t, err, session.ErrUnknownProperty)
}

func TestCallTool_Associate(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.CallTool(ctx, "vizsync_associations", nil)
	require.NoError(t, err)
	assert.Equal(t, "No column style associations", result)

	result, err = srv.CallTool(ctx, "vizsync_associate", map[string]any{
		"network_style": "degree",
		"table":         "node",
		"column":        "Degree",
		"style":         "heat",
	})
	require.NoError(t, err)
	assert.Contains(t, result, `Associated node.Degree with "heat"`)

	result, err = srv.CallTool(ctx, "vizsync_associations", nil)
	require.NoError(t, err)
	assert.Contains(t, result, "| degree | node | Degree | heat |")

	view, err := srv.CallTool(ctx, "vizsync_view", map[string]any{"document": "ppi.json"})
	require.NoError(t, err)
	assert.Contains(t, view, "| Degree |")
	assert.Contains(t, view, "heat")

	_, err = srv.CallTool(ctx, "vizsync_associate", map[string]any{
		"network_style": "degree",
		"table":         "bogus",
		"column":        "Degree",
	})
	assert.Error(t, err)
}

func TestCallTool_MissingArguments(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	result, err := srv.CallTool(ctx, "vizsync_view", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "No document provided", result)

	result, err = srv.CallTool(ctx, "vizsync_select", map[string]any{"document": "ppi.json"})
	require.NoError(t, err)
	assert.Equal(t, "No document or nodes provided", result)

	_, err = srv.CallTool(ctx, "unknown_tool", nil)
	assert.Error(t, err)
}

func TestReadResource(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	overview, err := srv.ReadResource(ctx, "vizsync://overview")
	require.NoError(t, err)
	assert.Contains(t, overview, "**Networks:** 1")
	assert.Contains(t, overview, "- ppi: 3 nodes, 2 edges")

	lex, err := srv.ReadResource(ctx, "vizsync://lexicon")
	require.NoError(t, err)
	assert.Contains(t, lex, "| `NODE_FILL_COLOR` | node | #89D0F5 |")
	assert.Contains(t, lex, "| `COLUMN_GRAVITY` | column | 0 |")

	_, err = srv.ReadResource(ctx, "vizsync://unknown")
	assert.Error(t, err)
}

func TestSDKSession(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.SDK().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "vizsync-test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	assert.Len(t, tools.Tools, len(srv.ListTools()))

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "vizsync_networks", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "ppi")

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "vizsync_view", Arguments: map[string]any{"document": "missing.json"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	read, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "vizsync://overview"})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.Equal(t, "vizsync://overview", read.Contents[0].URI)
	assert.Contains(t, read.Contents[0].Text, "ppi")
}

func TestRun(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, stdinR, stdoutW)
	}()

	_, err := io.WriteString(stdinW, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"vizsync-test","version":"v0.0.1"}}}`+"\n")
	require.NoError(t, err)

	line, err := bufio.NewReader(stdoutR).ReadBytes('\n')
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(line, &resp))
	assert.Equal(t, float64(1), resp["id"])
	initResult := resp["result"].(map[string]any)
	assert.Equal(t, "vizsync", initResult["serverInfo"].(map[string]any)["name"])

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRun_Cancelled(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Run(ctx, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Error(t, srv.Run(context.Background(), nil, nil))
}
