package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/tools"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

func taggedTool(name string, tags ...string) mcptypes.Tool {
	t := mcptypes.NewTool(name,
		mcptypes.WithDescription(name+" tool"),
		mcptypes.WithString("prompt", mcptypes.Required()),
	)
	if len(tags) > 0 {
		t.Meta = &mcptypes.Meta{AdditionalFields: map[string]any{
			"_fastmcp": map[string]any{"tags": tags},
		}}
	}
	return t
}

func testServer() *server.MCPServer {
	srv := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(false))
	srv.AddTool(taggedTool("echo", "text"), func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return mcptypes.NewToolResultText("echo: " + req.GetString("prompt", "")), nil
	})
	srv.AddTool(taggedTool("draw", "image"), func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return mcptypes.NewToolResultImage("done", base64.StdEncoding.EncodeToString(pngBytes), "image/png"), nil
	})
	srv.AddTool(taggedTool("speak", "audio"), func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return mcptypes.NewToolResultAudio("done", base64.StdEncoding.EncodeToString([]byte("RIFF")), "audio/wav"), nil
	})
	srv.AddTool(taggedTool("cancel"), func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return &mcptypes.CallToolResult{Content: []mcptypes.Content{}}, nil
	})
	srv.AddTool(taggedTool("fail", "text"), func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		return mcptypes.NewToolResultError("no gpu"), nil
	})
	return srv
}

func connect(t *testing.T, tags ...string) tools.Client {
	t.Helper()
	srv := testServer()
	c := NewConnector(Options{URL: "inprocess", Tags: tags}, zap.NewNop().Sugar())
	c.dial = func(context.Context) (*client.Client, error) {
		return client.NewInProcessClient(srv)
	}
	tc, err := c.Connect(context.Background(), events.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { tc.Close() })
	return tc
}

func TestSession_ListAll(t *testing.T) {
	tc := connect(t)

	defs, err := tc.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"echo", "draw", "speak", "cancel", "fail"}, tools.Names(defs))

	for _, d := range defs {
		if d.Name != "echo" {
			continue
		}
		require.NotNil(t, d.Parameters)
		assert.Equal(t, "object", d.Parameters.Type)
		assert.Contains(t, d.Parameters.Properties, "prompt")
		assert.Equal(t, []string{"prompt"}, d.Parameters.Required)
		assert.Equal(t, []string{"text"}, d.Tags)
	}
}

func TestSession_ListFilteredByTag(t *testing.T) {
	tc := connect(t, "image", "audio")

	defs, err := tc.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"draw", "speak"}, tools.Names(defs))
}

func TestSession_CallText(t *testing.T) {
	tc := connect(t)

	res, err := tc.Call(context.Background(), tools.Call{Name: "echo", Arguments: map[string]any{"prompt": "hi"}})
	require.NoError(t, err)
	assert.Equal(t, tools.Text{Value: "echo: hi"}, res)
}

func TestSession_CallImage(t *testing.T) {
	tc := connect(t)

	res, err := tc.Call(context.Background(), tools.Call{Name: "draw", Arguments: map[string]any{"prompt": "cat"}})
	require.NoError(t, err)
	assert.Equal(t, tools.Image{Data: pngBytes, MIMEType: "image/png"}, res)
}

func TestSession_CallAudio(t *testing.T) {
	tc := connect(t)

	res, err := tc.Call(context.Background(), tools.Call{Name: "speak", Arguments: map[string]any{"prompt": "hello"}})
	require.NoError(t, err)
	assert.Equal(t, tools.Audio{Data: []byte("RIFF"), MIMEType: "audio/wav"}, res)
}

func TestSession_CallEmptyIsInterruption(t *testing.T) {
	tc := connect(t)

	res, err := tc.Call(context.Background(), tools.Call{Name: "cancel", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestSession_CallToolError(t *testing.T) {
	tc := connect(t)

	_, err := tc.Call(context.Background(), tools.Call{Name: "fail", Arguments: map[string]any{"prompt": "x"}})
	var execErr *tools.ExecutionError
	require.True(t, errors.As(err, &execErr), "expected ExecutionError, got %v", err)
	assert.Equal(t, "fail", execErr.Tool)
	assert.Contains(t, execErr.Error(), "no gpu")
}

func TestSession_CallUnknownTool(t *testing.T) {
	tc := connect(t)

	_, err := tc.Call(context.Background(), tools.Call{Name: "missing"})
	var execErr *tools.ExecutionError
	assert.True(t, errors.As(err, &execErr))
}

func notification(method string, params map[string]any) mcptypes.JSONRPCNotification {
	return mcptypes.JSONRPCNotification{
		JSONRPC: mcptypes.JSONRPC_VERSION,
		Notification: mcptypes.Notification{
			Method: method,
			Params: mcptypes.NotificationParams{AdditionalFields: params},
		},
	}
}

func TestNotificationEvent_Log(t *testing.T) {
	e, ok := notificationEvent(notification("notifications/message", map[string]any{
		"level": "INFO",
		"data":  map[string]any{"msg": "loading model"},
	}))
	require.True(t, ok)
	assert.Equal(t, events.Status{Key: "info", Text: "loading model"}, e)
}

func TestNotificationEvent_LogPlainData(t *testing.T) {
	e, ok := notificationEvent(notification("notifications/message", map[string]any{
		"level": "warning",
		"data":  "disk almost full",
	}))
	require.True(t, ok)
	assert.Equal(t, events.Status{Key: "warning", Text: "disk almost full"}, e)
}

func TestNotificationEvent_PreviewImage(t *testing.T) {
	e, ok := notificationEvent(notification("notifications/message", map[string]any{
		"level": "info",
		"data": map[string]any{
			"msg": "preview_image",
			"extra": map[string]any{
				"base64": base64.StdEncoding.EncodeToString(pngBytes),
				"type":   "png",
			},
		},
	}))
	require.True(t, ok)
	assert.Equal(t, events.Preview{Key: "progress", Data: pngBytes, Filename: "preview.png"}, e)
}

func TestNotificationEvent_Progress(t *testing.T) {
	e, ok := notificationEvent(notification("notifications/progress", map[string]any{
		"progressToken": "abc",
		"progress":      3,
		"total":         10,
		"message":       "sampling",
	}))
	require.True(t, ok)
	assert.Equal(t, events.Progress{Key: "progress", Current: 3, Total: 10, Message: "sampling"}, e)
}

func TestNotificationEvent_Unknown(t *testing.T) {
	_, ok := notificationEvent(notification("notifications/tools/list_changed", nil))
	assert.False(t, ok)
}

func TestMatchesTags(t *testing.T) {
	assert.True(t, matchesTags(nil, nil))
	assert.True(t, matchesTags([]string{"a", "b"}, []string{"b"}))
	assert.False(t, matchesTags([]string{"a"}, []string{"c"}))
	assert.False(t, matchesTags(nil, []string{"c"}))
}
