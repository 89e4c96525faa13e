// Package mcp invokes tools served over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/core"
	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/tools"
)

const protocolVersion = "2025-06-18"

// Options configures a Connector.
type Options struct {
	URL         string
	Headers     map[string]string
	Tags        []string
	Name        string
	Version     string
	CallTimeout time.Duration
}

// Connector opens one MCP session per turn.
type Connector struct {
	opts   Options
	logger *zap.SugaredLogger
	dial   func(ctx context.Context) (*client.Client, error)
}

var _ tools.Connector = (*Connector)(nil)

// NewConnector returns a Connector for a streamable HTTP server.
func NewConnector(opts Options, logger *zap.SugaredLogger) *Connector {
	c := &Connector{opts: opts, logger: logger}
	c.dial = func(ctx context.Context) (*client.Client, error) {
		var topts []transport.StreamableHTTPCOption
		if len(opts.Headers) > 0 {
			topts = append(topts, transport.WithHTTPHeaders(opts.Headers))
		}
		return client.NewStreamableHttpClient(opts.URL, topts...)
	}
	return c
}

// Connect starts and initializes a session. Server log and progress
// notifications received while it is open are emitted to sink.
func (c *Connector) Connect(ctx context.Context, sink events.Sink) (tools.Client, error) {
	mc, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}
	if err := mc.Start(ctx); err != nil {
		mc.Close()
		return nil, fmt.Errorf("start mcp transport %s: %w", c.opts.URL, err)
	}

	s := &Session{
		client: mc,
		opts:   c.opts,
		sink:   sink,
		logger: c.logger,
		ctx:    context.WithoutCancel(ctx),
	}
	mc.OnNotification(s.handleNotification)

	name, version := c.opts.Name, c.opts.Version
	if name == "" {
		name = "toolshack"
	}
	_, err = mc.Initialize(ctx, mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    name,
				Version: version,
			},
		},
	})
	if err != nil {
		mc.Close()
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}
	c.logger.Debugw("mcp_connected", "url", c.opts.URL)
	return s, nil
}

// Session is an initialized MCP connection bound to one turn's sink.
type Session struct {
	client *client.Client
	opts   Options
	sink   events.Sink
	logger *zap.SugaredLogger
	ctx    context.Context
}

var _ tools.Client = (*Session)(nil)

// List returns the server's tools, keeping only those carrying one of the
// configured tags. No configured tags keeps everything.
func (s *Session) List(ctx context.Context) ([]tools.Definition, error) {
	res, err := s.client.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	defs := make([]tools.Definition, 0, len(res.Tools))
	for _, t := range res.Tools {
		def, err := convertTool(t)
		if err != nil {
			s.logger.Warnw("skipping tool with unusable schema", "tool", t.Name, "error", err)
			continue
		}
		if !matchesTags(def.Tags, s.opts.Tags) {
			continue
		}
		defs = append(defs, def)
	}
	s.logger.Debugw("tools_listed", "offered", len(res.Tools), "kept", len(defs))
	return defs, nil
}

// Call invokes one tool. An empty result is returned as nil.
func (s *Session) Call(ctx context.Context, call tools.Call) (tools.Result, error) {
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}
	logger := core.WithTool(s.logger, call.Name, call.Arguments)
	defer core.LogDuration(logger, "tool_call", time.Now())

	var req mcptypes.CallToolRequest
	req.Params.Name = call.Name
	req.Params.Arguments = call.Arguments
	req.Params.Meta = &mcptypes.Meta{ProgressToken: uuid.NewString()}

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, &tools.ExecutionError{Tool: call.Name, Err: err}
	}
	if res.IsError {
		return nil, &tools.ExecutionError{Tool: call.Name, Err: fmt.Errorf("%s", textOf(res.Content))}
	}
	result, err := convertResult(res.Content)
	if err != nil {
		return nil, &tools.ExecutionError{Tool: call.Name, Err: err}
	}
	return result, nil
}

func (s *Session) Close() error {
	return s.client.Close()
}

func (s *Session) handleNotification(n mcptypes.JSONRPCNotification) {
	e, ok := notificationEvent(n)
	if !ok {
		s.logger.Debugw("ignoring notification", "method", n.Method)
		return
	}
	if err := s.sink.Emit(s.ctx, e); err != nil {
		s.logger.Warnw("failed to emit notification", "method", n.Method, "error", err)
	}
}

// notificationEvent maps server log and progress notifications to events.
// Both preview images and progress share the "progress" key so one notice
// tracks a running tool.
func notificationEvent(n mcptypes.JSONRPCNotification) (events.Event, bool) {
	raw, err := json.Marshal(n.Params)
	if err != nil {
		return nil, false
	}
	params := gjson.ParseBytes(raw)

	switch n.Method {
	case "notifications/message":
		data := params.Get("data")
		if data.Get("msg").String() == "preview_image" {
			img, err := base64.StdEncoding.DecodeString(data.Get("extra.base64").String())
			if err != nil {
				return nil, false
			}
			return events.Preview{
				Key:      "progress",
				Data:     img,
				Filename: "preview." + data.Get("extra.type").String(),
			}, true
		}
		text := data.String()
		if msg := data.Get("msg"); msg.Exists() {
			text = msg.String()
		}
		return events.Status{
			Key:  strings.ToLower(params.Get("level").String()),
			Text: text,
		}, true

	case "notifications/progress":
		return events.Progress{
			Key:     "progress",
			Current: params.Get("progress").Float(),
			Total:   params.Get("total").Float(),
			Message: params.Get("message").String(),
		}, true
	}
	return nil, false
}

func convertTool(t mcptypes.Tool) (tools.Definition, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return tools.Definition{}, err
	}
	doc := gjson.ParseBytes(raw)

	def := tools.Definition{Name: t.Name, Description: t.Description}
	if in := doc.Get("inputSchema"); in.Exists() {
		var schema jsonschema.Schema
		if err := json.Unmarshal([]byte(in.Raw), &schema); err != nil {
			return tools.Definition{}, fmt.Errorf("input schema: %w", err)
		}
		def.Parameters = &schema
	}
	for _, tag := range doc.Get("_meta._fastmcp.tags").Array() {
		def.Tags = append(def.Tags, tag.String())
	}
	return def, nil
}

func matchesTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, tag := range want {
		if slices.Contains(have, tag) {
			return true
		}
	}
	return false
}

// convertResult picks the first media content, otherwise joins all text.
func convertResult(content []mcptypes.Content) (tools.Result, error) {
	if len(content) == 0 {
		return nil, nil
	}
	for _, c := range content {
		switch v := c.(type) {
		case mcptypes.ImageContent:
			data, err := base64.StdEncoding.DecodeString(v.Data)
			if err != nil {
				return nil, fmt.Errorf("decode image content: %w", err)
			}
			return tools.Image{Data: data, MIMEType: v.MIMEType}, nil
		case mcptypes.AudioContent:
			data, err := base64.StdEncoding.DecodeString(v.Data)
			if err != nil {
				return nil, fmt.Errorf("decode audio content: %w", err)
			}
			return tools.Audio{Data: data, MIMEType: v.MIMEType}, nil
		}
	}
	return tools.Text{Value: textOf(content)}, nil
}

func textOf(content []mcptypes.Content) string {
	var parts []string
	for _, c := range content {
		if t, ok := c.(mcptypes.TextContent); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}
