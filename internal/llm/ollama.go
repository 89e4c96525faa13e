package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/core"
	"pkdindustries/toolshack/internal/protocol"
	"pkdindustries/toolshack/internal/tools"
)

// Ollama generates through an Ollama server.
type Ollama struct {
	client *api.Client
	logger *zap.SugaredLogger
}

var _ Client = (*Ollama)(nil)

func NewOllama(baseURL string, logger *zap.SugaredLogger) (*Ollama, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return &Ollama{
		client: api.NewClient(u, http.DefaultClient),
		logger: logger,
	}, nil
}

// Ping checks that the server answers and returns the installed models.
func (o *Ollama) Ping(ctx context.Context) ([]string, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *Ollama) Generate(ctx context.Context, req Request) (Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	chatReq, err := o.buildRequest(req)
	if err != nil {
		return Response{}, &GenerationError{Model: req.Model, Err: err}
	}

	defer core.LogDuration(o.logger, "generate", time.Now())
	var out api.ChatResponse
	err = o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out.Message.Content += resp.Message.Content
		out.Message.Thinking += resp.Message.Thinking
		out.Message.ToolCalls = append(out.Message.ToolCalls, resp.Message.ToolCalls...)
		if resp.Done {
			out.DoneReason = resp.DoneReason
			out.Metrics = resp.Metrics
		}
		return nil
	})
	if err != nil {
		return Response{}, &GenerationError{Model: req.Model, Err: err}
	}
	o.logger.Debugw("generation_done",
		"model", req.Model,
		"done_reason", out.DoneReason,
		"prompt_tokens", out.Metrics.PromptEvalCount,
		"eval_tokens", out.Metrics.EvalCount,
		"tool_calls", len(out.Message.ToolCalls),
	)

	resp := Response{
		Text:     out.Message.Content,
		Thinking: out.Message.Thinking,
	}
	if len(req.Tools) > 0 {
		for _, tc := range out.Message.ToolCalls {
			resp.ToolCalls = append(resp.ToolCalls, tools.Call{
				Name:      tc.Function.Name,
				Arguments: map[string]any(tc.Function.Arguments),
			})
		}
	} else if len(out.Message.ToolCalls) > 0 {
		o.logger.Warnw("dropping tool calls from a request without tools", "count", len(out.Message.ToolCalls))
	}
	return resp, nil
}

func (o *Ollama) buildRequest(req Request) (*api.ChatRequest, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: o.convertMessages(req.Messages),
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if think := ParseThink(req.Think); think != nil {
		chatReq.Think = &api.ThinkValue{Value: think}
	}
	if req.KeepAlive > 0 {
		chatReq.KeepAlive = &api.Duration{Duration: req.KeepAlive}
	}
	if len(req.Tools) > 0 {
		converted, err := ConvertTools(req.Tools)
		if err != nil {
			return nil, err
		}
		chatReq.Tools = converted
	}
	return chatReq, nil
}

func (o *Ollama) convertMessages(msgs []chat.Message) []api.Message {
	out := make([]api.Message, 0, len(msgs))
	for _, m := range msgs {
		am := api.Message{Role: string(m.Role), Content: m.Content}
		for _, path := range m.Attachments {
			data, err := os.ReadFile(path)
			if err != nil {
				o.logger.Warnw("skipping unreadable attachment", "path", path, "error", err)
				continue
			}
			am.Images = append(am.Images, api.ImageData(data))
		}
		out = append(out, am)
	}
	return out
}

// ConvertTools maps function schemas onto Ollama's tool type. Both sides are
// JSON shaped, so the conversion goes through JSON.
func ConvertTools(schemas []protocol.FunctionSchema) (api.Tools, error) {
	b, err := json.Marshal(schemas)
	if err != nil {
		return nil, fmt.Errorf("marshal tool schemas: %w", err)
	}
	var out api.Tools
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("convert tool schemas: %w", err)
	}
	return out, nil
}
