// Package agent runs one turn of the tool augmented conversation: merge the
// channel window into the session, generate, execute requested tools and
// generate again until the model is done or the iteration cap is hit.
package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/core"
	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/gate"
	"pkdindustries/toolshack/internal/llm"
	"pkdindustries/toolshack/internal/protocol"
	"pkdindustries/toolshack/internal/router"
	"pkdindustries/toolshack/internal/tools"
)

// Gate admits a generation once capacity is free.
type Gate interface {
	Await(ctx context.Context) error
}

// Explainer turns a loop failure into recovery context for the model.
type Explainer interface {
	Explain(ctx context.Context, err error, sess *chat.Session) string
}

// Source supplies the freshly fetched message window of a channel.
type Source interface {
	Window(ctx context.Context) ([]chat.Message, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]chat.Message, error)

func (f SourceFunc) Window(ctx context.Context) ([]chat.Message, error) { return f(ctx) }

// Turn is one inbound request.
type Turn struct {
	Channel      string
	Instructions string
	Source       Source
	Sink         events.Sink
}

// Outcome summarizes a finished turn.
type Outcome struct {
	Generations int
	ToolCalls   int
	Err         error
}

type Options struct {
	Model        string
	Temperature  *float64
	Think        string
	KeepAlive    time.Duration
	Timeout      time.Duration
	Language     string
	MaxToolCalls int
	// DenyRecursive withholds tools after the first iteration in native mode
	// unless the previous iteration failed.
	DenyRecursive bool
}

// Deps are the collaborators of an Agent.
type Deps struct {
	Sessions  *chat.Registry
	Model     llm.Client
	Tools     tools.Connector
	Gate      Gate
	Router    *router.Router
	Explainer Explainer
	Strategy  protocol.Strategy
}

type Agent struct {
	Deps
	opts   Options
	logger *zap.SugaredLogger
}

func New(deps Deps, opts Options, logger *zap.SugaredLogger) *Agent {
	if opts.MaxToolCalls < 1 {
		opts.MaxToolCalls = 1
	}
	if deps.Tools == nil {
		deps.Tools = tools.None{}
	}
	return &Agent{Deps: deps, opts: opts, logger: logger}
}

// Handle runs a turn to completion. It never panics and never returns an
// error to the caller: a failure that escapes the loop is reported once as an
// events.Error and recorded in the Outcome.
func (a *Agent) Handle(ctx context.Context, turn Turn) (out Outcome) {
	logger := core.WithTurn(a.logger, core.NewRequestID(), turn.Channel, "agent")
	defer core.LogDuration(logger, "turn", time.Now())

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("panic in turn", "panic", r, "stack", string(debug.Stack()))
			out.Err = fmt.Errorf("panic: %v", r)
			a.fail(ctx, turn.Sink, logger, out.Err)
		}
	}()

	t := &run{Agent: a, turn: turn, logger: logger}
	err := t.execute(ctx)
	out = Outcome{Generations: t.generations, ToolCalls: t.toolCalls, Err: err}
	if err != nil {
		a.fail(ctx, turn.Sink, logger, err)
		return out
	}
	logger.Infow("turn_done", "generations", out.Generations, "tool_calls", out.ToolCalls)
	return out
}

func (a *Agent) fail(ctx context.Context, sink events.Sink, logger *zap.SugaredLogger, err error) {
	logger.Errorw("turn failed", "error", err)
	msg := text(a.opts.Language, msgFailed) + err.Error()
	if errors.Is(err, gate.ErrResourceTimeout) {
		msg = text(a.opts.Language, msgBusy)
	}
	if sink == nil {
		return
	}
	if emitErr := sink.Emit(context.WithoutCancel(ctx), events.Error{Text: msg}); emitErr != nil {
		logger.Warnw("failed to report turn error", "error", emitErr)
	}
}

// run is the state of a single turn.
type run struct {
	*Agent
	turn   Turn
	logger *zap.SugaredLogger

	sess   *chat.Session
	client tools.Client
	defs   []tools.Definition
	window []chat.Message

	generations int
	toolCalls   int
}

func (t *run) execute(ctx context.Context) error {
	if t.turn.Sink == nil {
		t.turn.Sink = events.Discard
	}
	var err error
	if t.turn.Source != nil {
		t.window, err = t.turn.Source.Window(ctx)
		if err != nil {
			return fmt.Errorf("fetch window: %w", err)
		}
	}

	t.client, err = t.Tools.Connect(ctx, t.turn.Sink)
	if err != nil {
		return fmt.Errorf("connect tools: %w", err)
	}
	defer func() {
		if err := t.client.Close(); err != nil {
			t.logger.Debugw("closing tool client", "error", err)
		}
	}()

	t.defs, err = t.client.List(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	t.sess = t.Sessions.Get(t.turn.Channel)
	merge := t.sess.Merge(t.window, t.instructions())
	t.logger.Debugw("history_merged",
		"window", len(t.window),
		"overlap", merge.Overlap,
		"appended", merge.Appended,
		"reset", merge.Reset,
		"truncated", merge.Truncated,
		"tools", len(t.defs),
	)

	return t.loop(ctx)
}

func (t *run) instructions() string {
	parts := []string{strings.TrimSpace(t.turn.Instructions)}
	if len(t.defs) > 0 {
		parts = append(parts, t.Strategy.Preamble(t.defs))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// loop is the bounded state machine GENERATE → DECODE → EXECUTE → DECIDE.
func (t *run) loop(ctx context.Context) error {
	hadErrors := false
	for iteration := 1; iteration <= t.opts.MaxToolCalls; iteration++ {
		deny := t.opts.DenyRecursive && t.Strategy.Mode() == protocol.Native && !hadErrors && iteration > 1
		hadErrors = false
		logger := t.logger.With("iteration", iteration)

		resp, err := t.generate(ctx, deny)
		if err != nil {
			var genErr *llm.GenerationError
			if !errors.As(err, &genErr) || ctx.Err() != nil {
				return err
			}
			logger.Warnw("generation failed", "error", err)
			if err := t.recoverFrom(ctx, err); err != nil {
				return err
			}
			hadErrors = true
			continue
		}

		if err := t.say(ctx, resp.Text); err != nil {
			return err
		}
		if deny {
			logger.Debugw("recursive tool calls denied, turn done")
			return nil
		}

		calls, err := t.Strategy.Decode(resp.Text, resp.ToolCalls)
		if err != nil {
			logger.Warnw("tool call decode failed", "error", err)
			if err := t.recoverFrom(ctx, err); err != nil {
				return err
			}
			hadErrors = true
			continue
		}
		if len(calls) == 0 {
			return nil
		}

		next, failed, err := t.execTools(ctx, calls)
		if err != nil {
			return err
		}
		hadErrors = failed
		if !next {
			return nil
		}
	}
	t.logger.Infow("tool call limit reached", "max", t.opts.MaxToolCalls)
	return nil
}

// generate holds the session lock, waits for the gate and asks the model.
func (t *run) generate(ctx context.Context, deny bool) (llm.Response, error) {
	var schemas []protocol.FunctionSchema
	if !deny {
		schemas = t.Strategy.Tools(t.defs)
	}

	var resp llm.Response
	err := core.WithLock(ctx, t.sess.Lock(), t.logger, "generate", func() error {
		if err := t.Gate.Await(ctx); err != nil {
			return err
		}
		t.generations++
		var err error
		resp, err = t.Model.Generate(ctx, llm.Request{
			Messages:    t.sess.History(),
			Model:       t.opts.Model,
			Temperature: t.opts.Temperature,
			Think:       t.opts.Think,
			KeepAlive:   t.opts.KeepAlive,
			Timeout:     t.opts.Timeout,
			Tools:       schemas,
		})
		return err
	})
	return resp, err
}

// say records the response and shows its visible part.
func (t *run) say(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	t.sess.Append(chat.Assistant(text))

	visible := llm.FilterResponse(t.Strategy.Display(text), t.opts.Model)
	if visible == "" {
		return nil
	}
	return t.emit(ctx, events.Reply{Text: visible})
}

// execTools runs calls in order. next reports whether any result asked for
// another generation, failed whether any call failed.
func (t *run) execTools(ctx context.Context, calls []tools.Call) (next, failed bool, err error) {
	for _, call := range calls {
		if t.Strategy.Mode() == protocol.Native {
			t.sess.Append(router.CallRecord(call))
		}

		if err := t.emit(ctx, events.Status{Key: call.Name, Text: t.callStatus(call)}); err != nil {
			return false, false, err
		}
		result, callErr := t.client.Call(ctx, call)
		t.toolCalls++
		if err := t.emit(ctx, events.RemoveStatus{Key: call.Name}); err != nil {
			return false, false, err
		}

		var routing router.Routing
		if callErr == nil {
			routing, callErr = t.Router.Route(call.Name, result)
		}
		if callErr != nil {
			if ctx.Err() != nil {
				return false, false, ctx.Err()
			}
			core.WithTool(t.logger, call.Name, call.Arguments).Warnw("tool call failed", "error", callErr)
			explanation, err := t.explain(ctx, callErr)
			if err != nil {
				return false, false, err
			}
			t.sess.Append(router.ResultRecord(call.Name, explanation))
			next, failed = true, true
			continue
		}

		if routing.Entry != nil {
			t.sess.Append(*routing.Entry)
		}
		if routing.Event != nil {
			if err := t.emit(ctx, routing.Event); err != nil {
				return false, false, err
			}
		}
		if routing.Continue {
			next = true
		}
	}
	return next, failed, nil
}

// recoverFrom explains cause and keeps the explanation as context for the
// next generation.
func (t *run) recoverFrom(ctx context.Context, cause error) error {
	explanation, err := t.explain(ctx, cause)
	if err != nil {
		return err
	}
	t.sess.Append(router.ErrorRecord(explanation))
	return nil
}

func (t *run) explain(ctx context.Context, cause error) (string, error) {
	if err := t.emit(ctx, events.Status{Key: statusReasoning, Text: text(t.opts.Language, msgAnalyzing)}); err != nil {
		return "", err
	}
	explanation := cause.Error()
	if t.Explainer != nil {
		explanation = t.Explainer.Explain(ctx, cause, t.sess)
	}
	if err := t.emit(ctx, events.RemoveStatus{Key: statusReasoning}); err != nil {
		return "", err
	}
	return explanation, nil
}

func (t *run) callStatus(call tools.Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, text(t.opts.Language, msgCalling), tools.DisplayName(call.Name))
	for _, k := range sortedKeys(call.Arguments) {
		fmt.Fprintf(&b, "\n - **%s:** %v", k, call.Arguments[k])
	}
	return b.String()
}

func (t *run) emit(ctx context.Context, e events.Event) error {
	if err := t.turn.Sink.Emit(ctx, e); err != nil {
		return fmt.Errorf("emit %T: %w", e, err)
	}
	return nil
}
