package reasoning

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/gate"
	mocktest "pkdindustries/toolshack/internal/testing"
)

func session() *chat.Session {
	s := chat.NewSession("#test", chat.Options{})
	s.Merge([]chat.Message{
		chat.User("first question"),
		chat.Assistant("first answer"),
		chat.User("draw a cat"),
	}, "be helpful")
	s.Append(chat.Assistant("calling the image tool"), chat.NewCarrier(`{"tool_result":{"name":"draw","content":"ok"}}`))
	return s
}

func TestPrompt_CollectsLastExchange(t *testing.T) {
	r := New(mocktest.NewMockModel(), &mocktest.MockGate{}, Options{Language: "en"}, zap.NewNop().Sugar())

	prompt := r.Prompt(errors.New("tool draw failed"), session())

	for _, want := range []string{
		`"be helpful"`,
		`"draw a cat"`,
		"calling the image tool\n---\n#{\"tool_result\"",
		`"tool draw failed"`,
		"***YOUR TASK***",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "first answer") {
		t.Error("prompt must only contain messages after the last user message")
	}
}

func TestPrompt_German(t *testing.T) {
	r := New(mocktest.NewMockModel(), &mocktest.MockGate{}, Options{Language: "de"}, zap.NewNop().Sugar())

	prompt := r.Prompt(errors.New("kaputt"), session())
	if !strings.Contains(prompt, "***DEINE AUFGABE***") {
		t.Errorf("expected german template, got:\n%s", prompt)
	}
}

func TestExplain_UsesIsolatedRequest(t *testing.T) {
	model := mocktest.NewMockModel().WithText("  The tool needs a prompt argument.  ")
	r := New(model, &mocktest.MockGate{}, Options{Model: "gpt-oss:20b", Think: "low", Timeout: time.Minute}, zap.NewNop().Sugar())
	sess := session()
	before := len(sess.History())

	got := r.Explain(context.Background(), errors.New("missing prompt"), sess)
	if got != "The tool needs a prompt argument." {
		t.Errorf("unexpected explanation %q", got)
	}

	req := model.LastRequest()
	if req.Model != "gpt-oss:20b" || req.Think != "low" || req.Timeout != time.Minute {
		t.Errorf("unexpected request options: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != chat.RoleSystem {
		t.Errorf("expected a single system message, got %+v", req.Messages)
	}
	if len(req.Tools) != 0 {
		t.Error("reasoning must not offer tools")
	}
	if len(sess.History()) != before {
		t.Error("reasoning must not touch the session history")
	}
}

func TestExplain_FallsBackToRawError(t *testing.T) {
	model := mocktest.NewMockModel().WithError(errors.New("reasoner offline"))
	r := New(model, &mocktest.MockGate{}, Options{}, zap.NewNop().Sugar())

	got := r.Explain(context.Background(), errors.New("original failure"), session())
	if got != "original failure" {
		t.Errorf("expected raw error, got %q", got)
	}
}

func TestExplain_GateTimeoutFallsBack(t *testing.T) {
	model := mocktest.NewMockModel().WithText("never")
	g := &mocktest.MockGate{Err: &gate.TimeoutError{}}
	r := New(model, g, Options{}, zap.NewNop().Sugar())

	got := r.Explain(context.Background(), errors.New("original failure"), session())
	if got != "original failure" {
		t.Errorf("expected raw error, got %q", got)
	}
	if model.Calls() != 0 {
		t.Error("model must not be called without capacity")
	}
}

func TestExplain_WaitsForSessionLock(t *testing.T) {
	model := mocktest.NewMockModel().WithText("explained")
	r := New(model, &mocktest.MockGate{}, Options{}, zap.NewNop().Sugar())
	sess := session()

	sess.Lock().LockWithContext(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got := r.Explain(ctx, errors.New("busy"), sess)
	sess.Lock().Unlock()
	if got != "busy" {
		t.Errorf("expected raw error while the lock is held, got %q", got)
	}
	if model.Calls() != 0 {
		t.Error("model must not be called without the session lock")
	}
}
