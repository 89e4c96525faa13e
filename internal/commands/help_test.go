package commands

import (
	"testing"

	"pkdindustries/toolshack/internal/chat"
	mocktest "pkdindustries/toolshack/internal/testing"
)

func helpRegistry(language string) *Registry {
	sessions := chat.NewRegistry(chat.Options{})
	registry := NewRegistry().WithLanguage(language)
	registry.Register(&VersionCommand{BotName: "toolshack", Version: "v0"})
	registry.Register(&StatsCommand{Sessions: sessions})
	registry.Register(&ForgetCommand{Sessions: sessions})
	registry.Register(&ChatCommand{Agent: &recordingHandler{}})
	registry.Register(NewHelpCommand(registry))
	return registry
}

func TestHelpCommand_AdminSeesForget(t *testing.T) {
	req := mocktest.NewMockRequest().WithAdmin(true).WithArgs("/help")
	helpRegistry("en").Dispatch(req)

	want := "Supported commands: /forget, /help, /stats, /version"
	if req.LastReply() != want {
		t.Errorf("got %q, want %q", req.LastReply(), want)
	}
}

func TestHelpCommand_OthersDoNotSeeForget(t *testing.T) {
	req := mocktest.NewMockRequest().WithAdmin(false).WithArgs("/help")
	helpRegistry("en").Dispatch(req)

	want := "Supported commands: /help, /stats, /version"
	if req.LastReply() != want {
		t.Errorf("got %q, want %q", req.LastReply(), want)
	}
}

func TestHelpCommand_German(t *testing.T) {
	req := mocktest.NewMockRequest().WithArgs("/help")
	helpRegistry("de").Dispatch(req)

	want := "Verfügbare Befehle: /help, /stats, /version"
	if req.LastReply() != want {
		t.Errorf("got %q, want %q", req.LastReply(), want)
	}
}
