package commands

import (
	"context"
	"strings"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/events"
)

// Request is one inbound message as seen by commands.
type Request interface {
	context.Context

	GetCommand() string
	GetArgs() []string
	GetSource() string
	// GetChannel is the session key of the conversation.
	GetChannel() string
	IsAdmin() bool
	Reply(msg string)

	// Instructions, Window and Sink describe the agent turn.
	Instructions() string
	Window(ctx context.Context) ([]chat.Message, error)
	Sink() events.Sink
}

// Command defines the interface for bot commands
type Command interface {
	Name() string
	Execute(req Request)
	AdminOnly() bool
}

// Registry manages command registration and dispatch
type Registry struct {
	commands       map[string]Command
	defaultCommand Command
	language       string
}

// NewRegistry creates a new command registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// WithLanguage sets the language of the registry's own replies
func (r *Registry) WithLanguage(language string) *Registry {
	r.language = language
	return r
}

// Language is the language replies are written in
func (r *Registry) Language() string { return r.language }

// Register adds a command to the registry
// Commands with empty name are registered as the default fallback
func (r *Registry) Register(cmd Command) {
	name := cmd.Name()
	if name == "" {
		r.defaultCommand = cmd
		return
	}
	r.commands[strings.ToLower(name)] = cmd
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// Dispatch executes the appropriate command based on the request.
// Command names match case-insensitively.
// Returns true if a command was executed, false otherwise
func (r *Registry) Dispatch(req Request) bool {
	cmd, ok := r.Get(req.GetCommand())
	if !ok {
		// Use default command if no match
		if r.defaultCommand != nil {
			r.defaultCommand.Execute(req)
			return true
		}
		return false
	}

	// Check admin permission
	if cmd.AdminOnly() && !req.IsAdmin() {
		req.Reply(text(r.language, msgDenied))
		return true
	}

	cmd.Execute(req)
	return true
}

// All returns all registered commands (excluding default)
func (r *Registry) All() []Command {
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	return cmds
}
