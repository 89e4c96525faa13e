package commands

import (
	"context"

	"pkdindustries/toolshack/internal/agent"
)

// Handler runs an agent turn.
type Handler interface {
	Handle(ctx context.Context, turn agent.Turn) agent.Outcome
}

// ChatCommand is the default command: everything that is not a known
// command becomes an agent turn
type ChatCommand struct {
	Agent Handler
}

func (c *ChatCommand) Name() string    { return "" }
func (c *ChatCommand) AdminOnly() bool { return false }

func (c *ChatCommand) Execute(req Request) {
	c.Agent.Handle(req, agent.Turn{
		Channel:      req.GetChannel(),
		Instructions: req.Instructions(),
		Source:       agent.SourceFunc(req.Window),
		Sink:         req.Sink(),
	})
}
