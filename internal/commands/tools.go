package commands

import (
	"fmt"
	"strings"

	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/tools"
)

// ToolsCommand handles the /tools command by listing the tools the model
// would be offered right now
type ToolsCommand struct {
	Connector tools.Connector
	ChunkMax  int
	Language  string
}

func (c *ToolsCommand) Name() string    { return "/tools" }
func (c *ToolsCommand) AdminOnly() bool { return false }

func (c *ToolsCommand) Execute(req Request) {
	client, err := c.Connector.Connect(req, events.Discard)
	if err != nil {
		req.Reply(fmt.Sprintf(text(c.Language, msgFailed), err))
		return
	}
	defer client.Close()

	defs, err := client.List(req)
	if err != nil {
		req.Reply(fmt.Sprintf(text(c.Language, msgFailed), err))
		return
	}
	if len(defs) == 0 {
		req.Reply(text(c.Language, msgNoTools))
		return
	}

	var toolNames []string
	for _, def := range defs {
		toolNames = append(toolNames, tools.DisplayName(def.Name))
	}

	reply := text(c.Language, msgTools) + strings.Join(toolNames, ", ")
	maxLen := c.ChunkMax
	if maxLen <= 0 {
		maxLen = 350
	}
	if len(reply) > maxLen {
		reply = reply[:maxLen-3] + "..."
	}
	req.Reply(reply)
}
