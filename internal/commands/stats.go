package commands

import (
	"fmt"

	"pkdindustries/toolshack/internal/chat"
)

// StatsCommand handles the /stats command for showing session statistics
type StatsCommand struct {
	Sessions *chat.Registry
}

func (c *StatsCommand) Name() string    { return "/stats" }
func (c *StatsCommand) AdminOnly() bool { return false }

func (c *StatsCommand) Execute(req Request) {
	session := c.Sessions.Get(req.GetChannel())
	history := session.History()
	tokens := session.Tokens()

	var carriers, attachments int
	for _, msg := range history {
		if msg.IsCarrier() {
			carriers++
		}
		attachments += len(msg.Attachments)
	}

	// Format capacity string
	capacityStr := "unlimited"
	if budget := session.MaxTokens(); budget > 0 {
		capacityStr = fmt.Sprintf("%.1f%% of %d", float64(tokens)*100/float64(budget), budget)
	}

	req.Reply(fmt.Sprintf(
		"messages: %d, "+
			"tool records: %d, "+
			"attachments: %d, "+
			"estimated tokens: %d, "+
			"context capacity: %s",
		len(history),
		carriers,
		attachments,
		tokens,
		capacityStr,
	))
}
