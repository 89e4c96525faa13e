package commands

import "pkdindustries/toolshack/internal/chat"

// ForgetCommand drops the history of the current channel
type ForgetCommand struct {
	Sessions *chat.Registry
	Language string
}

func (c *ForgetCommand) Name() string    { return "/forget" }
func (c *ForgetCommand) AdminOnly() bool { return true }

func (c *ForgetCommand) Execute(req Request) {
	if c.Sessions.Forget(req.GetChannel()) {
		req.Reply(text(c.Language, msgForgotten))
		return
	}
	req.Reply(text(c.Language, msgNothingToForget))
}
