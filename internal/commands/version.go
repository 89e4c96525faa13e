package commands

// VersionCommand handles the /version command
type VersionCommand struct {
	BotName string
	Version string
}

func (c *VersionCommand) Name() string    { return "/version" }
func (c *VersionCommand) AdminOnly() bool { return false }

func (c *VersionCommand) Execute(req Request) {
	req.Reply(c.BotName + " " + c.Version)
}
