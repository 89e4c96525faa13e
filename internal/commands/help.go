package commands

import (
	"slices"
	"strings"
)

// HelpCommand handles the /help command
type HelpCommand struct {
	registry *Registry
}

// NewHelpCommand creates a help command that can list registered commands
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{registry: registry}
}

func (c *HelpCommand) Name() string    { return "/help" }
func (c *HelpCommand) AdminOnly() bool { return false }

func (c *HelpCommand) Execute(req Request) {
	var names []string
	isAdmin := req.IsAdmin()

	for _, cmd := range c.registry.All() {
		if cmd.AdminOnly() && !isAdmin {
			continue
		}
		if name := cmd.Name(); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	req.Reply(text(c.registry.Language(), msgSupported) + strings.Join(names, ", "))
}
