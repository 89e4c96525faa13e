package testing

import (
	"time"

	"pkdindustries/toolshack/internal/config"
)

// DefaultTestConfig returns a minimal configuration for testing
func DefaultTestConfig() *config.Configuration {
	return &config.Configuration{
		Bot: &config.BotConfig{
			Name:         "testbot",
			Instructions: "You are a test bot.",
			Language:     "en",
			Admins:       []string{},
			Addressed:    true,
		},
		Model: &config.ModelConfig{
			OllamaURL:   "http://localhost:11434",
			Model:       "test-model",
			Temperature: 0.7,
			KeepAlive:   time.Minute,
			Timeout:     time.Second * 30,
		},
		Reasoning: &config.ReasoningConfig{
			Model:   "test-reasoner",
			Think:   "low",
			Timeout: time.Second * 30,
		},
		Tools: &config.ToolsConfig{
			Mode:         "embedded",
			MaxToolCalls: 7,
		},
		Session: &config.SessionConfig{
			MaxTokens:    64000,
			CPUMaxTokens: 3700,
			MinOverlap:   1,
			Window:       3,
			SearchCount:  20,
		},
		Gate: &config.GateConfig{
			Probe:      "none",
			RequiredGB: 1,
			Timeout:    time.Second,
			Interval:   time.Millisecond * 10,
		},
		Media: &config.MediaConfig{
			Dir: "downloads",
		},
		Discord: &config.DiscordConfig{
			Timezone:         "UTC",
			ErrorDelay:       time.Second * 10,
			ProgressInterval: time.Second,
		},
		IRC: &config.IRCConfig{
			Server:   "irc.test.local",
			Port:     6667,
			Nick:     "testbot",
			Channels: []string{"#test"},
			ChunkMax: 350,
			Backlog:  50,
		},
	}
}
