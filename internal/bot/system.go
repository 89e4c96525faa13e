package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/agent"
	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/commands"
	"pkdindustries/toolshack/internal/config"
	"pkdindustries/toolshack/internal/discord"
	"pkdindustries/toolshack/internal/gate"
	"pkdindustries/toolshack/internal/irc"
	"pkdindustries/toolshack/internal/llm"
	"pkdindustries/toolshack/internal/mcp"
	"pkdindustries/toolshack/internal/protocol"
	"pkdindustries/toolshack/internal/reasoning"
	"pkdindustries/toolshack/internal/router"
	"pkdindustries/toolshack/internal/tools"
)

const startupTimeout = 30 * time.Second

// Frontend is a chat surface feeding the command registry.
type Frontend interface {
	Run(ctx context.Context) error
}

// System holds every component built from the configuration.
type System struct {
	Config    *config.Configuration
	Sessions  *chat.Registry
	Model     *llm.Ollama
	Tools     tools.Connector
	Gate      *gate.Gate
	Router    *router.Router
	Media     *router.MediaStore
	Reasoner  *reasoning.Reasoner
	Strategy  protocol.Strategy
	Agent     *agent.Agent
	Commands  *commands.Registry
	Frontends []Frontend
}

func NewSystem(ctx context.Context, cfg *config.Configuration, logger *zap.SugaredLogger) (*System, error) {
	s := &System{Config: cfg}
	lang := cfg.Bot.Language

	model, err := llm.NewOllama(cfg.Model.OllamaURL, logger.Named("llm"))
	if err != nil {
		return nil, err
	}
	s.Model = model
	pingCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if models, err := model.Ping(pingCtx); err != nil {
		logger.Warnw("Ollama is not reachable yet", "url", cfg.Model.OllamaURL, "error", err)
	} else {
		for _, name := range []string{cfg.Model.Model, cfg.Reasoning.Model} {
			if !slices.Contains(models, name) {
				logger.Warnw("Model is not installed", "model", name)
			}
		}
	}

	// Without an accelerator the gate always admits and the history budget
	// shrinks to what a CPU can handle.
	probe, err := gate.NewProbe(cfg.Gate.Probe)
	if err != nil {
		return nil, err
	}
	maxTokens := cfg.Session.MaxTokens
	if _, unlimited := probe.(gate.Unlimited); unlimited || !gate.Detect(pingCtx, probe) {
		probe = gate.Unlimited{}
		maxTokens = cfg.Session.CPUMaxTokens
		logger.Infow("No accelerator found, using the CPU token budget", "maxtokens", maxTokens)
	}
	s.Gate = gate.New(probe, gate.Bytes(cfg.Gate.RequiredGB), cfg.Gate.Timeout, cfg.Gate.Interval, logger.Named("gate"))

	match := chat.ExactMatch
	if cfg.Session.Normalize {
		match = chat.NormalizedMatch
	}
	s.Sessions = chat.NewRegistry(chat.Options{
		MaxTokens:  maxTokens,
		MinOverlap: cfg.Session.MinOverlap,
		Match:      match,
	})

	s.Tools = tools.None{}
	if cfg.Tools.MCPURL != "" {
		headers, err := ParseHeaders(cfg.Tools.Headers)
		if err != nil {
			return nil, err
		}
		s.Tools = mcp.NewConnector(mcp.Options{
			URL:         cfg.Tools.MCPURL,
			Headers:     headers,
			Tags:        cfg.Tools.Tags,
			Name:        cfg.Bot.Name,
			Version:     Version,
			CallTimeout: cfg.Tools.CallTimeout,
		}, logger.Named("mcp"))
	}

	if s.Media, err = router.NewMediaStore(cfg.Media.Dir); err != nil {
		return nil, err
	}
	s.Router = router.New(s.Media, lang, logger.Named("router"))

	s.Reasoner = reasoning.New(model, s.Gate, reasoning.Options{
		Model:     cfg.Reasoning.Model,
		Think:     cfg.Reasoning.Think,
		Timeout:   cfg.Reasoning.Timeout,
		KeepAlive: cfg.Model.KeepAlive,
		Language:  lang,
	}, logger.Named("reasoning"))

	if s.Strategy, err = protocol.New(protocol.Mode(cfg.Tools.Mode), lang); err != nil {
		return nil, err
	}

	s.Agent = agent.New(agent.Deps{
		Sessions:  s.Sessions,
		Model:     model,
		Tools:     s.Tools,
		Gate:      s.Gate,
		Router:    s.Router,
		Explainer: s.Reasoner,
		Strategy:  s.Strategy,
	}, agent.Options{
		Model:         cfg.Model.Model,
		Temperature:   llm.Temperature(cfg.Model.Temperature),
		Think:         cfg.Model.Think,
		KeepAlive:     cfg.Model.KeepAlive,
		Timeout:       cfg.Model.Timeout,
		Language:      lang,
		MaxToolCalls:  cfg.Tools.MaxToolCalls,
		DenyRecursive: cfg.Tools.DenyRecursive,
	}, logger.Named("agent"))

	s.Commands = commands.NewRegistry().WithLanguage(cfg.Bot.Language)
	s.Commands.Register(commands.NewHelpCommand(s.Commands))
	s.Commands.Register(&commands.VersionCommand{BotName: cfg.Bot.Name, Version: "v" + Version})
	s.Commands.Register(&commands.ToolsCommand{Connector: s.Tools, ChunkMax: cfg.IRC.ChunkMax, Language: cfg.Bot.Language})
	s.Commands.Register(&commands.StatsCommand{Sessions: s.Sessions})
	s.Commands.Register(&commands.ForgetCommand{Sessions: s.Sessions, Language: cfg.Bot.Language})
	s.Commands.Register(&commands.ChatCommand{Agent: s.Agent})

	if cfg.Discord.Token != "" {
		fe, err := discord.New(cfg, s.Commands, s.Media, logger.Named("discord"))
		if err != nil {
			return nil, err
		}
		s.Frontends = append(s.Frontends, fe)
	}
	if cfg.IRC.Server != "" {
		s.Frontends = append(s.Frontends, irc.New(cfg, s.Commands, logger.Named("irc")))
	}

	logger.Infow("System ready",
		"toolmode", s.Strategy.Mode(),
		"mcp", cfg.Tools.MCPURL != "",
		"maxtokens", maxTokens,
		"frontends", len(s.Frontends),
	)
	return s, nil
}

// ParseHeaders turns Key=Value entries into a header map.
func ParseHeaders(entries []string) (map[string]string, error) {
	headers := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid header %q: want Key=Value", entry)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}
