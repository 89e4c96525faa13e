package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	Bot       *BotConfig
	Model     *ModelConfig
	Reasoning *ReasoningConfig
	Tools     *ToolsConfig
	Session   *SessionConfig
	Gate      *GateConfig
	Media     *MediaConfig
	Discord   *DiscordConfig
	IRC       *IRCConfig
}

type BotConfig struct {
	Name         string
	Instructions string
	Language     string
	Admins       []string
	Verbose      bool
	Addressed    bool
}

type ModelConfig struct {
	OllamaURL   string
	Model       string
	Temperature float64
	Think       string
	KeepAlive   time.Duration
	Timeout     time.Duration
}

type ReasoningConfig struct {
	Model   string
	Think   string
	Timeout time.Duration
}

type ToolsConfig struct {
	MCPURL        string
	Headers       []string
	Tags          []string
	Mode          string
	MaxToolCalls  int
	DenyRecursive bool
	CallTimeout   time.Duration
}

type SessionConfig struct {
	MaxTokens    int
	CPUMaxTokens int
	MinOverlap   int
	Normalize    bool
	Window       int
	SearchCount  int
}

type GateConfig struct {
	Probe      string
	RequiredGB float64
	Timeout    time.Duration
	Interval   time.Duration
}

type MediaConfig struct {
	Dir string
}

type DiscordConfig struct {
	Token            string
	Timezone         string
	ErrorDelay       time.Duration
	ProgressInterval time.Duration
}

type IRCConfig struct {
	Server      string
	Port        int
	Nick        string
	Channels    []string
	SSL         bool
	TLSInsecure bool
	SASLNick    string
	SASLPass    string
	ChunkMax    int
	Backlog     int
}

// YamlSource implements cli.ValueSource for a map loaded from YAML
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	if v, ok := y.data[y.key]; ok {
		// Handle slices by joining with comma
		if slice, ok := v.([]any); ok {
			var strs []string
			for _, item := range slice {
				strs = append(strs, fmt.Sprintf("%v", item))
			}
			return strings.Join(strs, ","), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}

func (y *YamlSource) String() string   { return "yaml" }
func (y *YamlSource) GoString() string { return "yaml" }

func GetFlags() []cli.Flag {
	configPath := getConfigPath()
	var configData map[string]any
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err == nil {
			_ = yaml.Unmarshal(data, &configData)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", configPath, err)
		}
	}

	// EnvVar > YAML > Default
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if configData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: configData, key: key})
		}
		return chain
	}

	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"b"}, Usage: "use the named configuration file", Sources: cli.EnvVars("TOOLSHACK_CONFIG")},

		// Bot
		&cli.StringFlag{Name: "name", Value: "toolshack", Usage: "name the assistant introduces itself with", Sources: src("name", "TOOLSHACK_NAME")},
		&cli.StringFlag{Name: "instructions", Usage: "extra instructions appended to the system message", Sources: src("instructions", "TOOLSHACK_INSTRUCTIONS")},
		&cli.StringFlag{Name: "language", Value: "en", Usage: "language of built-in prompts and status texts (en, de)", Sources: src("language", "TOOLSHACK_LANGUAGE")},
		&cli.StringSliceFlag{Name: "admins", Aliases: []string{"A"}, Usage: "comma-separated list of user ids or hostmasks allowed to administrate the bot", Sources: src("admins", "TOOLSHACK_ADMINS")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable verbose logging of sessions and configuration", Sources: src("verbose", "TOOLSHACK_VERBOSE")},
		&cli.BoolFlag{Name: "addressed", Aliases: []string{"a"}, Value: true, Usage: "require bot be addressed by nick for response on irc", Sources: src("addressed", "TOOLSHACK_ADDRESSED")},

		// Model
		&cli.StringFlag{Name: "ollamaurl", Value: "http://localhost:11434", Usage: "Ollama API URL", Sources: src("ollamaurl", "TOOLSHACK_OLLAMAURL", "OLLAMA_URL")},
		&cli.StringFlag{Name: "model", Value: "gemma3:12b", Usage: "model used for replies", Sources: src("model", "TOOLSHACK_MODEL")},
		&cli.FloatFlag{Name: "temperature", Value: 0.7, Usage: "temperature for replies", Sources: src("temperature", "TOOLSHACK_TEMPERATURE")},
		&cli.StringFlag{Name: "think", Usage: "reasoning effort for replies (true, false, low, medium, high)", Sources: src("think", "TOOLSHACK_THINK")},
		&cli.DurationFlag{Name: "keepalive", Value: 10 * time.Minute, Usage: "how long the model stays loaded after a request", Sources: src("keepalive", "TOOLSHACK_KEEPALIVE")},
		&cli.DurationFlag{Name: "modeltimeout", Aliases: []string{"t"}, Value: 5 * time.Minute, Usage: "timeout for each generation request", Sources: src("modeltimeout", "TOOLSHACK_MODELTIMEOUT")},

		// Error reasoning
		&cli.StringFlag{Name: "reasoningmodel", Value: "gpt-oss:20b", Usage: "model used to explain errors", Sources: src("reasoningmodel", "TOOLSHACK_REASONINGMODEL")},
		&cli.StringFlag{Name: "reasoningthink", Value: "low", Usage: "reasoning effort for error explanations", Sources: src("reasoningthink", "TOOLSHACK_REASONINGTHINK")},
		&cli.DurationFlag{Name: "reasoningtimeout", Value: 6 * time.Minute, Usage: "timeout for error explanation requests", Sources: src("reasoningtimeout", "TOOLSHACK_REASONINGTIMEOUT")},

		// Tools
		&cli.StringFlag{Name: "mcpurl", Usage: "streamable HTTP URL of the MCP tool server", Sources: src("mcpurl", "TOOLSHACK_MCPURL", "MCP_SERVER_URL")},
		&cli.StringSliceFlag{Name: "mcpheader", Usage: "extra HTTP headers for the tool server (Key=Value)", Sources: src("mcpheader", "TOOLSHACK_MCPHEADER")},
		&cli.StringSliceFlag{Name: "tooltags", Usage: "only offer tools carrying one of these tags", Sources: src("tooltags", "TOOLSHACK_TOOLTAGS", "MCP_TOOL_TAGS")},
		&cli.StringFlag{Name: "toolmode", Value: "embedded", Usage: "tool calling mode (native, embedded)", Sources: src("toolmode", "TOOLSHACK_TOOLMODE")},
		&cli.IntFlag{Name: "maxtoolcalls", Value: 7, Usage: "maximum generations per turn", Sources: src("maxtoolcalls", "TOOLSHACK_MAXTOOLCALLS", "MAX_TOOL_CALLS")},
		&cli.BoolFlag{Name: "denyrecursive", Usage: "deny further tool calls after a successful tool round in native mode", Sources: src("denyrecursive", "TOOLSHACK_DENYRECURSIVE", "DENY_RECURSIVE_TOOL_CALLING")},
		&cli.DurationFlag{Name: "calltimeout", Usage: "timeout for a single tool call (0 waits indefinitely)", Sources: src("calltimeout", "TOOLSHACK_CALLTIMEOUT")},

		// Session
		&cli.IntFlag{Name: "maxtokens", Value: 64000, Usage: "token budget of a channel history", Sources: src("maxtokens", "TOOLSHACK_MAXTOKENS", "MAX_TOKENS")},
		&cli.IntFlag{Name: "cpumaxtokens", Value: 3700, Usage: "token budget used when no GPU is found", Sources: src("cpumaxtokens", "TOOLSHACK_CPUMAXTOKENS")},
		&cli.IntFlag{Name: "minoverlap", Value: 1, Usage: "minimum number of messages that must overlap to keep history", Sources: src("minoverlap", "TOOLSHACK_MINOVERLAP")},
		&cli.BoolFlag{Name: "normalize", Usage: "compare messages with normalized whitespace when merging", Sources: src("normalize", "TOOLSHACK_NORMALIZE")},
		&cli.IntFlag{Name: "window", Value: 3, Usage: "number of recent relevant messages fetched per turn", Sources: src("window", "TOOLSHACK_WINDOW", "MAX_MESSAGE_COUNT")},
		&cli.IntFlag{Name: "searchcount", Value: 20, Usage: "number of channel messages searched for the window", Sources: src("searchcount", "TOOLSHACK_SEARCHCOUNT", "TOTAL_MESSAGE_SEARCH_COUNT")},

		// Resource gate
		&cli.StringFlag{Name: "probe", Value: "nvidia-smi", Usage: "capacity probe (nvidia-smi, none)", Sources: src("probe", "TOOLSHACK_PROBE")},
		&cli.FloatFlag{Name: "requiredgb", Value: 11, Usage: "free accelerator memory in GB required before generating", Sources: src("requiredgb", "TOOLSHACK_REQUIREDGB")},
		&cli.DurationFlag{Name: "gatetimeout", Value: 20 * time.Second, Usage: "how long to wait for capacity", Sources: src("gatetimeout", "TOOLSHACK_GATETIMEOUT")},
		&cli.DurationFlag{Name: "gateinterval", Value: time.Second, Usage: "capacity poll interval", Sources: src("gateinterval", "TOOLSHACK_GATEINTERVAL")},

		// Media
		&cli.StringFlag{Name: "mediadir", Value: "downloads", Usage: "directory for saved media", Sources: src("mediadir", "TOOLSHACK_MEDIADIR")},

		// Discord
		&cli.StringFlag{Name: "discordtoken", Usage: "Discord bot token (enables the Discord frontend)", Sources: src("discordtoken", "TOOLSHACK_DISCORDTOKEN", "DISCORD_TOKEN")},
		&cli.StringFlag{Name: "timezone", Value: "Europe/Berlin", Usage: "timezone for message timestamps", Sources: src("timezone", "TOOLSHACK_TIMEZONE")},
		&cli.DurationFlag{Name: "errordelay", Value: 10 * time.Second, Usage: "how long error notices stay visible", Sources: src("errordelay", "TOOLSHACK_ERRORDELAY")},
		&cli.DurationFlag{Name: "progressinterval", Value: time.Second, Usage: "minimum interval between progress edits", Sources: src("progressinterval", "TOOLSHACK_PROGRESSINTERVAL")},

		// IRC
		&cli.StringFlag{Name: "server", Aliases: []string{"s"}, Usage: "irc server address (enables the IRC frontend)", Sources: src("server", "TOOLSHACK_SERVER")},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 6667, Usage: "irc server port", Sources: src("port", "TOOLSHACK_PORT")},
		&cli.StringFlag{Name: "nick", Aliases: []string{"n"}, Value: "toolshack", Usage: "bot's nickname on the irc server", Sources: src("nick", "TOOLSHACK_NICK")},
		&cli.StringSliceFlag{Name: "channel", Aliases: []string{"c"}, Usage: "irc channels to join", Sources: src("channel", "TOOLSHACK_CHANNEL")},
		&cli.BoolFlag{Name: "tls", Aliases: []string{"e"}, Usage: "enable TLS for the IRC connection", Sources: src("tls", "TOOLSHACK_TLS")},
		&cli.BoolFlag{Name: "tlsinsecure", Usage: "skip TLS certificate verification", Sources: src("tlsinsecure", "TOOLSHACK_TLSINSECURE")},
		&cli.StringFlag{Name: "saslnick", Usage: "nick used for SASL", Sources: src("saslnick", "TOOLSHACK_SASLNICK")},
		&cli.StringFlag{Name: "saslpass", Usage: "password for SASL plain", Sources: src("saslpass", "TOOLSHACK_SASLPASS")},
		&cli.IntFlag{Name: "chunkmax", Aliases: []string{"m"}, Value: 350, Usage: "maximum number of characters to send as a single irc message", Sources: src("chunkmax", "TOOLSHACK_CHUNKMAX")},
		&cli.IntFlag{Name: "backlog", Value: 50, Usage: "channel lines remembered per irc channel", Sources: src("backlog", "TOOLSHACK_BACKLOG")},
	}
}

func getConfigPath() string {
	if v := os.Getenv("TOOLSHACK_CONFIG"); v != "" {
		return v
	}
	for i, arg := range os.Args {
		if arg == "--config" || arg == "-b" {
			if i+1 < len(os.Args) {
				return os.Args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// Mask hides all but the last three characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 3 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-3) + secret[len(secret)-3:]
}

func (c *Configuration) PrintConfig() {
	log := zap.S()
	log.Infow("bot",
		"name", c.Bot.Name,
		"language", c.Bot.Language,
		"admins", c.Bot.Admins,
		"verbose", c.Bot.Verbose,
		"addressed", c.Bot.Addressed,
		"instructions", c.Bot.Instructions,
	)
	log.Infow("model",
		"ollamaurl", c.Model.OllamaURL,
		"model", c.Model.Model,
		"temperature", c.Model.Temperature,
		"think", c.Model.Think,
		"keepalive", c.Model.KeepAlive,
		"timeout", c.Model.Timeout,
	)
	log.Infow("reasoning",
		"model", c.Reasoning.Model,
		"think", c.Reasoning.Think,
		"timeout", c.Reasoning.Timeout,
	)
	log.Infow("tools",
		"mcpurl", c.Tools.MCPURL,
		"headers", len(c.Tools.Headers),
		"tags", c.Tools.Tags,
		"mode", c.Tools.Mode,
		"maxtoolcalls", c.Tools.MaxToolCalls,
		"denyrecursive", c.Tools.DenyRecursive,
		"calltimeout", c.Tools.CallTimeout,
	)
	log.Infow("session",
		"maxtokens", c.Session.MaxTokens,
		"cpumaxtokens", c.Session.CPUMaxTokens,
		"minoverlap", c.Session.MinOverlap,
		"normalize", c.Session.Normalize,
		"window", c.Session.Window,
		"searchcount", c.Session.SearchCount,
	)
	log.Infow("gate",
		"probe", c.Gate.Probe,
		"requiredgb", c.Gate.RequiredGB,
		"timeout", c.Gate.Timeout,
		"interval", c.Gate.Interval,
	)
	log.Infow("media", "dir", c.Media.Dir)
	log.Infow("discord",
		"token", Mask(c.Discord.Token),
		"timezone", c.Discord.Timezone,
		"errordelay", c.Discord.ErrorDelay,
		"progressinterval", c.Discord.ProgressInterval,
	)
	log.Infow("irc",
		"server", c.IRC.Server,
		"port", c.IRC.Port,
		"nick", c.IRC.Nick,
		"channels", c.IRC.Channels,
		"tls", c.IRC.SSL,
		"tlsinsecure", c.IRC.TLSInsecure,
		"saslnick", c.IRC.SASLNick,
		"saslpass", Mask(c.IRC.SASLPass),
		"chunkmax", c.IRC.ChunkMax,
		"backlog", c.IRC.Backlog,
	)
}

func NewConfiguration(c *cli.Command) *Configuration {
	if c.IsSet("config") {
		zap.S().Infow("Using config file", "path", c.String("config"))
	}

	return &Configuration{
		Bot: &BotConfig{
			Name:         c.String("name"),
			Instructions: c.String("instructions"),
			Language:     c.String("language"),
			Admins:       c.StringSlice("admins"),
			Verbose:      c.Bool("verbose"),
			Addressed:    c.Bool("addressed"),
		},
		Model: &ModelConfig{
			OllamaURL:   c.String("ollamaurl"),
			Model:       c.String("model"),
			Temperature: c.Float("temperature"),
			Think:       c.String("think"),
			KeepAlive:   c.Duration("keepalive"),
			Timeout:     c.Duration("modeltimeout"),
		},
		Reasoning: &ReasoningConfig{
			Model:   c.String("reasoningmodel"),
			Think:   c.String("reasoningthink"),
			Timeout: c.Duration("reasoningtimeout"),
		},
		Tools: &ToolsConfig{
			MCPURL:        c.String("mcpurl"),
			Headers:       c.StringSlice("mcpheader"),
			Tags:          c.StringSlice("tooltags"),
			Mode:          c.String("toolmode"),
			MaxToolCalls:  c.Int("maxtoolcalls"),
			DenyRecursive: c.Bool("denyrecursive"),
			CallTimeout:   c.Duration("calltimeout"),
		},
		Session: &SessionConfig{
			MaxTokens:    c.Int("maxtokens"),
			CPUMaxTokens: c.Int("cpumaxtokens"),
			MinOverlap:   c.Int("minoverlap"),
			Normalize:    c.Bool("normalize"),
			Window:       c.Int("window"),
			SearchCount:  c.Int("searchcount"),
		},
		Gate: &GateConfig{
			Probe:      c.String("probe"),
			RequiredGB: c.Float("requiredgb"),
			Timeout:    c.Duration("gatetimeout"),
			Interval:   c.Duration("gateinterval"),
		},
		Media: &MediaConfig{
			Dir: c.String("mediadir"),
		},
		Discord: &DiscordConfig{
			Token:            c.String("discordtoken"),
			Timezone:         c.String("timezone"),
			ErrorDelay:       c.Duration("errordelay"),
			ProgressInterval: c.Duration("progressinterval"),
		},
		IRC: &IRCConfig{
			Server:      c.String("server"),
			Port:        c.Int("port"),
			Nick:        c.String("nick"),
			Channels:    c.StringSlice("channel"),
			SSL:         c.Bool("tls"),
			TLSInsecure: c.Bool("tlsinsecure"),
			SASLNick:    c.String("saslnick"),
			SASLPass:    c.String("saslpass"),
			ChunkMax:    c.Int("chunkmax"),
			Backlog:     c.Int("backlog"),
		},
	}
}

// Validate rejects combinations the bot cannot run with.
func (c *Configuration) Validate() error {
	if c.Discord.Token == "" && c.IRC.Server == "" {
		return fmt.Errorf("no frontend configured: set discordtoken or server")
	}
	switch c.Tools.Mode {
	case "native", "embedded":
	default:
		return fmt.Errorf("invalid toolmode %q: want native or embedded", c.Tools.Mode)
	}
	switch c.Bot.Language {
	case "en", "de":
	default:
		return fmt.Errorf("invalid language %q: want en or de", c.Bot.Language)
	}
	if c.Tools.MaxToolCalls < 1 {
		return fmt.Errorf("maxtoolcalls must be at least 1, got %d", c.Tools.MaxToolCalls)
	}
	if c.Session.MinOverlap < 1 {
		return fmt.Errorf("minoverlap must be at least 1, got %d", c.Session.MinOverlap)
	}
	return nil
}
