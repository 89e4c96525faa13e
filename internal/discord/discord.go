// Package discord connects the agent to Discord channels and direct messages.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/commands"
	"pkdindustries/toolshack/internal/config"
	"pkdindustries/toolshack/internal/core"
	"pkdindustries/toolshack/internal/router"
)

const (
	typingInterval  = 8 * time.Second
	downloadTimeout = time.Minute
)

// Frontend answers mentions and direct messages through the command registry.
type Frontend struct {
	cfg      *config.Configuration
	registry *commands.Registry
	store    *router.MediaStore
	loc      *time.Location
	// http fetches attachments; Run switches it to the session's client
	http     *http.Client
	logger   *zap.SugaredLogger
}

func New(cfg *config.Configuration, registry *commands.Registry, store *router.MediaStore, logger *zap.SugaredLogger) (*Frontend, error) {
	loc, err := time.LoadLocation(cfg.Discord.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Discord.Timezone, err)
	}
	return &Frontend{
		cfg:      cfg,
		registry: registry,
		store:    store,
		loc:      loc,
		http:     http.DefaultClient,
		logger:   logger,
	}, nil
}

// configure sets logging and intents on dg and downloads attachments
// through its HTTP client from then on.
func (f *Frontend) configure(dg *discordgo.Session) {
	dg.LogLevel = discordgo.LogWarning
	if f.cfg.Bot.Verbose {
		dg.LogLevel = discordgo.LogInformational
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	f.http = dg.Client
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (f *Frontend) Run(ctx context.Context) error {
	redirectLogs(f.logger.Named("discordgo"))

	dg, err := discordgo.New("Bot " + f.cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	f.configure(dg)

	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || s.State.User == nil || m.Author.ID == s.State.User.ID {
			return
		}
		if m.GuildID != "" && !mentions(m.Message, s.State.User.ID) {
			return
		}
		f.handle(ctx, s, s.State.User, m.Message, channelName(s, m.Message))
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer dg.Close()

	f.logger.Infow("Discord bot is now running", "user", dg.State.User.Username)
	<-ctx.Done()
	f.logger.Info("Discord session closed")
	return nil
}

func (f *Frontend) newRequest(parent context.Context, api API, bot *discordgo.User, m *discordgo.Message, channelName string) (*Request, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	logger := core.WithTurn(f.logger, core.NewRequestID(), m.ChannelID, displayName(m))
	answerFile := fmt.Sprintf(text(f.cfg.Bot.Language, msgAnswerFile), bot.Username)

	return &Request{
		Context:     ctx,
		frontend:    f,
		api:         api,
		bot:         bot,
		msg:         m,
		channelName: channelName,
		args:        commandArgs(m.Content, bot.ID),
		sink:        NewSink(api, m.ChannelID, answerFile, f.cfg.Discord.ErrorDelay, f.cfg.Discord.ProgressInterval, logger),
		logger:      logger,
	}, cancel
}

// handle runs one relevant message to completion. The typing indicator is
// kept alive meanwhile and temporary messages are removed afterwards.
func (f *Frontend) handle(ctx context.Context, api API, bot *discordgo.User, m *discordgo.Message, channelName string) {
	req, cancel := f.newRequest(ctx, api, bot, m, channelName)
	defer cancel()
	defer req.sink.Close()

	stop := f.typing(req, api, m.ChannelID)
	defer stop()

	req.logger.Infof(">> %s", m.Content)
	f.registry.Dispatch(req)
}

func (f *Frontend) typing(ctx context.Context, api API, channelID string) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			if err := api.ChannelTyping(channelID); err != nil {
				f.logger.Debugw("Failed to send typing indicator", "channel", channelID, "error", err)
			}
			select {
			case <-ticker.C:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(done) }
}

func channelName(s *discordgo.Session, m *discordgo.Message) string {
	if ch, err := s.State.Channel(m.ChannelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	if ch, err := s.Channel(m.ChannelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	return m.ChannelID
}

// redirectLogs sends discordgo's own logging to zap.
func redirectLogs(logger *zap.SugaredLogger) {
	discordgo.Logger = func(level, caller int, format string, a ...any) {
		msg := fmt.Sprintf(format, a...)
		switch level {
		case discordgo.LogError:
			logger.Error(msg)
		case discordgo.LogWarning:
			logger.Warn(msg)
		case discordgo.LogInformational:
			logger.Info(msg)
		default:
			logger.Debug(msg)
		}
	}
}
