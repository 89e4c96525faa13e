// Package irc connects the agent to IRC channels.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/girc"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/commands"
	"pkdindustries/toolshack/internal/config"
)

const (
	maxRetries     = 5
	reconnectDelay = 5 * time.Second
)

// Frontend runs one IRC connection and dispatches channel messages to the
// command registry.
type Frontend struct {
	cfg      *config.Configuration
	registry *commands.Registry
	backlog  *Backlog
	logger   *zap.SugaredLogger
}

func New(cfg *config.Configuration, registry *commands.Registry, logger *zap.SugaredLogger) *Frontend {
	for _, admin := range cfg.Bot.Admins {
		if err := ValidateHostmask(admin); err != nil {
			logger.Warnw("Admin entry will never match", "error", err)
		}
	}
	return &Frontend{
		cfg:      cfg,
		registry: registry,
		backlog:  NewBacklog(cfg.IRC.Backlog),
		logger:   logger,
	}
}

// Run connects and blocks until ctx is cancelled or reconnecting gives up.
func (f *Frontend) Run(ctx context.Context) error {
	cfg := f.cfg.IRC
	client := girc.New(girc.Config{
		Server:    cfg.Server,
		Port:      cfg.Port,
		Nick:      cfg.Nick,
		User:      "toolshack",
		Name:      f.cfg.Bot.Name,
		SSL:       cfg.SSL,
		TLSConfig: &tls.Config{InsecureSkipVerify: cfg.TLSInsecure},
	})

	if cfg.SASLNick != "" && cfg.SASLPass != "" {
		client.Config.SASL = &girc.SASLPlain{
			User: cfg.SASLNick,
			Pass: cfg.SASLPass,
		}
	}

	go func() {
		<-ctx.Done()
		client.Quit("Shutting down...")
		f.logger.Info("IRC client closed")
	}()

	client.Handlers.AddBg(girc.CONNECTED, func(c *girc.Client, e girc.Event) {
		for _, channel := range cfg.Channels {
			f.logger.Infof("Joining channel: %s", channel)
			c.Cmd.Join(channel)
		}
	})

	client.Handlers.AddBg(girc.PRIVMSG, func(c *girc.Client, e girc.Event) {
		f.dispatch(ctx, c.Cmd, c.GetNick(), e)
	})

	for i := range maxRetries {
		if ctx.Err() != nil {
			return nil
		}

		f.logger.Infow("Connecting to server",
			"server", client.Config.Server,
			"port", client.Config.Port,
			"tls", client.Config.SSL,
			"sasl", client.Config.SASL != nil,
		)

		if err := client.Connect(); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			f.logger.Errorw("Connection failed", "error", err)
			f.logger.Infof("Reconnecting in %s (attempt %d/%d)", reconnectDelay, i+1, maxRetries)

			select {
			case <-time.After(reconnectDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	}

	return fmt.Errorf("failed to connect to %s after %d attempts", cfg.Server, maxRetries)
}

func (f *Frontend) dispatch(ctx context.Context, out Sender, nick string, e girc.Event) {
	req, cancel := NewRequest(ctx, f.cfg, out, nick, f.backlog, e)
	defer cancel()

	req.Record()
	if !req.Valid() {
		return
	}

	req.GetLogger().Infof(">> %s", strings.Join(e.Params[1:], " "))
	f.registry.Dispatch(req)
}
