package discord

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/events"
)

const (
	maxMessageLength = 2000
	colorStatus      = 0x607d8b
	colorError       = 0xe74c3c
	errorKey         = "error"
)

type temporary struct {
	msg     *discordgo.Message
	embed   *discordgo.MessageEmbed
	isError bool
}

// Sink delivers the events of one turn to a channel. Statuses, progress and
// previews live in temporary embeds keyed by event key and edited in place;
// Close removes them when the turn ends.
type Sink struct {
	api        API
	channelID  string
	answerFile string
	errorDelay time.Duration
	interval   time.Duration
	logger     *zap.SugaredLogger
	now        func() time.Time

	mu           sync.Mutex
	temps        map[string]*temporary
	lastProgress map[string]time.Time
}

var _ events.Sink = (*Sink)(nil)

func NewSink(api API, channelID, answerFile string, errorDelay, interval time.Duration, logger *zap.SugaredLogger) *Sink {
	return &Sink{
		api:          api,
		channelID:    channelID,
		answerFile:   answerFile,
		errorDelay:   errorDelay,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
		temps:        make(map[string]*temporary),
		lastProgress: make(map[string]time.Time),
	}
}

func (s *Sink) Emit(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := e.(type) {
	case events.Reply:
		return s.reply(ctx, ev.Text)

	case events.File:
		send := &discordgo.MessageSend{Files: []*discordgo.File{file(ev.Filename, ev.Data)}}
		if _, err := s.api.ChannelMessageSendComplex(s.channelID, send, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send file %s: %w", ev.Filename, err)
		}

	case events.Status:
		s.set(ctx, ev.Key, ev.Text, nil, false)

	case events.Progress:
		now := s.now()
		if last, ok := s.lastProgress[ev.Key]; ok && now.Sub(last) < s.interval && !ev.Done() {
			return nil
		}
		s.lastProgress[ev.Key] = now
		s.set(ctx, ev.Key, ev.Bar(), nil, false)

	case events.Preview:
		s.set(ctx, ev.Key, "", file(ev.Filename, ev.Data), false)

	case events.RemoveStatus:
		if t, ok := s.temps[ev.Key]; ok {
			delete(s.temps, ev.Key)
			s.delete(t.msg)
		}

	case events.Error:
		s.set(ctx, errorKey, ev.Text, nil, true)
	}
	return nil
}

// reply sends text as a message, or as a text file when it exceeds the
// message limit.
func (s *Sink) reply(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	send := &discordgo.MessageSend{Content: text}
	if utf8.RuneCountInString(text) > maxMessageLength {
		send = &discordgo.MessageSend{Files: []*discordgo.File{file(s.answerFile, []byte(text))}}
	}
	if _, err := s.api.ChannelMessageSendComplex(s.channelID, send, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// set creates or edits the temporary embed of key. Failures are logged only;
// temporary notices never end a turn.
func (s *Sink) set(ctx context.Context, key, description string, image *discordgo.File, isError bool) {
	t, ok := s.temps[key]
	if !ok {
		embed := &discordgo.MessageEmbed{Description: description, Color: color(isError)}
		send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
		if image != nil {
			embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + image.Name}
			send.Files = []*discordgo.File{image}
		}
		msg, err := s.api.ChannelMessageSendComplex(s.channelID, send, discordgo.WithContext(ctx))
		if err != nil {
			s.logger.Warnw("Failed to send temporary message", "key", key, "error", err)
			return
		}
		s.temps[key] = &temporary{msg: msg, embed: embed, isError: isError}
		return
	}

	if description != "" {
		t.embed.Description = description
	}
	if isError {
		t.isError = true
		t.embed.Color = colorError
	}
	edit := discordgo.NewMessageEdit(s.channelID, t.msg.ID).SetEmbed(t.embed)
	if image != nil {
		t.embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + image.Name}
		edit.Files = []*discordgo.File{image}
	}
	if _, err := s.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		s.logger.Warnw("Failed to edit temporary message", "key", key, "error", err)
	}
}

// Close deletes every temporary message. Error notices stay visible for the
// configured delay first.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.temps {
		delete(s.temps, key)
		if t.isError && s.errorDelay > 0 {
			msg := t.msg
			time.AfterFunc(s.errorDelay, func() { s.delete(msg) })
			continue
		}
		s.delete(t.msg)
	}
}

func (s *Sink) delete(msg *discordgo.Message) {
	if err := s.api.ChannelMessageDelete(s.channelID, msg.ID); err != nil {
		s.logger.Debugw("Failed to delete temporary message", "message", msg.ID, "error", err)
	}
}

func file(name string, data []byte) *discordgo.File {
	return &discordgo.File{Name: name, Reader: bytes.NewReader(data)}
}

func color(isError bool) int {
	if isError {
		return colorError
	}
	return colorStatus
}
