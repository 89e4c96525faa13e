package discord

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/commands"
	"pkdindustries/toolshack/internal/events"
)

const maxHistoryFetch = 100

// Request is one relevant Discord message as seen by the command registry
type Request struct {
	context.Context
	frontend    *Frontend
	api         API
	bot         *discordgo.User
	msg         *discordgo.Message
	channelName string
	args        []string
	sink        *Sink
	logger      *zap.SugaredLogger
}

var _ commands.Request = (*Request)(nil)

func (r *Request) language() string { return r.frontend.cfg.Bot.Language }

func (r *Request) IsPrivate() bool { return r.msg.GuildID == "" }

func (r *Request) GetCommand() string {
	if len(r.args) == 0 {
		return ""
	}
	return strings.ToLower(r.args[0])
}

func (r *Request) GetArgs() []string             { return r.args }
func (r *Request) GetSource() string             { return displayName(r.msg) }
func (r *Request) GetChannel() string            { return r.msg.ChannelID }
func (r *Request) GetLogger() *zap.SugaredLogger { return r.logger }
func (r *Request) Sink() events.Sink             { return r.sink }

// IsAdmin matches the author's user id or user name. An empty admin list
// admits everyone.
func (r *Request) IsAdmin() bool {
	admins := r.frontend.cfg.Bot.Admins
	if len(admins) == 0 {
		return true
	}
	return slices.Contains(admins, r.msg.Author.ID) || slices.Contains(admins, r.msg.Author.Username)
}

func (r *Request) Reply(msg string) {
	if err := r.sink.Emit(r, events.Reply{Text: msg}); err != nil {
		r.logger.Errorw("Failed to send reply", "error", err)
	}
}

func (r *Request) Instructions() string {
	lang := r.language()
	var where string
	if r.IsPrivate() {
		where = fmt.Sprintf(text(lang, msgDirect), r.GetSource())
	} else {
		where = fmt.Sprintf(text(lang, msgChannel), r.channelName)
	}
	instructions := fmt.Sprintf(text(lang, msgIdentity), r.frontend.cfg.Bot.Name) + " " + where
	if extra := r.frontend.cfg.Bot.Instructions; extra != "" {
		instructions += "\n\n" + extra
	}
	return instructions
}

// Window returns the most recent relevant messages of the channel, oldest
// first: the bot's own messages and messages addressed to it.
func (r *Request) Window(ctx context.Context) ([]chat.Message, error) {
	cfg := r.frontend.cfg.Session
	history, err := r.api.ChannelMessages(r.msg.ChannelID, min(max(cfg.SearchCount, 1), maxHistoryFetch), "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}

	var window []chat.Message
	for _, m := range history {
		if len(window) >= cfg.Window {
			break
		}
		if m.Author == nil {
			continue
		}
		own := m.Author.ID == r.bot.ID
		if !own && !r.IsPrivate() && !mentions(m, r.bot.ID) {
			continue
		}
		if msg, ok := r.convert(ctx, m, own); ok {
			window = append(window, msg)
		}
	}
	slices.Reverse(window)
	return window, nil
}

func (r *Request) convert(ctx context.Context, m *discordgo.Message, own bool) (chat.Message, bool) {
	lang := r.language()
	content := m.ContentWithMentionsReplaced()
	role := chat.RoleAssistant
	if !own {
		role = chat.RoleUser
		stamp := m.Timestamp.In(r.frontend.loc).Format("15:04:05")
		content = fmt.Sprintf(text(lang, msgWrote), stamp, displayName(m), content)
	}

	var images []string
	for _, a := range m.Attachments {
		if !strings.Contains(a.ContentType, "image") {
			content += fmt.Sprintf(text(lang, msgFileName), a.Filename)
			continue
		}
		path, err := r.frontend.store.Fetch(a.ID+"_"+a.Filename, func() ([]byte, error) {
			return r.frontend.download(ctx, a.URL)
		})
		if err != nil {
			r.logger.Warnw("Failed to download attachment", "file", a.Filename, "error", err)
			continue
		}
		images = append(images, path)
		content += fmt.Sprintf(text(lang, msgImageName), a.Filename)
	}

	if strings.TrimSpace(content) == "" && len(images) == 0 {
		return chat.Message{}, false
	}
	return chat.Message{Role: role, Content: content, Attachments: images}, true
}

func (f *Frontend) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func mentions(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return ""
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// commandArgs splits content into words after removing mentions of the bot.
func commandArgs(content, botID string) []string {
	content = strings.NewReplacer("<@"+botID+">", "", "<@!"+botID+">", "").Replace(content)
	return strings.Fields(content)
}
