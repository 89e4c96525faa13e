package irc

import (
	"context"
	"fmt"
	"strings"

	"github.com/lrstanley/girc"
	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/commands"
	"pkdindustries/toolshack/internal/config"
	"pkdindustries/toolshack/internal/core"
	"pkdindustries/toolshack/internal/events"
)

// Sender is the part of the girc command set a request writes to.
type Sender interface {
	Message(target, message string)
	Action(target, message string)
}

// Request is one PRIVMSG as seen by the command registry
type Request struct {
	context.Context
	cfg       *config.Configuration
	out       Sender
	nick      string
	event     girc.Event
	args      []string
	backlog   *Backlog
	logger    *zap.SugaredLogger
	requestID string
}

var _ commands.Request = (*Request)(nil)

func NewRequest(parent context.Context, cfg *config.Configuration, out Sender, nick string, backlog *Backlog, e girc.Event) (*Request, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	if e.Source == nil {
		e.Source = &girc.Source{Name: nick}
	}

	r := &Request{
		Context:   ctx,
		cfg:       cfg,
		out:       out,
		nick:      nick,
		event:     e,
		args:      strings.Fields(e.Last()),
		backlog:   backlog,
		requestID: core.NewRequestID(),
	}
	r.logger = core.WithTurn(core.GetLogger(), r.requestID, r.GetChannel(), e.Source.Name)

	if r.IsAddressed() && len(r.args) > 0 {
		r.args = r.args[1:]
	}
	return r, cancel
}

func (r *Request) target() string {
	if len(r.event.Params) == 0 {
		return ""
	}
	return r.event.Params[0]
}

// GetChannel is the channel name, or the sender's nick for private messages.
func (r *Request) GetChannel() string {
	if key := r.target(); girc.IsValidChannel(key) {
		return key
	}
	return r.event.Source.Name
}

func (r *Request) IsAddressed() bool {
	return CheckAddressed(r.event.Last(), r.nick)
}

func (r *Request) IsPrivate() bool {
	return CheckPrivate(r.target())
}

// Valid reports whether the message should be dispatched at all.
func (r *Request) Valid() bool {
	return CheckValid(r.IsAddressed(), r.cfg.Bot.Addressed, r.IsPrivate(), len(r.args))
}

func (r *Request) IsAdmin() bool {
	hostmask := r.event.Source.String()
	r.logger.Debugw("Checking hostmask", "hostmask", hostmask)
	if len(r.cfg.Bot.Admins) == 0 {
		r.logger.Debug("All hostmasks are admin; please configure admins")
	}
	return CheckAdmin(hostmask, r.cfg.Bot.Admins)
}

func (r *Request) GetCommand() string {
	if len(r.args) == 0 {
		return ""
	}
	return strings.ToLower(r.args[0])
}

func (r *Request) GetSource() string             { return r.event.Source.Name }
func (r *Request) GetArgs() []string             { return r.args }
func (r *Request) GetLogger() *zap.SugaredLogger { return r.logger }
func (r *Request) Sink() events.Sink             { return &Sink{req: r} }

// Reply sends msg to the channel (or nick), split into chunkmax sized lines.
func (r *Request) Reply(msg string) {
	lines := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range lines {
			r.out.Message(r.GetChannel(), line)
		}
	}()

	chunker := NewChunker(lines, r.cfg.IRC.ChunkMax)
	chunker.Write(msg)
	chunker.Flush()
	close(lines)
	<-done
}

// Action sends a /me line. Private conversations get a plain message.
func (r *Request) Action(msg string) {
	if r.IsPrivate() {
		r.out.Message(r.event.Source.Name, msg)
		return
	}
	r.out.Action(r.target(), msg)
}

// Record adds the line to the channel backlog. Commands are not part of the
// conversation and are skipped.
func (r *Request) Record() {
	if strings.HasPrefix(r.GetCommand(), "/") {
		return
	}
	r.backlog.Record(r.GetChannel(), chat.User(fmt.Sprintf("<%s> %s", r.GetSource(), r.event.Last())))
}

// Window is the tail of the channel backlog, including this message.
func (r *Request) Window(ctx context.Context) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.backlog.Tail(r.GetChannel(), r.cfg.Session.Window), nil
}

func (r *Request) Instructions() string {
	var where string
	if r.IsPrivate() {
		where = fmt.Sprintf(text(r.cfg.Bot.Language, msgPrivate), r.GetSource())
	} else {
		where = fmt.Sprintf(text(r.cfg.Bot.Language, msgChannel), r.GetChannel())
	}
	instructions := fmt.Sprintf(text(r.cfg.Bot.Language, msgIdentity), r.cfg.Bot.Name) + " " + where
	if r.cfg.Bot.Instructions != "" {
		instructions += "\n\n" + r.cfg.Bot.Instructions
	}
	return instructions
}
