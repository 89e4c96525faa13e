package irc

import (
	"context"
	"fmt"
	"strings"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/events"
)

// Sink renders agent events as IRC lines. IRC has no editable messages, so
// temporary notices become actions and their removal is a no-op.
type Sink struct {
	req *Request
}

var _ events.Sink = (*Sink)(nil)

func (s *Sink) Emit(ctx context.Context, e events.Event) error {
	switch ev := e.(type) {
	case events.Reply:
		reply := strings.TrimSpace(ev.Text)
		if reply == "" {
			return nil
		}
		s.req.Reply(reply)
		s.req.backlog.Record(s.req.GetChannel(), chat.Assistant(reply))

	case events.Status:
		if line := flatten(ev.Text); line != "" {
			s.req.Action(line)
		}

	case events.File:
		s.req.Action(fmt.Sprintf(text(s.req.cfg.Bot.Language, msgFile), ev.Filename))

	case events.Error:
		s.req.Reply(ev.Text)

	case events.Progress:
		s.req.logger.Debugw("tool_progress", "current", ev.Current, "total", ev.Total, "message", ev.Message)

	default:
		s.req.logger.Debugw("irc_event_skipped", "event", fmt.Sprintf("%T", e))
	}
	return nil
}

// flatten turns a markdown status into a single plain line.
func flatten(status string) string {
	status = strings.ReplaceAll(status, "**", "")
	var parts []string
	for _, line := range strings.Split(status, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "- "))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
