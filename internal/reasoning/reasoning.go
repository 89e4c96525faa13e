// Package reasoning asks a second model to explain a failure of the agent
// loop so the main model can recover from it.
package reasoning

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/core"
	"pkdindustries/toolshack/internal/llm"
)

// Gate admits a generation once capacity is free.
type Gate interface {
	Await(ctx context.Context) error
}

type Options struct {
	Model     string
	Think     string
	Timeout   time.Duration
	KeepAlive time.Duration
	Language  string
}

type Reasoner struct {
	client llm.Client
	gate   Gate
	opts   Options
	logger *zap.SugaredLogger
}

func New(client llm.Client, gate Gate, opts Options, logger *zap.SugaredLogger) *Reasoner {
	return &Reasoner{client: client, gate: gate, opts: opts, logger: logger}
}

// Explain returns an explanation of err in the context of sess. It never
// fails: when the explanation cannot be generated the error text is returned.
// The caller must not hold the session lock.
func (r *Reasoner) Explain(ctx context.Context, err error, sess *chat.Session) string {
	if err == nil {
		return ""
	}
	prompt := r.Prompt(err, sess)

	var text string
	genErr := core.WithLock(ctx, sess.Lock(), r.logger, "reasoning", func() error {
		if err := r.gate.Await(ctx); err != nil {
			return err
		}
		resp, err := r.client.Generate(ctx, llm.Request{
			Messages:  []chat.Message{chat.System(prompt)},
			Model:     r.opts.Model,
			Think:     r.opts.Think,
			Timeout:   r.opts.Timeout,
			KeepAlive: r.opts.KeepAlive,
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if genErr != nil || text == "" {
		r.logger.Warnw("error reasoning failed, using raw error", "error", err, "reasoning_error", genErr)
		return err.Error()
	}
	r.logger.Debugw("error_explained", "error", err, "explanation", text)
	return text
}

// Prompt builds the isolated request: instructions, the last user message,
// the assistant side messages after it and the error.
func (r *Reasoner) Prompt(err error, sess *chat.Session) string {
	var instructions string
	if m, ok := sess.Instructions(); ok {
		instructions = m.Content
	}

	history := sess.History()
	var user string
	var after []string
	for _, m := range slices.Backward(history) {
		if m.Role == chat.RoleUser {
			user = m.Content
			break
		}
		if instructions != "" && m.Role == chat.RoleSystem && m.Content == instructions {
			continue
		}
		after = append(after, m.Content)
	}
	slices.Reverse(after)

	return strings.NewReplacer(
		"{instructions}", instructions,
		"{user}", user,
		"{assistant}", strings.Join(after, "\n---\n"),
		"{error}", err.Error(),
	).Replace(template(r.opts.Language))
}

func template(language string) string {
	if language == "de" {
		return templateDE
	}
	return templateEN
}

const templateEN = `***YOUR TASK***
You are helping an AI assistant fix an error.
As an overview you get:
 - the instructions the assistant received
 - the latest relevant messages
 - the error message

First state which error occurred.
Then explain clearly and as briefly as possible how the error came about and how it can be fixed.


***Instructions for the assistant***

"{instructions}"


***Last message of the user***

"{user}"


***Following messages of the assistant***

"{assistant}"


***The error message***

"{error}"
`

const templateDE = `***DEINE AUFGABE***
Du hilfst einem KI Assistenten einen Fehler zu beheben.
Als Überblick bekommst du:
 - die Instruktionen, die dieser Assistent bekommen hat
 - die letzten relevanten Nachrichten
 - die Fehlermeldung

Erwähne zuerst einmal welcher Fehler aufgetreten ist.
Erkläre dann klar und möglichst knapp wie der Fehler entstanden ist und wie er behoben werden kann.


***Instruktionen für den Assistenten***

"{instructions}"


***Letzte Nachricht des Nutzers***

"{user}"


***Darauffolgende Nachrichten des Assistenten***

"{assistant}"


***Die Fehlermeldung***

"{error}"
`
