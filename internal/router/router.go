// Package router decides what happens to a tool result: whether it ends the
// turn, what the user sees, and what is remembered.
package router

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/tools"
)

// Routing is the outcome of one tool result. The caller appends Entry to the
// history (when set) and emits Event (when set).
type Routing struct {
	Continue    bool
	Interrupted bool
	Event       events.Event
	Entry       *chat.Message
}

type Router struct {
	store    *MediaStore
	language string
	logger   *zap.SugaredLogger
}

func New(store *MediaStore, language string, logger *zap.SugaredLogger) *Router {
	return &Router{store: store, language: language, logger: logger}
}

// Route handles the result of the tool called name. Text asks for another
// generation, media is the answer itself, nil means the tool was interrupted.
func (r *Router) Route(name string, result tools.Result) (Routing, error) {
	switch res := result.(type) {
	case nil:
		r.logger.Infow("tool_interrupted", "tool", name)
		return Routing{Interrupted: true}, nil

	case tools.Text:
		entry := ResultRecord(name, res.Value)
		return Routing{Continue: true, Entry: &entry}, nil

	case tools.Image:
		file, path, err := r.store.Save(res.Data, res.MIMEType)
		if err != nil {
			return Routing{}, err
		}
		r.logger.Infow("tool_image_saved", "tool", name, "file", file, "bytes", len(res.Data))
		entry := chat.Message{Role: chat.RoleAssistant, Attachments: []string{path}}
		return Routing{
			Event: events.File{Data: res.Data, Filename: file},
			Entry: &entry,
		}, nil

	case tools.Audio:
		file, _, err := r.store.Save(res.Data, res.MIMEType)
		if err != nil {
			return Routing{}, err
		}
		r.logger.Infow("tool_audio_saved", "tool", name, "file", file, "bytes", len(res.Data))
		entry := chat.Assistant(fmt.Sprintf(sentFile(r.language), file))
		return Routing{
			Event: events.File{Data: res.Data, Filename: file},
			Entry: &entry,
		}, nil
	}
	return Routing{}, fmt.Errorf("unsupported result %T from tool %s", result, name)
}

func sentFile(language string) string {
	if language == "de" {
		return "Du hast eine Datei gesendet: %s"
	}
	return "You sent a file: %s"
}

// ResultRecord is the carrier remembering a textual tool result.
func ResultRecord(name, content string) chat.Message {
	return carrier("tool_result", map[string]string{"name": name, "content": content})
}

// ErrorRecord is the carrier remembering an explained failure.
func ErrorRecord(explanation string) chat.Message {
	return carrier("error", explanation)
}

// CallRecord is the carrier remembering a natively requested tool call.
func CallRecord(call tools.Call) chat.Message {
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return carrier("tool_call", tools.Call{Name: call.Name, Arguments: args})
}

func carrier(kind string, payload any) chat.Message {
	b, err := json.Marshal(map[string]any{kind: payload})
	if err != nil {
		// arguments came from JSON, so this only trips on exotic values
		b = fmt.Appendf(nil, `{%q:%q}`, kind, fmt.Sprint(payload))
	}
	return chat.NewCarrier(string(b))
}
