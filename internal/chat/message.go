package chat

import (
	"slices"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CarrierPrefix marks system messages that carry tool traffic rather than
// instructions. Carriers are skipped when comparing history to a new window.
const CarrierPrefix = "#"

// Message is one entry of a channel history. Attachments are paths of saved
// media files.
type Message struct {
	Role        Role
	Content     string
	Attachments []string
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// NewCarrier wraps payload into a system message under the reserved prefix.
func NewCarrier(payload string) Message {
	return Message{Role: RoleSystem, Content: CarrierPrefix + payload}
}

// IsCarrier reports whether m is a synthetic tool traffic message.
func (m Message) IsCarrier() bool {
	return m.Role == RoleSystem && strings.HasPrefix(m.Content, CarrierPrefix)
}

// Matcher decides whether two messages are the same utterance.
type Matcher func(a, b Message) bool

// ExactMatch compares role, content and attachments literally.
func ExactMatch(a, b Message) bool {
	return a.Role == b.Role && a.Content == b.Content && slices.Equal(a.Attachments, b.Attachments)
}

// NormalizedMatch ignores leading, trailing and repeated whitespace.
func NormalizedMatch(a, b Message) bool {
	return a.Role == b.Role &&
		normalize(a.Content) == normalize(b.Content) &&
		slices.Equal(a.Attachments, b.Attachments)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
