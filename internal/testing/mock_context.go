package testing

import (
	"context"
	"strings"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/events"
)

// MockRequest is an inbound chat request for command tests
type MockRequest struct {
	context.Context

	// Configurable return values
	Admin     bool
	Command   string
	Source    string
	Channel   string
	Args      []string
	Prompt    string
	Messages  []chat.Message
	WindowErr error

	// Recorded calls (for assertions)
	Replies []string

	sink *RecordingSink
}

// NewMockRequest creates a new MockRequest with sensible defaults
func NewMockRequest() *MockRequest {
	return &MockRequest{
		Context: context.Background(),
		Source:  "testuser",
		Channel: "#test",
		Args:    []string{},
		Replies: []string{},
		Prompt:  "You are a test bot.",
		sink:    NewRecordingSink(),
	}
}

// Builder methods for fluent test setup

// WithContext sets a custom context (for timeout/cancellation testing)
func (m *MockRequest) WithContext(ctx context.Context) *MockRequest {
	m.Context = ctx
	return m
}

// WithAdmin sets the admin flag
func (m *MockRequest) WithAdmin(admin bool) *MockRequest {
	m.Admin = admin
	return m
}

// WithArgs sets the parsed arguments
func (m *MockRequest) WithArgs(args ...string) *MockRequest {
	m.Args = args
	if len(args) > 0 {
		m.Command = strings.ToLower(args[0])
	}
	return m
}

// WithSource sets the source nick
func (m *MockRequest) WithSource(source string) *MockRequest {
	m.Source = source
	return m
}

// WithChannel sets the channel key
func (m *MockRequest) WithChannel(channel string) *MockRequest {
	m.Channel = channel
	return m
}

// WithWindow sets the messages returned as the channel window
func (m *MockRequest) WithWindow(msgs ...chat.Message) *MockRequest {
	m.Messages = msgs
	return m
}

// WithSink replaces the recording sink
func (m *MockRequest) WithSink(sink *RecordingSink) *MockRequest {
	m.sink = sink
	return m
}

func (m *MockRequest) IsAdmin() bool        { return m.Admin }
func (m *MockRequest) GetCommand() string   { return m.Command }
func (m *MockRequest) GetSource() string    { return m.Source }
func (m *MockRequest) GetChannel() string   { return m.Channel }
func (m *MockRequest) GetArgs() []string    { return m.Args }
func (m *MockRequest) Instructions() string { return m.Prompt }
func (m *MockRequest) Sink() events.Sink    { return m.sink }

func (m *MockRequest) Reply(msg string) {
	m.Replies = append(m.Replies, msg)
}

func (m *MockRequest) Window(ctx context.Context) ([]chat.Message, error) {
	if m.WindowErr != nil {
		return nil, m.WindowErr
	}
	if m.Messages == nil {
		return []chat.Message{chat.User(strings.Join(m.Args, " "))}, nil
	}
	return m.Messages, nil
}

// Recorded returns the sink used for agent turns
func (m *MockRequest) Recorded() *RecordingSink {
	return m.sink
}

// Assertion helpers

// HasReply checks if any reply contains the given substring
func (m *MockRequest) HasReply(substring string) bool {
	for _, r := range m.Replies {
		if strings.Contains(r, substring) {
			return true
		}
	}
	return false
}

// LastReply returns the last reply, or empty string if none
func (m *MockRequest) LastReply() string {
	if len(m.Replies) == 0 {
		return ""
	}
	return m.Replies[len(m.Replies)-1]
}

// ReplyCount returns the number of replies
func (m *MockRequest) ReplyCount() int {
	return len(m.Replies)
}
