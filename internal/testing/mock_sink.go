package testing

import (
	"context"
	"sync"

	"pkdindustries/toolshack/internal/events"
)

// RecordingSink implements events.Sink and keeps every event
type RecordingSink struct {
	mu     sync.Mutex
	Events []events.Event
	// Fail makes Emit return this error for matching events
	Fail    error
	FailOn  func(events.Event) bool
	Attempt int
}

// Verify RecordingSink implements events.Sink
var _ events.Sink = (*RecordingSink)(nil)

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// WithFailure makes every event matching match fail with err
func (s *RecordingSink) WithFailure(err error, match func(events.Event) bool) *RecordingSink {
	s.Fail = err
	s.FailOn = match
	return s
}

func (s *RecordingSink) Emit(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attempt++
	if s.Fail != nil && (s.FailOn == nil || s.FailOn(e)) {
		return s.Fail
	}
	s.Events = append(s.Events, e)
	return nil
}

// All returns a copy of the recorded events
func (s *RecordingSink) All() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.Events...)
}

// Replies returns the text of every Reply event
func (s *RecordingSink) Replies() []string {
	var out []string
	for _, e := range s.All() {
		if r, ok := e.(events.Reply); ok {
			out = append(out, r.Text)
		}
	}
	return out
}

// Errors returns the text of every Error event
func (s *RecordingSink) Errors() []string {
	var out []string
	for _, e := range s.All() {
		if r, ok := e.(events.Error); ok {
			out = append(out, r.Text)
		}
	}
	return out
}

// Files returns every File event
func (s *RecordingSink) Files() []events.File {
	var out []events.File
	for _, e := range s.All() {
		if f, ok := e.(events.File); ok {
			out = append(out, f)
		}
	}
	return out
}

// StatusKeys returns the keys of Status events in order
func (s *RecordingSink) StatusKeys() []string {
	var out []string
	for _, e := range s.All() {
		if st, ok := e.(events.Status); ok {
			out = append(out, st.Key)
		}
	}
	return out
}
