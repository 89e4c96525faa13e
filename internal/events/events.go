// Package events defines what the agent tells the chat surface.
package events

import "context"

// Event is one outward notification. The concrete types below are the only
// implementations.
type Event interface {
	event()
}

// Reply is a user-visible answer.
type Reply struct {
	Text string
}

// File delivers media produced during the turn.
type File struct {
	Data     []byte
	Filename string
}

// Status shows or replaces a temporary notice identified by Key.
type Status struct {
	Key  string
	Text string
}

// RemoveStatus removes the temporary notice identified by Key.
type RemoveStatus struct {
	Key string
}

// Progress reports advancement of a long running tool.
type Progress struct {
	Key     string
	Current float64
	Total   float64
	Message string
}

// Preview is a temporary image attached to the notice identified by Key.
type Preview struct {
	Key      string
	Data     []byte
	Filename string
}

// Error is the single terminal failure notice of a turn.
type Error struct {
	Text string
}

func (Reply) event()        {}
func (File) event()         {}
func (Status) event()       {}
func (RemoveStatus) event() {}
func (Progress) event()     {}
func (Preview) event()      {}
func (Error) event()        {}

// Sink accepts events for one turn. Delivery and throttling are up to the
// implementation.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error { return f(ctx, e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Fraction returns progress as a value in [0, 1]. An unknown total yields 0.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(max(p.Current/p.Total, 0), 1)
}

// Done reports whether the progress reached its total.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Current >= p.Total
}
