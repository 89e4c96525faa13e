package irc

import (
	"sync"

	"pkdindustries/toolshack/internal/chat"
)

// Backlog remembers the most recent lines of every channel so a turn sees
// what was said before the bot was addressed.
type Backlog struct {
	mu    sync.Mutex
	size  int
	lines map[string][]chat.Message
}

func NewBacklog(size int) *Backlog {
	if size < 1 {
		size = 1
	}
	return &Backlog{
		size:  size,
		lines: make(map[string][]chat.Message),
	}
}

// Record appends msg to the lines of key, dropping the oldest beyond size.
func (b *Backlog) Record(key string, msg chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := append(b.lines[key], msg)
	if len(lines) > b.size {
		lines = append([]chat.Message(nil), lines[len(lines)-b.size:]...)
	}
	b.lines[key] = lines
}

// Tail returns up to n of the most recent lines of key, oldest first.
func (b *Backlog) Tail(key string, n int) []chat.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.lines[key]
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return append([]chat.Message(nil), lines...)
}
