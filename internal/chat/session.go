package chat

import (
	"slices"
	"sync"

	"pkdindustries/toolshack/internal/core"
)

// Session is the retained conversation of one channel.
type Session struct {
	key       string
	maxTokens int
	gauge     Gauge
	match     Matcher
	overlap   int

	// gen serializes generation calls against this session
	gen *core.RequestLock

	mu      sync.Mutex
	history []Message
	// instructions is history[0] when hasInstructions is set
	instructions    Message
	hasInstructions bool
}

// MergeResult describes what a merge did to the history.
type MergeResult struct {
	Overlap   int
	Appended  int
	Reset     bool
	Truncated bool
}

type Options struct {
	MaxTokens  int
	MinOverlap int
	Gauge      Gauge
	Match      Matcher
}

func NewSession(key string, opts Options) *Session {
	if opts.Gauge == nil {
		opts.Gauge = DefaultGauge()
	}
	if opts.Match == nil {
		opts.Match = ExactMatch
	}
	if opts.MinOverlap < 1 {
		opts.MinOverlap = 1
	}
	return &Session{
		key:       key,
		maxTokens: opts.MaxTokens,
		gauge:     opts.Gauge,
		match:     opts.Match,
		overlap:   opts.MinOverlap,
		gen:       core.NewRequestLock(),
	}
}

func (s *Session) Key() string { return s.key }

// Lock returns the lock that serializes generation calls on this session.
func (s *Session) Lock() *core.RequestLock { return s.gen }

func (s *Session) MaxTokens() int { return s.maxTokens }

// History returns a copy of the current history.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Instructions returns the instructions entry, if any.
func (s *Session) Instructions() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instructions, s.hasInstructions
}

func (s *Session) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

// Tokens estimates the token count of the current history.
func (s *Session) Tokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gauge.Count(s.history)
}

// Reset drops everything, including the instructions.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.instructions = Message{}
	s.hasInstructions = false
}

// Merge reconciles the history with a freshly fetched window. The longest
// suffix of the non-carrier history that is a prefix of window is treated as
// already known and only the rest of window is appended. Without such an
// overlap, or when instructions changed, the history restarts as
// instructions followed by window. An empty instructions string means the
// session has no instructions entry. The token budget is enforced afterwards.
func (s *Session) Merge(window []Message, instructions string) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res MergeResult
	wantInstr := instructions != ""
	instr := System(instructions)

	sameInstr := wantInstr == s.hasInstructions && (!wantInstr || s.instructions.Content == instructions)
	res.Overlap = s.findOverlap(window)

	if res.Overlap == 0 || !sameInstr {
		s.resetLocked(window, instr, wantInstr)
		res.Reset = true
		res.Appended = len(window)
	} else {
		tail := window[res.Overlap:]
		s.history = append(s.history, tail...)
		res.Appended = len(tail)
	}

	if s.maxTokens > 0 && s.gauge.Count(s.history) > s.maxTokens {
		s.resetLocked(window, instr, wantInstr)
		res.Truncated = true
	}
	return res
}

func (s *Session) resetLocked(window []Message, instr Message, withInstr bool) {
	s.history = make([]Message, 0, len(window)+1)
	if withInstr {
		s.history = append(s.history, instr)
	}
	s.history = append(s.history, window...)
	s.instructions = instr
	s.hasInstructions = withInstr
}

func (s *Session) findOverlap(window []Message) int {
	known := make([]Message, 0, len(s.history))
	for _, m := range s.history {
		if !m.IsCarrier() {
			known = append(known, m)
		}
	}

	for length := min(len(known), len(window)); length >= s.overlap; length-- {
		if s.equal(known[len(known)-length:], window[:length]) {
			return length
		}
	}
	return 0
}

func (s *Session) equal(a, b []Message) bool {
	for i := range a {
		if !s.match(a[i], b[i]) {
			return false
		}
	}
	return true
}
