package chat

import "sync"

// Registry hands out one Session per channel key, creating them on first use.
type Registry struct {
	opts     Options
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for key, creating it if needed.
func (r *Registry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := NewSession(key, r.opts)
	r.sessions[key] = s
	return s
}

// Forget drops the session for key. It reports whether one existed.
func (r *Registry) Forget(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	delete(r.sessions, key)
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
