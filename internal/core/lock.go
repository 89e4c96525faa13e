package core

import (
	"context"

	"go.uber.org/zap"
)

// RequestLock provides context-aware locking for serializing requests
type RequestLock struct {
	sem chan struct{}
}

// NewRequestLock creates a new request lock
func NewRequestLock() *RequestLock {
	return &RequestLock{
		sem: make(chan struct{}, 1),
	}
}

// LockWithContext attempts to acquire the lock, respecting context cancellation
func (c *RequestLock) LockWithContext(ctx context.Context) bool {
	select {
	case c.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unlock releases the lock
func (c *RequestLock) Unlock() {
	select {
	case <-c.sem:
	default:
		// Already unlocked, avoid panic
	}
}

// WithLock acquires lock and runs fn while holding it. The context error is
// returned when the lock cannot be acquired before ctx is done.
func WithLock(ctx context.Context, lock *RequestLock, logger *zap.SugaredLogger, operation string, fn func() error) error {
	logger.Debugw("lock_acquiring", "operation", operation)
	if !lock.LockWithContext(ctx) {
		logger.Warnw("lock_timeout", "operation", operation)
		return ctx.Err()
	}
	logger.Debugw("lock_acquired", "operation", operation)
	defer func() {
		logger.Debugw("lock_released", "operation", operation)
		lock.Unlock()
	}()

	return fn()
}
