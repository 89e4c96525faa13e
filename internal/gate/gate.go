package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrResourceTimeout is matched by every error Await returns when capacity
// did not become available in time.
var ErrResourceTimeout = errors.New("resource timeout")

// TimeoutError reports the last observed capacity when waiting gave up.
type TimeoutError struct {
	Required uint64
	Free     uint64
	Waited   time.Duration
	// LastErr is the most recent probe failure, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("not enough free memory after %s: %.2f GB free, %.2f GB required",
		e.Waited.Round(time.Millisecond), GB(e.Free), GB(e.Required))
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrResourceTimeout }

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// Probe reports how many bytes of the scarce resource are free right now.
type Probe interface {
	Free(ctx context.Context) (uint64, error)
}

// Gate blocks generation until enough capacity is free.
type Gate struct {
	probe    Probe
	required uint64
	timeout  time.Duration
	interval time.Duration
	logger   *zap.SugaredLogger
}

func New(probe Probe, required uint64, timeout, interval time.Duration, logger *zap.SugaredLogger) *Gate {
	if interval <= 0 {
		interval = time.Second
	}
	return &Gate{
		probe:    probe,
		required: required,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
	}
}

// Await polls the probe until the required amount is free. It fails with a
// *TimeoutError once the gate timeout elapses, or with the context error
// when ctx is done first.
func (g *Gate) Await(ctx context.Context) error {
	start := time.Now()
	probeCtx, cancel := context.WithDeadline(ctx, start.Add(g.timeout))
	defer cancel()
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	var free uint64
	var lastErr error
	for {
		free, lastErr = g.probe.Free(probeCtx)
		if lastErr == nil && free >= g.required {
			g.logger.Debugw("capacity_available", "free_gb", GB(free), "required_gb", GB(g.required))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr != nil {
			g.logger.Debugw("capacity_probe_failed", "error", lastErr)
		}
		if time.Since(start) >= g.timeout {
			return g.timedOut(start, free, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-probeCtx.Done():
			return g.timedOut(start, free, lastErr)
		case <-ticker.C:
		}
	}
}

func (g *Gate) timedOut(start time.Time, free uint64, lastErr error) error {
	err := &TimeoutError{Required: g.required, Free: free, Waited: time.Since(start), LastErr: lastErr}
	g.logger.Warnw("capacity_timeout", "error", err)
	return err
}

const bytesPerGB = 1 << 30

// GB converts bytes to binary gigabytes.
func GB(b uint64) float64 { return float64(b) / bytesPerGB }

// Bytes converts binary gigabytes to bytes.
func Bytes(gb float64) uint64 { return uint64(gb * bytesPerGB) }
