package auth

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Coordinator guarantees at most one in-flight credential refresh at a time.
// Concurrent callers join the attempt already in progress instead of starting
// their own, so a burst of simultaneously expired requests produces exactly
// one refresh call against the network.
type Coordinator struct {
	mu       sync.Mutex
	inflight *refreshAttempt
}

// refreshAttempt is the shared outcome of one refresh execution. err is only
// read after done is closed.
type refreshAttempt struct {
	done chan struct{}
	err  error
}

// NewCoordinator constructs an idle Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Refresh runs refresher unless a refresh is already in flight, in which case
// the caller awaits that attempt's outcome. The coordinator returns to idle
// before waiters observe the result, so a refresh requested immediately after
// one settles starts fresh rather than reusing a stale outcome.
//
// The refresher runs on a context detached from the triggering caller:
// cancelling one waiter abandons only that waiter's wait, never the shared
// refresh other waiters may still need. Errors propagate identically to every
// waiter of the same attempt; the coordinator never retries internally.
func (c *Coordinator) Refresh(ctx context.Context, refresher func(context.Context) error) error {
	c.mu.Lock()
	attempt := c.inflight
	if attempt == nil {
		attempt = &refreshAttempt{done: make(chan struct{})}
		c.inflight = attempt
		go c.run(context.WithoutCancel(ctx), attempt, refresher)
	} else {
		log.Debug("refresh already in flight, joining")
	}
	c.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) run(ctx context.Context, attempt *refreshAttempt, refresher func(context.Context) error) {
	attempt.err = refresher(ctx)

	// Reset to idle before releasing waiters.
	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(attempt.done)
}

// InFlight reports whether a refresh attempt is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}
