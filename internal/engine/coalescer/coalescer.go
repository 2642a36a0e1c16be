// Package coalescer batches file system events into rebuild passes.
package coalescer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
	"unique"

	"go.trai.ch/fab/internal/core/domain"
	"go.trai.ch/fab/internal/core/ports"
)

// State is the coalescer's position in the watch loop.
type State string

const (
	// StateIdle means no changes are pending and no rebuild is in flight.
	StateIdle State = "idle"
	// StateAccumulating means changes are pending and the debounce timer is armed.
	StateAccumulating State = "accumulating"
	// StateRebuilding means a rebuild pass is in flight.
	StateRebuilding State = "rebuilding"
)

// RebuildFunc runs one rebuild pass over the drained change batch. interest
// holds the asset classes implicated by the batch.
type RebuildFunc func(ctx context.Context, changed []string, interest domain.InterestSet) error

// Coalescer accumulates watch events into a pending set, debounces them, and
// drives rebuild passes with at most one in flight.
//
// Events arriving while a rebuild is in flight do not arm the timer; they
// accumulate and are drained in exactly one follow-up pass after the current
// one completes. Timer arming is single slot, resetting cancels any prior
// pending fire.
type Coalescer struct {
	cfg     *domain.Config
	window  time.Duration
	rebuild RebuildFunc
	log     ports.Logger

	mu      sync.Mutex
	state   State
	pending map[unique.Handle[string]]struct{}
	timer   *time.Timer
	ctx     context.Context
	settled []chan struct{}
}

// New creates a Coalescer. rebuild is invoked on the coalescer's own
// goroutine once per drained batch.
func New(cfg *domain.Config, window time.Duration, rebuild RebuildFunc, log ports.Logger) *Coalescer {
	return &Coalescer{
		cfg:     cfg,
		window:  window,
		rebuild: rebuild,
		log:     log,
		state:   StateIdle,
		pending: make(map[unique.Handle[string]]struct{}),
		ctx:     context.Background(),
	}
}

// Start binds the context used for rebuild passes. Must be called before the
// first Notify.
func (c *Coalescer) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

// State returns the current loop state.
func (c *Coalescer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Notify records a changed path and arms or resets the debounce timer.
func (c *Coalescer) Notify(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending[unique.Make(path)] = struct{}{}

	switch c.state {
	case StateIdle:
		c.state = StateAccumulating
		fallthrough
	case StateAccumulating:
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = time.AfterFunc(c.window, c.fire)
	case StateRebuilding:
		// Drained by the follow-up pass after the in-flight rebuild.
	}
}

// Settle returns a channel closed when the loop next reaches idle. Used for
// graceful shutdown and in tests.
func (c *Coalescer) Settle() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	done := make(chan struct{})
	if c.state == StateIdle {
		close(done)
		return done
	}
	c.settled = append(c.settled, done)
	return done
}

// Flush immediately drives any pending changes through a rebuild pass,
// blocking until the loop is idle again.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.fire()
	<-c.Settle()
}

// fire runs on timer expiry. The first drain claims ownership of the rebuild
// loop; the owner keeps draining until the pending set is empty, so changes
// that accumulate during a rebuild get their follow-up pass before the loop
// goes idle. A fire that finds another pass in flight returns immediately,
// that pass drains its changes.
func (c *Coalescer) fire() {
	owner := false
	for {
		changed, ctx, ok := c.drain(owner)
		if !ok {
			return
		}
		owner = true

		interest := c.cfg.ClassifyAll(changed)
		c.log.Info("rebuilding " + strconv.Itoa(len(changed)) + " changed file(s)")

		if err := c.rebuild(ctx, changed, interest); err != nil {
			// A failed rebuild keeps the previous artifacts and waits for
			// the next change.
			if errors.Is(err, domain.ErrAborted) || errors.Is(err, context.Canceled) {
				c.log.Debug("rebuild aborted")
			} else {
				c.log.Error(err)
			}
		}
	}
}

// drain atomically snapshots and clears the pending set, moving the loop to
// rebuilding. ok is false when there is nothing to do: either the set was
// empty and the loop went idle, or a non-owner found another pass in flight.
func (c *Coalescer) drain(owner bool) (changed []string, ctx context.Context, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !owner && c.state == StateRebuilding {
		return nil, nil, false
	}

	c.timer = nil
	if len(c.pending) == 0 {
		c.state = StateIdle
		for _, done := range c.settled {
			close(done)
		}
		c.settled = nil
		return nil, nil, false
	}

	changed = make([]string, 0, len(c.pending))
	for handle := range c.pending {
		changed = append(changed, handle.Value())
	}
	c.pending = make(map[unique.Handle[string]]struct{})
	c.state = StateRebuilding
	return changed, c.ctx, true
}
