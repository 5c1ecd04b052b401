package engine

import (
	"context"
	"sync"
	"time"

	"github.com/wallet-sync/internal/backoff"
	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/errors"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/policy"
	"github.com/wallet-sync/internal/store"
	"github.com/wallet-sync/internal/types"
)

// CoordinatorOptions configures one resource's fetch coordinator
type CoordinatorOptions struct {
	TTL      time.Duration
	Debounce time.Duration
	Backoff  backoff.Policy
	Guard    *InFlightGuard
	Clock    clock.Clock
	Logger   *logging.Logger
	// Persist, when set, mirrors a committed snapshot to durable storage.
	// Best-effort: failures are logged and swallowed.
	Persist func(ctx context.Context, data any, updatedAt int64) error
}

// Coordinator drives fetches for one resource: it decides when a remote
// call is warranted, guarantees at most one in-flight fetch, retries with
// exponential backoff, and always leaves the snapshot renderable.
type Coordinator[T any] struct {
	resource types.ResourceID
	cell     *store.Resource[T]
	st       *store.Store
	fetch    func(ctx context.Context) (T, error)
	opts     CoordinatorOptions
	logger   *logging.Logger

	mu            sync.Mutex
	lastCompleted time.Time
	terminal      bool
}

// NewCoordinator creates a coordinator for one resource cell.
func NewCoordinator[T any](
	resource types.ResourceID,
	cell *store.Resource[T],
	st *store.Store,
	fetch func(ctx context.Context) (T, error),
	opts CoordinatorOptions,
) *Coordinator[T] {
	return &Coordinator[T]{
		resource: resource,
		cell:     cell,
		st:       st,
		fetch:    fetch,
		opts:     opts,
		logger:   opts.Logger.WithField("resource", string(resource)),
	}
}

// Refetch returns the resource's snapshot, fetching from the remote
// service when staleness rules demand it. Concurrent callers during an
// in-flight fetch, callers inside the debounce window, and callers of a
// fresh snapshot all receive the cached snapshot without a network call.
func (c *Coordinator[T]) Refetch(ctx context.Context, force bool) (store.Snapshot[T], error) {
	snap := c.cell.Get()
	now := c.opts.Clock.Now()

	c.mu.Lock()
	if force {
		// A manual retry clears the terminal-failure latch.
		c.terminal = false
	} else {
		if c.terminal {
			c.mu.Unlock()
			return snap, snap.Err
		}
		if !c.lastCompleted.IsZero() && now.Sub(c.lastCompleted) < c.opts.Debounce {
			c.mu.Unlock()
			return snap, nil
		}
	}
	c.mu.Unlock()

	meta := policy.SnapshotMeta{LastUpdated: snap.LastUpdated, HasInitialized: snap.HasInitialized}
	if !policy.ShouldRefetch(meta, c.opts.TTL, now, force, c.opts.Guard.InFlight(c.resource)) {
		return snap, nil
	}

	if !c.opts.Guard.TryAcquire(c.resource) {
		// Someone else is fetching; hand back whatever is cached.
		return c.cell.Get(), nil
	}
	defer c.opts.Guard.Release(c.resource)

	generation := c.st.Generation()
	c.cell.SetLoading(true)

	// Carry the resource-scoped logger to the transport layer.
	ctx = logging.WithLogger(ctx, c.logger)

	data, err := c.runWithRetry(ctx)
	if err != nil {
		return c.fail(generation, err)
	}
	return c.commit(ctx, generation, data)
}

// runWithRetry performs the fetch with capped exponential backoff. Only
// retriable failures (timeouts, connectivity) burn extra attempts.
func (c *Coordinator[T]) runWithRetry(ctx context.Context) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		data, err := c.fetch(ctx)
		if err == nil {
			if attempt > 0 {
				c.logger.WithField("attempts", attempt+1).Info("fetch succeeded after retry")
			}
			return data, nil
		}
		lastErr = err

		if !errors.IsRetryable(err) || c.opts.Backoff.Exhausted(attempt) {
			return zero, lastErr
		}

		delay := c.opts.Backoff.Delay(attempt)
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("fetch failed, retrying with backoff")

		if err := c.opts.Clock.Sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}
}

// commit replaces the snapshot after a successful fetch, unless a logout
// invalidated the fetch's generation while it was in flight.
func (c *Coordinator[T]) commit(ctx context.Context, generation int64, data T) (store.Snapshot[T], error) {
	if c.st.Generation() != generation {
		c.logger.Debug("discarding fetch completion from a cleared generation")
		c.cell.SetLoading(false)
		return c.cell.Get(), nil
	}

	updatedAt := c.opts.Clock.Now().UnixMilli()
	c.cell.Commit(data, updatedAt)

	c.mu.Lock()
	c.lastCompleted = c.opts.Clock.Now()
	c.terminal = false
	c.mu.Unlock()

	if c.opts.Persist != nil {
		if err := c.opts.Persist(ctx, data, updatedAt); err != nil {
			c.logger.WithError(err).Warn("failed to persist snapshot")
		}
	}
	return c.cell.Get(), nil
}

// fail records the error on the snapshot without clobbering last-known-good
// data. Residual fetches of a logged-out user are dropped silently.
func (c *Coordinator[T]) fail(generation int64, err error) (store.Snapshot[T], error) {
	if c.st.Generation() != generation || errors.KindOf(err) == errors.KindAuth {
		c.cell.SetLoading(false)
		return c.cell.Get(), nil
	}

	c.logger.WithError(err).Error("fetch failed, keeping last-known-good snapshot")
	c.cell.Fail(err)

	c.mu.Lock()
	c.terminal = true
	c.mu.Unlock()

	return c.cell.Get(), err
}
