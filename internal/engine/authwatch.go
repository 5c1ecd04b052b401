package engine

import (
	"context"
	"sync"
	"time"

	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/store"
)

// AuthWatcher reacts to authenticated-identity transitions. Login resets
// initialization flags and forces a full refresh after a short settle delay
// so the freshly issued session can propagate; logout synchronously clears
// every snapshot and cancels scheduled retries.
type AuthWatcher struct {
	st         *store.Store
	clk        clock.Clock
	settle     time.Duration
	refetchAll func(ctx context.Context)
	clearDisk  func(ctx context.Context) error
	logger     *logging.Logger

	mu      sync.Mutex
	present bool
	cancel  context.CancelFunc
}

// NewAuthWatcher creates a watcher. refetchAll is invoked (on a fresh
// goroutine) after the settle delay following a login; clearDisk wipes the
// persisted mirror at logout.
func NewAuthWatcher(
	st *store.Store,
	clk clock.Clock,
	settle time.Duration,
	refetchAll func(ctx context.Context),
	clearDisk func(ctx context.Context) error,
	logger *logging.Logger,
) *AuthWatcher {
	return &AuthWatcher{
		st:         st,
		clk:        clk,
		settle:     settle,
		refetchAll: refetchAll,
		clearDisk:  clearDisk,
		logger:     logger.WithField("component", "authwatch"),
	}
}

// SeedPresence primes the watcher's notion of presence without firing a
// transition, used when rehydrating a persisted session at startup.
func (w *AuthWatcher) SeedPresence(present bool) {
	w.mu.Lock()
	w.present = present
	w.mu.Unlock()
}

// HandleChange processes a presence transition. Repeated observations of
// the same presence are no-ops.
func (w *AuthWatcher) HandleChange(present bool) {
	w.mu.Lock()
	if w.present == present {
		w.mu.Unlock()
		return
	}
	w.present = present

	if !present {
		cancel := w.cancel
		w.cancel = nil
		w.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		w.logger.Info("identity cleared, resetting all cached state")
		w.st.ClearAll()
		if w.clearDisk != nil {
			ctx, cancelDisk := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelDisk()
			if err := w.clearDisk(ctx); err != nil {
				w.logger.WithError(err).Warn("failed to clear persisted state")
			}
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("identity established, scheduling full refresh")
	w.st.ResetInitialized()

	go func() {
		if err := w.clk.Sleep(ctx, w.settle); err != nil {
			return
		}
		w.refetchAll(ctx)
	}()
}

// Stop cancels any scheduled refresh.
func (w *AuthWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
