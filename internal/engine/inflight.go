package engine

import (
	"sync"

	"github.com/wallet-sync/internal/types"
)

// InFlightGuard enforces at-most-one in-flight fetch per resource. The
// guard is the single authority on fetch concurrency; callers that fail to
// acquire fall back to the cached snapshot.
type InFlightGuard struct {
	mu       sync.Mutex
	inflight map[types.ResourceID]bool
}

// NewInFlightGuard creates an empty guard.
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{inflight: make(map[types.ResourceID]bool)}
}

// TryAcquire marks the resource in flight. Returns false when a fetch is
// already running for it.
func (g *InFlightGuard) TryAcquire(res types.ResourceID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[res] {
		return false
	}
	g.inflight[res] = true
	return true
}

// Release clears the in-flight mark.
func (g *InFlightGuard) Release(res types.ResourceID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, res)
}

// InFlight reports whether a fetch is currently running for the resource.
func (g *InFlightGuard) InFlight(res types.ResourceID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight[res]
}
