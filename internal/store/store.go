// Package store holds the process-wide reactive state: one subscribable
// Snapshot cell per synchronized resource. The store is an explicit,
// constructed container passed by reference; there is no package-level
// instance.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/wallet-sync/internal/models"
)

// Snapshot is the full cached state of one resource at a point in time.
// A LastUpdated of 0 means the resource was never successfully fetched.
type Snapshot[T any] struct {
	Data           T
	LastUpdated    int64 // epoch ms
	Err            error
	IsLoading      bool
	HasInitialized bool
}

// Resource is a subscribable snapshot cell. All mutation goes through its
// setters; writers commit a full new value, so subscribers never observe a
// torn read. Notification is synchronous and fires after the commit.
type Resource[T any] struct {
	mu      sync.Mutex
	snap    Snapshot[T]
	subs    map[int]func(Snapshot[T])
	nextSub int
}

// NewResource creates an empty resource cell.
func NewResource[T any]() *Resource[T] {
	return &Resource[T]{subs: make(map[int]func(Snapshot[T]))}
}

// Get returns the current snapshot.
func (r *Resource[T]) Get() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Subscribe registers a listener invoked after every committed change and
// returns its unsubscribe function.
func (r *Resource[T]) Subscribe(fn func(Snapshot[T])) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// apply commits a mutation and notifies subscribers with the committed value.
// Listeners run outside the lock so they may call Get or Subscribe.
func (r *Resource[T]) apply(mutate func(*Snapshot[T])) {
	r.mu.Lock()
	mutate(&r.snap)
	committed := r.snap
	listeners := make([]func(Snapshot[T]), 0, len(r.subs))
	for _, fn := range r.subs {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(committed)
	}
}

// Commit replaces the data after a successful fetch, stamping it and
// clearing any recorded error.
func (r *Resource[T]) Commit(data T, updatedAt int64) {
	r.apply(func(s *Snapshot[T]) {
		s.Data = data
		s.LastUpdated = updatedAt
		s.Err = nil
		s.IsLoading = false
		s.HasInitialized = true
	})
}

// Fail records a fetch error without discarding the last-known-good data.
func (r *Resource[T]) Fail(err error) {
	r.apply(func(s *Snapshot[T]) {
		s.Err = err
		s.IsLoading = false
		s.HasInitialized = true
	})
}

// SetLoading flips the in-progress flag.
func (r *Resource[T]) SetLoading(loading bool) {
	r.apply(func(s *Snapshot[T]) {
		s.IsLoading = loading
	})
}

// Seed pre-populates the cell from persisted state. Seeded data counts as
// initialized; staleness rules decide whether it still needs a refetch.
func (r *Resource[T]) Seed(data T, updatedAt int64) {
	r.apply(func(s *Snapshot[T]) {
		s.Data = data
		s.LastUpdated = updatedAt
		s.HasInitialized = updatedAt > 0
	})
}

// Reset clears the cell back to its empty value.
func (r *Resource[T]) Reset() {
	r.apply(func(s *Snapshot[T]) {
		*s = Snapshot[T]{}
	})
}

// ResetInitialized drops only the initialization flag, forcing the next
// refetch decision to fetch while keeping displayable data in place.
func (r *Resource[T]) ResetInitialized() {
	r.apply(func(s *Snapshot[T]) {
		s.HasInitialized = false
	})
}

// Store aggregates every resource cell the engine synchronizes plus the
// optimistic pending-transaction list.
type Store struct {
	Portfolio    *Resource[models.PortfolioSnapshot]
	Wallets      *Resource[[]models.Wallet]
	Transactions *Resource[[]models.Transaction]
	Networks     *Resource[[]models.Network]
	Pending      *Resource[[]models.Transaction]

	generation atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Portfolio:    NewResource[models.PortfolioSnapshot](),
		Wallets:      NewResource[[]models.Wallet](),
		Transactions: NewResource[[]models.Transaction](),
		Networks:     NewResource[[]models.Network](),
		Pending:      NewResource[[]models.Transaction](),
	}
}

// Generation returns the store's logout epoch. A fetch started under an
// older generation must not commit its result.
func (s *Store) Generation() int64 {
	return s.generation.Load()
}

// ClearAll resets every cell and bumps the generation so in-flight fetch
// completions from before the clear are discarded.
func (s *Store) ClearAll() {
	s.generation.Add(1)
	s.Portfolio.Reset()
	s.Wallets.Reset()
	s.Transactions.Reset()
	s.Networks.Reset()
	s.Pending.Reset()
}

// ResetInitialized drops the initialization flag on every fetched resource,
// used at login to force a full refresh.
func (s *Store) ResetInitialized() {
	s.Portfolio.ResetInitialized()
	s.Wallets.ResetInitialized()
	s.Transactions.ResetInitialized()
	s.Networks.ResetInitialized()
}
