package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/store"
	"github.com/wallet-sync/internal/types"
)

// Reconciler manages optimistic transactions: entries recorded locally
// before server confirmation. Pending entries are promoted into the
// confirmed list (re-keyed to the server's naming convention) or dropped,
// never silently lost. List mutation is read-modify-write on the full
// slice, serialized by mu so overlapping calls cannot lose updates.
type Reconciler struct {
	st     *store.Store
	clk    clock.Clock
	logger *logging.Logger

	mu sync.Mutex
}

// NewReconciler creates a reconciler over the store's pending and
// confirmed transaction cells.
func NewReconciler(st *store.Store, clk clock.Clock, logger *logging.Logger) *Reconciler {
	return &Reconciler{
		st:     st,
		clk:    clk,
		logger: logger.WithField("component", "reconciler"),
	}
}

// AddPending records a locally originated transaction and returns it with
// its assigned collision-resistant ID: provisional id, hash fragment when
// known, and the current time, joined by dashes.
func (r *Reconciler) AddPending(tx models.Transaction) models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	nowMs := r.clk.Now().UnixMilli()

	provisional := tx.ID
	if provisional == "" {
		provisional = uuid.NewString()[:8]
	}
	parts := []string{provisional}
	if tx.Hash != "" {
		parts = append(parts, models.HashFragment(tx.Hash))
	}
	parts = append(parts, fmt.Sprintf("%d", nowMs))

	tx.ID = strings.Join(parts, "-")
	tx.Status = types.TxPending
	if tx.Timestamp == 0 {
		tx.Timestamp = nowMs
	}

	pending := r.st.Pending.Get()
	updated := make([]models.Transaction, 0, len(pending.Data)+1)
	updated = append(updated, tx)
	updated = append(updated, pending.Data...)
	r.st.Pending.Commit(updated, nowMs)

	r.logger.WithField("id", tx.ID).Debug("added pending transaction")
	return tx
}

// UpdatePending applies a patch to a pending transaction. A terminal status
// moves the entry out of the pending list: completed entries are re-keyed
// and promoted into the confirmed list, failed entries are dropped. Any
// other patch merges fields in place. An unknown id is a logged no-op.
func (r *Reconciler) UpdatePending(id string, patch models.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := r.st.Pending.Get()

	idx := -1
	for i := range pending.Data {
		if pending.Data[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.logger.WithField("id", id).Warn("updatePending: unknown transaction id")
		return
	}

	entry := pending.Data[idx].Merge(patch)

	switch patch.Status {
	case types.TxCompleted, types.TxFailed:
		remaining := make([]models.Transaction, 0, len(pending.Data)-1)
		remaining = append(remaining, pending.Data[:idx]...)
		remaining = append(remaining, pending.Data[idx+1:]...)
		r.st.Pending.Commit(remaining, r.clk.Now().UnixMilli())

		if patch.Status == types.TxCompleted {
			r.promote(entry)
		} else {
			r.logger.WithField("id", id).Debug("dropped failed pending transaction")
		}
	default:
		updated := make([]models.Transaction, len(pending.Data))
		copy(updated, pending.Data)
		updated[idx] = entry
		r.st.Pending.Commit(updated, r.clk.Now().UnixMilli())
	}
}

// promote moves a completed pending entry into the confirmed list. When a
// hash is known the ID is re-keyed to <originalPrefix>-<hash fragment> to
// match the server's eventual naming; insertion dedupes by ID so repeated
// promotions with the same hash keep exactly one entry.
func (r *Reconciler) promote(entry models.Transaction) {
	if entry.Hash != "" {
		entry.ID = models.IDPrefix(entry.ID) + "-" + models.HashFragment(entry.Hash)
	}
	entry.Status = types.TxCompleted

	confirmed := r.st.Transactions.Get()
	for i := range confirmed.Data {
		if confirmed.Data[i].ID == entry.ID {
			r.logger.WithField("id", entry.ID).Debug("confirmed entry already present, skipping promotion")
			return
		}
	}

	updated := make([]models.Transaction, 0, len(confirmed.Data)+1)
	updated = append(updated, entry)
	updated = append(updated, confirmed.Data...)
	// Promotion is a local mutation: keep the fetch timestamp so staleness
	// still reflects the last server round-trip.
	r.st.Transactions.Commit(updated, confirmed.LastUpdated)

	r.logger.WithField("id", entry.ID).Debug("promoted pending transaction to confirmed")
}

// All returns the display ordering: pending entries first, then confirmed.
func (r *Reconciler) All() []models.Transaction {
	pending := r.st.Pending.Get().Data
	confirmed := r.st.Transactions.Get().Data

	out := make([]models.Transaction, 0, len(pending)+len(confirmed))
	out = append(out, pending...)
	out = append(out, confirmed...)
	return out
}
