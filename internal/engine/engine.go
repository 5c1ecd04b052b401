// Package engine wires the wallet sync components into one constructed
// object: staleness-aware fetch coordination, the reactive store, the
// optimistic transaction reconciler, auth transitions and the persisted
// mirror. UI code talks to the Engine; everything underneath is internal.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/wallet-sync/internal/backoff"
	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/config"
	"github.com/wallet-sync/internal/logging"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/persist"
	"github.com/wallet-sync/internal/store"
	"github.com/wallet-sync/internal/transport"
	"github.com/wallet-sync/internal/types"
)

// Engine is the root synchronization object
type Engine struct {
	cfg        *config.Config
	logger     *logging.Logger
	st         *store.Store
	adapter    *persist.Adapter // nil disables the persisted mirror
	client     *transport.Client
	clk        clock.Clock
	reconciler *Reconciler
	watcher    *AuthWatcher

	portfolio    *Coordinator[models.PortfolioSnapshot]
	wallets      *Coordinator[[]models.Wallet]
	transactions *Coordinator[[]models.Transaction]
	networks     *Coordinator[[]models.Network]

	sessionMu  sync.RWMutex
	session    *models.AuthSession
	delegation bool
}

// New constructs and hydrates an engine. The adapter may be nil, in which
// case nothing is mirrored to durable storage.
func New(cfg *config.Config, logger *logging.Logger, adapter *persist.Adapter, clk clock.Clock) *Engine {
	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		st:      store.New(),
		adapter: adapter,
		clk:     clk,
	}

	e.client = transport.NewClient(&cfg.API, e, e.Logout, clk, logger)
	e.reconciler = NewReconciler(e.st, clk, logger)

	guard := NewInFlightGuard()
	retryPolicy := backoff.Policy{
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   cfg.Retry.Multiplier,
		MaxAttempts:  cfg.Retry.MaxAttempts,
	}
	base := CoordinatorOptions{
		Debounce: cfg.Cache.Debounce,
		Backoff:  retryPolicy,
		Guard:    guard,
		Clock:    clk,
		Logger:   logger,
	}

	e.portfolio = NewCoordinator(types.ResourcePortfolio, e.st.Portfolio, e.st,
		e.client.FetchPortfolio,
		e.withPersist(types.ResourcePortfolio, base, cfg.Cache.PortfolioTTL))

	e.wallets = NewCoordinator(types.ResourceWallets, e.st.Wallets, e.st,
		e.client.FetchWallets,
		e.withPersist(types.ResourceWallets, base, cfg.Cache.WalletsTTL))

	e.transactions = NewCoordinator(types.ResourceTransactions, e.st.Transactions, e.st,
		func(ctx context.Context) ([]models.Transaction, error) {
			txs, _, err := e.client.FetchActivity(ctx, 1, cfg.API.ActivityPage)
			return txs, err
		},
		e.withPersist(types.ResourceTransactions, base, cfg.Cache.TransactionsTTL))

	e.networks = NewCoordinator(types.ResourceNetworks, e.st.Networks, e.st,
		e.client.FetchNetworks,
		e.withPersist(types.ResourceNetworks, base, cfg.Cache.NetworksTTL))

	e.watcher = NewAuthWatcher(e.st, clk, cfg.Cache.SettleDelay, e.refetchAll, e.clearDisk, logger)

	e.hydrate()
	return e
}

// withPersist clones the base options with a resource TTL and mirror hook.
func (e *Engine) withPersist(res types.ResourceID, base CoordinatorOptions, ttl time.Duration) CoordinatorOptions {
	base.TTL = ttl
	if e.adapter != nil {
		base.Persist = func(ctx context.Context, data any, updatedAt int64) error {
			return persist.Persist(ctx, e.adapter, res, data, updatedAt)
		}
	}
	return base
}

// hydrate pre-seeds the store and session from the persisted mirror so the
// UI has data before the first network round-trip completes.
func (e *Engine) hydrate() {
	if e.adapter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if data, ts, ok := persist.Hydrate[models.PortfolioSnapshot](ctx, e.adapter, types.ResourcePortfolio); ok {
		e.st.Portfolio.Seed(data, ts)
	}
	if data, ts, ok := persist.Hydrate[[]models.Wallet](ctx, e.adapter, types.ResourceWallets); ok {
		e.st.Wallets.Seed(data, ts)
	}
	if data, ts, ok := persist.Hydrate[[]models.Transaction](ctx, e.adapter, types.ResourceTransactions); ok {
		e.st.Transactions.Seed(data, ts)
	}
	if data, ts, ok := persist.Hydrate[[]models.Network](ctx, e.adapter, types.ResourceNetworks); ok {
		e.st.Networks.Seed(data, ts)
	}

	e.delegation = e.adapter.LoadDelegation(ctx)

	if session := e.adapter.LoadSession(ctx, e.clk.Now()); session != nil {
		e.session = session
		e.watcher.SeedPresence(true)
		e.logger.WithField("user", session.UserAddress).Info("rehydrated persisted session")
	}
}

// Session returns the current auth session; nil when logged out. Implements
// transport.SessionProvider.
func (e *Engine) Session() *models.AuthSession {
	e.sessionMu.RLock()
	defer e.sessionMu.RUnlock()
	return e.session
}

// Login installs a freshly issued session and triggers the login
// transition: initialization flags reset and a forced refresh of every
// resource after the settle delay.
func (e *Engine) Login(session models.AuthSession) {
	session.SessionExpiry = models.NormalizeExpiry(session.SessionExpiry)

	e.sessionMu.Lock()
	e.session = &session
	e.sessionMu.Unlock()

	if e.adapter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.adapter.SaveSession(ctx, &session); err != nil {
			e.logger.WithError(err).Warn("failed to persist session")
		}
	}

	e.watcher.HandleChange(true)
}

// Logout drops the session and clears every snapshot, pending transaction,
// persisted key and scheduled retry. Also invoked by the transport when the
// server rejects the session.
func (e *Engine) Logout() {
	e.sessionMu.Lock()
	hadSession := e.session != nil
	e.session = nil
	e.sessionMu.Unlock()

	if !hadSession {
		return
	}
	e.watcher.HandleChange(false)
}

// Store exposes the reactive store for subscription by UI adapters.
func (e *Engine) Store() *store.Store {
	return e.st
}

// Portfolio returns the portfolio snapshot, refetching when stale or forced.
func (e *Engine) Portfolio(ctx context.Context, force bool) (store.Snapshot[models.PortfolioSnapshot], error) {
	return e.portfolio.Refetch(ctx, force)
}

// Wallets returns the wallet list snapshot.
func (e *Engine) Wallets(ctx context.Context, force bool) (store.Snapshot[[]models.Wallet], error) {
	return e.wallets.Refetch(ctx, force)
}

// Transactions returns the confirmed activity snapshot.
func (e *Engine) Transactions(ctx context.Context, force bool) (store.Snapshot[[]models.Transaction], error) {
	return e.transactions.Refetch(ctx, force)
}

// Networks returns the supported-network snapshot.
func (e *Engine) Networks(ctx context.Context, force bool) (store.Snapshot[[]models.Network], error) {
	return e.networks.Refetch(ctx, force)
}

// ActivityFeed returns the display ordering of transactions: pending
// entries first, then confirmed.
func (e *Engine) ActivityFeed() []models.Transaction {
	return e.reconciler.All()
}

// AddPendingTransaction records a locally originated transaction before any
// server round-trip and returns it with its assigned ID.
func (e *Engine) AddPendingTransaction(tx models.Transaction) models.Transaction {
	return e.reconciler.AddPending(tx)
}

// UpdatePendingTransaction patches a pending transaction; terminal statuses
// promote or drop it.
func (e *Engine) UpdatePendingTransaction(id string, patch models.Transaction) {
	e.reconciler.UpdatePending(id, patch)
}

// DelegationEnabled reports the persisted delegation flag.
func (e *Engine) DelegationEnabled() bool {
	e.sessionMu.RLock()
	defer e.sessionMu.RUnlock()
	return e.delegation
}

// SetDelegationEnabled flips and persists the delegation flag.
func (e *Engine) SetDelegationEnabled(ctx context.Context, enabled bool) {
	e.sessionMu.Lock()
	e.delegation = enabled
	e.sessionMu.Unlock()

	if e.adapter != nil {
		if err := e.adapter.SaveDelegation(ctx, enabled); err != nil {
			e.logger.WithError(err).Warn("failed to persist delegation flag")
		}
	}
}

// Close cancels any scheduled work.
func (e *Engine) Close() {
	e.watcher.Stop()
}

// refetchAll force-refreshes every resource, in dependency order.
func (e *Engine) refetchAll(ctx context.Context) {
	if _, err := e.wallets.Refetch(ctx, true); err != nil {
		e.logger.WithError(err).Warn("wallet refresh failed")
	}
	if _, err := e.networks.Refetch(ctx, true); err != nil {
		e.logger.WithError(err).Warn("network refresh failed")
	}
	if _, err := e.portfolio.Refetch(ctx, true); err != nil {
		e.logger.WithError(err).Warn("portfolio refresh failed")
	}
	if _, err := e.transactions.Refetch(ctx, true); err != nil {
		e.logger.WithError(err).Warn("transaction refresh failed")
	}
}

// clearDisk wipes the persisted mirror at logout.
func (e *Engine) clearDisk(ctx context.Context) error {
	if e.adapter == nil {
		return nil
	}
	return e.adapter.Clear(ctx)
}
