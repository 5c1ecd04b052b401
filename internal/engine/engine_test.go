package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-sync/internal/clock"
	"github.com/wallet-sync/internal/config"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/persist"
	"github.com/wallet-sync/internal/types"
)

type fakeService struct {
	router *mux.Router
	srv    *httptest.Server

	portfolioCalls atomic.Int64
	walletCalls    atomic.Int64
	activityCalls  atomic.Int64
	networkCalls   atomic.Int64
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()

	f := &fakeService{router: mux.NewRouter()}
	f.router.HandleFunc("/aggregated-portfolio", func(w http.ResponseWriter, r *http.Request) {
		f.portfolioCalls.Add(1)
		w.Write([]byte(`{"data": {
			"aggregated_data": {"token_count": 1, "total_price_usd": "42", "total_price_inr": "3500"},
			"group_tokens": [{"id": "eth-1", "symbol": "ETH", "balance": "0.5", "unit_price_usd": "84", "unit_price_inr": "7000"}]
		}}`))
	})
	f.router.HandleFunc("/wallets", func(w http.ResponseWriter, r *http.Request) {
		f.walletCalls.Add(1)
		w.Write([]byte(`{"data": [
			{"address": "0x52908400098527886E0F7030069857D2E4169EE7", "network_id": "1", "network_name": "Ethereum", "network_symbol": "ETH", "is_primary": true}
		]}`))
	})
	f.router.HandleFunc("/portfolio/activity", func(w http.ResponseWriter, r *http.Request) {
		f.activityCalls.Add(1)
		w.Write([]byte(`{"data": {"count": 1, "activity": [
			{"id": "a1", "transfer_type": "SEND", "hash": "0xaaa", "amount": "1", "symbol": "ETH", "timestamp": 1700000000000, "status": true}
		]}}`))
	})
	f.router.HandleFunc("/supported/networks", func(w http.ResponseWriter, r *http.Request) {
		f.networkCalls.Add(1)
		w.Write([]byte(`{"data": [{"id": "1", "name": "Ethereum", "symbol": "ETH", "caip_id": "eip155:1"}]}`))
	})
	f.srv = httptest.NewServer(f.router)
	t.Cleanup(f.srv.Close)
	return f
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:        baseURL,
			RequestTimeout: 2 * time.Second,
			RateLimit:      1000,
			RateBurst:      1000,
			ActivityPage:   50,
		},
		Cache: config.CacheConfig{
			PortfolioTTL:    5 * time.Minute,
			TransactionsTTL: 5 * time.Minute,
			WalletsTTL:      time.Minute,
			NetworksTTL:     time.Minute,
			Debounce:        time.Second,
			SettleDelay:     time.Millisecond,
			KeyPrefix:       "walletsync",
		},
		Retry: config.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     10 * time.Millisecond,
			Multiplier:   2.0,
		},
	}
}

func testAdapter(t *testing.T) *persist.Adapter {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return persist.NewAdapter(persist.NewKVFromClient(client), "walletsync")
}

func TestLoginRefetchesAndMirrorsEverything(t *testing.T) {
	svc := newFakeService(t)
	adapter := testAdapter(t)
	cfg := testConfig(svc.srv.URL)

	e := New(cfg, testLogger(), adapter, clock.Real{})
	defer e.Close()

	e.Login(models.AuthSession{
		IDToken:       "token-1",
		SessionExpiry: time.Now().Add(time.Hour).Unix(), // seconds on purpose
		UserAddress:   "0xuser",
	})

	require.Eventually(t, func() bool {
		return e.Store().Portfolio.Get().HasInitialized &&
			e.Store().Wallets.Get().HasInitialized &&
			e.Store().Transactions.Get().HasInitialized &&
			e.Store().Networks.Get().HasInitialized
	}, 3*time.Second, 10*time.Millisecond, "login refetch never completed")

	assert.EqualValues(t, 1, svc.portfolioCalls.Load())
	assert.EqualValues(t, 1, svc.walletCalls.Load())
	assert.EqualValues(t, 1, svc.activityCalls.Load())
	assert.EqualValues(t, 1, svc.networkCalls.Load())

	snap := e.Store().Portfolio.Get()
	require.NotNil(t, snap.Data.Aggregated)
	assert.Equal(t, "42", snap.Data.Aggregated.TotalPriceUSD.String())

	// Every snapshot must also have landed in the durable mirror.
	ctx := context.Background()
	for _, res := range types.AllResources {
		switch res {
		case types.ResourcePortfolio:
			_, _, ok := persist.Hydrate[models.PortfolioSnapshot](ctx, adapter, res)
			assert.True(t, ok, "portfolio missing from mirror")
		case types.ResourceWallets:
			_, _, ok := persist.Hydrate[[]models.Wallet](ctx, adapter, res)
			assert.True(t, ok, "wallets missing from mirror")
		case types.ResourceTransactions:
			_, _, ok := persist.Hydrate[[]models.Transaction](ctx, adapter, res)
			assert.True(t, ok, "transactions missing from mirror")
		case types.ResourceNetworks:
			_, _, ok := persist.Hydrate[[]models.Network](ctx, adapter, res)
			assert.True(t, ok, "networks missing from mirror")
		}
	}

	sess := adapter.LoadSession(ctx, time.Now())
	require.NotNil(t, sess)
	assert.Equal(t, "token-1", sess.IDToken)
	assert.Greater(t, sess.SessionExpiry, int64(1_000_000_000_000), "expiry must be normalized to ms")
}

func TestRestartRehydratesWithoutNetwork(t *testing.T) {
	svc := newFakeService(t)
	adapter := testAdapter(t)
	cfg := testConfig(svc.srv.URL)

	first := New(cfg, testLogger(), adapter, clock.Real{})
	first.Login(models.AuthSession{
		IDToken:       "token-1",
		SessionExpiry: time.Now().Add(time.Hour).UnixMilli(),
		UserAddress:   "0xuser",
	})
	require.Eventually(t, func() bool {
		return first.Store().Wallets.Get().HasInitialized
	}, 3*time.Second, 10*time.Millisecond)
	first.Close()

	callsBefore := svc.walletCalls.Load()

	second := New(cfg, testLogger(), adapter, clock.Real{})
	defer second.Close()

	require.NotNil(t, second.Session(), "session must survive a restart")

	snap, err := second.Wallets(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", snap.Data[0].Address)
	assert.Equal(t, callsBefore, svc.walletCalls.Load(), "fresh rehydrated data must not hit the network")
}

func TestLogoutClearsMemoryAndMirror(t *testing.T) {
	svc := newFakeService(t)
	adapter := testAdapter(t)
	cfg := testConfig(svc.srv.URL)

	e := New(cfg, testLogger(), adapter, clock.Real{})
	defer e.Close()

	e.Login(models.AuthSession{
		IDToken:       "token-1",
		SessionExpiry: time.Now().Add(time.Hour).UnixMilli(),
		UserAddress:   "0xuser",
	})
	require.Eventually(t, func() bool {
		return e.Store().Wallets.Get().HasInitialized
	}, 3*time.Second, 10*time.Millisecond)

	e.AddPendingTransaction(models.Transaction{ID: "tmp1", Hash: "0xdead"})
	e.Logout()

	assert.Nil(t, e.Session())
	assert.Empty(t, e.Store().Wallets.Get().Data)
	assert.Empty(t, e.ActivityFeed())

	ctx := context.Background()
	_, _, ok := persist.Hydrate[[]models.Wallet](ctx, adapter, types.ResourceWallets)
	assert.False(t, ok, "mirror must be wiped at logout")
	assert.Nil(t, adapter.LoadSession(ctx, time.Now()))
}

func TestDelegationFlagRoundTrip(t *testing.T) {
	svc := newFakeService(t)
	adapter := testAdapter(t)
	cfg := testConfig(svc.srv.URL)

	e := New(cfg, testLogger(), adapter, clock.Real{})
	assert.False(t, e.DelegationEnabled())
	e.SetDelegationEnabled(context.Background(), true)
	assert.True(t, e.DelegationEnabled())
	e.Close()

	again := New(cfg, testLogger(), adapter, clock.Real{})
	defer again.Close()
	assert.True(t, again.DelegationEnabled(), "delegation flag must survive a restart")
}
