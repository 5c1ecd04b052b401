package persist

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/types"
)

func newTestAdapter(t *testing.T) (*Adapter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewAdapter(NewKVFromClient(client), "walletsync"), mr
}

func TestPersistHydrateRoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	wallets := []models.Wallet{
		{Address: "0x1111111111111111111111111111111111111111", NetworkID: "1", CAIPID: "eip155:1", IsPrimary: true},
	}
	require.NoError(t, Persist(ctx, a, types.ResourceWallets, wallets, 1700000000000))

	got, lastUpdated, ok := Hydrate[[]models.Wallet](ctx, a, types.ResourceWallets)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000000), lastUpdated)
	require.Len(t, got, 1)
	assert.Equal(t, wallets[0].Address, got[0].Address)
	assert.True(t, got[0].IsPrimary)
}

func TestHydrateMissingKeyIsMiss(t *testing.T) {
	a, _ := newTestAdapter(t)

	_, _, ok := Hydrate[[]models.Wallet](context.Background(), a, types.ResourceWallets)
	assert.False(t, ok)
}

func TestHydrateParseFailureIsMiss(t *testing.T) {
	a, mr := newTestAdapter(t)

	require.NoError(t, mr.Set("walletsync:transactions:data", "{not json"))

	_, _, ok := Hydrate[[]models.Transaction](context.Background(), a, types.ResourceTransactions)
	assert.False(t, ok, "parse failure must read as no persisted data")
}

func TestSessionRoundTripAndExpiry(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	session := &models.AuthSession{
		IDToken:       "token",
		SessionExpiry: now.UnixMilli() + 60_000,
		UserAddress:   "0xuser",
		VendorAddress: "0xvendor",
	}
	require.NoError(t, a.SaveSession(ctx, session))

	loaded := a.LoadSession(ctx, now)
	require.NotNil(t, loaded)
	assert.Equal(t, "token", loaded.IDToken)

	// An expired persisted session reads back as absent.
	assert.Nil(t, a.LoadSession(ctx, now.Add(2*time.Minute)))
}

func TestDelegationFlag(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	assert.False(t, a.LoadDelegation(ctx))
	require.NoError(t, a.SaveDelegation(ctx, true))
	assert.True(t, a.LoadDelegation(ctx))
}

func TestClearRemovesNamespace(t *testing.T) {
	a, mr := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, Persist(ctx, a, types.ResourcePortfolio, models.PortfolioSnapshot{}, 1))
	require.NoError(t, a.SaveSession(ctx, &models.AuthSession{IDToken: "t", SessionExpiry: 9_999_999_999_999}))
	require.NoError(t, mr.Set("other:key", "untouched"))

	require.NoError(t, a.Clear(ctx))

	_, _, ok := Hydrate[models.PortfolioSnapshot](ctx, a, types.ResourcePortfolio)
	assert.False(t, ok)
	assert.Nil(t, a.LoadSession(ctx, time.UnixMilli(0)))
	assert.True(t, mr.Exists("other:key"), "keys outside the namespace must survive")
}
