// Package persist mirrors selected store slices to a durable key/value
// store so a cold start can pre-seed the in-memory store before the first
// network round-trip completes. The store stays the source of truth;
// everything here is best-effort and advisory.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-sync/internal/config"
	"github.com/wallet-sync/internal/models"
	"github.com/wallet-sync/internal/types"
)

// KV wraps the Redis client used as the local durable store
type KV struct {
	client *redis.Client
}

// NewKV creates a Redis connection and verifies it with a ping.
func NewKV(cfg *config.RedisConfig) (*KV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &KV{client: client}, nil
}

// NewKVFromClient wraps an existing client, mainly for tests.
func NewKVFromClient(client *redis.Client) *KV {
	return &KV{client: client}
}

// Close closes the underlying connection.
func (kv *KV) Close() error {
	if kv.client != nil {
		return kv.client.Close()
	}
	return nil
}

// Adapter serializes snapshots under namespaced keys.
// Key format: <prefix>:<resource>:data
type Adapter struct {
	kv     *KV
	prefix string
}

// NewAdapter creates a persistence adapter with the given key namespace.
func NewAdapter(kv *KV, prefix string) *Adapter {
	if prefix == "" {
		prefix = "walletsync"
	}
	return &Adapter{kv: kv, prefix: prefix}
}

func (a *Adapter) key(parts ...string) string {
	return strings.Join(append([]string{a.prefix}, parts...), ":")
}

// snapshotBlob is the serialized form of one persisted resource slice
type snapshotBlob[T any] struct {
	Data        T     `json:"data"`
	LastUpdated int64 `json:"lastUpdated"` // epoch ms
}

// Persist writes one resource slice. Failures are returned so callers can
// log them, but must never abort the sync path.
func Persist[T any](ctx context.Context, a *Adapter, res types.ResourceID, data T, lastUpdated int64) error {
	blob, err := json.Marshal(snapshotBlob[T]{Data: data, LastUpdated: lastUpdated})
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", res, err)
	}
	return a.kv.client.Set(ctx, a.key(string(res), "data"), blob, 0).Err()
}

// Hydrate reads one resource slice back. A missing key or an unparsable
// blob is a plain miss, never an error.
func Hydrate[T any](ctx context.Context, a *Adapter, res types.ResourceID) (T, int64, bool) {
	var zero T

	raw, err := a.kv.client.Get(ctx, a.key(string(res), "data")).Result()
	if err != nil {
		return zero, 0, false
	}

	var blob snapshotBlob[T]
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return zero, 0, false
	}
	return blob.Data, blob.LastUpdated, true
}

// Drop removes one persisted resource slice.
func (a *Adapter) Drop(ctx context.Context, res types.ResourceID) error {
	return a.kv.client.Del(ctx, a.key(string(res), "data")).Err()
}

// SaveSession persists the auth session.
func (a *Adapter) SaveSession(ctx context.Context, session *models.AuthSession) error {
	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return a.kv.client.Set(ctx, a.key("session"), blob, 0).Err()
}

// LoadSession reads the persisted session. Absent, unparsable or expired
// sessions all come back as nil.
func (a *Adapter) LoadSession(ctx context.Context, now time.Time) *models.AuthSession {
	raw, err := a.kv.client.Get(ctx, a.key("session")).Result()
	if err != nil {
		return nil
	}

	var session models.AuthSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil
	}
	if !session.Valid(now) {
		return nil
	}
	return &session
}

// SaveDelegation persists the delegation-enabled flag.
func (a *Adapter) SaveDelegation(ctx context.Context, enabled bool) error {
	return a.kv.client.Set(ctx, a.key("delegation"), enabled, 0).Err()
}

// LoadDelegation reads the delegation-enabled flag, defaulting to false.
func (a *Adapter) LoadDelegation(ctx context.Context) bool {
	enabled, err := a.kv.client.Get(ctx, a.key("delegation")).Bool()
	if err != nil {
		return false
	}
	return enabled
}

// Clear removes every persisted key in the namespace, used at logout.
func (a *Adapter) Clear(ctx context.Context) error {
	keys, err := a.kv.client.Keys(ctx, a.prefix+":*").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return a.kv.client.Del(ctx, keys...).Err()
}
