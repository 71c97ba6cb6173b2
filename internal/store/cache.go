// Package store holds the three persistence clients — cache, relational and
// columnar — and the statements the pipeline runs against them. All three
// clients are cloneable handles backed by internal pooling and safe to share
// across tasks.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenTTL bounds the lifetime of token and subscription mappings (~20h).
const TokenTTL = 72000 * time.Second

// Hash keys of the price and progress projections, field-keyed by mint.
const (
	PricesHashKey   = "pf_prices"
	ProgressHashKey = "pf_bonding_curve_progress"
)

// Pub/sub channels of the request/stream surface.
const (
	ReqHandlerChannel = "req_handler"
	CreationChannel   = "creation"
	MigrationChannel  = "migration"
)

// Cache wraps the Redis client with the key discipline of the indexer.
type Cache struct {
	rdb *redis.Client
}

// NewCache connects to Redis using a redis:// URL.
func NewCache(url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Cache{rdb: redis.NewClient(opts)}, nil
}

// Client exposes the underlying handle for pub/sub consumers.
func (c *Cache) Client() *redis.Client {
	return c.rdb
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

/* ========= Token and subscription mappings ========= */

// TokenKey builds a tokens:by_<kind>:<id> key. Kind is one of "mint",
// "bonding_curve", "pool", "pool_state".
func TokenKey(kind, id string) string {
	return fmt.Sprintf("tokens:by_%s:%s", kind, id)
}

// SubscriptionKey builds a subscriptions:by_<kind>:<id> key.
func SubscriptionKey(kind, id string) string {
	return fmt.Sprintf("subscriptions:by_%s:%s", kind, id)
}

// subscriptionSetKey is the per-kind set used to deduplicate already
// subscribed markets.
func subscriptionSetKey(kind string) string {
	return fmt.Sprintf("subscriptions:by_%s:set", kind)
}

// SetWithTTL stores a value under the token TTL.
func (c *Cache) SetWithTTL(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, key, value, TokenTTL).Err()
}

// Get returns the value at key, or "" with found=false when absent.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// MarkSubscribed records an identifier in the per-kind subscription set and
// reports whether it was already present.
func (c *Cache) MarkSubscribed(ctx context.Context, kind, id string) (bool, error) {
	key := subscriptionSetKey(kind)
	already, err := c.rdb.SIsMember(ctx, key, id).Result()
	if err != nil {
		return false, err
	}
	if !already {
		if err := c.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return false, err
		}
	}
	return already, nil
}

// SubscribedMembers lists the identifiers recorded in the per-kind
// subscription set.
func (c *Cache) SubscribedMembers(ctx context.Context, kind string) ([]string, error) {
	return c.rdb.SMembers(ctx, subscriptionSetKey(kind)).Result()
}

/* ========= Hashed projections ========= */

// HGet reads one field of a hash, or "" with found=false when absent.
func (c *Cache) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := c.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// HSet writes one field of a hash.
func (c *Cache) HSet(ctx context.Context, key, field, value string) error {
	return c.rdb.HSet(ctx, key, field, value).Err()
}

/* ========= Pub/sub ========= */

// Publish sends a payload on a channel.
func (c *Cache) Publish(ctx context.Context, channel, payload string) error {
	return c.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription on the given channels.
func (c *Cache) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

/* ========= Rolling new-accounts list ========= */

// PushNewAccount prepends an identifier to the rolling list of recently seen
// markets, trimming it to the configured limit.
func (c *Cache) PushNewAccount(ctx context.Context, key, id string, limit int) error {
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, key, id)
	pipe.LTrim(ctx, key, 0, int64(limit)-1)
	_, err := pipe.Exec(ctx)
	return err
}

// ScanIdentifiers collects the identifier suffixes of keys matching
// prefix+"*" (e.g. every id cached under tokens:by_pool:).
func (c *Cache) ScanIdentifiers(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		out    []string
		seen   = make(map[string]bool)
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			id := k[len(prefix):]
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
