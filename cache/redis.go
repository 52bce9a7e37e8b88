package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// Redis is a Store backed by a shared Redis server. Keys live under
// "<prefix>:<tier>:". Capacity is left to the server's maxmemory policy.
type Redis struct {
	client *redis.Client
	tier   Tier
	prefix string
	hits   atomic.Uint64
	misses atomic.Uint64
	logger *zap.Logger
}

// NewRedis wraps an existing client. The caller owns the client.
func NewRedis(client *redis.Client, prefix string, tier Tier, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, tier: tier, prefix: prefix, logger: logger}
}

// DialRedis opens a client and pings it.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) namespace() string {
	return r.prefix + ":" + r.tier.Name + ":"
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.namespace()+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("cache get failed", zap.String("tier", r.tier.Name), zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	r.hits.Add(1)
	return data, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.namespace()+key, value, r.tier.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.namespace()+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	return r.deleteMatching(ctx, r.namespace()+"*"+escapeGlob(pattern)+"*")
}

func (r *Redis) Clear(ctx context.Context) error {
	_, err := r.deleteMatching(ctx, r.namespace()+"*")
	return err
}

func (r *Redis) Stats(ctx context.Context) (Stats, error) {
	n, err := r.countMatching(ctx, r.namespace()+"*")
	if err != nil {
		return Stats{}, err
	}
	hits, misses := r.hits.Load(), r.misses.Load()
	return Stats{
		Tier:       r.tier.Name,
		Backend:    "redis",
		Entries:    n,
		Capacity:   r.tier.Capacity,
		TTLSeconds: int(r.tier.TTL / time.Second),
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate(hits, misses),
	}, nil
}

func (r *Redis) deleteMatching(ctx context.Context, match string) (int, error) {
	deleted := 0
	iter := r.client.Scan(ctx, 0, match, defaultScanBatchSize).Iterator()
	batch := make([]string, 0, defaultScanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == defaultScanBatchSize {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (r *Redis) countMatching(ctx context.Context, match string) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, match, defaultScanBatchSize).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ Store = (*Redis)(nil)
