package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oggyb/vivahvows/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // cache miss
	}
	return val, err
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForSuggestions builds a stable digest key for a user's suggestion
// query. Params are normalized (sorted by name, values joined) before
// hashing, so parameter order in the URL never produces a second key.
func (c *RedisCache) KeyForSuggestions(userID uint64, params map[string][]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("suggestions:")
	sb.WriteString(strconv.FormatUint(userID, 10))
	for _, name := range names {
		vals := append([]string(nil), params[name]...)
		sort.Strings(vals)
		sb.WriteString(":")
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(strings.Join(vals, ","))
	}

	sum := md5.Sum([]byte(sb.String()))
	return "suggestions:" + hex.EncodeToString(sum[:])
}

// KeyForUnreadCount generates the Redis key for a user's unread
// notification counter.
func (c *RedisCache) KeyForUnreadCount(userID uint64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

func (c *RedisCache) UpdateUnreadCount(ctx context.Context, userID uint64, count int64) error {
	key := c.KeyForUnreadCount(userID)
	// Always refresh TTL when updating
	return c.Client.Set(ctx, key, count, time.Hour).Err()
}

func (c *RedisCache) GetUnreadCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForUnreadCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	return n, err == nil, err
}
