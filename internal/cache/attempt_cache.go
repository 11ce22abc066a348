package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
)

// ErrNoAttempt is returned by Load when nothing is cached for the scope.
var ErrNoAttempt = errors.New("no cached attempt")

// AttemptCache keeps an in-progress attempt so it survives a page reload.
// Scope distinguishes practice from each comprehensive day.
type AttemptCache interface {
	Save(ctx context.Context, studentID int, scope string, attempt *model.CachedAttempt) error
	Load(ctx context.Context, studentID int, scope string) (*model.CachedAttempt, error)
	Delete(ctx context.Context, studentID int, scope string) error
}

// RedisAttemptCache stores attempts as JSON strings with a TTL.
type RedisAttemptCache struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisAttemptCache creates a RedisAttemptCache. A non-positive ttl keeps
// entries until they are deleted.
func NewRedisAttemptCache(rdb *redis.Client, ttl time.Duration) *RedisAttemptCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisAttemptCache{rdb: rdb, ttl: ttl, now: time.Now}
}

var _ AttemptCache = (*RedisAttemptCache)(nil)

func (c *RedisAttemptCache) Save(ctx context.Context, studentID int, scope string, attempt *model.CachedAttempt) error {
	if attempt.CachedAt.IsZero() {
		attempt.CachedAt = c.now().UTC()
	}
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	key := config.CacheKey.AttemptKey(studentID, scope)
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save attempt %s: %w", key, err)
	}
	return nil
}

func (c *RedisAttemptCache) Load(ctx context.Context, studentID int, scope string) (*model.CachedAttempt, error) {
	key := config.CacheKey.AttemptKey(studentID, scope)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoAttempt
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt %s: %w", key, err)
	}

	var attempt model.CachedAttempt
	if err := json.Unmarshal(data, &attempt); err != nil {
		// A corrupt entry can never be restored.
		_ = c.rdb.Del(ctx, key).Err()
		return nil, fmt.Errorf("%w: corrupt entry: %v", ErrNoAttempt, err)
	}
	return &attempt, nil
}

func (c *RedisAttemptCache) Delete(ctx context.Context, studentID int, scope string) error {
	key := config.CacheKey.AttemptKey(studentID, scope)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete attempt %s: %w", key, err)
	}
	return nil
}
