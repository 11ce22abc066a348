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

// ErrNoRun is returned by LoadRun when the run is unknown or expired.
var ErrNoRun = errors.New("comprehensive run not found")

// RunStore keeps comprehensive run progress between days.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.ComprehensiveRun) error
	LoadRun(ctx context.Context, studentID int, runID string) (*model.ComprehensiveRun, error)
}

// RedisRunStore stores runs as JSON strings. Runs span days, so the TTL is
// expected to be much longer than the attempt TTL.
type RedisRunStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRunStore(rdb *redis.Client, ttl time.Duration) *RedisRunStore {
	return &RedisRunStore{rdb: rdb, ttl: ttl}
}

var _ RunStore = (*RedisRunStore)(nil)

func (s *RedisRunStore) SaveRun(ctx context.Context, run *model.ComprehensiveRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	key := config.CacheKey.ComprehensiveRunKey(run.StudentID, run.RunID)
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

func (s *RedisRunStore) LoadRun(ctx context.Context, studentID int, runID string) (*model.ComprehensiveRun, error) {
	key := config.CacheKey.ComprehensiveRunKey(studentID, runID)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", key, err)
	}

	var run model.ComprehensiveRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", key, err)
	}
	return &run, nil
}
