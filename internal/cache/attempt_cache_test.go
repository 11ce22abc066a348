package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, ttl time.Duration) (*RedisAttemptCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisAttemptCache(rdb, ttl), mr
}

func sampleAttempt() *model.CachedAttempt {
	d := 900
	return &model.CachedAttempt{
		SessionID:       "s1",
		DurationSeconds: &d,
		Questions: []model.Question{
			{ID: "q1", Content: "2+2", SubjectName: "Math", Options: []model.Option{{ID: "a", Content: "4"}}},
		},
	}
}

func TestSaveLoadDelete(t *testing.T) {
	c, _ := newCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, 7, config.PracticeScope, sampleAttempt()))

	got, err := c.Load(ctx, 7, config.PracticeScope)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 900, *got.DurationSeconds)
	assert.Len(t, got.Questions, 1)
	assert.False(t, got.CachedAt.IsZero())

	_, err = c.Load(ctx, 8, config.PracticeScope)
	assert.ErrorIs(t, err, ErrNoAttempt)

	require.NoError(t, c.Delete(ctx, 7, config.PracticeScope))
	_, err = c.Load(ctx, 7, config.PracticeScope)
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestScopesAreIndependent(t *testing.T) {
	c, _ := newCache(t, time.Hour)
	ctx := context.Background()

	day1 := config.CacheKey.ComprehensiveScope("run", 1)
	day2 := config.CacheKey.ComprehensiveScope("run", 2)
	a := sampleAttempt()
	require.NoError(t, c.Save(ctx, 7, day1, a))

	_, err := c.Load(ctx, 7, day2)
	assert.ErrorIs(t, err, ErrNoAttempt)
	_, err = c.Load(ctx, 7, config.PracticeScope)
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestTTLExpires(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Save(ctx, 7, config.PracticeScope, sampleAttempt()))

	mr.FastForward(2 * time.Minute)
	_, err := c.Load(ctx, 7, config.PracticeScope)
	assert.ErrorIs(t, err, ErrNoAttempt)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	c, mr := newCache(t, time.Hour)
	ctx := context.Background()
	key := config.CacheKey.AttemptKey(7, config.PracticeScope)
	require.NoError(t, mr.Set(key, "{broken"))

	_, err := c.Load(ctx, 7, config.PracticeScope)
	assert.ErrorIs(t, err, ErrNoAttempt)
	assert.False(t, mr.Exists(key))
}

func TestRunStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewRedisRunStore(rdb, 24*time.Hour)
	ctx := context.Background()

	_, err := store.LoadRun(ctx, 7, "missing")
	assert.ErrorIs(t, err, ErrNoRun)

	run := &model.ComprehensiveRun{
		RunID:      "r1",
		StudentID:  7,
		Template:   model.StartSessionRequest{SubjectIDs: []int{1}, QuestionCount: 5},
		DayResults: []model.ComprehensiveDay{{Day: 1}, {Day: 2}},
	}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.LoadRun(ctx, 7, "r1")
	require.NoError(t, err)
	assert.Equal(t, run.DayResults, got.DayResults)
	assert.Equal(t, 5, got.Template.QuestionCount)

	_, err = store.LoadRun(ctx, 8, "r1")
	assert.ErrorIs(t, err, ErrNoRun)
}
