package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	bulkErr   error
	failIDs   map[string]bool
	bulkCalls int
	saved     []string
}

func (s *fakeStore) BulkInsert(_ context.Context, batch []*model.ArchivedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	if s.bulkErr != nil {
		return s.bulkErr
	}
	for _, r := range batch {
		s.saved = append(s.saved, r.ID)
	}
	return nil
}

func (s *fakeStore) Insert(_ context.Context, r *model.ArchivedResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[r.ID] {
		return errors.New("insert failed")
	}
	s.saved = append(s.saved, r.ID)
	return nil
}

func (s *fakeStore) savedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func archived(id string) *model.ArchivedResult {
	return &model.ArchivedResult{
		ID:          id,
		StudentID:   7,
		Result:      model.ResultSet{SessionID: "s-" + id, Grade: model.GradeA, PerSubject: []model.SubjectScore{}},
		CompletedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestWorkerArchivesQueuedResults(t *testing.T) {
	_, rdb := newRedis(t)
	store := &fakeStore{}
	w := NewResultArchiveWorker(store, rdb, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, Enqueue(ctx, rdb, archived("r1")))
	require.NoError(t, Enqueue(ctx, rdb, archived("r2")))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Start(runCtx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		n, _ := rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
		return n == 0
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	assert.ElementsMatch(t, []string{"r1", "r2"}, store.savedIDs())
}

func TestFlushFallsBackAndRequeues(t *testing.T) {
	_, rdb := newRedis(t)
	store := &fakeStore{bulkErr: errors.New("copy failed"), failIDs: map[string]bool{"r2": true}}
	w := NewResultArchiveWorker(store, rdb, zerolog.Nop())
	w.requeueBackoff = 0

	ctx := context.Background()
	w.flushSafe(ctx, []*model.ArchivedResult{archived("r1"), archived("r2"), archived("r3")})

	assert.Equal(t, []string{"r1", "r3"}, store.savedIDs())

	items, err := rdb.LRange(ctx, config.WorkerKey.PersistResultsQueue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 1)

	var res model.ArchivedResult
	require.NoError(t, json.Unmarshal([]byte(items[0]), &res))
	assert.Equal(t, "r2", res.ID)
}

func TestPollDiscardsMalformed(t *testing.T) {
	_, rdb := newRedis(t)
	w := NewResultArchiveWorker(&fakeStore{}, rdb, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, "{not json").Err())

	res, ok := w.poll(ctx)
	assert.False(t, ok)
	assert.Nil(t, res)

	n, err := rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestShutdownFlushesBuffer(t *testing.T) {
	_, rdb := newRedis(t)
	store := &fakeStore{}
	w := NewResultArchiveWorker(store, rdb, zerolog.Nop())

	w.shutdown([]*model.ArchivedResult{archived("r9")})
	assert.Equal(t, []string{"r9"}, store.savedIDs())
}
