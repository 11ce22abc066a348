package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // BLPOP rejects sub-second timeouts
)

// ResultStore is the persistence side of the archive worker.
type ResultStore interface {
	BulkInsert(ctx context.Context, batch []*model.ArchivedResult) error
	Insert(ctx context.Context, res *model.ArchivedResult) error
}

// ResultArchiveWorker drains persist_results_queue into the practice history.
type ResultArchiveWorker struct {
	store ResultStore
	rdb   *redis.Client
	log   zerolog.Logger

	// requeueBackoff is slept after pushing failed rows back, so a database
	// outage does not turn into a hot loop.
	requeueBackoff time.Duration
}

func NewResultArchiveWorker(store ResultStore, rdb *redis.Client, log zerolog.Logger) *ResultArchiveWorker {
	return &ResultArchiveWorker{
		store:          store,
		rdb:            rdb,
		log:            log.With().Str("component", "result_archive_worker").Logger(),
		requeueBackoff: 2 * time.Second,
	}
}

// Enqueue pushes a finalized result onto the archive queue.
func Enqueue(ctx context.Context, rdb *redis.Client, res *model.ArchivedResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, data).Err()
}

// ResultQueue is the producer side of the archive queue.
type ResultQueue struct {
	rdb *redis.Client
}

func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb}
}

// Archive queues res for the worker.
func (q *ResultQueue) Archive(ctx context.Context, res *model.ArchivedResult) error {
	return Enqueue(ctx, q.rdb, res)
}

// Start runs the worker loop until ctx is cancelled. Call in a goroutine.
func (w *ResultArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Result archive worker started")

	buffer := make([]*model.ArchivedResult, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		res, ok := w.poll(ctx)
		if ok {
			buffer = append(buffer, res)
		}
	}
}

// poll waits up to PollTimeout for one queued result.
func (w *ResultArchiveWorker) poll(ctx context.Context) (*model.ArchivedResult, bool) {
	result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, false
		}
		w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
		sleepCtx(ctx, 3*time.Second)
		return nil, false
	}
	if len(result) < 2 {
		return nil, false
	}

	var res model.ArchivedResult
	if err := json.Unmarshal([]byte(result[1]), &res); err != nil {
		// Malformed entries can never succeed; drop them.
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed result")
		return nil, false
	}
	return &res, true
}

// flushSafe tries a bulk insert, then row-by-row, then requeues what is left.
func (w *ResultArchiveWorker) flushSafe(ctx context.Context, batch []*model.ArchivedResult) {
	err := w.store.BulkInsert(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Archived results")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	var requeue []*model.ArchivedResult
	for _, res := range batch {
		if err := w.store.Insert(ctx, res); err != nil {
			w.log.Error().Err(err).
				Int("student_id", res.StudentID).
				Str("session_id", res.Result.SessionID).
				Msg("Insert failed, requeueing")
			requeue = append(requeue, res)
		}
	}
	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *ResultArchiveWorker) requeue(ctx context.Context, items []*model.ArchivedResult) {
	// The worker context may already be cancelled during shutdown.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	pipe := w.rdb.Pipeline()
	for _, res := range items {
		data, _ := json.Marshal(res)
		pipe.RPush(pushCtx, config.WorkerKey.PersistResultsQueue, data)
	}
	if _, err := pipe.Exec(pushCtx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: failed to requeue results, data lost")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed results")
	sleepCtx(ctx, w.requeueBackoff)
}

func (w *ResultArchiveWorker) shutdown(buffer []*model.ArchivedResult) {
	w.log.Info().Int("buffered", len(buffer)).Msg("Result archive worker stopping, flushing buffer")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
	w.log.Info().Msg("Result archive worker stopped")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
