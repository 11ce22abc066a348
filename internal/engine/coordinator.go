package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSubmitConcurrency = 4
	DefaultRetryPasses       = 1
)

// CoordinatorConfig tunes batch submission.
type CoordinatorConfig struct {
	// Concurrency bounds the number of in-flight RecordAnswer calls.
	Concurrency int
	// RetryPasses is how many extra passes are made over failed answers.
	RetryPasses int
}

// Coordinator turns an answer snapshot into remote calls and finalizes the attempt.
type Coordinator struct {
	gw  SubmissionGateway
	cfg CoordinatorConfig
	log zerolog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(gw SubmissionGateway, cfg CoordinatorConfig, log zerolog.Logger) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSubmitConcurrency
	}
	if cfg.RetryPasses < 0 {
		cfg.RetryPasses = 0
	}
	return &Coordinator{
		gw:  gw,
		cfg: cfg,
		log: log.With().Str("component", "submission_coordinator").Logger(),
	}
}

// SubmitAll records every answered record of the snapshot. Failures are logged
// and counted but never abort the batch. It returns the number of answers that
// still failed after all retry passes.
func (c *Coordinator) SubmitAll(ctx context.Context, sessionID string, snapshot []model.AnswerRecord) int {
	pending := make([]model.AnswerRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if rec.Answered() {
			pending = append(pending, rec)
		}
	}

	for pass := 0; pass <= c.cfg.RetryPasses && len(pending) > 0; pass++ {
		if pass > 0 {
			c.log.Info().
				Str("session_id", sessionID).
				Int("pass", pass).
				Int("pending", len(pending)).
				Msg("Retrying failed answers")
		}
		pending = c.submitPass(ctx, sessionID, pending)
	}

	if len(pending) > 0 {
		c.log.Warn().
			Str("session_id", sessionID).
			Int("failures", len(pending)).
			Msg("Some answers could not be recorded")
	}
	return len(pending)
}

// submitPass sends one RecordAnswer per record concurrently and returns the
// records that failed, in snapshot order.
func (c *Coordinator) submitPass(ctx context.Context, sessionID string, records []model.AnswerRecord) []model.AnswerRecord {
	var (
		mu     sync.Mutex
		failed []int
		g      errgroup.Group
	)
	g.SetLimit(c.cfg.Concurrency)

	for i := range records {
		rec := records[i]
		g.Go(func() error {
			_, err := c.gw.RecordAnswer(ctx, sessionID, rec.QuestionID, *rec.SelectedOptionID)
			if err != nil {
				c.log.Warn().
					Err(fmt.Errorf("%w: %w", ErrTransientSubmission, err)).
					Str("session_id", sessionID).
					Str("question_id", rec.QuestionID).
					Msg("Record answer failed")
				mu.Lock()
				failed = append(failed, i)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(failed)
	out := make([]model.AnswerRecord, 0, len(failed))
	for _, i := range failed {
		out = append(out, records[i])
	}
	return out
}

// Finalize completes the session and fetches its results.
func (c *Coordinator) Finalize(ctx context.Context, sessionID string) (*model.ResultPayload, error) {
	if err := c.gw.Complete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("%w: complete: %w", ErrFinalization, err)
	}

	payload, err := c.gw.GetResults(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: get results: %w", ErrFinalization, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty results payload", ErrFinalization)
	}
	return payload, nil
}

// Run submits the snapshot and then finalizes, in that order.
func (c *Coordinator) Run(ctx context.Context, sessionID string, snapshot []model.AnswerRecord) (*model.ResultPayload, int, error) {
	failures := c.SubmitAll(ctx, sessionID, snapshot)
	payload, err := c.Finalize(ctx, sessionID)
	return payload, failures, err
}
