package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/model"
)

const defaultSubmitTimeout = 30 * time.Second

// Options wires a Session to its collaborators.
type Options struct {
	Clock       Clock
	Gateway     Gateway
	Coordinator *Coordinator

	// DefaultDurationSeconds is used when activation passes no duration.
	// Zero leaves such sessions untimed.
	DefaultDurationSeconds int

	// BaseContext is the parent of auto-submit calls, which have no caller
	// context of their own. It typically carries the student's token.
	BaseContext   context.Context
	SubmitTimeout time.Duration

	// OnCompleted runs once after a successful submission, outside the
	// session lock. It may call read-only Session methods.
	OnCompleted func(result model.ResultSet)

	Log zerolog.Logger
	Now func() time.Time
}

// View is a read-only copy of the session state for rendering.
type View struct {
	ID                   string               `json:"id"`
	Status               Status               `json:"status"`
	Timed                bool                 `json:"timed"`
	DurationSeconds      *int                 `json:"duration_seconds,omitempty"`
	TimeRemainingSeconds int                  `json:"time_remaining_seconds"`
	StartedAt            time.Time            `json:"started_at"`
	CurrentIndex         int                  `json:"current_index"`
	CurrentQuestion      *model.Question      `json:"current_question,omitempty"`
	TotalQuestions       int                  `json:"total_questions"`
	AnsweredCount        int                  `json:"answered_count"`
	FlaggedCount         int                  `json:"flagged_count"`
	Answers              []model.AnswerRecord `json:"answers"`
	Cancelled            bool                 `json:"cancelled"`
	SubmitFailures       int                  `json:"submit_failures"`
	LastError            string               `json:"last_error,omitempty"`
	Result               *model.ResultSet     `json:"result,omitempty"`
}

// Session is the state machine of one timed assessment attempt. It owns the
// AnswerBook and the Clock and is the only place either is mutated.
//
// Remote calls are made without holding the lock; after each one the current
// status is re-checked, so ticks and user input may interleave freely.
type Session struct {
	id            string
	clock         Clock
	gw            Gateway
	coord         *Coordinator
	baseCtx       context.Context
	submitTimeout time.Duration
	defaultDur    int
	now           func() time.Time
	onCompleted   func(model.ResultSet)
	log           zerolog.Logger
	events        *broadcaster

	mu          sync.Mutex
	status      Status
	questions   []model.Question
	book        *AnswerBook
	current     int
	timed       bool
	duration    *int
	remaining   int
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	autoLatch   bool
	syncing     bool
	cancelled   bool
	failures    int
	lastErr     error
	result      *model.ResultSet
}

// New creates a session in LOADING status.
func New(id string, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = NewTickerClock(time.Second)
	}
	if opts.Coordinator == nil {
		opts.Coordinator = NewCoordinator(opts.Gateway, CoordinatorConfig{}, opts.Log)
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = defaultSubmitTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		id:            id,
		clock:         opts.Clock,
		gw:            opts.Gateway,
		coord:         opts.Coordinator,
		baseCtx:       opts.BaseContext,
		submitTimeout: opts.SubmitTimeout,
		defaultDur:    opts.DefaultDurationSeconds,
		now:           opts.Now,
		onCompleted:   opts.OnCompleted,
		log:           opts.Log.With().Str("component", "session").Str("session_id", id).Logger(),
		events:        newBroadcaster(),
		status:        StatusLoading,
		book:          NewAnswerBook(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Activate loads the question set, creates the answer book and starts the
// clock. A nil duration means untimed unless a default duration is configured.
func (s *Session) Activate(questions []model.Question, durationSeconds *int) error {
	s.mu.Lock()
	if s.status != StatusLoading {
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("activate from %s: %w", st, ErrInvalidTransition)
	}

	err := ValidateQuestions(questions)
	if err == nil && durationSeconds != nil && *durationSeconds <= 0 {
		err = fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidSessionData, *durationSeconds)
	}
	if err == nil {
		ids := make([]string, len(questions))
		for i := range questions {
			ids[i] = questions[i].ID
		}
		err = s.book.Initialize(ids)
	}
	if err != nil {
		s.setStatusLocked(StatusError)
		s.lastErr = err
		ev := s.eventLocked(EventStatus)
		s.mu.Unlock()

		s.log.Warn().Err(err).Msg("Activation rejected")
		s.events.publish(ev)
		return err
	}

	s.questions = cloneQuestions(questions)
	switch {
	case durationSeconds != nil:
		d := *durationSeconds
		s.timed, s.duration, s.remaining = true, &d, d
	case s.defaultDur > 0:
		d := s.defaultDur
		s.timed, s.duration, s.remaining = true, &d, d
	default:
		s.timed = false
	}
	s.startedAt = s.now()
	s.setStatusLocked(StatusActive)
	s.clock.Start(s.onTick)
	ev := s.eventLocked(EventStatus)
	s.mu.Unlock()

	s.log.Info().
		Int("questions", len(questions)).
		Bool("timed", s.timed).
		Int("remaining_seconds", ev.RemainingSeconds).
		Msg("Session activated")
	s.events.publish(ev)
	return nil
}

// SelectAnswer selects an option on the current question. Outside ACTIVE it
// is ignored.
func (s *Session) SelectAnswer(optionID string) error {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return nil
	}

	q := &s.questions[s.current]
	if !q.HasOption(optionID) {
		s.mu.Unlock()
		return fmt.Errorf("select %q on question %q: %w", optionID, q.ID, ErrUnknownOption)
	}
	if err := s.book.SetSelection(q.ID, optionID); err != nil {
		s.mu.Unlock()
		return err
	}
	ev := s.eventLocked(EventAnswer)
	ev.OptionID = optionID
	s.mu.Unlock()

	s.events.publish(ev)
	return nil
}

// Navigate moves the current question pointer. Allowed while ACTIVE or PAUSED.
func (s *Session) Navigate(index int) error {
	s.mu.Lock()
	if s.status != StatusActive && s.status != StatusPaused {
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("navigate from %s: %w", st, ErrInvalidTransition)
	}
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return fmt.Errorf("navigate to %d of %d: %w", index, len(s.questions), ErrIndexOutOfRange)
	}
	s.current = index
	ev := s.eventLocked(EventNavigate)
	s.mu.Unlock()

	s.events.publish(ev)
	return nil
}

// ToggleFlag flips the flag on the current question and notifies the remote
// API. If the notification fails the local flag is reverted.
func (s *Session) ToggleFlag(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.status != StatusActive && s.status != StatusPaused {
		st := s.status
		s.mu.Unlock()
		return false, fmt.Errorf("flag from %s: %w", st, ErrInvalidTransition)
	}
	qid := s.questions[s.current].ID
	flagged, err := s.book.ToggleFlag(qid)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	if err := s.gw.SetFlag(ctx, s.id, qid, flagged); err != nil {
		s.mu.Lock()
		if rec, recErr := s.book.Record(qid); recErr == nil && rec.Flagged == flagged {
			_, _ = s.book.ToggleFlag(qid)
		}
		s.mu.Unlock()

		s.log.Warn().Err(err).Str("question_id", qid).Msg("Flag sync failed, reverted")
		return !flagged, fmt.Errorf("%w: %w", ErrFlagSync, err)
	}

	s.mu.Lock()
	ev := s.eventLocked(EventFlag)
	s.mu.Unlock()
	ev.QuestionID = qid
	ev.Flagged = &flagged
	s.events.publish(ev)
	return flagged, nil
}

// Pause stops the clock and notifies the remote API. If the notification
// fails the session returns to ACTIVE so local and remote never disagree. A
// cancelled session cannot be paused.
func (s *Session) Pause(ctx context.Context) error {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	st := s.status
	if s.cancelled || !s.setStatusLocked(StatusPaused) {
		s.mu.Unlock()
		return fmt.Errorf("pause from %s: %w", st, ErrInvalidTransition)
	}
	s.clock.Stop()
	s.pausedAt = s.now()
	s.syncing = true
	ev := s.eventLocked(EventStatus)
	s.mu.Unlock()
	s.events.publish(ev)

	err := s.gw.Pause(ctx, s.id)

	s.mu.Lock()
	s.syncing = false
	if err != nil {
		if s.status == StatusPaused {
			s.setStatusLocked(StatusActive)
			s.pausedAt = time.Time{}
			if !s.cancelled {
				s.clock.Start(s.onTick)
			}
		}
		s.lastErr = fmt.Errorf("%w: %w", ErrPauseSync, err)
		wrapped := s.lastErr
		ev := s.eventLocked(EventStatus)
		s.mu.Unlock()

		s.log.Warn().Err(err).Msg("Pause sync failed, rolled back")
		s.events.publish(ev)
		return wrapped
	}
	s.mu.Unlock()

	s.log.Info().Msg("Session paused")
	return nil
}

// Resume notifies the remote API and restarts the clock. If the notification
// fails the session stays PAUSED with the clock stopped.
func (s *Session) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	if s.status != StatusPaused || s.cancelled {
		st := s.status
		s.mu.Unlock()
		return fmt.Errorf("resume from %s: %w", st, ErrInvalidTransition)
	}
	s.syncing = true
	s.mu.Unlock()

	err := s.gw.Resume(ctx, s.id)

	s.mu.Lock()
	s.syncing = false
	if err != nil {
		s.lastErr = fmt.Errorf("%w: %w", ErrResumeSync, err)
		wrapped := s.lastErr
		ev := s.eventLocked(EventError)
		s.mu.Unlock()

		s.log.Warn().Err(err).Msg("Resume sync failed, staying paused")
		s.events.publish(ev)
		return wrapped
	}
	if s.status == StatusPaused && !s.cancelled {
		s.pausedTotal += s.now().Sub(s.pausedAt)
		s.pausedAt = time.Time{}
		s.setStatusLocked(StatusActive)
		s.clock.Start(s.onTick)
	}
	ev := s.eventLocked(EventStatus)
	s.mu.Unlock()

	s.log.Info().Msg("Session resumed")
	s.events.publish(ev)
	return nil
}

// onTick is the Clock handler. It counts time while ACTIVE and triggers the
// auto-submit once the countdown reaches zero.
func (s *Session) onTick() {
	s.mu.Lock()
	if s.status != StatusActive || s.cancelled {
		s.mu.Unlock()
		return
	}

	if !s.timed || s.remaining > 0 {
		_ = s.book.AddTimeSpent(s.questions[s.current].ID, 1)
	}
	if !s.timed {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	fire := s.remaining == 0 && !s.autoLatch
	ev := s.eventLocked(EventTick)
	s.mu.Unlock()

	s.events.publish(ev)
	if fire {
		s.autoSubmit()
	}
}

func (s *Session) autoSubmit() {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.submitTimeout)
	defer cancel()

	s.log.Info().Msg("Time is up, auto-submitting")
	if _, err := s.Submit(ctx, true); err != nil {
		if errors.Is(err, ErrAlreadySubmitted) {
			return
		}
		s.log.Error().Err(err).Msg("Auto-submit failed")
	}
}

// Submit hands the answer snapshot to the Coordinator and finalizes the
// session. Auto-submits are latched: once one has been accepted, further auto
// calls return ErrAlreadySubmitted. A failed finalization returns the session
// to ACTIVE, or to ERROR when the remote session is gone.
func (s *Session) Submit(ctx context.Context, auto bool) (*model.ResultSet, error) {
	s.mu.Lock()
	if auto && s.autoLatch {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if s.status == StatusCompleted {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	st := s.status
	if (auto && s.cancelled) || !s.setStatusLocked(StatusSubmitting) {
		s.mu.Unlock()
		return nil, fmt.Errorf("submit from %s: %w", st, ErrInvalidTransition)
	}
	if auto {
		s.autoLatch = true
	}
	s.clock.Stop()
	snapshot := s.book.Snapshot()
	ev := s.eventLocked(EventStatus)
	s.mu.Unlock()
	s.events.publish(ev)

	s.log.Info().Bool("auto", auto).Int("answers", len(snapshot)).Msg("Submitting session")
	payload, failures, err := s.coord.Run(ctx, s.id, snapshot)

	s.mu.Lock()
	s.failures = failures
	if err != nil {
		s.lastErr = err
		if errors.Is(err, ErrSessionGone) {
			s.setStatusLocked(StatusError)
		} else {
			s.setStatusLocked(StatusActive)
			if auto {
				s.autoLatch = false
			}
			if !s.cancelled {
				s.clock.Start(s.onTick)
			}
		}
		ev := s.eventLocked(EventError)
		s.mu.Unlock()

		s.log.Error().Err(err).Bool("auto", auto).Str("status", string(ev.Status)).Msg("Submission failed")
		s.events.publish(ev)
		return nil, err
	}

	result := Score(payload)
	if result.SessionID == "" {
		result.SessionID = s.id
	}
	s.result = &result
	s.setStatusLocked(StatusCompleted)
	s.lastErr = nil
	ev = s.eventLocked(EventCompleted)
	s.mu.Unlock()

	s.log.Info().
		Float64("score", result.ScorePercent).
		Str("grade", string(result.Grade)).
		Int("failures", failures).
		Msg("Session completed")
	s.events.publish(ev)
	if s.onCompleted != nil {
		s.onCompleted(result)
	}
	return &result, nil
}

// RequiresConfirmation reports whether a manual submit would send no answers.
// Callers should ask the user before submitting in that case.
func (s *Session) RequiresConfirmation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusActive && s.book.AnsweredCount() == 0
}

// Cancel is a hard cancellation: the clock stops and no auto-submission will
// happen. An explicit manual Submit is still accepted.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.clock.Stop()
	s.log.Info().Str("status", string(s.status)).Msg("Session cancelled")
}

// Close cancels the session and closes every subscription.
func (s *Session) Close() {
	s.Cancel()
	s.events.close()
}

// Subscribe returns a channel of session events and a function to stop
// receiving them.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	return s.events.subscribe(buffer)
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RemainingSeconds returns the countdown value.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Result returns the finalized ResultSet, or nil before COMPLETED.
func (s *Session) Result() *model.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneResult(s.result)
}

// Answers returns a copy of the answer book.
func (s *Session) Answers() []model.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Snapshot()
}

// Questions returns a copy of the loaded question set.
func (s *Session) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQuestions(s.questions)
}

// PausedFor returns the total time spent paused, including an ongoing pause.
func (s *Session) PausedFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.pausedTotal
	if s.status == StatusPaused && !s.pausedAt.IsZero() {
		d += s.now().Sub(s.pausedAt)
	}
	return d
}

// View returns a read-only copy of the session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:                   s.id,
		Status:               s.status,
		Timed:                s.timed,
		TimeRemainingSeconds: s.remaining,
		StartedAt:            s.startedAt,
		CurrentIndex:         s.current,
		TotalQuestions:       len(s.questions),
		AnsweredCount:        s.book.AnsweredCount(),
		FlaggedCount:         s.book.FlaggedCount(),
		Answers:              s.book.Snapshot(),
		Cancelled:            s.cancelled,
		SubmitFailures:       s.failures,
	}
	if s.duration != nil {
		d := *s.duration
		v.DurationSeconds = &d
	}
	if len(s.questions) > 0 {
		q := cloneQuestions(s.questions[s.current : s.current+1])[0]
		v.CurrentQuestion = &q
	}
	if s.lastErr != nil {
		v.LastError = s.lastErr.Error()
	}
	v.Result = cloneResult(s.result)
	return v
}

// setStatusLocked moves the session to the given status if the transition
// table allows it. Caller holds s.mu.
func (s *Session) setStatusLocked(to Status) bool {
	if !CanTransition(s.status, to) {
		return false
	}
	s.status = to
	return true
}

// eventLocked builds an event from the current state. Caller holds s.mu.
func (s *Session) eventLocked(t EventType) Event {
	e := Event{
		Type:             t,
		SessionID:        s.id,
		Status:           s.status,
		RemainingSeconds: s.remaining,
		CurrentIndex:     s.current,
		At:               s.now(),
	}
	if len(s.questions) > 0 {
		e.QuestionID = s.questions[s.current].ID
	}
	if s.lastErr != nil && (t == EventError || s.status == StatusError) {
		e.Error = s.lastErr.Error()
	}
	e.Result = cloneResult(s.result)
	return e
}

func cloneQuestions(in []model.Question) []model.Question {
	out := make([]model.Question, len(in))
	for i, q := range in {
		out[i] = q
		out[i].Options = make([]model.Option, len(q.Options))
		copy(out[i].Options, q.Options)
	}
	return out
}

func cloneResult(in *model.ResultSet) *model.ResultSet {
	if in == nil {
		return nil
	}
	out := *in
	if in.PerSubject != nil {
		out.PerSubject = make([]model.SubjectScore, len(in.PerSubject))
		copy(out.PerSubject, in.PerSubject)
	}
	return &out
}
