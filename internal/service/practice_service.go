package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-practice/internal/cache"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/engine"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/remote"
)

// Practice service errors.
var (
	ErrSessionNotFound      = errors.New("practice session not found")
	ErrConfirmationRequired = errors.New("submitting with no answers requires confirmation")
	ErrResultNotReady       = errors.New("session has no result yet")
)

// Catalog starts sessions on the exam API.
type Catalog interface {
	StartSession(ctx context.Context, req model.StartSessionRequest) (*model.SessionStart, error)
}

// ResultArchiver hands finalized results to the practice history.
type ResultArchiver interface {
	Archive(ctx context.Context, res *model.ArchivedResult) error
}

// HistoryStore reads archived results.
type HistoryStore interface {
	ListByStudent(ctx context.Context, studentID, page, perPage int) ([]model.ArchivedResult, int, error)
}

// PracticeConfig tunes the sessions created by PracticeService.
type PracticeConfig struct {
	DefaultDurationSeconds int
	TickInterval           time.Duration
	SubmitTimeout          time.Duration
	Coordinator            engine.CoordinatorConfig
	// IdleTimeout is how long a finished or abandoned session stays in memory.
	IdleTimeout time.Duration
	// NewClock overrides the tick source. Tests use engine.ManualClock.
	NewClock func() engine.Clock
}

// attemptTag identifies where a session lives in the attempt cache and which
// comprehensive day, if any, it belongs to.
type attemptTag struct {
	scope string
	runID *string
	day   *int
	// onDone runs after the result is archived.
	onDone func(ctx context.Context, result model.ResultSet)
}

type liveSession struct {
	sess      *engine.Session
	studentID int
	tag       attemptTag
	lastSeen  time.Time
}

// PracticeService owns the live session engines, keyed by session id.
type PracticeService struct {
	catalog  Catalog
	gw       engine.Gateway
	coord    *engine.Coordinator
	attempts cache.AttemptCache
	archiver ResultArchiver
	history  HistoryStore
	cfg      PracticeConfig
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(
	catalog Catalog,
	gw engine.Gateway,
	attempts cache.AttemptCache,
	archiver ResultArchiver,
	history HistoryStore,
	cfg PracticeConfig,
	log zerolog.Logger,
) *PracticeService {
	if cfg.NewClock == nil {
		interval := cfg.TickInterval
		cfg.NewClock = func() engine.Clock { return engine.NewTickerClock(interval) }
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}

	return &PracticeService{
		catalog:  catalog,
		gw:       gw,
		coord:    engine.NewCoordinator(gw, cfg.Coordinator, log),
		attempts: attempts,
		archiver: archiver,
		history:  history,
		cfg:      cfg,
		log:      log.With().Str("component", "practice_service").Logger(),
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
}

// Start asks the exam API for a new session, caches it for reload survival
// and activates a live engine. ctx must carry the student's token.
func (s *PracticeService) Start(ctx context.Context, studentID int, req model.StartSessionRequest) (engine.View, error) {
	return s.start(ctx, studentID, req, attemptTag{scope: config.PracticeScope})
}

func (s *PracticeService) start(ctx context.Context, studentID int, req model.StartSessionRequest, tag attemptTag) (engine.View, error) {
	start, err := s.catalog.StartSession(ctx, req)
	if err != nil {
		return engine.View{}, fmt.Errorf("start session: %w", err)
	}

	attempt := &model.CachedAttempt{
		SessionID:       start.SessionID,
		DurationSeconds: start.DurationSeconds,
		Questions:       start.Questions,
	}
	if err := s.attempts.Save(ctx, studentID, tag.scope, attempt); err != nil {
		// The session still works, it just will not survive a reload.
		s.log.Warn().Err(err).Str("session_id", start.SessionID).Msg("Failed to cache attempt")
	}

	view, err := s.activate(ctx, studentID, start.SessionID, start.Questions, start.DurationSeconds, tag)
	if err != nil {
		_ = s.attempts.Delete(ctx, studentID, tag.scope)
		return engine.View{}, err
	}
	return view, nil
}

// Restore rebuilds the live engine for the student's cached attempt after a
// reload. If the engine is still live it is returned unchanged.
func (s *PracticeService) Restore(ctx context.Context, studentID int) (engine.View, error) {
	return s.restore(ctx, studentID, attemptTag{scope: config.PracticeScope})
}

func (s *PracticeService) restore(ctx context.Context, studentID int, tag attemptTag) (engine.View, error) {
	attempt, err := s.attempts.Load(ctx, studentID, tag.scope)
	if err != nil {
		return engine.View{}, err
	}

	s.mu.Lock()
	live, ok := s.sessions[attempt.SessionID]
	if ok && live.studentID == studentID && !live.sess.Status().Terminal() && !live.sess.View().Cancelled {
		live.lastSeen = s.now()
		s.mu.Unlock()
		return live.sess.View(), nil
	}
	s.mu.Unlock()

	s.log.Info().
		Int("student_id", studentID).
		Str("session_id", attempt.SessionID).
		Str("scope", tag.scope).
		Msg("Restoring session from attempt cache")
	return s.activate(ctx, studentID, attempt.SessionID, attempt.Questions, attempt.DurationSeconds, tag)
}

func (s *PracticeService) activate(ctx context.Context, studentID int, sessionID string, questions []model.Question, duration *int, tag attemptTag) (engine.View, error) {
	token, _ := remote.TokenFrom(ctx)
	live := &liveSession{studentID: studentID, tag: tag, lastSeen: s.now()}

	sess := engine.New(sessionID, engine.Options{
		Clock:                  s.cfg.NewClock(),
		Gateway:                s.gw,
		Coordinator:            s.coord,
		DefaultDurationSeconds: s.cfg.DefaultDurationSeconds,
		BaseContext:            remote.WithToken(context.Background(), token),
		SubmitTimeout:          s.cfg.SubmitTimeout,
		OnCompleted:            func(result model.ResultSet) { s.onCompleted(live, result) },
		Log:                    s.log,
	})
	live.sess = sess

	if err := sess.Activate(questions, duration); err != nil {
		sess.Close()
		return engine.View{}, err
	}

	s.mu.Lock()
	// One live session per student and scope.
	for id, other := range s.sessions {
		if other.studentID == studentID && other.tag.scope == tag.scope && id != sessionID {
			other.sess.Close()
			delete(s.sessions, id)
		}
	}
	if prev, ok := s.sessions[sessionID]; ok {
		prev.sess.Close()
	}
	s.sessions[sessionID] = live
	s.mu.Unlock()

	return sess.View(), nil
}

// onCompleted clears the attempt cache and archives the result.
func (s *PracticeService) onCompleted(live *liveSession, result model.ResultSet) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := s.log.With().Str("session_id", live.sess.ID()).Int("student_id", live.studentID).Logger()

	if err := s.attempts.Delete(ctx, live.studentID, live.tag.scope); err != nil {
		log.Warn().Err(err).Msg("Failed to clear attempt cache")
	}

	archived := &model.ArchivedResult{
		ID:          uuid.NewString(),
		StudentID:   live.studentID,
		RunID:       live.tag.runID,
		Day:         live.tag.day,
		Result:      result,
		CompletedAt: s.now().UTC(),
	}
	if err := s.archiver.Archive(ctx, archived); err != nil {
		log.Error().Err(err).Msg("Failed to queue result for archiving")
	}

	if live.tag.onDone != nil {
		live.tag.onDone(ctx, result)
	}
}

// Session returns a student's live session.
func (s *PracticeService) Session(studentID int, sessionID string) (*engine.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live, ok := s.sessions[sessionID]
	if !ok || live.studentID != studentID {
		return nil, ErrSessionNotFound
	}
	live.lastSeen = s.now()
	return live.sess, nil
}

// SelectAnswer selects an option on the current question.
func (s *PracticeService) SelectAnswer(studentID int, sessionID, optionID string) (engine.View, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	if err := sess.SelectAnswer(optionID); err != nil {
		return engine.View{}, err
	}
	return sess.View(), nil
}

// Navigate moves to another question.
func (s *PracticeService) Navigate(studentID int, sessionID string, index int) (engine.View, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	if err := sess.Navigate(index); err != nil {
		return engine.View{}, err
	}
	return sess.View(), nil
}

// ToggleFlag flips the flag on the current question.
func (s *PracticeService) ToggleFlag(ctx context.Context, studentID int, sessionID string) (engine.View, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	if _, err := sess.ToggleFlag(ctx); err != nil {
		return sess.View(), err
	}
	return sess.View(), nil
}

// Pause pauses the session locally and remotely.
func (s *PracticeService) Pause(ctx context.Context, studentID int, sessionID string) (engine.View, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	if err := sess.Pause(ctx); err != nil {
		return sess.View(), err
	}
	return sess.View(), nil
}

// Resume resumes a paused session.
func (s *PracticeService) Resume(ctx context.Context, studentID int, sessionID string) (engine.View, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	if err := sess.Resume(ctx); err != nil {
		return sess.View(), err
	}
	return sess.View(), nil
}

// Submit finalizes the session. Without confirm, a submission with no
// answers is refused with ErrConfirmationRequired.
func (s *PracticeService) Submit(ctx context.Context, studentID int, sessionID string, confirm bool) (*model.ResultSet, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if !confirm && sess.RequiresConfirmation() {
		return nil, ErrConfirmationRequired
	}
	return sess.Submit(ctx, false)
}

// Exit leaves a session. With submit it is finalized first; otherwise it is
// cancelled and the cached attempt is discarded.
func (s *PracticeService) Exit(ctx context.Context, studentID int, sessionID string, submit bool) (*model.ResultSet, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return nil, err
	}

	var result *model.ResultSet
	if submit {
		sess.Cancel()
		result, err = sess.Submit(ctx, false)
		if err != nil && !errors.Is(err, engine.ErrAlreadySubmitted) {
			return nil, err
		}
		if result == nil {
			result = sess.Result()
		}
	}

	s.mu.Lock()
	live := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	sess.Close()
	if !submit && live != nil {
		if err := s.attempts.Delete(ctx, studentID, live.tag.scope); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to clear attempt cache on exit")
		}
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("session_id", sessionID).
		Bool("submitted", submit).
		Msg("Session exited")
	return result, nil
}

// Result returns the ResultSet of a completed live session.
func (s *PracticeService) Result(studentID int, sessionID string) (*model.ResultSet, error) {
	sess, err := s.Session(studentID, sessionID)
	if err != nil {
		return nil, err
	}
	if r := sess.Result(); r != nil {
		return r, nil
	}
	return nil, ErrResultNotReady
}

// History lists a student's archived results.
func (s *PracticeService) History(ctx context.Context, studentID, page, perPage int) ([]model.ArchivedResult, int, error) {
	return s.history.ListByStudent(ctx, studentID, page, perPage)
}

// Sweep drops finished, cancelled or abandoned sessions that have not been
// touched for the idle timeout. Abandoned sessions keep their cached attempt
// so they can still be restored. It returns the number removed.
func (s *PracticeService) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var stale []*engine.Session
	for id, live := range s.sessions {
		idle := now.Sub(live.lastSeen)
		v := live.sess.View()
		done := v.Status.Terminal() || v.Cancelled
		if (done && idle >= s.cfg.IdleTimeout) || idle >= 4*s.cfg.IdleTimeout {
			stale = append(stale, live.sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
	}
	if len(stale) > 0 {
		s.log.Info().Int("count", len(stale)).Msg("Swept idle sessions")
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (s *PracticeService) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

// Live returns the number of sessions held in memory.
func (s *PracticeService) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown cancels every live session. Cached attempts are kept.
func (s *PracticeService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*liveSession)
	s.mu.Unlock()

	for _, live := range sessions {
		live.sess.Close()
	}
	s.log.Info().Int("count", len(sessions)).Msg("Live sessions closed")
}
