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
)

var (
	ErrRunNotFound   = errors.New("comprehensive run not found")
	ErrDayOutOfOrder = errors.New("comprehensive days must be taken in order")
	ErrRunFinished   = errors.New("comprehensive run already finished")
)

// ComprehensiveDriver runs a multi-day comprehensive exam: one ordinary
// practice session per day, each in its own attempt cache scope, with an
// aggregate summary at the end.
type ComprehensiveDriver struct {
	practice *PracticeService
	runs     cache.RunStore
	log      zerolog.Logger
	now      func() time.Time

	// mu serializes read-modify-write of run progress.
	mu sync.Mutex
}

// NewComprehensiveDriver creates a new ComprehensiveDriver.
func NewComprehensiveDriver(practice *PracticeService, runs cache.RunStore, log zerolog.Logger) *ComprehensiveDriver {
	return &ComprehensiveDriver{
		practice: practice,
		runs:     runs,
		log:      log.With().Str("component", "comprehensive_driver").Logger(),
		now:      time.Now,
	}
}

// StartRun creates a run with the given number of days. No session starts
// until StartDay is called.
func (d *ComprehensiveDriver) StartRun(ctx context.Context, studentID int, req model.StartComprehensiveRequest) (*model.ComprehensiveRun, error) {
	run := &model.ComprehensiveRun{
		RunID:      uuid.NewString(),
		StudentID:  studentID,
		Template:   req.Session,
		DayResults: make([]model.ComprehensiveDay, req.Days),
		StartedAt:  d.now().UTC(),
	}
	for i := range run.DayResults {
		run.DayResults[i].Day = i + 1
	}

	if err := d.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	d.log.Info().Int("student_id", studentID).Str("run_id", run.RunID).Int("days", req.Days).Msg("Comprehensive run started")
	return run, nil
}

// StartDay starts the session of one day. Only the first unfinished day may
// be started.
func (d *ComprehensiveDriver) StartDay(ctx context.Context, studentID int, runID string, day int) (engine.View, error) {
	run, err := d.load(ctx, studentID, runID)
	if err != nil {
		return engine.View{}, err
	}
	if err := checkNextDay(run, day); err != nil {
		return engine.View{}, err
	}

	view, err := d.practice.start(ctx, studentID, run.Template, d.dayTag(studentID, runID, day))
	if err != nil {
		return engine.View{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if fresh, err := d.runs.LoadRun(ctx, studentID, runID); err == nil {
		if fresh.DayResults[day-1].Result == nil {
			fresh.DayResults[day-1].SessionID = view.ID
			if err := d.runs.SaveRun(ctx, fresh); err != nil {
				d.log.Warn().Err(err).Str("run_id", runID).Msg("Failed to record day session")
			}
		}
	}
	return view, nil
}

// RestoreDay rebuilds the live session of a day after a reload.
func (d *ComprehensiveDriver) RestoreDay(ctx context.Context, studentID int, runID string, day int) (engine.View, error) {
	run, err := d.load(ctx, studentID, runID)
	if err != nil {
		return engine.View{}, err
	}
	if err := checkNextDay(run, day); err != nil {
		return engine.View{}, err
	}
	return d.practice.restore(ctx, studentID, d.dayTag(studentID, runID, day))
}

// Summary aggregates the completed days of a run.
func (d *ComprehensiveDriver) Summary(ctx context.Context, studentID int, runID string) (*model.ComprehensiveSummary, error) {
	run, err := d.load(ctx, studentID, runID)
	if err != nil {
		return nil, err
	}
	return Summarize(run), nil
}

// Summarize computes the aggregate score of a run.
func Summarize(run *model.ComprehensiveRun) *model.ComprehensiveSummary {
	sum := &model.ComprehensiveSummary{
		RunID:      run.RunID,
		Days:       len(run.DayResults),
		DayResults: run.DayResults,
	}

	var subjects [][]model.SubjectScore
	for _, day := range run.DayResults {
		if day.Result == nil {
			if sum.NextDay == nil {
				next := day.Day
				sum.NextDay = &next
			}
			continue
		}
		sum.CompletedDays++
		sum.CorrectCount += day.Result.CorrectCount
		sum.TotalCount += day.Result.TotalCount
		subjects = append(subjects, day.Result.PerSubject)
	}

	sum.ScorePercent = engine.ScorePercent(sum.CorrectCount, sum.TotalCount)
	sum.Grade = engine.GradeFor(sum.ScorePercent)
	sum.PerSubject = engine.MergeSubjectScores(subjects...)
	return sum
}

func (d *ComprehensiveDriver) dayTag(studentID int, runID string, day int) attemptTag {
	rid, dd := runID, day
	return attemptTag{
		scope: config.CacheKey.ComprehensiveScope(runID, day),
		runID: &rid,
		day:   &dd,
		onDone: func(ctx context.Context, result model.ResultSet) {
			d.recordDay(ctx, studentID, runID, day, result)
		},
	}
}

// recordDay stores a finished day's result on the run.
func (d *ComprehensiveDriver) recordDay(ctx context.Context, studentID int, runID string, day int, result model.ResultSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := d.log.With().Str("run_id", runID).Int("day", day).Logger()

	run, err := d.runs.LoadRun(ctx, studentID, runID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load run for day result")
		return
	}
	if day < 1 || day > len(run.DayResults) {
		return
	}

	completedAt := d.now().UTC()
	r := result
	run.DayResults[day-1] = model.ComprehensiveDay{
		Day:         day,
		SessionID:   result.SessionID,
		Result:      &r,
		CompletedAt: &completedAt,
	}
	if err := d.runs.SaveRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to save day result")
		return
	}
	log.Info().Float64("score", result.ScorePercent).Msg("Comprehensive day completed")
}

func (d *ComprehensiveDriver) load(ctx context.Context, studentID int, runID string) (*model.ComprehensiveRun, error) {
	run, err := d.runs.LoadRun(ctx, studentID, runID)
	if errors.Is(err, cache.ErrNoRun) {
		return nil, ErrRunNotFound
	}
	return run, err
}

func checkNextDay(run *model.ComprehensiveRun, day int) error {
	if day < 1 || day > len(run.DayResults) {
		return fmt.Errorf("day %d of %d: %w", day, len(run.DayResults), ErrDayOutOfOrder)
	}
	for _, dr := range run.DayResults {
		if dr.Result == nil {
			if dr.Day != day {
				return fmt.Errorf("day %d requested, day %d is next: %w", day, dr.Day, ErrDayOutOfOrder)
			}
			return nil
		}
	}
	return ErrRunFinished
}
