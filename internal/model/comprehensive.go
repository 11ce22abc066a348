package model

import "time"

// StartComprehensiveRequest opens a multi-day comprehensive run. Every day
// uses the same session template.
type StartComprehensiveRequest struct {
	Days    int                 `json:"days" binding:"required,min=1,max=31"`
	Session StartSessionRequest `json:"session" binding:"required"`
}

// ComprehensiveDay is the outcome of one day of a run.
type ComprehensiveDay struct {
	Day         int        `json:"day"`
	SessionID   string     `json:"session_id,omitempty"`
	Result      *ResultSet `json:"result,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ComprehensiveRun tracks a multi-day run. Days are taken in order.
type ComprehensiveRun struct {
	RunID      string              `json:"run_id"`
	StudentID  int                 `json:"student_id"`
	Template   StartSessionRequest `json:"template"`
	DayResults []ComprehensiveDay  `json:"day_results"`
	StartedAt  time.Time           `json:"started_at"`
}

// ComprehensiveSummary aggregates the completed days of a run.
type ComprehensiveSummary struct {
	RunID         string             `json:"run_id"`
	Days          int                `json:"days"`
	CompletedDays int                `json:"completed_days"`
	NextDay       *int               `json:"next_day,omitempty"`
	ScorePercent  float64            `json:"score_percent"`
	Grade         Grade              `json:"grade"`
	CorrectCount  int                `json:"correct_count"`
	TotalCount    int                `json:"total_count"`
	PerSubject    []SubjectScore     `json:"per_subject"`
	DayResults    []ComprehensiveDay `json:"day_results"`
}

// ComprehensiveDayURI addresses one day of a run.
type ComprehensiveDayURI struct {
	RunID string `uri:"run_id" binding:"required,remoteid"`
	Day   int    `uri:"day" binding:"required,min=1,max=31"`
}

// ComprehensiveRunURI addresses a run.
type ComprehensiveRunURI struct {
	RunID string `uri:"run_id" binding:"required,remoteid"`
}
