package model

import "time"

// Grade is a letter band derived from a score percentage.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// ResultSummary is the session summary part of the remote results payload.
type ResultSummary struct {
	SessionID        string     `json:"session_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
}

// ResultAnswer is one graded question as returned by the remote results call.
type ResultAnswer struct {
	Question         Question `json:"question"`
	SelectedOptionID *string  `json:"selected_option_id,omitempty"`
	IsCorrect        bool     `json:"is_correct"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
	Flagged          bool     `json:"flagged"`
}

// ResultPayload is the raw results payload of a completed session.
type ResultPayload struct {
	Summary ResultSummary  `json:"session"`
	Answers []ResultAnswer `json:"answers"`
}

// SubjectScore is the per-subject part of a ResultSet.
type SubjectScore struct {
	SubjectName string `json:"subject_name"`
	Correct     int    `json:"correct"`
	Total       int    `json:"total"`
	Percent     int    `json:"percent"`
}

// ResultSet is the display-ready, read-only score of a finalized session.
type ResultSet struct {
	SessionID        string         `json:"session_id"`
	ScorePercent     float64        `json:"score_percent"`
	Grade            Grade          `json:"grade"`
	CorrectCount     int            `json:"correct_count"`
	TotalCount       int            `json:"total_count"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	PerSubject       []SubjectScore `json:"per_subject"`
}

// ArchivedResult is a ResultSet persisted to the practice history.
type ArchivedResult struct {
	ID          string     `json:"id"`
	StudentID   int        `json:"student_id"`
	RunID       *string    `json:"run_id,omitempty"`
	Day         *int       `json:"day,omitempty"`
	Result      ResultSet  `json:"result"`
	CompletedAt time.Time  `json:"completed_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}
