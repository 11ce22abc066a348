package model

import "time"

// StartSessionRequest is the payload for starting a practice session.
type StartSessionRequest struct {
	SubjectIDs      []int      `json:"subject_ids" binding:"required,min=1,dive,min=1"`
	TopicIDs        []int      `json:"topic_ids" binding:"omitempty,dive,min=1"`
	Difficulty      Difficulty `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD MIXED"`
	QuestionCount   int        `json:"question_count" binding:"required,min=1,max=200"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
}

// SessionStart is the catalog's reply to a session-start request.
// DurationSeconds is nil for untimed sessions.
type SessionStart struct {
	SessionID       string     `json:"session_id"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Questions       []Question `json:"questions"`
}

// CachedAttempt is what the local attempt cache keeps to survive a reload.
// It never holds answers; those are rebuilt fresh.
type CachedAttempt struct {
	SessionID       string     `json:"session_id"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Questions       []Question `json:"questions"`
	CachedAt        time.Time  `json:"cached_at"`
}

// SelectAnswerRequest selects an option on the current question.
type SelectAnswerRequest struct {
	OptionID string `json:"option_id" binding:"required,max=64"`
}

// NavigateRequest moves the current question pointer.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required"`
}

// SubmitRequest finalizes a session. Confirm must be set to submit with no answers.
type SubmitRequest struct {
	Confirm bool `json:"confirm"`
}

// SessionURI is the :id path parameter of session routes.
type SessionURI struct {
	ID string `uri:"id" binding:"required,remoteid"`
}

// HistoryQuery pages through archived results.
type HistoryQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// ExitRequest leaves a session, optionally submitting it first.
type ExitRequest struct {
	Submit bool `form:"submit"`
}
