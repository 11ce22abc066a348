package model

// AnswerRecord is the per-question answer state kept by a session.
type AnswerRecord struct {
	QuestionID       string  `json:"question_id"`
	SelectedOptionID *string `json:"selected_option_id,omitempty"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
	Flagged          bool    `json:"flagged"`
}

// Answered reports whether an option has been selected.
func (r AnswerRecord) Answered() bool {
	return r.SelectedOptionID != nil
}

// AnswerVerdict is what the remote API replies when a single answer is recorded.
type AnswerVerdict struct {
	IsCorrect       bool    `json:"is_correct"`
	CorrectOptionID *string `json:"correct_option_id,omitempty"`
}
