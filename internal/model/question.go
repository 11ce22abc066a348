package model

// Difficulty enumerates question difficulty levels used by the catalog.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
	// DifficultyMixed only appears in start requests.
	DifficultyMixed Difficulty = "MIXED"
)

// Option is a single selectable answer of a multiple-choice question.
// IsCorrect stays nil until grading is revealed by the results call.
type Option struct {
	ID        string `json:"id" validate:"required"`
	Label     string `json:"label"`
	Content   string `json:"content"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// Question is an immutable multiple-choice question loaded into a session.
type Question struct {
	ID          string     `json:"id" validate:"required"`
	Content     string     `json:"content" validate:"required"`
	ImageURL    string     `json:"image_url,omitempty"`
	Difficulty  Difficulty `json:"difficulty" validate:"omitempty,oneof=EASY MEDIUM HARD"`
	SubjectName string     `json:"subject_name"`
	Options     []Option   `json:"options" validate:"required,min=1,dive"`
}

// HasOption reports whether optionID belongs to the question's option list.
func (q *Question) HasOption(optionID string) bool {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return true
		}
	}
	return false
}
