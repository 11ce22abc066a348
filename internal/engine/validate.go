package engine

import (
	"fmt"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stemsi/exstem-practice/internal/model"
)

var questionValidator = govalidator.New(govalidator.WithRequiredStructEnabled())

// ValidateQuestions checks a question set before activation: it must be
// non-empty, every question must pass its struct tags, and ids must be unique
// (question ids globally, option ids per question).
func ValidateQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: empty question set", ErrInvalidSessionData)
	}

	seen := make(map[string]struct{}, len(questions))
	for i := range questions {
		q := &questions[i]
		if err := questionValidator.Struct(q); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidSessionData, i, err)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidSessionData, q.ID)
		}
		seen[q.ID] = struct{}{}

		opts := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			if _, dup := opts[o.ID]; dup {
				return fmt.Errorf("%w: duplicate option id %q on question %q", ErrInvalidSessionData, o.ID, q.ID)
			}
			opts[o.ID] = struct{}{}
		}
	}
	return nil
}
