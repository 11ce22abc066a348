package engine

import (
	"fmt"

	"github.com/stemsi/exstem-practice/internal/model"
)

// AnswerBook is the single source of truth for per-question answer state.
// It is not safe for concurrent use; Session serializes access.
type AnswerBook struct {
	order       []string
	records     map[string]*model.AnswerRecord
	initialized bool
}

// NewAnswerBook creates an empty, uninitialized AnswerBook.
func NewAnswerBook() *AnswerBook {
	return &AnswerBook{}
}

// Initialize creates one blank record per question id, in order.
func (b *AnswerBook) Initialize(questionIDs []string) error {
	if b.initialized {
		return fmt.Errorf("answer book already initialized: %w", ErrInvalidState)
	}

	records := make(map[string]*model.AnswerRecord, len(questionIDs))
	order := make([]string, 0, len(questionIDs))
	for _, id := range questionIDs {
		if _, dup := records[id]; dup {
			return fmt.Errorf("duplicate question id %q: %w", id, ErrInvalidSessionData)
		}
		records[id] = &model.AnswerRecord{QuestionID: id}
		order = append(order, id)
	}

	b.order = order
	b.records = records
	b.initialized = true
	return nil
}

// SetSelection overwrites the selected option of a question.
func (b *AnswerBook) SetSelection(questionID, optionID string) error {
	rec, ok := b.records[questionID]
	if !ok {
		return fmt.Errorf("set selection %q: %w", questionID, ErrUnknownQuestion)
	}
	sel := optionID
	rec.SelectedOptionID = &sel
	return nil
}

// ToggleFlag flips the flag of a question and returns the new value.
func (b *AnswerBook) ToggleFlag(questionID string) (bool, error) {
	rec, ok := b.records[questionID]
	if !ok {
		return false, fmt.Errorf("toggle flag %q: %w", questionID, ErrUnknownQuestion)
	}
	rec.Flagged = !rec.Flagged
	return rec.Flagged, nil
}

// AddTimeSpent adds seconds to the time spent on a question.
func (b *AnswerBook) AddTimeSpent(questionID string, seconds int) error {
	rec, ok := b.records[questionID]
	if !ok {
		return fmt.Errorf("add time %q: %w", questionID, ErrUnknownQuestion)
	}
	if seconds > 0 {
		rec.TimeSpentSeconds += seconds
	}
	return nil
}

// Record returns a copy of one record.
func (b *AnswerBook) Record(questionID string) (model.AnswerRecord, error) {
	rec, ok := b.records[questionID]
	if !ok {
		return model.AnswerRecord{}, fmt.Errorf("record %q: %w", questionID, ErrUnknownQuestion)
	}
	return copyRecord(rec), nil
}

// Len returns the number of records.
func (b *AnswerBook) Len() int {
	return len(b.order)
}

// AnsweredCount returns the number of records with a selection.
func (b *AnswerBook) AnsweredCount() int {
	n := 0
	for _, rec := range b.records {
		if rec.SelectedOptionID != nil {
			n++
		}
	}
	return n
}

// FlaggedCount returns the number of flagged records.
func (b *AnswerBook) FlaggedCount() int {
	n := 0
	for _, rec := range b.records {
		if rec.Flagged {
			n++
		}
	}
	return n
}

// Snapshot returns a deep copy of all records in question order.
func (b *AnswerBook) Snapshot() []model.AnswerRecord {
	out := make([]model.AnswerRecord, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, copyRecord(b.records[id]))
	}
	return out
}

func copyRecord(rec *model.AnswerRecord) model.AnswerRecord {
	c := *rec
	if rec.SelectedOptionID != nil {
		sel := *rec.SelectedOptionID
		c.SelectedOptionID = &sel
	}
	return c
}
