package engine

import (
	"testing"

	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateQuestions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(qs []model.Question) []model.Question
		wantErr bool
	}{
		{"valid", func(qs []model.Question) []model.Question { return qs }, false},
		{"empty", func([]model.Question) []model.Question { return nil }, true},
		{"missing id", func(qs []model.Question) []model.Question { qs[0].ID = ""; return qs }, true},
		{"missing content", func(qs []model.Question) []model.Question { qs[1].Content = ""; return qs }, true},
		{"bad difficulty", func(qs []model.Question) []model.Question { qs[0].Difficulty = "EXTREME"; return qs }, true},
		{"option without id", func(qs []model.Question) []model.Question { qs[0].Options[1].ID = ""; return qs }, true},
		{"duplicate option", func(qs []model.Question) []model.Question { qs[0].Options[1].ID = "a"; return qs }, true},
		{"duplicate question", func(qs []model.Question) []model.Question { qs[1].ID = "q1"; return qs }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestions(tt.mutate(sampleQuestions(2)))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSessionData)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusLoading, StatusActive))
	assert.True(t, CanTransition(StatusActive, StatusPaused))
	assert.True(t, CanTransition(StatusSubmitting, StatusActive))
	assert.False(t, CanTransition(StatusPaused, StatusSubmitting))
	assert.False(t, CanTransition(StatusCompleted, StatusActive))
	assert.False(t, CanTransition(StatusError, StatusActive))
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPaused.Terminal())
}
