package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerBookInitialize(t *testing.T) {
	b := NewAnswerBook()
	require.NoError(t, b.Initialize([]string{"q1", "q2", "q3"}))
	assert.Equal(t, 3, b.Len())

	snap := b.Snapshot()
	require.Len(t, snap, 3)
	for i, id := range []string{"q1", "q2", "q3"} {
		assert.Equal(t, id, snap[i].QuestionID)
		assert.Nil(t, snap[i].SelectedOptionID)
		assert.Zero(t, snap[i].TimeSpentSeconds)
		assert.False(t, snap[i].Flagged)
	}

	err := b.Initialize([]string{"q4"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAnswerBookRejectsDuplicateIDs(t *testing.T) {
	b := NewAnswerBook()
	err := b.Initialize([]string{"q1", "q2", "q1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSessionData)
	assert.Zero(t, b.Len())
}

func TestAnswerBookMutations(t *testing.T) {
	b := NewAnswerBook()
	require.NoError(t, b.Initialize([]string{"q1", "q2"}))

	require.NoError(t, b.SetSelection("q1", "a"))
	require.NoError(t, b.SetSelection("q1", "b"))
	require.NoError(t, b.AddTimeSpent("q1", 3))
	require.NoError(t, b.AddTimeSpent("q1", -5))

	flagged, err := b.ToggleFlag("q2")
	require.NoError(t, err)
	assert.True(t, flagged)

	rec, err := b.Record("q1")
	require.NoError(t, err)
	require.NotNil(t, rec.SelectedOptionID)
	assert.Equal(t, "b", *rec.SelectedOptionID)
	assert.Equal(t, 3, rec.TimeSpentSeconds)

	assert.Equal(t, 1, b.AnsweredCount())
	assert.Equal(t, 1, b.FlaggedCount())

	t.Run("unknown question", func(t *testing.T) {
		assert.ErrorIs(t, b.SetSelection("nope", "a"), ErrUnknownQuestion)
		assert.ErrorIs(t, b.AddTimeSpent("nope", 1), ErrUnknownQuestion)
		_, err := b.ToggleFlag("nope")
		assert.ErrorIs(t, err, ErrUnknownQuestion)
		_, err = b.Record("nope")
		assert.ErrorIs(t, err, ErrUnknownQuestion)
	})
}

func TestAnswerBookSnapshotIsDetached(t *testing.T) {
	b := NewAnswerBook()
	require.NoError(t, b.Initialize([]string{"q1"}))
	require.NoError(t, b.SetSelection("q1", "a"))

	snap := b.Snapshot()
	*snap[0].SelectedOptionID = "z"
	snap[0].Flagged = true

	rec, err := b.Record("q1")
	require.NoError(t, err)
	assert.Equal(t, "a", *rec.SelectedOptionID)
	assert.False(t, rec.Flagged)
}
