package engine

import (
	"testing"

	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		percent float64
		want    model.Grade
	}{
		{100, model.GradeA},
		{75, model.GradeA},
		{74.99, model.GradeB},
		{65, model.GradeB},
		{64.9, model.GradeC},
		{50, model.GradeC},
		{49.9, model.GradeD},
		{40, model.GradeD},
		{39.9, model.GradeF},
		{0, model.GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.percent), "percent %v", tt.percent)
	}
}

func TestScorePercent(t *testing.T) {
	assert.Equal(t, 70.0, ScorePercent(7, 10))
	assert.Equal(t, 0.0, ScorePercent(0, 0))
	assert.InDelta(t, 66.666, ScorePercent(2, 3), 0.01)
}

func answer(subject string, correct bool) model.ResultAnswer {
	return model.ResultAnswer{
		Question:  model.Question{ID: subject, SubjectName: subject},
		IsCorrect: correct,
	}
}

func TestScoreSevenOfTen(t *testing.T) {
	p := &model.ResultPayload{Summary: model.ResultSummary{SessionID: "s1"}}
	for i := 0; i < 10; i++ {
		p.Answers = append(p.Answers, answer("Math", i < 7))
	}

	rs := Score(p)
	assert.Equal(t, "s1", rs.SessionID)
	assert.Equal(t, 70.0, rs.ScorePercent)
	assert.Equal(t, model.GradeB, rs.Grade, "70 falls in the 65-75 band")
	assert.Equal(t, 7, rs.CorrectCount)
	assert.Equal(t, 10, rs.TotalCount)
}

func TestScoreEmptyPayload(t *testing.T) {
	rs := Score(&model.ResultPayload{})
	assert.Equal(t, 0.0, rs.ScorePercent)
	assert.Equal(t, model.GradeF, rs.Grade)
	assert.NotNil(t, rs.PerSubject)
	assert.Empty(t, rs.PerSubject)

	rs = Score(nil)
	assert.Equal(t, model.GradeF, rs.Grade)
}

func TestBreakdownBySubject(t *testing.T) {
	var answers []model.ResultAnswer
	// Math 3/4, English 4/6, interleaved so first-seen order matters.
	answers = append(answers,
		answer("Math", true),
		answer("English", true),
		answer("Math", true),
		answer("English", true),
		answer("English", false),
		answer("Math", true),
		answer("English", true),
		answer("Math", false),
		answer("English", true),
		answer("English", false),
	)

	got := BreakdownBySubject(answers)
	require.Len(t, got, 2)
	assert.Equal(t, model.SubjectScore{SubjectName: "Math", Correct: 3, Total: 4, Percent: 75}, got[0])
	assert.Equal(t, model.SubjectScore{SubjectName: "English", Correct: 4, Total: 6, Percent: 67}, got[1])
}

func TestBreakdownUncategorized(t *testing.T) {
	got := BreakdownBySubject([]model.ResultAnswer{answer("", true), answer("", false)})
	require.Len(t, got, 1)
	assert.Equal(t, UncategorizedSubject, got[0].SubjectName)
	assert.Equal(t, 50, got[0].Percent)
}

func TestScoreTimeSpent(t *testing.T) {
	p := &model.ResultPayload{Answers: []model.ResultAnswer{
		{TimeSpentSeconds: 10},
		{TimeSpentSeconds: 15},
	}}
	assert.Equal(t, 25, Score(p).TimeSpentSeconds)

	p.Summary.TimeSpentSeconds = 40
	assert.Equal(t, 40, Score(p).TimeSpentSeconds)
}

func TestMergeSubjectScores(t *testing.T) {
	day1 := []model.SubjectScore{{SubjectName: "Math", Correct: 3, Total: 4}, {SubjectName: "English", Correct: 1, Total: 2}}
	day2 := []model.SubjectScore{{SubjectName: "English", Correct: 3, Total: 4}, {SubjectName: "Physics", Correct: 0, Total: 1}}

	got := MergeSubjectScores(day1, day2)
	require.Len(t, got, 3)
	assert.Equal(t, model.SubjectScore{SubjectName: "Math", Correct: 3, Total: 4, Percent: 75}, got[0])
	assert.Equal(t, model.SubjectScore{SubjectName: "English", Correct: 4, Total: 6, Percent: 67}, got[1])
	assert.Equal(t, model.SubjectScore{SubjectName: "Physics", Correct: 0, Total: 1, Percent: 0}, got[2])

	assert.Empty(t, MergeSubjectScores())
}
