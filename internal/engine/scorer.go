package engine

import (
	"math"

	"github.com/stemsi/exstem-practice/internal/model"
)

// UncategorizedSubject groups answers whose question has no subject name.
const UncategorizedSubject = "Uncategorized"

// ScorePercent returns 100*correct/total, or 0 when total is 0.
func ScorePercent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(100*correct) / float64(total)
}

// GradeFor maps a score percentage to its grade band. Bands are half-open
// with inclusive lower bounds.
func GradeFor(percent float64) model.Grade {
	switch {
	case percent >= 75:
		return model.GradeA
	case percent >= 65:
		return model.GradeB
	case percent >= 50:
		return model.GradeC
	case percent >= 40:
		return model.GradeD
	default:
		return model.GradeF
	}
}

// BreakdownBySubject groups answers by subject in first-seen order.
func BreakdownBySubject(answers []model.ResultAnswer) []model.SubjectScore {
	index := make(map[string]int)
	var out []model.SubjectScore

	for _, a := range answers {
		name := a.Question.SubjectName
		if name == "" {
			name = UncategorizedSubject
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, model.SubjectScore{SubjectName: name})
		}
		out[i].Total++
		if a.IsCorrect {
			out[i].Correct++
		}
	}

	for i := range out {
		out[i].Percent = roundHalfUp(ScorePercent(out[i].Correct, out[i].Total))
	}
	if out == nil {
		out = []model.SubjectScore{}
	}
	return out
}

// MergeSubjectScores sums per-subject counts across several results, keeping
// first-seen order, and recomputes the percentages.
func MergeSubjectScores(lists ...[]model.SubjectScore) []model.SubjectScore {
	index := make(map[string]int)
	out := []model.SubjectScore{}

	for _, list := range lists {
		for _, sc := range list {
			i, ok := index[sc.SubjectName]
			if !ok {
				i = len(out)
				index[sc.SubjectName] = i
				out = append(out, model.SubjectScore{SubjectName: sc.SubjectName})
			}
			out[i].Correct += sc.Correct
			out[i].Total += sc.Total
		}
	}
	for i := range out {
		out[i].Percent = roundHalfUp(ScorePercent(out[i].Correct, out[i].Total))
	}
	return out
}

// Score turns a raw results payload into a ResultSet.
func Score(payload *model.ResultPayload) model.ResultSet {
	if payload == nil {
		return model.ResultSet{Grade: GradeFor(0), PerSubject: []model.SubjectScore{}}
	}

	correct, spent := 0, 0
	for _, a := range payload.Answers {
		if a.IsCorrect {
			correct++
		}
		spent += a.TimeSpentSeconds
	}
	if payload.Summary.TimeSpentSeconds > 0 {
		spent = payload.Summary.TimeSpentSeconds
	}

	total := len(payload.Answers)
	percent := ScorePercent(correct, total)

	return model.ResultSet{
		SessionID:        payload.Summary.SessionID,
		ScorePercent:     percent,
		Grade:            GradeFor(percent),
		CorrectCount:     correct,
		TotalCount:       total,
		TimeSpentSeconds: spent,
		PerSubject:       BreakdownBySubject(payload.Answers),
	}
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
