package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stemsi/exstem-practice/internal/model"
)

var errRemote = errors.New("remote unavailable")

// fakeGateway records every call and lets tests inject failures.
type fakeGateway struct {
	mu sync.Mutex

	recorded    map[string]string
	recordCalls map[string]int
	// failRecord fails the first n RecordAnswer calls for a question id.
	failRecord map[string]int

	completeCalls int
	completeErr   error
	resultsErr    error
	payload       *model.ResultPayload

	flagCalls   int
	flagErr     error
	pauseCalls  int
	pauseErr    error
	resumeCalls int
	resumeErr   error

	// onRecord runs inside RecordAnswer, outside the gateway lock.
	onRecord func(questionID string)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		recorded:    make(map[string]string),
		recordCalls: make(map[string]int),
		failRecord:  make(map[string]int),
	}
}

func (g *fakeGateway) RecordAnswer(_ context.Context, _ string, questionID, optionID string) (*model.AnswerVerdict, error) {
	g.mu.Lock()
	hook := g.onRecord
	g.recordCalls[questionID]++
	if g.failRecord[questionID] > 0 {
		g.failRecord[questionID]--
		g.mu.Unlock()
		return nil, fmt.Errorf("record %s: %w", questionID, errRemote)
	}
	g.recorded[questionID] = optionID
	g.mu.Unlock()

	if hook != nil {
		hook(questionID)
	}
	return &model.AnswerVerdict{}, nil
}

func (g *fakeGateway) Complete(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completeCalls++
	return g.completeErr
}

func (g *fakeGateway) GetResults(_ context.Context, sessionID string) (*model.ResultPayload, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resultsErr != nil {
		return nil, g.resultsErr
	}
	if g.payload != nil {
		return g.payload, nil
	}

	// Grade whatever was recorded: option "a" is always correct.
	p := &model.ResultPayload{Summary: model.ResultSummary{SessionID: sessionID}}
	for qid, opt := range g.recorded {
		sel := opt
		p.Answers = append(p.Answers, model.ResultAnswer{
			Question:         model.Question{ID: qid},
			SelectedOptionID: &sel,
			IsCorrect:        opt == "a",
		})
	}
	return p, nil
}

func (g *fakeGateway) SetFlag(context.Context, string, string, bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flagCalls++
	return g.flagErr
}

func (g *fakeGateway) Pause(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pauseCalls++
	return g.pauseErr
}

func (g *fakeGateway) Resume(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resumeCalls++
	return g.resumeErr
}

func (g *fakeGateway) completes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completeCalls
}

func (g *fakeGateway) recordedAnswers() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.recorded))
	for k, v := range g.recorded {
		out[k] = v
	}
	return out
}

func (g *fakeGateway) set(fn func(g *fakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

// sampleQuestions builds n questions q1..qn with options a, b, c.
func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:          fmt.Sprintf("q%d", i+1),
			Content:     fmt.Sprintf("Question %d", i+1),
			SubjectName: "Math",
			Options: []model.Option{
				{ID: "a", Label: "A", Content: "first"},
				{ID: "b", Label: "B", Content: "second"},
				{ID: "c", Label: "C", Content: "third"},
			},
		}
	}
	return qs
}

func intPtr(v int) *int { return &v }
