package engine

import (
	"context"

	"github.com/stemsi/exstem-practice/internal/model"
)

// AnswerRecorder records a single answer against the remote API.
type AnswerRecorder interface {
	RecordAnswer(ctx context.Context, sessionID, questionID, optionID string) (*model.AnswerVerdict, error)
}

// Finalizer completes a session and fetches its graded results.
type Finalizer interface {
	Complete(ctx context.Context, sessionID string) error
	GetResults(ctx context.Context, sessionID string) (*model.ResultPayload, error)
}

// SubmissionGateway is the part of the remote contract the Coordinator needs.
type SubmissionGateway interface {
	AnswerRecorder
	Finalizer
}

// Gateway is the full remote contract a Session talks to.
type Gateway interface {
	SubmissionGateway
	SetFlag(ctx context.Context, sessionID, questionID string, flagged bool) error
	Pause(ctx context.Context, sessionID string) error
	Resume(ctx context.Context, sessionID string) error
}
