package engine

import "errors"

// Activation and contract errors.
var (
	ErrInvalidSessionData = errors.New("invalid session data")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidTransition  = errors.New("operation not allowed in current status")
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrUnknownOption      = errors.New("option does not belong to question")
	ErrIndexOutOfRange    = errors.New("question index out of range")
	ErrAlreadySubmitted   = errors.New("session already submitted")
	ErrSyncInProgress     = errors.New("pause or resume already in flight")
)

// Remote synchronization errors.
var (
	ErrTransientSubmission = errors.New("answer submission failed")
	ErrFinalization        = errors.New("session finalization failed")
	ErrPauseSync           = errors.New("pause could not be synchronized")
	ErrResumeSync          = errors.New("resume could not be synchronized")
	ErrFlagSync            = errors.New("flag could not be synchronized")
)

// ErrSessionGone is returned by a Gateway when the remote API no longer knows
// the session (expired, deleted or not owned by the caller). It makes a failed
// finalization unrecoverable.
var ErrSessionGone = errors.New("remote session gone")
