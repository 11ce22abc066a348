package engine

// Status enumerates the states of a session.
type Status string

const (
	StatusLoading    Status = "LOADING"
	StatusActive     Status = "ACTIVE"
	StatusPaused     Status = "PAUSED"
	StatusSubmitting Status = "SUBMITTING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// transitions lists every allowed status change.
var transitions = map[Status][]Status{
	StatusLoading:    {StatusActive, StatusError},
	StatusActive:     {StatusPaused, StatusSubmitting, StatusError},
	StatusPaused:     {StatusActive},
	StatusSubmitting: {StatusCompleted, StatusActive, StatusError},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}
