package model

type SessionState string

const (
	SessionIdle       SessionState = "IDLE"
	SessionStarting   SessionState = "STARTING"
	SessionInProgress SessionState = "IN_PROGRESS"
	SessionSubmitting SessionState = "SUBMITTING"
	SessionCompleted  SessionState = "COMPLETED"
	SessionErrored    SessionState = "ERRORED"
)

// Terminal reports whether the state ends the current attempt instance.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionErrored
}

// Busy reports whether work for the attempt is outstanding.
func (s SessionState) Busy() bool {
	return s == SessionStarting || s == SessionInProgress || s == SessionSubmitting
}
