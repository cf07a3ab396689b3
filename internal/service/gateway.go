package service

import (
	"context"

	"testwise_attempt/internal/model"
)

// AssessmentGateway is the authoritative remote record of attempts.
type AssessmentGateway interface {
	StartAttempt(ctx context.Context, testID uint) (*model.Attempt, error)
	GetAttemptStatus(ctx context.Context, testID uint) (*model.AttemptStatusReport, error)
	SubmitAttempt(ctx context.Context, testID uint, sub *model.Submission) (*model.SubmissionResult, error)
}

// RecoveryCache stores advisory drafts of in-progress attempts.
type RecoveryCache interface {
	Save(ctx context.Context, entry *model.RecoveryEntry) error
	Load(ctx context.Context, userID, testID uint) (*model.RecoveryEntry, error)
	Clear(ctx context.Context, userID, testID uint) error
}

type EntitlementChecker interface {
	CheckEntitled(ctx context.Context, p model.Principal, testID uint) error
}

// Navigation asks the client to leave the attempt view.
type Navigation struct {
	UserID uint   `json:"userId"`
	TestID uint   `json:"testId"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type Navigator interface {
	Navigate(nav Navigation)
}

const (
	EventState      = "STATE"
	EventTick       = "TICK"
	EventRedirect   = "REDIRECT_TICK"
	EventNavigate   = "NAVIGATE"
	EventSubmitFail = "SUBMIT_FAILED"
)

// SessionEvent is pushed to clients watching an attempt session.
type SessionEvent struct {
	Type   string      `json:"type"`
	UserID uint        `json:"-"`
	TestID uint        `json:"testId"`
	Data   interface{} `json:"data,omitempty"`
}

type EventPublisher interface {
	Publish(ev SessionEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(SessionEvent) {}

type nopNavigator struct{}

func (nopNavigator) Navigate(Navigation) {}
