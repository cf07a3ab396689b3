package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"

	"github.com/jonboulle/clockwork"
)

/* ---------------- In-memory fakes for the session's collaborators ---------------- */

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newFakeClock(at time.Time) fakeClock {
	return clockwork.NewFakeClockAt(at)
}

type fakeGateway struct {
	mu sync.Mutex

	statusFn func(n int) (*model.AttemptStatusReport, error)
	startFn  func(n int) (*model.Attempt, error)
	submitFn func(n int, sub *model.Submission) (*model.SubmissionResult, error)

	statusCalls int
	startCalls  int
	submitCalls int
	submissions []*model.Submission
}

func (g *fakeGateway) GetAttemptStatus(ctx context.Context, testID uint) (*model.AttemptStatusReport, error) {
	g.mu.Lock()
	g.statusCalls++
	n, fn := g.statusCalls, g.statusFn
	g.mu.Unlock()
	if fn == nil {
		return nil, errNotFound
	}
	return fn(n)
}

func (g *fakeGateway) StartAttempt(ctx context.Context, testID uint) (*model.Attempt, error) {
	g.mu.Lock()
	g.startCalls++
	n, fn := g.startCalls, g.startFn
	g.mu.Unlock()
	if fn == nil {
		return nil, errors.New("start not configured")
	}
	return fn(n)
}

func (g *fakeGateway) SubmitAttempt(ctx context.Context, testID uint, sub *model.Submission) (*model.SubmissionResult, error) {
	g.mu.Lock()
	g.submitCalls++
	g.submissions = append(g.submissions, sub)
	n, fn := g.submitCalls, g.submitFn
	g.mu.Unlock()
	if fn == nil {
		return nil, errors.New("submit not configured")
	}
	return fn(n, sub)
}

func (g *fakeGateway) calls() (status, start, submit int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls, g.startCalls, g.submitCalls
}

func (g *fakeGateway) lastSubmission() *model.Submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.submissions) == 0 {
		return nil
	}
	return g.submissions[len(g.submissions)-1]
}

var (
	errNotFound    = &util.GatewayError{Op: "status", StatusCode: http.StatusNotFound, Err: util.ErrAttemptNotFound}
	errUnavailable = &util.GatewayError{Op: "submit", StatusCode: http.StatusServiceUnavailable, Err: errors.New("Service Unavailable")}
	errValidation  = &util.GatewayError{Op: "submit", StatusCode: http.StatusUnprocessableEntity, Message: "Attempt already submitted", Err: errors.New("Unprocessable Entity")}
)

type fakeNavigator struct {
	mu   sync.Mutex
	navs []Navigation
}

func (n *fakeNavigator) Navigate(nav Navigation) {
	n.mu.Lock()
	n.navs = append(n.navs, nav)
	n.mu.Unlock()
}

func (n *fakeNavigator) all() []Navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Navigation(nil), n.navs...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []SessionEvent
}

func (e *fakeEvents) Publish(ev SessionEvent) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

// states lists every state entered, in order.
func (e *fakeEvents) states() []model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.SessionState
	for _, ev := range e.events {
		if ev.Type != EventState {
			continue
		}
		data := ev.Data.(map[string]string)
		out = append(out, model.SessionState(data["state"]))
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

/* ---------------- fixtures ---------------- */

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Prompt: "2+2?", Kind: model.SingleChoice, Options: []string{"3", "4", "5"}},
		{ID: 2, Prompt: "Pick primes", Kind: model.MultipleChoice, Options: []string{"2", "4", "5", "9"}},
		{ID: 3, Prompt: "Explain", Kind: model.OpenText},
	}
}

func sampleAttempt(startedAt time.Time, durationSeconds int) *model.Attempt {
	a := &model.Attempt{
		ID:            42,
		TestID:        7,
		AttemptNumber: 1,
		StartedAt:     startedAt,
		Status:        model.AttemptInProgress,
		Questions:     sampleQuestions(),
	}
	if durationSeconds > 0 {
		a.DurationSeconds = &durationSeconds
	}
	return a
}

func inProgress(a *model.Attempt) *model.AttemptStatusReport {
	return &model.AttemptStatusReport{Attempt: *a}
}

func completed(a *model.Attempt, score float64, at time.Time) *model.AttemptStatusReport {
	r := &model.AttemptStatusReport{Attempt: *a, Score: &score, CompletedAt: &at}
	r.Status = model.AttemptCompleted
	return r
}

func successResult(a *model.Attempt, score float64) *model.SubmissionResult {
	return &model.SubmissionResult{
		AttemptID:      a.ID,
		TestID:         a.TestID,
		AttemptNumber:  a.AttemptNumber,
		Score:          score,
		CorrectCount:   util.CorrectCount(score, len(a.Questions)),
		TotalQuestions: len(a.Questions),
		StartedAt:      a.StartedAt,
		Status:         model.AttemptCompleted,
	}
}
