package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
	"testwise_attempt/pkg/logger"
	"testwise_attempt/pkg/monitoring"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	triggerManual = "manual"
	triggerTimer  = "timer"
)

const DefaultReturnPath = "/topics"

type SessionConfig struct {
	TickInterval      time.Duration
	RedirectAfter     time.Duration
	MaxSubmitAttempts int
	RetryBackoff      time.Duration
	SkewTolerance     time.Duration
	ReturnPath        string
}

type SessionDeps struct {
	Gateway     AssessmentGateway
	Cache       RecoveryCache
	Entitlement EntitlementChecker
	Navigator   Navigator
	Events      EventPublisher
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

// SessionSnapshot is the read model rendered by the UI.
// swagger:model SessionSnapshot
type SessionSnapshot struct {
	InstanceID        string                     `json:"instanceId"`
	TestID            uint                       `json:"testId"`
	State             model.SessionState         `json:"state"`
	AttemptID         uint                       `json:"attemptId,omitempty"`
	AttemptNumber     int                        `json:"attemptNumber,omitempty"`
	StartedAt         *time.Time                 `json:"startedAt,omitempty"`
	DurationSeconds   *int                       `json:"durationSeconds,omitempty"`
	RemainingSeconds  *int                       `json:"remainingSeconds,omitempty"`
	RedirectCountdown *int                       `json:"redirectCountdown,omitempty"`
	CurrentQuestion   int                        `json:"currentQuestion"`
	Questions         []model.Question           `json:"questions,omitempty"`
	Answers           map[uint]model.AnswerValue `json:"answers,omitempty"`
	Answered          int                        `json:"answered"`
	Result            *model.SubmissionResult    `json:"result,omitempty"`
	SubmitAttempts    int                        `json:"submitAttempts"`
	Error             string                     `json:"error,omitempty"`
	NavigateTo        string                     `json:"navigateTo,omitempty"`
	Draft             *model.RecoveryEntry       `json:"draft,omitempty"`
}

// AttemptSession drives one student through one test:
// IDLE -> STARTING -> IN_PROGRESS -> SUBMITTING -> COMPLETED, with ERRORED
// reachable from STARTING and SUBMITTING.
//
// Every transition happens under mu. Network calls run outside it and their
// results are applied only if the instance generation still matches, so work
// belonging to an instance that was reset is dropped.
type AttemptSession struct {
	principal model.Principal
	testID    uint
	cfg       SessionConfig

	gateway     AssessmentGateway
	entitlement EntitlementChecker
	navigator   Navigator
	events      EventPublisher
	clock       clockwork.Clock
	log         *zap.Logger
	recovery    *RecoveryService
	submitter   *SubmissionService

	mu             sync.Mutex
	state          model.SessionState
	gen            uint64
	instanceID     string
	ctx            context.Context
	cancel         context.CancelFunc
	attempt        *model.Attempt
	answers        *AnswerStore
	current        int
	result         *model.SubmissionResult
	countdown      *Countdown
	redirect       *Countdown
	submitAttempts int
	lastErr        error
	navigateTo     string
	lastActive     time.Time
	closed         bool
	draftSeq       uint64

	// mirrorMu orders recovery cache writes against the clear on completion
	// or reset. Lock order is mirrorMu, then mu.
	mirrorMu    sync.Mutex
	mirroredSeq uint64
}

func NewAttemptSession(p model.Principal, testID uint, cfg SessionConfig, deps SessionDeps) *AttemptSession {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	if deps.Entitlement == nil {
		deps.Entitlement = RoleEntitlement{}
	}
	if cfg.MaxSubmitAttempts < 1 {
		cfg.MaxSubmitAttempts = 1
	}
	if cfg.ReturnPath == "" {
		cfg.ReturnPath = DefaultReturnPath
	}

	log := logger.Session(deps.Logger, p.UserID, testID)
	s := &AttemptSession{
		principal:   p,
		testID:      testID,
		cfg:         cfg,
		gateway:     deps.Gateway,
		entitlement: deps.Entitlement,
		navigator:   deps.Navigator,
		events:      deps.Events,
		clock:       deps.Clock,
		log:         log,
		recovery:    NewRecoveryService(deps.Gateway, deps.Cache, log),
		submitter:   NewSubmissionService(deps.Gateway, cfg.SkewTolerance, log),
		state:       model.SessionIdle,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.instanceID = model.GenerateUUID()
	s.lastActive = s.clock.Now()
	return s
}

func (s *AttemptSession) TestID() uint { return s.testID }

func (s *AttemptSession) UserID() uint { return s.principal.UserID }

func (s *AttemptSession) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive is the time of the last caller operation.
func (s *AttemptSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch marks the session as in use.
func (s *AttemptSession) Touch() {
	s.mu.Lock()
	s.touchLocked()
	s.mu.Unlock()
}

// SetReturnPath sets where the student is sent once the attempt ends.
func (s *AttemptSession) SetReturnPath(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	s.cfg.ReturnPath = path
	s.mu.Unlock()
}

// Resume rebuilds the session from the status endpoint. Not finding an attempt
// leaves the session IDLE; any other failure leaves it IDLE with the error
// recorded so the caller can offer a retry.
func (s *AttemptSession) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return util.ErrSessionClosed
	}
	s.touchLocked()
	if s.state.Busy() {
		s.mu.Unlock()
		return nil
	}
	s.beginInstanceLocked()
	gen := s.gen
	s.setStateLocked(model.SessionStarting)
	s.mu.Unlock()

	proj, err := s.recovery.Resume(ctx, s.testID)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	switch {
	case errors.Is(err, util.ErrAttemptNotFound):
		s.setStateLocked(model.SessionIdle)
		s.mu.Unlock()
		return nil
	case err != nil:
		s.lastErr = err
		s.setStateLocked(model.SessionIdle)
		s.mu.Unlock()
		s.log.Warn("resume failed", zap.Error(err))
		return err
	}

	if proj.Completed() {
		s.attempt = proj.Attempt
		s.result = proj.Result
		s.enterCompletedLocked(gen)
		s.mu.Unlock()
		return nil
	}
	s.enterInProgressLocked(gen, proj.Attempt, proj.Answers)
	d := s.draftLocked()
	s.mu.Unlock()

	s.mirror(ctx, d)
	return nil
}

// Start begins a new attempt after checking entitlement and that no attempt
// is already in progress.
func (s *AttemptSession) Start(ctx context.Context) error {
	if err := s.entitlement.CheckEntitled(ctx, s.principal, s.testID); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return util.ErrSessionClosed
	}
	s.touchLocked()
	if s.state.Busy() {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: session is %s", util.ErrInvalidState, state)
	}
	s.beginInstanceLocked()
	gen := s.gen
	s.setStateLocked(model.SessionStarting)
	s.mu.Unlock()

	report, err := s.recovery.Status(ctx, s.testID)
	switch {
	case err == nil && report.Status == model.AttemptInProgress:
		return s.abortStart(gen, util.ErrAttemptAlreadyActive, model.SessionIdle)
	case err != nil && !errors.Is(err, util.ErrAttemptNotFound):
		return s.abortStart(gen, fmt.Errorf("%w: %w", util.ErrStatusUnknown, err), model.SessionErrored)
	}

	attempt, err := s.gateway.StartAttempt(ctx, s.testID)
	if err != nil {
		if errors.Is(err, util.ErrAttemptAlreadyActive) {
			return s.abortStart(gen, err, model.SessionIdle)
		}
		return s.abortStart(gen, err, model.SessionErrored)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return fmt.Errorf("%w: session was reset while starting", util.ErrInvalidState)
	}
	s.enterInProgressLocked(gen, attempt, NewAnswerStore(attempt.Questions))
	d := s.draftLocked()
	s.mu.Unlock()

	s.log.Info("attempt started", zap.Uint("attempt_id", attempt.ID), zap.Int("attempt_number", attempt.AttemptNumber))
	s.mirror(ctx, d)
	return nil
}

func (s *AttemptSession) abortStart(gen uint64, err error, to model.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.lastErr = err
		s.setStateLocked(to)
	}
	s.log.Warn("start failed", zap.String("state", string(to)), zap.Error(err))
	return err
}

// Answer replaces the answer to one question.
func (s *AttemptSession) Answer(questionID uint, v model.AnswerValue) error {
	s.mu.Lock()
	s.touchLocked()
	if state := s.state; state != model.SessionInProgress {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot answer while %s", util.ErrInvalidState, state)
	}
	if s.countdown != nil && s.countdown.Expired() {
		s.countdown.Check()
		s.mu.Unlock()
		return fmt.Errorf("%w: time is up", util.ErrInvalidState)
	}
	if err := s.answers.Set(questionID, v); err != nil {
		s.mu.Unlock()
		return err
	}
	d := s.draftLocked()
	s.mu.Unlock()

	s.mirror(context.Background(), d)
	return nil
}

func (s *AttemptSession) Next() error { return s.move(1) }

func (s *AttemptSession) Previous() error { return s.move(-1) }

func (s *AttemptSession) move(delta int) error {
	s.mu.Lock()
	s.touchLocked()
	if s.state != model.SessionInProgress {
		s.mu.Unlock()
		return fmt.Errorf("%w: no attempt in progress", util.ErrInvalidState)
	}
	next := s.current + delta
	if last := len(s.attempt.Questions) - 1; next > last {
		next = last
	}
	if next < 0 {
		next = 0
	}
	s.current = next
	d := s.draftLocked()
	s.mu.Unlock()

	s.mirror(context.Background(), d)
	return nil
}

// Submit hands in the attempt. It is a no-op while a submission is in flight
// or after completion. The submission runs on the session's own context, so
// it carries on if ctx ends first.
func (s *AttemptSession) Submit(ctx context.Context) error {
	s.mu.Lock()
	s.touchLocked()
	switch s.state {
	case model.SessionSubmitting, model.SessionCompleted:
		s.mu.Unlock()
		return nil
	case model.SessionInProgress:
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot submit while %s", util.ErrInvalidState, state)
	}
	gen := s.gen
	sub := s.enterSubmittingLocked()
	runCtx := s.ctx
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.runSubmission(runCtx, gen, sub, triggerManual)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AttemptSession) handleExpiry(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state != model.SessionInProgress {
		s.mu.Unlock()
		return
	}
	monitoring.ExpiryCounter.Inc()
	s.log.Info("attempt time is up, submitting", zap.Uint("attempt_id", s.attempt.ID))
	sub := s.enterSubmittingLocked()
	runCtx := s.ctx
	s.mu.Unlock()

	s.runSubmission(runCtx, gen, sub, triggerTimer)
}

// enterSubmittingLocked snapshots the payload and moves to SUBMITTING.
func (s *AttemptSession) enterSubmittingLocked() *model.Submission {
	elapsed := s.clock.Now().Sub(s.attempt.StartedAt)
	sub := BuildPayload(s.attempt.ID, elapsed, s.attempt.Questions, s.answers.Snapshot())
	s.submitAttempts = 0
	s.setStateLocked(model.SessionSubmitting)
	return sub
}

// runSubmission sends sub up to MaxSubmitAttempts times. Before every resend,
// and before the first send of a manual submission, the status endpoint is
// consulted so an attempt the server already holds as completed is never
// sent again.
func (s *AttemptSession) runSubmission(ctx context.Context, gen uint64, sub *model.Submission, trigger string) error {
	log := s.log.With(zap.Uint("attempt_id", sub.AttemptID), zap.String("trigger", trigger))

	var lastErr error
	for n := 1; n <= s.cfg.MaxSubmitAttempts; n++ {
		if n > 1 {
			monitoring.SubmitRetries.Inc()
			if !s.sleep(ctx, s.cfg.RetryBackoff) {
				return ctx.Err()
			}
		}
		if n > 1 || trigger == triggerManual {
			if s.alreadyCompleted(ctx, gen, sub.AttemptID) {
				monitoring.SubmissionCounter.WithLabelValues(trigger, "already_completed").Inc()
				return nil
			}
		}
		if !s.recordSend(gen, n) {
			return nil
		}

		res, err := s.submitter.Submit(ctx, s.testID, sub)
		if err == nil {
			monitoring.SubmissionCounter.WithLabelValues(trigger, "success").Inc()
			log.Info("attempt submitted", zap.Int("send", n), zap.Float64("score", res.Score))
			s.complete(gen, res)
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		lastErr = err
		retryable := IsRetryable(err)
		log.Warn("submission failed", zap.Int("send", n), zap.Bool("retryable", retryable), zap.Error(err))
		s.events.Publish(SessionEvent{
			Type:   EventSubmitFail,
			UserID: s.principal.UserID,
			TestID: s.testID,
			Data:   map[string]interface{}{"send": n, "retryable": retryable},
		})
		if !retryable {
			break
		}
	}

	if s.alreadyCompleted(ctx, gen, sub.AttemptID) {
		monitoring.SubmissionCounter.WithLabelValues(trigger, "already_completed").Inc()
		return nil
	}
	monitoring.SubmissionCounter.WithLabelValues(trigger, "failed").Inc()
	return s.failSubmission(gen, fmt.Errorf("%w: %w", util.ErrSubmissionExhausted, lastErr))
}

func (s *AttemptSession) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}

// alreadyCompleted reports whether the server holds attemptID as completed,
// completing the session if so. Query failures count as "not completed".
func (s *AttemptSession) alreadyCompleted(ctx context.Context, gen uint64, attemptID uint) bool {
	report, err := s.recovery.Status(ctx, s.testID)
	if err != nil {
		s.log.Debug("status check before send failed", zap.Error(err))
		return false
	}
	if report.ID != attemptID || report.Status != model.AttemptCompleted {
		return false
	}
	s.log.Info("attempt already completed on server", zap.Uint("attempt_id", attemptID))
	s.complete(gen, ResultFromStatus(report))
	return true
}

func (s *AttemptSession) recordSend(gen uint64, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != model.SessionSubmitting {
		return false
	}
	s.submitAttempts = n
	return true
}

func (s *AttemptSession) complete(gen uint64, res *model.SubmissionResult) {
	s.mu.Lock()
	if gen != s.gen || s.state != model.SessionSubmitting {
		s.mu.Unlock()
		return
	}
	s.result = res
	s.lastErr = nil
	s.enterCompletedLocked(gen)
	s.mu.Unlock()

	s.forget()
}

func (s *AttemptSession) failSubmission(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.gen || s.state != model.SessionSubmitting {
		s.mu.Unlock()
		return err
	}
	s.lastErr = err
	s.setStateLocked(model.SessionErrored)
	nav := s.navigationLocked("submission_failed")
	s.mu.Unlock()

	s.log.Error("attempt submission abandoned", zap.Error(err))
	s.navigator.Navigate(nav)
	return err
}

func (s *AttemptSession) handleRedirect(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.state != model.SessionCompleted {
		s.mu.Unlock()
		return
	}
	s.stopRedirectLocked()
	nav := s.navigationLocked("redirect")
	s.mu.Unlock()

	s.navigator.Navigate(nav)
}

// CancelRedirect disarms the post-completion redirect.
func (s *AttemptSession) CancelRedirect() {
	s.mu.Lock()
	s.touchLocked()
	s.stopRedirectLocked()
	s.mu.Unlock()
}

// Reset abandons the current instance: timers stop, in-flight work is
// cancelled and its late results are discarded.
func (s *AttemptSession) Reset() {
	s.mu.Lock()
	s.touchLocked()
	s.beginInstanceLocked()
	s.setStateLocked(model.SessionIdle)
	s.mu.Unlock()

	s.forget()
}

// Close stops all timers and in-flight work without changing state.
func (s *AttemptSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.cancel()
	s.stopCountdownLocked()
	s.stopRedirectLocked()
}

// Draft returns the advisory cached state of an unfinished attempt.
func (s *AttemptSession) Draft(ctx context.Context) (*model.RecoveryEntry, error) {
	return s.recovery.CachedDraft(ctx, s.principal.UserID, s.testID)
}

// QuestionKind returns the kind of a question in the current attempt.
func (s *AttemptSession) QuestionKind(questionID uint) (model.QuestionKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return "", false
	}
	q, ok := s.attempt.Question(questionID)
	return q.Kind, ok
}

func (s *AttemptSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		InstanceID:      s.instanceID,
		TestID:          s.testID,
		State:           s.state,
		CurrentQuestion: s.current,
		Result:          s.result,
		SubmitAttempts:  s.submitAttempts,
		NavigateTo:      s.navigateTo,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if a := s.attempt; a != nil {
		startedAt := a.StartedAt
		snap.AttemptID = a.ID
		snap.AttemptNumber = a.AttemptNumber
		snap.StartedAt = &startedAt
		snap.DurationSeconds = a.DurationSeconds
		snap.Questions = a.Questions
		if a.Timed() && (s.state == model.SessionInProgress || s.state == model.SessionSubmitting) {
			remaining := a.Duration() - s.clock.Now().Sub(a.StartedAt)
			secs := wholeSeconds(remaining)
			snap.RemainingSeconds = &secs
		}
	}
	if s.answers != nil {
		snap.Answers = s.answers.Snapshot()
		snap.Answered = s.answers.Answered()
	}
	if s.redirect != nil {
		secs := wholeSeconds(s.redirect.Remaining())
		snap.RedirectCountdown = &secs
	}
	return snap
}

// beginInstanceLocked discards everything belonging to the previous instance.
func (s *AttemptSession) beginInstanceLocked() {
	s.gen++
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.instanceID = model.GenerateUUID()
	s.stopCountdownLocked()
	s.stopRedirectLocked()
	s.attempt = nil
	s.answers = nil
	s.current = 0
	s.result = nil
	s.submitAttempts = 0
	s.lastErr = nil
	s.navigateTo = ""
}

func (s *AttemptSession) enterInProgressLocked(gen uint64, attempt *model.Attempt, answers *AnswerStore) {
	s.attempt = attempt
	s.answers = answers
	s.current = 0
	s.setStateLocked(model.SessionInProgress)
	if !attempt.Timed() {
		return
	}

	s.countdown = NewCountdown(s.clock, attempt.StartedAt, attempt.Duration(), s.cfg.TickInterval, CountdownHooks{
		OnTick: func(remaining time.Duration) {
			s.events.Publish(SessionEvent{
				Type:   EventTick,
				UserID: s.principal.UserID,
				TestID: s.testID,
				Data:   map[string]int{"remainingSeconds": wholeSeconds(remaining)},
			})
		},
		OnExpire: func() {
			go s.handleExpiry(gen)
		},
	})
	s.countdown.Start()
}

func (s *AttemptSession) enterCompletedLocked(gen uint64) {
	s.setStateLocked(model.SessionCompleted)
	if s.cfg.RedirectAfter <= 0 {
		return
	}

	s.redirect = NewCountdown(s.clock, s.clock.Now(), s.cfg.RedirectAfter, s.cfg.TickInterval, CountdownHooks{
		OnTick: func(remaining time.Duration) {
			s.events.Publish(SessionEvent{
				Type:   EventRedirect,
				UserID: s.principal.UserID,
				TestID: s.testID,
				Data:   map[string]int{"redirectCountdown": wholeSeconds(remaining)},
			})
		},
		OnExpire: func() {
			go s.handleRedirect(gen)
		},
	})
	s.redirect.Start()
}

// setStateLocked applies a transition. The attempt countdown only lives in
// IN_PROGRESS and the redirect countdown only in COMPLETED.
func (s *AttemptSession) setStateLocked(to model.SessionState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	if to != model.SessionInProgress {
		s.stopCountdownLocked()
	}
	if to != model.SessionCompleted {
		s.stopRedirectLocked()
	}

	monitoring.SessionTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.log.Info("session state changed", zap.String("from", string(from)), zap.String("state", string(to)))
	s.events.Publish(SessionEvent{
		Type:   EventState,
		UserID: s.principal.UserID,
		TestID: s.testID,
		Data:   map[string]string{"from": string(from), "state": string(to)},
	})
}

func (s *AttemptSession) stopCountdownLocked() {
	if s.countdown != nil {
		s.countdown.Stop()
		s.countdown = nil
	}
}

func (s *AttemptSession) stopRedirectLocked() {
	if s.redirect != nil {
		s.redirect.Stop()
		s.redirect = nil
	}
}

func (s *AttemptSession) navigationLocked(reason string) Navigation {
	s.navigateTo = s.cfg.ReturnPath
	return Navigation{
		UserID: s.principal.UserID,
		TestID: s.testID,
		Path:   s.cfg.ReturnPath,
		Reason: reason,
	}
}

// pendingDraft is a recovery entry together with the instance it was taken
// from and its position in the session's sequence of drafts.
type pendingDraft struct {
	gen   uint64
	seq   uint64
	entry *model.RecoveryEntry
}

func (s *AttemptSession) draftLocked() *pendingDraft {
	if s.attempt == nil || s.answers == nil {
		return nil
	}
	s.draftSeq++
	entry := &model.RecoveryEntry{
		UserID:          s.principal.UserID,
		TestID:          s.testID,
		AttemptID:       s.attempt.ID,
		AttemptNumber:   s.attempt.AttemptNumber,
		StartedAt:       s.attempt.StartedAt,
		DurationSeconds: s.attempt.DurationSeconds,
		Questions:       s.attempt.Questions,
		Answers:         s.answers.Snapshot(),
		CurrentQuestion: s.current,
		SavedAt:         s.clock.Now(),
	}
	return &pendingDraft{gen: s.gen, seq: s.draftSeq, entry: entry}
}

// mirror saves d unless the instance it came from has moved past
// IN_PROGRESS or a newer draft was already saved.
func (s *AttemptSession) mirror(ctx context.Context, d *pendingDraft) {
	if d == nil {
		return
	}
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	s.mu.Lock()
	current := d.gen == s.gen && s.state == model.SessionInProgress
	s.mu.Unlock()
	if !current || d.seq <= s.mirroredSeq {
		return
	}
	s.mirroredSeq = d.seq
	s.recovery.Mirror(ctx, d.entry)
}

func (s *AttemptSession) forget() {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	s.recovery.Forget(context.Background(), s.principal.UserID, s.testID)
}

func (s *AttemptSession) touchLocked() {
	s.lastActive = s.clock.Now()
}
