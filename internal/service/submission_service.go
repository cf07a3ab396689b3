package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
	"testwise_attempt/pkg/monitoring"

	"go.uber.org/zap"
)

// SubmitError is a classified submission failure. Retryable failures may
// succeed if the same payload is sent again.
type SubmitError struct {
	Retryable bool
	Err       error
}

func (e *SubmitError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("retryable submission failure: %v", e.Err)
	}
	return fmt.Sprintf("fatal submission failure: %v", e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var se *SubmitError
	return errors.As(err, &se) && se.Retryable
}

// BuildPayload encodes one answer per question in question order. Questions
// without a matching answer are sent with the empty value of their kind.
func BuildPayload(attemptID uint, elapsed time.Duration, questions []model.Question, answers map[uint]model.AnswerValue) *model.Submission {
	if elapsed < 0 {
		elapsed = 0
	}
	sub := &model.Submission{
		AttemptID: attemptID,
		TimeSpent: int(elapsed / time.Second),
		Answers:   make([]model.SubmissionAnswer, 0, len(questions)),
	}
	for _, q := range questions {
		v, ok := answers[q.ID]
		if !ok || v.Kind() != q.Kind {
			v = model.EmptyAnswer(q.Kind)
		}
		sub.Answers = append(sub.Answers, model.SubmissionAnswer{
			QuestionID: q.ID,
			Answer:     v.Wire(),
		})
	}
	return sub
}

// SubmissionService sends a payload exactly once per call and classifies the
// outcome. Retrying is the caller's decision.
type SubmissionService struct {
	Gateway       AssessmentGateway
	SkewTolerance time.Duration
	log           *zap.Logger
}

func NewSubmissionService(gateway AssessmentGateway, skewTolerance time.Duration, log *zap.Logger) *SubmissionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubmissionService{
		Gateway:       gateway,
		SkewTolerance: skewTolerance,
		log:           log,
	}
}

func (s *SubmissionService) Submit(ctx context.Context, testID uint, sub *model.Submission) (*model.SubmissionResult, error) {
	res, err := s.Gateway.SubmitAttempt(ctx, testID, sub)
	if err != nil {
		return nil, classifySubmitError(err)
	}
	s.reconcile(sub, res)
	return res, nil
}

func classifySubmitError(err error) *SubmitError {
	switch {
	case errors.Is(err, context.Canceled):
		return &SubmitError{Retryable: false, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &SubmitError{Retryable: true, Err: err}
	}
	var gerr *util.GatewayError
	if errors.As(err, &gerr) {
		return &SubmitError{Retryable: gerr.Retryable(), Err: err}
	}
	return &SubmitError{Retryable: false, Err: err}
}

// reconcile compares the elapsed time the client reported with what the
// server recorded. The server's figure is authoritative; drift is only logged.
func (s *SubmissionService) reconcile(sub *model.Submission, res *model.SubmissionResult) {
	var server time.Duration
	switch {
	case res.CompletedAt != nil && !res.StartedAt.IsZero():
		server = res.CompletedAt.Sub(res.StartedAt)
	case res.TimeSpent > 0:
		server = time.Duration(res.TimeSpent) * time.Second
	default:
		return
	}

	client := time.Duration(sub.TimeSpent) * time.Second
	skew := client - server
	if skew < 0 {
		skew = -skew
	}
	monitoring.ClockSkew.Observe(skew.Seconds())

	if s.SkewTolerance > 0 && skew > s.SkewTolerance {
		s.log.Warn("client and server elapsed time disagree",
			zap.Uint("attempt_id", sub.AttemptID),
			zap.Int("client_seconds", sub.TimeSpent),
			zap.Float64("server_seconds", server.Seconds()),
			zap.Duration("skew", skew))
	}
}
