package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
	"testwise_attempt/pkg/monitoring"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Projection is the engine state rebuilt from an authoritative status report.
// Exactly one of Answers (in progress) and Result (completed) is set.
type Projection struct {
	Attempt *model.Attempt
	Answers *AnswerStore
	Result  *model.SubmissionResult
}

func (p *Projection) Completed() bool {
	return p.Result != nil
}

// RecoveryService reconstructs attempt state from the status endpoint. The
// recovery cache is only mirrored to and read for display; it never feeds
// the projection.
type RecoveryService struct {
	Gateway AssessmentGateway
	Cache   RecoveryCache
	group   singleflight.Group
	log     *zap.Logger
}

func NewRecoveryService(gateway AssessmentGateway, cache RecoveryCache, log *zap.Logger) *RecoveryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecoveryService{
		Gateway: gateway,
		Cache:   cache,
		log:     log,
	}
}

// Status queries the status endpoint. Concurrent queries for one test share
// a single request.
func (s *RecoveryService) Status(ctx context.Context, testID uint) (*model.AttemptStatusReport, error) {
	v, err, _ := s.group.Do(strconv.FormatUint(uint64(testID), 10), func() (interface{}, error) {
		return s.Gateway.GetAttemptStatus(ctx, testID)
	})
	if err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) {
			monitoring.StatusChecks.WithLabelValues("not_found").Inc()
		} else {
			monitoring.StatusChecks.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	report := v.(*model.AttemptStatusReport)
	monitoring.StatusChecks.WithLabelValues(string(report.Status)).Inc()
	return report, nil
}

// Resume projects the latest attempt for testID. It returns ErrAttemptNotFound
// when the student has no attempt, and wraps every other failure in
// ErrStatusUnknown so it is never mistaken for "no attempt".
func (s *RecoveryService) Resume(ctx context.Context, testID uint) (*Projection, error) {
	report, err := s.Status(ctx, testID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			return nil, util.ErrAttemptNotFound
		case errors.Is(err, util.ErrNotEntitled):
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", util.ErrStatusUnknown, err)
	}
	return ProjectStatus(report)
}

func ProjectStatus(report *model.AttemptStatusReport) (*Projection, error) {
	attempt := report.Attempt
	switch report.Status {
	case model.AttemptCompleted:
		return &Projection{Attempt: &attempt, Result: ResultFromStatus(report)}, nil
	case model.AttemptInProgress:
		return &Projection{Attempt: &attempt, Answers: NewAnswerStore(attempt.Questions)}, nil
	}
	return nil, fmt.Errorf("%w: unexpected attempt status %q", util.ErrStatusUnknown, report.Status)
}

// ResultFromStatus derives a result for an attempt the status endpoint
// reports as completed.
func ResultFromStatus(report *model.AttemptStatusReport) *model.SubmissionResult {
	var score float64
	if report.Score != nil {
		score = *report.Score
	}
	total := len(report.Questions)
	res := &model.SubmissionResult{
		AttemptID:      report.ID,
		TestID:         report.TestID,
		AttemptNumber:  report.AttemptNumber,
		Score:          score,
		CorrectCount:   util.CorrectCount(score, total),
		TotalQuestions: total,
		StartedAt:      report.StartedAt,
		CompletedAt:    report.CompletedAt,
		Status:         model.AttemptCompleted,
	}
	if report.CompletedAt != nil {
		res.TimeSpent = int(report.CompletedAt.Sub(report.StartedAt) / time.Second)
	}
	return res
}

// CachedDraft returns the last mirrored state, for display while the
// authoritative query is outstanding.
func (s *RecoveryService) CachedDraft(ctx context.Context, userID, testID uint) (*model.RecoveryEntry, error) {
	if s.Cache == nil {
		return nil, util.ErrCacheMiss
	}
	return s.Cache.Load(ctx, userID, testID)
}

// Mirror saves entry to the cache. Failures are logged and otherwise ignored.
func (s *RecoveryService) Mirror(ctx context.Context, entry *model.RecoveryEntry) {
	if s.Cache == nil || entry == nil {
		return
	}
	if err := s.Cache.Save(ctx, entry); err != nil {
		s.log.Warn("recovery cache save failed", zap.Uint("test_id", entry.TestID), zap.Error(err))
	}
}

func (s *RecoveryService) Forget(ctx context.Context, userID, testID uint) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Clear(ctx, userID, testID); err != nil {
		s.log.Warn("recovery cache clear failed", zap.Uint("test_id", testID), zap.Error(err))
	}
}
