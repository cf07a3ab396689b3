package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
	"testwise_attempt/pkg/monitoring"
	"testwise_attempt/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TokenSource yields the bearer token sent with each request.
type TokenSource func() string

// AssessmentRepository talks to the Assessment Service over HTTP. It never
// retries; callers decide what to do with a failure.
type AssessmentRepository struct {
	baseURL string
	client  *http.Client
	token   TokenSource
}

func NewAssessmentRepository(baseURL string, timeout time.Duration) *AssessmentRepository {
	return &AssessmentRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy that authenticates with token. The HTTP client is shared.
func (r *AssessmentRepository) WithToken(token TokenSource) *AssessmentRepository {
	cp := *r
	cp.token = token
	return &cp
}

func (r *AssessmentRepository) StartAttempt(ctx context.Context, testID uint) (*model.Attempt, error) {
	var dto attemptDTO
	if err := r.do(ctx, "start", http.MethodPost, r.testURL(testID, "start"), nil, &dto); err != nil {
		return nil, err
	}
	attempt, err := dto.attempt(testID)
	if err != nil {
		return nil, &util.GatewayError{Op: "start", StatusCode: http.StatusOK, Message: "malformed attempt", Err: err}
	}
	attempt.Status = model.AttemptInProgress
	return attempt, nil
}

func (r *AssessmentRepository) GetAttemptStatus(ctx context.Context, testID uint) (*model.AttemptStatusReport, error) {
	var dto attemptDTO
	if err := r.do(ctx, "status", http.MethodGet, r.testURL(testID, "status"), nil, &dto); err != nil {
		return nil, err
	}
	attempt, err := dto.attempt(testID)
	if err != nil {
		return nil, &util.GatewayError{Op: "status", StatusCode: http.StatusOK, Message: "malformed status", Err: err}
	}
	report := &model.AttemptStatusReport{
		Attempt: *attempt,
		Score:   dto.Score,
	}
	if !dto.CompletedAt.IsZero() {
		t := dto.CompletedAt.Time
		report.CompletedAt = &t
	}
	return report, nil
}

func (r *AssessmentRepository) SubmitAttempt(ctx context.Context, testID uint, sub *model.Submission) (*model.SubmissionResult, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, &util.GatewayError{Op: "submit", Message: "encode submission", Err: err}
	}

	var dto resultDTO
	if err := r.do(ctx, "submit", http.MethodPost, r.testURL(testID, "submit"), body, &dto); err != nil {
		return nil, err
	}
	return dto.result(testID, len(sub.Answers)), nil
}

func (r *AssessmentRepository) testURL(testID uint, action string) string {
	return fmt.Sprintf("%s/tests/%d/%s", r.baseURL, testID, action)
}

func (r *AssessmentRepository) do(ctx context.Context, op, method, url string, body []byte, out interface{}) (err error) {
	ctx, span := tracing.Start(ctx, "assessment."+op, trace.WithSpanKind(trace.SpanKindClient))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			tracing.Fail(span, err)
		}
		monitoring.GatewayDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &util.GatewayError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != nil {
		if token := r.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := r.client.Do(req)
	if err != nil {
		return &util.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(tracing.AttrStatus.Int(resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &util.GatewayError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &util.GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

func statusError(op string, status int, payload []byte) error {
	gerr := &util.GatewayError{Op: op, StatusCode: status, Message: detailMessage(payload)}
	switch status {
	case http.StatusNotFound:
		gerr.Err = util.ErrAttemptNotFound
	case http.StatusConflict:
		gerr.Err = util.ErrAttemptAlreadyActive
	case http.StatusUnauthorized, http.StatusForbidden:
		gerr.Err = util.ErrNotEntitled
	default:
		gerr.Err = errors.New(http.StatusText(status))
	}
	return gerr
}

// detailMessage extracts the "detail" field of an error body. Validation
// errors carry a list of objects instead of a string.
func detailMessage(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(payload))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(body.Detail)
}

type questionDTO struct {
	ID           uint     `json:"id"`
	Question     string   `json:"question"`
	QuestionType string   `json:"question_type"`
	Options      []string `json:"options"`
	Hint         *string  `json:"hint"`
	Image        *string  `json:"image"`
}

type attemptDTO struct {
	AttemptID     uint          `json:"attempt_id"`
	TestID        uint          `json:"test_id"`
	AttemptNumber int           `json:"attempt_number"`
	StartTime     wireTime      `json:"start_time"`
	Duration      *int          `json:"duration"`
	Questions     []questionDTO `json:"questions"`
	Status        string        `json:"status"`
	CompletedAt   wireTime      `json:"completed_at"`
	Score         *float64      `json:"score"`
}

func (d *attemptDTO) attempt(testID uint) (*model.Attempt, error) {
	if d.AttemptID == 0 {
		return nil, errors.New("missing attempt_id")
	}
	if d.StartTime.IsZero() {
		return nil, errors.New("missing start_time")
	}
	if d.TestID != 0 {
		testID = d.TestID
	}

	questions := make([]model.Question, 0, len(d.Questions))
	for _, q := range d.Questions {
		kind := model.QuestionKind(q.QuestionType)
		if !kind.Valid() {
			return nil, fmt.Errorf("question %d has unknown type %q", q.ID, q.QuestionType)
		}
		question := model.Question{
			ID:      q.ID,
			Prompt:  q.Question,
			Kind:    kind,
			Options: q.Options,
		}
		if q.Hint != nil {
			question.Hint = *q.Hint
		}
		if q.Image != nil {
			question.Image = *q.Image
		}
		questions = append(questions, question)
	}

	return &model.Attempt{
		ID:              d.AttemptID,
		TestID:          testID,
		AttemptNumber:   d.AttemptNumber,
		StartedAt:       d.StartTime.Time,
		DurationSeconds: d.Duration,
		Status:          model.AttemptStatus(strings.ToUpper(d.Status)),
		Questions:       questions,
	}, nil
}

type resultDTO struct {
	ID             uint     `json:"id"`
	TestID         uint     `json:"test_id"`
	AttemptNumber  int      `json:"attempt_number"`
	Score          float64  `json:"score"`
	TimeSpent      int      `json:"time_spent"`
	StartedAt      wireTime `json:"started_at"`
	CompletedAt    wireTime `json:"completed_at"`
	Status         string   `json:"status"`
	CorrectCount   *int     `json:"correctCount"`
	TotalQuestions *int     `json:"totalQuestions"`
}

func (d *resultDTO) result(testID uint, submitted int) *model.SubmissionResult {
	res := &model.SubmissionResult{
		AttemptID:      d.ID,
		TestID:         testID,
		AttemptNumber:  d.AttemptNumber,
		Score:          d.Score,
		TimeSpent:      d.TimeSpent,
		StartedAt:      d.StartedAt.Time,
		Status:         model.AttemptStatus(strings.ToUpper(d.Status)),
		TotalQuestions: submitted,
	}
	if d.TestID != 0 {
		res.TestID = d.TestID
	}
	if res.Status == "" {
		res.Status = model.AttemptCompleted
	}
	if !d.CompletedAt.IsZero() {
		t := d.CompletedAt.Time
		res.CompletedAt = &t
	}
	if d.TotalQuestions != nil {
		res.TotalQuestions = *d.TotalQuestions
	}
	if d.CorrectCount != nil {
		res.CorrectCount = *d.CorrectCount
	} else {
		res.CorrectCount = util.CorrectCount(d.Score, res.TotalQuestions)
	}
	return res
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	util.TimeFormat,
}

// wireTime accepts RFC 3339 and the naive timestamps the service emits for
// UTC columns. Null and empty strings decode to the zero time.
type wireTime struct {
	time.Time
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
