package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
)

const statusInProgressBody = `{
  "attempt_id": 42,
  "test_id": 7,
  "attempt_number": 2,
  "start_time": "2025-03-01T10:00:00",
  "duration": 600,
  "status": "in_progress",
  "completed_at": null,
  "score": null,
  "questions": [
    {"id": 1, "question": "2+2?", "question_type": "single_choice", "options": ["3", "4"], "hint": null, "image": null},
    {"id": 2, "question": "Primes?", "question_type": "multiple_choice", "options": ["2", "4", "5"]},
    {"id": 3, "question": "Explain", "question_type": "open_text", "options": null, "hint": "be brief"}
  ]
}`

func newTestRepository(t *testing.T, h http.HandlerFunc) *AssessmentRepository {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAssessmentRepository(srv.URL+"/api/v1/", 2*time.Second).WithToken(func() string { return "tok" })
}

func TestGetAttemptStatusDecodesInProgress(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/tests/7/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		io.WriteString(w, statusInProgressBody)
	})

	report, err := repo.GetAttemptStatus(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetAttemptStatus: %v", err)
	}
	if report.ID != 42 || report.AttemptNumber != 2 || report.Status != model.AttemptInProgress {
		t.Fatalf("unexpected report %+v", report.Attempt)
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !report.StartedAt.Equal(want) {
		t.Fatalf("started at = %s, want %s", report.StartedAt, want)
	}
	if report.DurationSeconds == nil || *report.DurationSeconds != 600 {
		t.Fatalf("duration = %v", report.DurationSeconds)
	}
	if len(report.Questions) != 3 || report.Questions[2].Kind != model.OpenText || report.Questions[2].Hint != "be brief" {
		t.Fatalf("questions = %+v", report.Questions)
	}
	if report.CompletedAt != nil || report.Score != nil {
		t.Fatalf("in-progress report carries completion data")
	}
}

func TestGetAttemptStatusMapsErrors(t *testing.T) {
	cases := []struct {
		status    int
		body      string
		want      error
		retryable bool
	}{
		{http.StatusNotFound, `{"detail":"No attempts found"}`, util.ErrAttemptNotFound, false},
		{http.StatusForbidden, `{"detail":"forbidden"}`, util.ErrNotEntitled, false},
		{http.StatusConflict, `{"detail":"active"}`, util.ErrAttemptAlreadyActive, false},
		{http.StatusBadGateway, `oops`, nil, true},
		{http.StatusTooManyRequests, `{}`, nil, true},
	}
	for _, tc := range cases {
		repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			io.WriteString(w, tc.body)
		})
		_, err := repo.GetAttemptStatus(context.Background(), 1)
		var gerr *util.GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("status %d: error %v is not a GatewayError", tc.status, err)
		}
		if gerr.StatusCode != tc.status || gerr.Retryable() != tc.retryable {
			t.Fatalf("status %d: got code %d retryable %v", tc.status, gerr.StatusCode, gerr.Retryable())
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("status %d: %v does not wrap %v", tc.status, err, tc.want)
		}
	}
}

func TestTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	repo := NewAssessmentRepository(url, time.Second)
	_, err := repo.StartAttempt(context.Background(), 1)
	var gerr *util.GatewayError
	if !errors.As(err, &gerr) || gerr.StatusCode != 0 || !gerr.Retryable() {
		t.Fatalf("want retryable transport error, got %v", err)
	}
}

func TestSubmitAttemptSendsPayload(t *testing.T) {
	var got map[string]interface{}
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/tests/7/submit" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		io.WriteString(w, `{"id": 42, "test_id": 7, "attempt_number": 1, "score": 66.67,
			"time_spent": 120, "started_at": "2025-03-01T10:00:00Z", "completed_at": "2025-03-01 10:02:00",
			"status": "completed"}`)
	})

	sub := &model.Submission{
		AttemptID: 42,
		TimeSpent: 120,
		Answers: []model.SubmissionAnswer{
			{QuestionID: 1, Answer: []int{1}},
			{QuestionID: 2, Answer: []int{}},
			{QuestionID: 3, Answer: "because"},
		},
	}
	res, err := repo.SubmitAttempt(context.Background(), 7, sub)
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}

	if got["attempt_id"].(float64) != 42 || got["time_spent"].(float64) != 120 {
		t.Fatalf("body = %v", got)
	}
	answers := got["answers"].([]interface{})
	if len(answers) != 3 {
		t.Fatalf("answers = %v", answers)
	}
	empty := answers[1].(map[string]interface{})["answer"]
	if arr, ok := empty.([]interface{}); !ok || len(arr) != 0 {
		t.Fatalf("unanswered choice encoded as %#v, want []", empty)
	}

	if res.Status != model.AttemptCompleted || res.TotalQuestions != 3 || res.CorrectCount != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.CompletedAt == nil || res.CompletedAt.Sub(res.StartedAt) != 2*time.Minute {
		t.Fatalf("completed at = %v", res.CompletedAt)
	}
}

func TestStartAttemptRejectsUnknownQuestionType(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"attempt_id": 1, "start_time": "2025-03-01T10:00:00Z",
			"questions": [{"id": 1, "question": "x", "question_type": "matching"}]}`)
	})
	if _, err := repo.StartAttempt(context.Background(), 1); err == nil {
		t.Fatal("expected error for unknown question type")
	}
}

func TestDetailMessage(t *testing.T) {
	if got := detailMessage([]byte(`{"detail":"Attempt already submitted"}`)); got != "Attempt already submitted" {
		t.Fatalf("string detail = %q", got)
	}
	if got := detailMessage([]byte(`{"detail":[{"msg":"field required"},{"msg":"bad id"}]}`)); got != "field required; bad id" {
		t.Fatalf("list detail = %q", got)
	}
	if got := detailMessage([]byte(`gateway down`)); got != "gateway down" {
		t.Fatalf("plain body = %q", got)
	}
}
