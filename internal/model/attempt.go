package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is the client's read-mostly projection of a server-side attempt.
// swagger:model Attempt
type Attempt struct {
	ID            uint      `json:"attemptId"`
	TestID        uint      `json:"testId"`
	AttemptNumber int       `json:"attemptNumber"`
	StartedAt     time.Time `json:"startedAt"`
	// DurationSeconds is nil for untimed tests.
	DurationSeconds *int          `json:"durationSeconds"`
	Status          AttemptStatus `json:"status"`
	Questions       []Question    `json:"questions"`
}

func (a *Attempt) Timed() bool {
	return a.DurationSeconds != nil && *a.DurationSeconds > 0
}

func (a *Attempt) Duration() time.Duration {
	if !a.Timed() {
		return 0
	}
	return time.Duration(*a.DurationSeconds) * time.Second
}

func (a *Attempt) Question(id uint) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// AttemptStatusReport is the Assessment Service's answer to a status query.
type AttemptStatusReport struct {
	Attempt
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Score       *float64   `json:"score,omitempty"`
}

// swagger:model SubmissionResult
type SubmissionResult struct {
	AttemptID      uint          `json:"attemptId"`
	TestID         uint          `json:"testId"`
	AttemptNumber  int           `json:"attemptNumber"`
	Score          float64       `json:"score"`
	CorrectCount   int           `json:"correctCount"`
	TotalQuestions int           `json:"totalQuestions"`
	TimeSpent      int           `json:"timeSpent"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	Status         AttemptStatus `json:"status"`
}

// SubmissionAnswer holds one question's wire answer: []int or string.
type SubmissionAnswer struct {
	QuestionID uint        `json:"question_id"`
	Answer     interface{} `json:"answer"`
}

// Submission is the payload sent to the Assessment Service.
type Submission struct {
	AttemptID uint               `json:"attempt_id"`
	TimeSpent int                `json:"time_spent"`
	Answers   []SubmissionAnswer `json:"answers"`
}
