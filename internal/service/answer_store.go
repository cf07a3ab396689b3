package service

import (
	"fmt"
	"sync"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
)

// AnswerStore holds exactly one answer per question of an attempt. Every
// question starts with the empty value of its kind.
type AnswerStore struct {
	mu        sync.RWMutex
	questions []model.Question
	index     map[uint]int
	answers   map[uint]model.AnswerValue
}

func NewAnswerStore(questions []model.Question) *AnswerStore {
	s := &AnswerStore{
		questions: append([]model.Question(nil), questions...),
		index:     make(map[uint]int, len(questions)),
		answers:   make(map[uint]model.AnswerValue, len(questions)),
	}
	for i, q := range questions {
		s.index[q.ID] = i
		s.answers[q.ID] = model.EmptyAnswer(q.Kind)
	}
	return s
}

// Set replaces the answer for questionID after checking kind and option range.
func (s *AnswerStore) Set(questionID uint, v model.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[questionID]
	if !ok {
		return fmt.Errorf("%w: %d", util.ErrQuestionNotFound, questionID)
	}
	q := s.questions[i]
	if v.Kind() != q.Kind {
		return fmt.Errorf("%w: question %d is %s, got %s", util.ErrAnswerKindMismatch, questionID, q.Kind, v.Kind())
	}

	switch q.Kind {
	case model.SingleChoice:
		if idx, set := v.Index(); set && !q.HasOption(idx) {
			return fmt.Errorf("%w: question %d option %d", util.ErrAnswerOutOfRange, questionID, idx)
		}
	case model.MultipleChoice:
		for _, idx := range v.Indices() {
			if !q.HasOption(idx) {
				return fmt.Errorf("%w: question %d option %d", util.ErrAnswerOutOfRange, questionID, idx)
			}
		}
	}

	s.answers[questionID] = v
	return nil
}

func (s *AnswerStore) Get(questionID uint) (model.AnswerValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.answers[questionID]
	return v, ok
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *AnswerStore) Snapshot() map[uint]model.AnswerValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uint]model.AnswerValue, len(s.answers))
	for id, v := range s.answers {
		out[id] = v
	}
	return out
}

func (s *AnswerStore) Questions() []model.Question {
	return append([]model.Question(nil), s.questions...)
}

func (s *AnswerStore) Len() int {
	return len(s.questions)
}

func (s *AnswerStore) Answered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.answers {
		if v.Answered() {
			n++
		}
	}
	return n
}
