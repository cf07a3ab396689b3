package service

import (
	"errors"
	"testing"

	"testwise_attempt/internal/model"
	"testwise_attempt/internal/util"
)

func TestAnswerStoreStartsWithEmptyValues(t *testing.T) {
	store := NewAnswerStore(sampleQuestions())

	if v, _ := store.Get(1); v.Kind() != model.SingleChoice || v.Answered() {
		t.Fatalf("single choice default = %+v", v)
	}
	if v, _ := store.Get(2); v.Kind() != model.MultipleChoice || len(v.Indices()) != 0 {
		t.Fatalf("multiple choice default = %+v", v)
	}
	if v, _ := store.Get(3); v.Kind() != model.OpenText || v.Text() != "" {
		t.Fatalf("open text default = %+v", v)
	}
	if store.Answered() != 0 || store.Len() != 3 {
		t.Fatalf("answered = %d, len = %d", store.Answered(), store.Len())
	}
}

func TestAnswerStoreSetValidates(t *testing.T) {
	store := NewAnswerStore(sampleQuestions())

	cases := []struct {
		name string
		id   uint
		v    model.AnswerValue
		want error
	}{
		{"unknown question", 99, model.SingleIndex(0), util.ErrQuestionNotFound},
		{"kind mismatch", 1, model.OpenTextAnswer("4"), util.ErrAnswerKindMismatch},
		{"single out of range", 1, model.SingleIndex(3), util.ErrAnswerOutOfRange},
		{"negative index", 1, model.SingleIndex(-1), util.ErrAnswerOutOfRange},
		{"multiple out of range", 2, model.MultipleIndices(0, 4), util.ErrAnswerOutOfRange},
	}
	for _, tc := range cases {
		if err := store.Set(tc.id, tc.v); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if store.Answered() != 0 {
		t.Fatalf("rejected answers were stored")
	}

	if err := store.Set(1, model.SingleIndex(1)); err != nil {
		t.Fatalf("Set single: %v", err)
	}
	if err := store.Set(2, model.MultipleIndices(2, 0, 2)); err != nil {
		t.Fatalf("Set multiple: %v", err)
	}
	if err := store.Set(3, model.OpenTextAnswer("   ")); err != nil {
		t.Fatalf("Set open: %v", err)
	}
	if got := store.Answered(); got != 2 {
		t.Fatalf("answered = %d, want 2 (blank text does not count)", got)
	}
	if err := store.Set(1, model.UnsetSingle()); err != nil {
		t.Fatalf("clearing single choice: %v", err)
	}
	if got := store.Answered(); got != 1 {
		t.Fatalf("answered after clear = %d, want 1", got)
	}
}

func TestAnswerStoreSnapshotIsDetached(t *testing.T) {
	store := NewAnswerStore(sampleQuestions())
	snap := store.Snapshot()
	if err := store.Set(1, model.SingleIndex(2)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if snap[1].Answered() {
		t.Fatal("snapshot changed after Set")
	}

	qs := store.Questions()
	qs[0].Prompt = "mutated"
	if store.Questions()[0].Prompt == "mutated" {
		t.Fatal("Questions exposes internal slice")
	}
}
