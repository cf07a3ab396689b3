package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AnswerValue is a tagged union: SingleIndex, MultipleIndices or OpenText.
// Its tag must match the owning question's kind. The zero value carries no tag.
type AnswerValue struct {
	kind    QuestionKind
	index   *int
	indices []int
	text    string
}

func SingleIndex(i int) AnswerValue {
	return AnswerValue{kind: SingleChoice, index: &i}
}

// UnsetSingle is the unanswered single-choice value.
func UnsetSingle() AnswerValue {
	return AnswerValue{kind: SingleChoice}
}

// MultipleIndices builds a set: duplicates are dropped and order is normalized.
func MultipleIndices(indices ...int) AnswerValue {
	seen := make(map[int]struct{}, len(indices))
	set := make([]int, 0, len(indices))
	for _, i := range indices {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		set = append(set, i)
	}
	sort.Ints(set)
	return AnswerValue{kind: MultipleChoice, indices: set}
}

func OpenTextAnswer(text string) AnswerValue {
	return AnswerValue{kind: OpenText, text: text}
}

// EmptyAnswer is the default projection for an unanswered question of kind.
func EmptyAnswer(kind QuestionKind) AnswerValue {
	switch kind {
	case MultipleChoice:
		return MultipleIndices()
	case OpenText:
		return OpenTextAnswer("")
	default:
		return UnsetSingle()
	}
}

func (a AnswerValue) Kind() QuestionKind { return a.kind }

func (a AnswerValue) IsZero() bool { return a.kind == "" }

func (a AnswerValue) Index() (int, bool) {
	if a.index == nil {
		return 0, false
	}
	return *a.index, true
}

func (a AnswerValue) Indices() []int {
	out := make([]int, len(a.indices))
	copy(out, a.indices)
	return out
}

func (a AnswerValue) Text() string { return a.text }

// Answered reports whether the student has given a non-empty answer.
func (a AnswerValue) Answered() bool {
	switch a.kind {
	case SingleChoice:
		return a.index != nil
	case MultipleChoice:
		return len(a.indices) > 0
	case OpenText:
		return strings.TrimSpace(a.text) != ""
	}
	return false
}

// Wire is the submission encoding: an index array for choice questions, the raw
// string for open text. Unanswered values encode as empty, never as null.
func (a AnswerValue) Wire() interface{} {
	switch a.kind {
	case SingleChoice:
		if a.index == nil {
			return []int{}
		}
		return []int{*a.index}
	case MultipleChoice:
		return a.Indices()
	case OpenText:
		return a.text
	}
	return nil
}

type answerJSON struct {
	Kind  QuestionKind    `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	var value interface{}
	switch a.kind {
	case SingleChoice:
		if a.index != nil {
			value = *a.index
		}
	case MultipleChoice:
		value = a.Indices()
	case OpenText:
		value = a.text
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{Kind: a.kind, Value: raw})
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var aj answerJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	v, err := ParseAnswerValue(aj.Kind, aj.Value)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAnswerValue decodes a client-supplied value for a question of kind.
// Single choice accepts an index, null, or the one-element wire array.
func ParseAnswerValue(kind QuestionKind, raw json.RawMessage) (AnswerValue, error) {
	raw = bytes.TrimSpace(raw)
	empty := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	switch kind {
	case SingleChoice:
		if empty {
			return UnsetSingle(), nil
		}
		var i int
		if err := json.Unmarshal(raw, &i); err == nil {
			return SingleIndex(i), nil
		}
		var arr []int
		if err := json.Unmarshal(raw, &arr); err != nil {
			return AnswerValue{}, fmt.Errorf("single choice answer must be an option index: %w", err)
		}
		switch len(arr) {
		case 0:
			return UnsetSingle(), nil
		case 1:
			return SingleIndex(arr[0]), nil
		}
		return AnswerValue{}, fmt.Errorf("single choice answer has %d indices", len(arr))
	case MultipleChoice:
		if empty {
			return MultipleIndices(), nil
		}
		var arr []int
		if err := json.Unmarshal(raw, &arr); err != nil {
			return AnswerValue{}, fmt.Errorf("multiple choice answer must be an index array: %w", err)
		}
		return MultipleIndices(arr...), nil
	case OpenText:
		if empty {
			return OpenTextAnswer(""), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return AnswerValue{}, fmt.Errorf("open text answer must be a string: %w", err)
		}
		return OpenTextAnswer(s), nil
	}
	return AnswerValue{}, fmt.Errorf("unknown question kind %q", kind)
}
