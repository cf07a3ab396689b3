package model

type QuestionKind string

const (
	SingleChoice   QuestionKind = "single_choice"
	MultipleChoice QuestionKind = "multiple_choice"
	OpenText       QuestionKind = "open_text"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case SingleChoice, MultipleChoice, OpenText:
		return true
	}
	return false
}

// Question is immutable once fetched for an attempt.
// swagger:model Question
type Question struct {
	ID      uint         `json:"id"`
	Prompt  string       `json:"question"`
	Kind    QuestionKind `json:"questionType"`
	Options []string     `json:"options,omitempty"`
	Hint    string       `json:"hint,omitempty"`
	Image   string       `json:"image,omitempty"`
}

// HasOption reports whether i indexes one of the question's options.
func (q Question) HasOption(i int) bool {
	return i >= 0 && i < len(q.Options)
}
