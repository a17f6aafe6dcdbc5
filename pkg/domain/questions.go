package domain

import (
	"fmt"
	"strings"
)

type QuestionType string

const (
	QuestionYesNo          QuestionType = "YES_NO"
	QuestionDropdown       QuestionType = "DROPDOWN"
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionText           QuestionType = "TEXT"
	QuestionDate           QuestionType = "DATE"
)

// MaxQuestions caps a certification's question list.
const MaxQuestions = 5

type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	AllowComments bool         `json:"allow_comments,omitempty"`
	Required      bool         `json:"required"`
}

// HasOptions reports whether the question type carries an option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionDropdown || t == QuestionMultipleChoice
}

func knownQuestionType(t QuestionType) bool {
	switch t {
	case QuestionYesNo, QuestionDropdown, QuestionMultipleChoice, QuestionText, QuestionDate:
		return true
	default:
		return false
	}
}

// ValidateQuestions checks a full question list against the schema rules:
// at most MaxQuestions items, unique non-empty ids, non-empty text, a known
// type, and an option list of at least two entries exactly when the type
// requires one. Violations accumulate into a field-keyed map.
func ValidateQuestions(questions []Question) error {
	fields := map[string]string{}
	if len(questions) > MaxQuestions {
		fields["questions"] = fmt.Sprintf("at most %d questions allowed", MaxQuestions)
	}
	seen := map[string]bool{}
	for i, q := range questions {
		key := q.ID
		if key == "" {
			key = fmt.Sprintf("questions[%d]", i)
			fields[key] = "question id is required"
			continue
		}
		if seen[key] {
			fields[key] = "duplicate question id"
			continue
		}
		seen[key] = true
		if strings.TrimSpace(q.Text) == "" {
			fields[key] = "question text is required"
			continue
		}
		if !knownQuestionType(q.Type) {
			fields[key] = fmt.Sprintf("unknown question type %q", q.Type)
			continue
		}
		if q.Type.HasOptions() {
			if len(q.Options) < 2 {
				fields[key] = "at least two options required"
				continue
			}
			optSeen := map[string]bool{}
			for _, opt := range q.Options {
				if strings.TrimSpace(opt) == "" {
					fields[key] = "empty option"
					break
				}
				if optSeen[opt] {
					fields[key] = "duplicate option"
					break
				}
				optSeen[opt] = true
			}
		} else if len(q.Options) > 0 {
			fields[key] = fmt.Sprintf("options not allowed for type %q", q.Type)
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Msg: "invalid question list", Fields: fields}
	}
	return nil
}
