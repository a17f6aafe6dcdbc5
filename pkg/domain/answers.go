package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateAnswers enforces submit-time completeness: every required question
// has a present, non-empty answer, and every present answer matches its
// question's type (a non-empty string array for MULTIPLE_CHOICE, a listed
// option for DROPDOWN, and so on). Violations accumulate into a map keyed by
// question id; unknown question ids are rejected as well.
func ValidateAnswers(questions []Question, answers []Answer) error {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	fields := map[string]string{}
	answered := map[string]bool{}
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			fields[a.QuestionID] = "unknown question"
			continue
		}
		if answered[a.QuestionID] {
			fields[a.QuestionID] = "duplicate answer"
			continue
		}
		if AnswerEmpty(a.Value) {
			// Treated as unanswered; required check below decides.
			continue
		}
		answered[a.QuestionID] = true
		if reason := checkAnswerType(q, a.Value); reason != "" {
			fields[a.QuestionID] = reason
		}
	}

	for _, q := range questions {
		if q.Required && !answered[q.ID] {
			if _, dup := fields[q.ID]; !dup {
				fields[q.ID] = "answer required"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Msg: "incomplete submission", Fields: fields}
	}
	return nil
}

// AnswerEmpty reports whether a decoded answer value counts as unanswered.
func AnswerEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

func checkAnswerType(q Question, v any) string {
	switch q.Type {
	case QuestionYesNo:
		if _, ok := v.(bool); !ok {
			return "expected true or false"
		}
	case QuestionText:
		if _, ok := v.(string); !ok {
			return "expected text"
		}
	case QuestionDate:
		s, ok := v.(string)
		if !ok || !reISODate.MatchString(s) {
			return "expected date as YYYY-MM-DD"
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return "invalid date"
		}
	case QuestionDropdown:
		s, ok := v.(string)
		if !ok {
			return "expected a single option"
		}
		if !optionListed(q.Options, s) {
			return fmt.Sprintf("%q is not a listed option", s)
		}
	case QuestionMultipleChoice:
		items, ok := stringSlice(v)
		if !ok || len(items) == 0 {
			return "expected a non-empty option list"
		}
		for _, s := range items {
			if !optionListed(q.Options, s) {
				return fmt.Sprintf("%q is not a listed option", s)
			}
		}
	}
	return ""
}

func optionListed(options []string, v string) bool {
	for _, opt := range options {
		if opt == v {
			return true
		}
	}
	return false
}

func stringSlice(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
