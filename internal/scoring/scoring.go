// Package scoring grades a finished attempt against an exam's answer key.
// It is a pure function of its inputs and is only invoked after a session
// has finished, never during one.
package scoring

import (
	"github.com/emesedutech/cbt-akm/internal/model"
)

// Result is the outcome of grading one attempt. Percentage is the exact
// ratio; rounding happens at presentation time only.
type Result struct {
	Correct    int     `json:"correct_count"`
	Total      int     `json:"total_count"`
	Percentage float64 `json:"percentage"`
}

// Score compares the participant's answers to the answer key, one equality
// rule per question kind. Absent or empty answers count as incorrect.
func Score(questions []model.PaperQuestion, key model.AnswerKey, answers model.Answers) Result {
	res := Result{Total: len(questions)}

	for _, q := range questions {
		if isCorrect(q, key[q.ID], answers[q.ID]) {
			res.Correct++
		}
	}

	if res.Total > 0 {
		res.Percentage = 100 * float64(res.Correct) / float64(res.Total)
	}
	return res
}

func isCorrect(q model.PaperQuestion, correct, given model.Answer) bool {
	if !given.IsAnswered() || correct.Kind() == model.AnswerNone {
		return false
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		return given.EqualsOptionSet(correct.Options())
	case model.QuestionTypeMatching:
		return given.EqualsMatchSet(correct.Matches())
	case model.QuestionTypeSingleChoice, model.QuestionTypeShortAnswer:
		return given.EqualsOption(correct.Option())
	default:
		return false
	}
}
