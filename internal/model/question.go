package model

import (
	"fmt"

	"github.com/google/uuid"
)

// QuestionType discriminates the four supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeMatching       QuestionType = "MATCHING"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
)

// Valid reports whether t is one of the four known kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice,
		QuestionTypeMatching, QuestionTypeShortAnswer:
		return true
	}
	return false
}

// Option is a selectable choice in a single/multiple-choice question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MatchItem is a prompt or a match in a matching question.
type MatchItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the catalog record for one question, including the answer key.
// It is never sent to participants as-is; see PaperQuestion.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ExamID        uuid.UUID    `json:"exam_id"`
	Type          QuestionType `json:"question_type"`
	QuestionText  string       `json:"question_text"`
	Stimulus      string       `json:"stimulus,omitempty"`
	Options       []Option     `json:"options,omitempty"`
	Prompts       []MatchItem  `json:"prompts,omitempty"`
	Matches       []MatchItem  `json:"matches,omitempty"`
	CorrectAnswer Answer       `json:"-"`
	OrderNum      int          `json:"order_num"`
}

// ValidateShape checks that the variant-specific fields and the answer key
// match the declared question type.
func (q *Question) ValidateShape() error {
	switch q.Type {
	case QuestionTypeSingleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("single choice question requires options")
		}
		if k := q.CorrectAnswer.Kind(); k != AnswerNone && k != AnswerOption {
			return fmt.Errorf("single choice answer key must be a single option id")
		}
	case QuestionTypeMultipleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("multiple choice question requires options")
		}
		if k := q.CorrectAnswer.Kind(); k != AnswerNone && k != AnswerOptionSet {
			return fmt.Errorf("multiple choice answer key must be an option id set")
		}
	case QuestionTypeMatching:
		if len(q.Prompts) == 0 || len(q.Matches) == 0 {
			return fmt.Errorf("matching question requires prompts and matches")
		}
		if k := q.CorrectAnswer.Kind(); k != AnswerNone && k != AnswerMatchSet {
			return fmt.Errorf("matching answer key must be a prompt-to-match mapping")
		}
	case QuestionTypeShortAnswer:
		if k := q.CorrectAnswer.Kind(); k != AnswerNone && k != AnswerOption {
			return fmt.Errorf("short answer key must be a string")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

// PaperQuestion is a question as delivered to participants: the answer key
// is stripped and the id is the string form used to key answers.
type PaperQuestion struct {
	ID           string       `json:"id"`
	Type         QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	Stimulus     string       `json:"stimulus,omitempty"`
	Options      []Option     `json:"options,omitempty"`
	Prompts      []MatchItem  `json:"prompts,omitempty"`
	Matches      []MatchItem  `json:"matches,omitempty"`
}

// ForParticipant strips the answer key from a catalog question.
func (q *Question) ForParticipant() PaperQuestion {
	return PaperQuestion{
		ID:           q.ID.String(),
		Type:         q.Type,
		QuestionText: q.QuestionText,
		Stimulus:     q.Stimulus,
		Options:      q.Options,
		Prompts:      q.Prompts,
		Matches:      q.Matches,
	}
}

// AnswerKey maps question ids to the correct answer for scoring.
// Never exposed on the participant-facing path.
type AnswerKey map[string]Answer

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionType  string      `json:"question_type" binding:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE MATCHING SHORT_ANSWER"`
	QuestionText  string      `json:"question_text" binding:"required,min=1,max=2000"`
	Stimulus      string      `json:"stimulus" binding:"max=5000"`
	Options       []Option    `json:"options" binding:"omitempty,dive"`
	Prompts       []MatchItem `json:"prompts" binding:"omitempty,dive"`
	Matches       []MatchItem `json:"matches" binding:"omitempty,dive"`
	CorrectAnswer Answer      `json:"correct_answer"`
	OrderNum      int         `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
