package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam is the catalog record for an assessment. Read-only from the session
// engine's perspective.
type Exam struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	DurationMinutes    int        `json:"duration_minutes"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	Status             ExamStatus `json:"status"`
	QuestionCount      int        `json:"question_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ExamPaper is the Redis-cached participant payload: exam metadata plus
// questions with answer keys stripped, in canonical (pre-shuffle) order.
type ExamPaper struct {
	ExamID          uuid.UUID       `json:"exam_id"`
	Title           string          `json:"title"`
	DurationSeconds int             `json:"duration_seconds"`
	Randomize       bool            `json:"randomize_questions"`
	Questions       []PaperQuestion `json:"questions"`
}

// QuestionIDs returns the canonical question id order of the paper.
func (p *ExamPaper) QuestionIDs() []string {
	ids := make([]string, len(p.Questions))
	for i, q := range p.Questions {
		ids[i] = q.ID
	}
	return ids
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title              string `json:"title" binding:"required,min=3,max=255"`
	DurationMinutes    int    `json:"duration_minutes" binding:"required,min=1,max=480"`
	RandomizeQuestions bool   `json:"randomize_questions"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Title              string `json:"title" binding:"omitempty,min=3,max=255"`
	DurationMinutes    int    `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	RandomizeQuestions *bool  `json:"randomize_questions" binding:"omitempty"`
}
