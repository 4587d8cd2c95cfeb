package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is a student's single run at one exam, from start to finish.
type Attempt struct {
	ID           int64         `json:"id"`
	ExamID       uuid.UUID     `json:"exam_id"`
	StudentID    int           `json:"student_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Status       AttemptStatus `json:"status"`
	FinalScore   *float64      `json:"final_score,omitempty"`
	CorrectCount *int          `json:"correct_count,omitempty"`
	TotalCount   *int          `json:"total_count,omitempty"`
}
