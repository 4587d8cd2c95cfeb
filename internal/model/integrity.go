package model

import (
	"time"

	"github.com/google/uuid"
)

// IntegrityRecord is a persisted environment-integrity violation.
type IntegrityRecord struct {
	ID         int64     `json:"id"`
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  int       `json:"student_id"`
	Signal     string    `json:"signal"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
