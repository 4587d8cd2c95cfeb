package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// AttemptResult combines student identity with their attempt outcome, for
// the operator-facing results listing.
type AttemptResult struct {
	StudentID    int                 `json:"student_id"`
	Name         string              `json:"name"`
	Username     string              `json:"username"`
	FinalScore   *float64            `json:"score"`
	CorrectCount *int                `json:"correct_count"`
	TotalCount   *int                `json:"total_count"`
	Status       model.AttemptStatus `json:"status"`
	StartedAt    *time.Time          `json:"started_at"`
	FinishedAt   *time.Time          `json:"finished_at"`
}

// ExamStats is the aggregate score summary for one exam.
type ExamStats struct {
	Participants int      `json:"participants"`
	Completed    int      `json:"completed"`
	AverageScore *float64 `json:"average_score"`
	HighestScore *float64 `json:"highest_score"`
	LowestScore  *float64 `json:"lowest_score"`
}

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByExamAndStudent retrieves the attempt for a specific exam-student pair.
func (r *AttemptRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, finished_at, status,
		        final_score, correct_count, total_count
		 FROM attempts
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status,
		&a.FinalScore, &a.CorrectCount, &a.TotalCount)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attempt (student joins the exam). A second join for
// the same pair is a no-op and returns the existing row.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		a.ExamID, a.StudentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetByExamAndStudent(ctx, a.ExamID, a.StudentID)
		if getErr != nil {
			return getErr
		}
		*a = *existing
		return nil
	}
	if err != nil {
		return err
	}
	a.Status = model.AttemptStatusInProgress
	return nil
}

// Complete marks an attempt as completed with its graded result.
func (r *AttemptRepository) Complete(ctx context.Context, examID uuid.UUID, studentID int, score float64, correct, total int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, final_score = $2, correct_count = $3, total_count = $4, finished_at = $5
		 WHERE exam_id = $6 AND student_id = $7`,
		model.AttemptStatusCompleted, score, correct, total, time.Now(), examID, studentID)
	return err
}

// ListByStudent retrieves all attempts for a given student, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, started_at, finished_at, status,
		        final_score, correct_count, total_count
		 FROM attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartedAt, &a.FinishedAt, &a.Status,
			&a.FinalScore, &a.CorrectCount, &a.TotalCount); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ListByExam retrieves all student results for a specific exam with pagination.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, page, perPage int) ([]AttemptResult, int64, error) {
	offset := (page - 1) * perPage

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1`, examID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, s.username,
		        a.final_score, a.correct_count, a.total_count,
		        a.status, a.started_at, a.finished_at
		 FROM attempts a
		 JOIN students s ON a.student_id = s.id
		 WHERE a.exam_id = $1
		 ORDER BY s.name ASC
		 LIMIT $2 OFFSET $3`, examID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []AttemptResult
	for rows.Next() {
		var ar AttemptResult
		if err := rows.Scan(
			&ar.StudentID, &ar.Name, &ar.Username,
			&ar.FinalScore, &ar.CorrectCount, &ar.TotalCount,
			&ar.Status, &ar.StartedAt, &ar.FinishedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, ar)
	}

	return results, total, rows.Err()
}

// Stats aggregates completed attempt scores for one exam.
func (r *AttemptRepository) Stats(ctx context.Context, examID uuid.UUID) (*ExamStats, error) {
	st := &ExamStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'COMPLETED'),
		        AVG(final_score) FILTER (WHERE status = 'COMPLETED'),
		        MAX(final_score) FILTER (WHERE status = 'COMPLETED'),
		        MIN(final_score) FILTER (WHERE status = 'COMPLETED')
		 FROM attempts WHERE exam_id = $1`, examID,
	).Scan(&st.Participants, &st.Completed, &st.AverageScore, &st.HighestScore, &st.LowestScore)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetInProgressStudentIDs returns all student IDs with an active attempt for
// the given exam. Used by the live monitor view.
func (r *AttemptRepository) GetInProgressStudentIDs(ctx context.Context, examID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM attempts WHERE exam_id = $1 AND status = 'IN_PROGRESS'`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
