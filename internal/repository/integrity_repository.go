package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emesedutech/cbt-akm/internal/model"
)

// IntegrityRepository persists environment-integrity violations.
type IntegrityRepository struct {
	pool *pgxpool.Pool
}

// NewIntegrityRepository creates a new IntegrityRepository.
func NewIntegrityRepository(pool *pgxpool.Pool) *IntegrityRepository {
	return &IntegrityRepository{pool: pool}
}

// BulkInsert writes a batch of records in one round trip via COPY.
func (r *IntegrityRepository) BulkInsert(ctx context.Context, records []model.IntegrityRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		rows[i] = []interface{}{rec.ExamID, rec.StudentID, rec.Signal, rec.Detail, rec.RecordedAt}
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"integrity_events"},
		[]string{"exam_id", "student_id", "signal", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// ListByExamAndStudent returns one participant's violations, oldest first.
func (r *IntegrityRepository) ListByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) ([]model.IntegrityRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, signal, detail, recorded_at
		 FROM integrity_events
		 WHERE exam_id = $1 AND student_id = $2
		 ORDER BY recorded_at`, examID, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.IntegrityRecord
	for rows.Next() {
		var rec model.IntegrityRecord
		if err := rows.Scan(&rec.ID, &rec.ExamID, &rec.StudentID, &rec.Signal, &rec.Detail, &rec.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByExam returns the number of violations recorded per student in the
// given exam.
func (r *IntegrityRepository) CountByExam(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, COUNT(*)
		 FROM integrity_events
		 WHERE exam_id = $1
		 GROUP BY student_id`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var sid int
		var count int64
		if err := rows.Scan(&sid, &count); err != nil {
			return nil, err
		}
		counts[sid] = count
	}

	return counts, rows.Err()
}
