package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emesedutech/cbt-akm/internal/scoring"
	"github.com/emesedutech/cbt-akm/internal/session"
	"github.com/emesedutech/cbt-akm/internal/worker"
)

// ResultService grades finished attempts in RAM and hands the outcome to
// the persistence queue. Grading never blocks on PostgreSQL.
type ResultService struct {
	examSvc *ExamService
	queue   *worker.ResultQueue
	log     zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(examSvc *ExamService, queue *worker.ResultQueue, log zerolog.Logger) *ResultService {
	return &ResultService{
		examSvc: examSvc,
		queue:   queue,
		log:     log.With().Str("component", "result_service").Logger(),
	}
}

// Grade scores a finished attempt against the cached answer key and
// enqueues the result for durable persistence.
func (s *ResultService) Grade(ctx context.Context, fin session.FinishEvent) (*scoring.Result, error) {
	examID, err := uuid.Parse(fin.ExamID)
	if err != nil {
		return nil, fmt.Errorf("parse exam id: %w", err)
	}

	paper, err := s.examSvc.GetExamPaper(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	key, err := s.examSvc.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	result := scoring.Score(paper.Questions, key, fin.Answers)

	if err := s.queue.Enqueue(ctx, worker.ResultPayload{
		StudentID: fin.StudentID,
		ExamID:    fin.ExamID,
		Score:     result.Percentage,
		Correct:   result.Correct,
		Total:     result.Total,
	}); err != nil {
		// The grade stands; persistence will be retried by the caller's
		// operational tooling. Log loudly since this loses durability.
		s.log.Error().Err(err).
			Str("exam_id", fin.ExamID).
			Int("student_id", fin.StudentID).
			Msg("CRITICAL: enqueue graded result failed")
	}

	s.log.Info().
		Str("exam_id", fin.ExamID).
		Int("student_id", fin.StudentID).
		Int("correct", result.Correct).
		Int("total", result.Total).
		Float64("score", result.Percentage).
		Bool("timed_out", fin.TimedOut).
		Msg("Attempt graded")

	return &result, nil
}
