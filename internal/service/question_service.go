package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/repository"
)

// QuestionService handles question business logic.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// ListByExam retrieves all questions for an exam, answer keys included.
// Operator-facing only.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByExam(ctx, examID)
}

// Create validates and adds a question to an exam.
func (s *QuestionService) Create(ctx context.Context, question *model.Question) error {
	if err := question.ValidateShape(); err != nil {
		return err
	}
	return s.questionRepo.Create(ctx, question)
}

// ReplaceAll validates and replaces an exam's full question set.
func (s *QuestionService) ReplaceAll(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	for i := range questions {
		questions[i].ExamID = examID
		if err := questions[i].ValidateShape(); err != nil {
			return err
		}
	}
	return s.questionRepo.ReplaceForExam(ctx, examID, questions)
}

// Delete removes a single question.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questionRepo.Delete(ctx, id)
}
