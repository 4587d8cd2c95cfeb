package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/repository"
)

// ErrAttemptCompleted is returned when a student tries to rejoin a finished exam.
var ErrAttemptCompleted = errors.New("exam attempt is already completed")

// AttemptService handles attempt lifecycle outside the live session:
// the lobby, joining, and operator-facing results.
type AttemptService struct {
	attemptRepo   *repository.AttemptRepository
	integrityRepo *repository.IntegrityRepository
	examRepo      *repository.ExamRepository
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	integrityRepo *repository.IntegrityRepository,
	examRepo *repository.ExamRepository,
) *AttemptService {
	return &AttemptService{
		attemptRepo:   attemptRepo,
		integrityRepo: integrityRepo,
		examRepo:      examRepo,
	}
}

// LobbyStatus represents the concrete state of an exam in the lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyExam represents an exam as displayed in the student lobby.
type LobbyExam struct {
	model.Exam
	LobbyStatus   LobbyStatus          `json:"lobby_status"`
	AttemptStatus *model.AttemptStatus `json:"attempt_status,omitempty"`
	FinalScore    *float64             `json:"final_score,omitempty"`
}

// GetLobby returns the published exams with the student's attempt overlaid.
func (s *AttemptService) GetLobby(ctx context.Context, studentID int) ([]LobbyExam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published exams: %w", err)
	}

	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attemptMap := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		attemptMap[attempts[i].ExamID] = &attempts[i]
	}

	lobby := make([]LobbyExam, 0, len(exams))
	for i := range exams {
		entry := LobbyExam{Exam: exams[i]}

		if a, ok := attemptMap[exams[i].ID]; ok {
			entry.AttemptStatus = &a.Status
			entry.FinalScore = a.FinalScore
			if a.Status == model.AttemptStatusCompleted {
				entry.LobbyStatus = LobbyStatusCompleted
			} else {
				entry.LobbyStatus = LobbyStatusInProgress
			}
		} else {
			entry.LobbyStatus = LobbyStatusAvailable
		}

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

// JoinExam creates (or returns) the student's attempt for a published exam.
// Joining is idempotent; a completed attempt cannot be re-entered.
func (s *AttemptService) JoinExam(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}

	existing, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		if existing.Status == model.AttemptStatusCompleted {
			return nil, ErrAttemptCompleted
		}
		return existing, nil
	}

	attempt := &model.Attempt{ExamID: examID, StudentID: studentID}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return attempt, nil
}

// VerifyActiveAttempt checks that a student has an IN_PROGRESS attempt for
// the given exam.
func (s *AttemptService) VerifyActiveAttempt(ctx context.Context, examID uuid.UUID, studentID int) error {
	a, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return fmt.Errorf("no active attempt: %w", err)
	}
	if a.Status == model.AttemptStatusCompleted {
		return ErrAttemptCompleted
	}
	return nil
}

// GetByExamAndStudent returns one attempt record.
func (s *AttemptService) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Attempt, error) {
	return s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
}

// GetExamResults retrieves paginated exam results for operators.
func (s *AttemptService) GetExamResults(ctx context.Context, examID uuid.UUID, page, perPage int) ([]repository.AttemptResult, int64, error) {
	return s.attemptRepo.ListByExam(ctx, examID, page, perPage)
}

// GetExamStats aggregates one exam's scores and violation counts.
func (s *AttemptService) GetExamStats(ctx context.Context, examID uuid.UUID) (*repository.ExamStats, map[int]int64, error) {
	stats, err := s.attemptRepo.Stats(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	violations, err := s.integrityRepo.CountByExam(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	return stats, violations, nil
}

// GetIntegrityEvents lists one participant's recorded violations.
func (s *AttemptService) GetIntegrityEvents(ctx context.Context, examID uuid.UUID, studentID int) ([]model.IntegrityRecord, error) {
	records, err := s.integrityRepo.ListByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.IntegrityRecord{}
	}
	return records, nil
}
