package main

import (
	"context"
	"fmt"
	"time"

	"github.com/emesedutech/cbt-akm/internal/config"
	"github.com/emesedutech/cbt-akm/internal/database"
	"github.com/emesedutech/cbt-akm/internal/logger"
	"github.com/emesedutech/cbt-akm/internal/model"
	"github.com/emesedutech/cbt-akm/internal/repository"
	"github.com/emesedutech/cbt-akm/internal/service"
)

// Seeds a demo exam (TIK end-of-semester test) plus four student accounts,
// then publishes the exam so it is immediately joinable.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	studentService := service.NewStudentService(studentRepo)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)
	questionService := service.NewQuestionService(questionRepo)

	// ─── Students ──────────────────────────────────────────────────────
	fmt.Println("=== Seeding demo students ===")

	students := []model.Student{
		{Name: "Ahmad Dahlan", Username: "ahmad", PasswordHash: "password123"},
		{Name: "Budi Santoso", Username: "budi", PasswordHash: "password123"},
		{Name: "Citra Lestari", Username: "citra", PasswordHash: "password123"},
		{Name: "Dewi Anggraini", Username: "dewi", PasswordHash: "password123"},
	}

	for i := range students {
		if err := studentService.Create(ctx, &students[i]); err != nil {
			fmt.Printf("Skipping student %s: %v\n", students[i].Username, err)
			continue
		}
		fmt.Printf("Created student %s (ID: %d)\n", students[i].Username, students[i].ID)
	}

	// ─── Exam ──────────────────────────────────────────────────────────
	fmt.Println("=== Seeding demo exam ===")

	exam := &model.Exam{
		Title:              "Ujian Akhir Semester - Teknologi Informasi dan Komunikasi",
		DurationMinutes:    60,
		RandomizeQuestions: true,
	}
	if err := examService.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created exam %s\n", exam.ID)

	questions := []model.Question{
		{
			Type:         model.QuestionTypeSingleChoice,
			QuestionText: "Apa kepanjangan dari CPU?",
			Options: []model.Option{
				{ID: "Q1A1", Text: "Computer Personal Unit"},
				{ID: "Q1A2", Text: "Central Processing Unit"},
				{ID: "Q1A3", Text: "Central Process Unit"},
				{ID: "Q1A4", Text: "Central Personal Unit"},
			},
			CorrectAnswer: model.OptionAnswer("Q1A2"),
		},
		{
			Type:         model.QuestionTypeMultipleChoice,
			QuestionText: "Pilih perangkat keras (hardware) di bawah ini.",
			Options: []model.Option{
				{ID: "Q2A1", Text: "Mouse"},
				{ID: "Q2A2", Text: "Microsoft Word"},
				{ID: "Q2A3", Text: "Keyboard"},
				{ID: "Q2A4", Text: "Operating System"},
			},
			CorrectAnswer: model.OptionSetAnswer([]string{"Q2A1", "Q2A3"}),
		},
		{
			Type:         model.QuestionTypeMatching,
			QuestionText: "Jodohkan perangkat dengan fungsinya.",
			Prompts: []model.MatchItem{
				{ID: "Q3P1", Text: "Printer"},
				{ID: "Q3P2", Text: "Scanner"},
				{ID: "Q3P3", Text: "Monitor"},
				{ID: "Q3P4", Text: "Speaker"},
			},
			Matches: []model.MatchItem{
				{ID: "Q3M1", Text: "Menampilkan output visual"},
				{ID: "Q3M2", Text: "Mengeluarkan output suara"},
				{ID: "Q3M3", Text: "Mencetak dokumen ke kertas"},
				{ID: "Q3M4", Text: "Memindai dokumen fisik menjadi digital"},
			},
			CorrectAnswer: model.MatchSetAnswer(map[string]string{
				"Q3P1": "Q3M3", "Q3P2": "Q3M4", "Q3P3": "Q3M1", "Q3P4": "Q3M2",
			}),
		},
		{
			Type:          model.QuestionTypeShortAnswer,
			QuestionText:  "Ibukota negara Indonesia adalah...",
			CorrectAnswer: model.OptionAnswer("jakarta"),
		},
		{
			Type:         model.QuestionTypeSingleChoice,
			QuestionText: "Siapakah penemu bola lampu?",
			Options: []model.Option{
				{ID: "Q5A1", Text: "Albert Einstein"},
				{ID: "Q5A2", Text: "Thomas Edison"},
				{ID: "Q5A3", Text: "Isaac Newton"},
				{ID: "Q5A4", Text: "Nikola Tesla"},
			},
			CorrectAnswer: model.OptionAnswer("Q5A2"),
		},
		{
			Type:          model.QuestionTypeShortAnswer,
			QuestionText:  "Otak dari komputer disebut...",
			Stimulus:      "Isilah dengan singkatan yang umum digunakan.",
			CorrectAnswer: model.OptionAnswer("cpu"),
		},
		{
			Type:         model.QuestionTypeMultipleChoice,
			QuestionText: "Manakah di bawah ini yang merupakan sistem operasi?",
			Options: []model.Option{
				{ID: "Q7A1", Text: "Adobe Photoshop"},
				{ID: "Q7A2", Text: "Windows"},
				{ID: "Q7A3", Text: "Google Chrome"},
				{ID: "Q7A4", Text: "Linux"},
			},
			CorrectAnswer: model.OptionSetAnswer([]string{"Q7A2", "Q7A4"}),
		},
	}

	for i := range questions {
		questions[i].OrderNum = i + 1
	}

	if err := questionService.ReplaceAll(ctx, exam.ID, questions); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed questions")
	}
	fmt.Printf("Seeded %d questions\n", len(questions))

	// ─── Publish ───────────────────────────────────────────────────────
	if err := examService.Publish(ctx, exam.ID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish exam")
	}

	fmt.Printf("\nSeed completed! Exam %s is published and joinable.\n", exam.ID)
}
