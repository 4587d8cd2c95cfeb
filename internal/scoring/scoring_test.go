package scoring

import (
	"testing"

	"github.com/emesedutech/cbt-akm/internal/model"
)

func paper() []model.PaperQuestion {
	return []model.PaperQuestion{
		{ID: "Q1", Type: model.QuestionTypeSingleChoice},
		{ID: "Q2", Type: model.QuestionTypeMultipleChoice},
		{ID: "Q3", Type: model.QuestionTypeMatching},
		{ID: "Q4", Type: model.QuestionTypeShortAnswer},
	}
}

func key() model.AnswerKey {
	return model.AnswerKey{
		"Q1": model.OptionAnswer("Q1A2"),
		"Q2": model.OptionSetAnswer([]string{"Q2A1", "Q2A3"}),
		"Q3": model.MatchSetAnswer(map[string]string{"P1": "M3"}),
		"Q4": model.OptionAnswer("jakarta"),
	}
}

func TestScoreAllCorrect(t *testing.T) {
	answers := model.Answers{
		"Q1": model.OptionAnswer("Q1A2"),
		"Q2": model.OptionSetAnswer([]string{"Q2A3", "Q2A1"}), // reordered
		"Q3": model.MatchSetAnswer(map[string]string{"P1": "M3"}),
		"Q4": model.OptionAnswer("  Jakarta "),
	}

	res := Score(paper(), key(), answers)
	if res.Correct != 4 || res.Total != 4 {
		t.Fatalf("got %d/%d, want 4/4", res.Correct, res.Total)
	}
	if res.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", res.Percentage)
	}
}

func TestScorePartialAndWrong(t *testing.T) {
	tests := []struct {
		name    string
		answers model.Answers
		correct int
	}{
		{"empty answers", model.Answers{}, 0},
		{"nil answers counted incorrect", model.Answers{"Q1": {}, "Q4": model.OptionAnswer("  ")}, 0},
		{
			"incomplete option set",
			model.Answers{"Q2": model.OptionSetAnswer([]string{"Q2A1"})},
			0,
		},
		{
			"extra option breaks set equality",
			model.Answers{"Q2": model.OptionSetAnswer([]string{"Q2A1", "Q2A3", "Q2A4"})},
			0,
		},
		{
			"partial mapping is incorrect",
			model.Answers{"Q3": model.MatchSetAnswer(map[string]string{"P1": "M1"})},
			0,
		},
		{
			"two of four",
			model.Answers{
				"Q1": model.OptionAnswer("Q1A1"),
				"Q2": model.OptionSetAnswer([]string{"Q2A1", "Q2A3"}),
				"Q4": model.OptionAnswer("JAKARTA"),
			},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(paper(), key(), tt.answers)
			if res.Correct != tt.correct {
				t.Errorf("correct = %d, want %d", res.Correct, tt.correct)
			}
			if res.Total != 4 {
				t.Errorf("total = %d, want 4", res.Total)
			}
		})
	}
}

func TestScoreNoQuestions(t *testing.T) {
	res := Score(nil, model.AnswerKey{}, model.Answers{})
	if res.Total != 0 || res.Correct != 0 || res.Percentage != 0 {
		t.Fatalf("empty exam should score 0/0 at 0%%, got %+v", res)
	}
}

func TestScoreExactRatio(t *testing.T) {
	questions := []model.PaperQuestion{
		{ID: "Q1", Type: model.QuestionTypeShortAnswer},
		{ID: "Q2", Type: model.QuestionTypeShortAnswer},
		{ID: "Q3", Type: model.QuestionTypeShortAnswer},
	}
	k := model.AnswerKey{
		"Q1": model.OptionAnswer("a"),
		"Q2": model.OptionAnswer("b"),
		"Q3": model.OptionAnswer("c"),
	}
	answers := model.Answers{"Q1": model.OptionAnswer("a")}

	res := Score(questions, k, answers)
	want := 100 * 1.0 / 3.0
	if res.Percentage != want {
		t.Fatalf("percentage = %v, want exact ratio %v", res.Percentage, want)
	}
}
