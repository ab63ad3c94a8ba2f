package services

import (
	"testing"
	"time"

	"jobprep-backend/internal/models"
)

func userTurn(content string) models.Turn {
	return models.Turn{Role: models.RoleUser, Content: content}
}

func interviewerTurn(content string) models.Turn {
	return models.Turn{Role: models.RoleInterviewer, Content: content}
}

func TestCountFillerWords(t *testing.T) {
	tests := []struct {
		name    string
		history []models.Turn
		want    int
	}{
		{
			name:    "mixed fillers",
			history: []models.Turn{userTurn("Um, I think, like, it was okay")},
			want:    3,
		},
		{
			name:    "case insensitive",
			history: []models.Turn{userTurn("UM yes UH no LIKE maybe")},
			want:    3,
		},
		{
			name:    "multi-word phrases count once",
			history: []models.Turn{userTurn("you know it was sort of hard")},
			want:    2,
		},
		{
			name:    "word boundaries respected",
			history: []models.Turn{userTurn("the checksum was unlikely to collide")},
			want:    0,
		},
		{
			name: "interviewer turns ignored",
			history: []models.Turn{
				interviewerTurn("Well, um, tell me more"),
				userTurn("I shipped the project on time"),
			},
			want: 0,
		},
		{
			name: "accumulates across turns",
			history: []models.Turn{
				userTurn("basically it worked"),
				userTurn("yeah, literally the best outcome"),
			},
			want: 3,
		},
		{
			name:    "empty history",
			history: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountFillerWords(tt.history); got != tt.want {
				t.Errorf("CountFillerWords() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAverageResponseLength(t *testing.T) {
	t.Run("no user turns returns nil", func(t *testing.T) {
		history := []models.Turn{interviewerTurn("Tell me about yourself")}
		if got := averageResponseLength(history); got != nil {
			t.Errorf("averageResponseLength() = %d, want nil", *got)
		}
	})

	t.Run("truncating average", func(t *testing.T) {
		history := []models.Turn{
			userTurn("one two three"),
			userTurn("four five"),
		}
		got := averageResponseLength(history)
		if got == nil || *got != 2 {
			t.Errorf("averageResponseLength() = %v, want 2", got)
		}
	})
}

func TestAverageResponseTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no pairs returns nil", func(t *testing.T) {
		history := []models.Turn{userTurn("hello")}
		if got := averageResponseTime(history); got != nil {
			t.Errorf("averageResponseTime() = %v, want nil", *got)
		}
	})

	t.Run("question answer pair", func(t *testing.T) {
		history := []models.Turn{
			{Role: models.RoleInterviewer, Content: "Q1", Timestamp: base},
			{Role: models.RoleUser, Content: "A1", Timestamp: base.Add(20 * time.Second)},
			{Role: models.RoleInterviewer, Content: "Q2", Timestamp: base.Add(25 * time.Second)},
			{Role: models.RoleUser, Content: "A2", Timestamp: base.Add(65 * time.Second)},
		}
		got := averageResponseTime(history)
		if got == nil || *got != 30 {
			t.Errorf("averageResponseTime() = %v, want 30", got)
		}
	})
}

func TestParseFeedback(t *testing.T) {
	valid := `{
		"overall_score": 82,
		"relevance_score": 78,
		"confidence_score": 85,
		"positivity_score": 90,
		"strengths": ["Clear structure"],
		"weaknesses": ["Rushed answers"],
		"summary": "Strong performance overall.",
		"actionable_tips": ["Pause before answering"]
	}`

	t.Run("plain json", func(t *testing.T) {
		f := parseFeedback(valid)
		if f.OverallScore != 82 || f.Summary != "Strong performance overall." {
			t.Errorf("unexpected parse result: %+v", f)
		}
	})

	t.Run("fenced json", func(t *testing.T) {
		f := parseFeedback("```json\n" + valid + "\n```")
		if f.RelevanceScore != 78 {
			t.Errorf("fenced json not parsed, got %+v", f)
		}
	})

	t.Run("json wrapped in prose", func(t *testing.T) {
		f := parseFeedback("Here is my analysis:\n" + valid + "\nHope this helps!")
		if f.ConfidenceScore != 85 {
			t.Errorf("embedded json not parsed, got %+v", f)
		}
	})

	t.Run("structured free text", func(t *testing.T) {
		f := parseFeedback("Overall: 85/100\nRelevance: 72\nConfidence Score: 64\n\nStrengths:\n- Clear structure\n- Good examples\n\nWeaknesses:\n- Rushed answers\n\nSummary: Solid interview with room to slow down.")
		if f.OverallScore != 85 || f.RelevanceScore != 72 || f.ConfidenceScore != 64 {
			t.Errorf("scores not extracted, got %+v", f)
		}
		if len(f.Strengths) != 2 || f.Strengths[0] != "Clear structure" {
			t.Errorf("strengths not extracted, got %v", f.Strengths)
		}
		if len(f.Weaknesses) != 1 || f.Weaknesses[0] != "Rushed answers" {
			t.Errorf("weaknesses not extracted, got %v", f.Weaknesses)
		}
		if f.Summary != "Solid interview with room to slow down." {
			t.Errorf("summary not extracted, got %q", f.Summary)
		}
	})

	t.Run("garbage falls back to neutral", func(t *testing.T) {
		f := parseFeedback("The candidate did fine, I'd say a solid 7/10.")
		if f.OverallScore != 70 || f.RelevanceScore != 70 {
			t.Errorf("expected neutral scores, got %+v", f)
		}
		if len(f.Weaknesses) != 1 || f.Weaknesses[0] != "Feedback parsing error" {
			t.Errorf("expected parsing-error weakness, got %v", f.Weaknesses)
		}
		if f.Summary != "Interview completed. Detailed feedback unavailable." {
			t.Errorf("unexpected neutral summary: %q", f.Summary)
		}
	})

	t.Run("scores clamped", func(t *testing.T) {
		f := parseFeedback(`{"overall_score": 140, "relevance_score": -5, "confidence_score": 50, "positivity_score": 50, "strengths": ["s"], "weaknesses": ["w"], "summary": "ok", "actionable_tips": ["t"]}`)
		if f.OverallScore != 100 {
			t.Errorf("overall score not clamped, got %v", f.OverallScore)
		}
		if f.RelevanceScore != 0 {
			t.Errorf("relevance score not clamped, got %v", f.RelevanceScore)
		}
	})

	t.Run("empty lists get defaults", func(t *testing.T) {
		f := parseFeedback(`{"overall_score": 60, "relevance_score": 60, "confidence_score": 60, "positivity_score": 60, "strengths": [], "weaknesses": [], "summary": "", "actionable_tips": []}`)
		if len(f.Strengths) == 0 || len(f.ActionableTips) == 0 {
			t.Errorf("expected default lists, got %+v", f)
		}
	})
}
