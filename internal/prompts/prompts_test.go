package prompts

import (
	"strings"
	"testing"
	"time"

	"jobprep-backend/internal/models"
)

func TestInterviewerSystem(t *testing.T) {
	got := InterviewerSystem("Data Scientist", models.DifficultyAdvanced)

	for _, want := range []string{
		"advanced-level job interview",
		"Data Scientist position",
		"advanced-level candidates",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestFollowUpQuestion(t *testing.T) {
	tests := []struct {
		name     string
		isFinal  bool
		contains string
		excludes string
	}{
		{"regular", false, "ask a relevant follow-up question", "final question"},
		{"final", true, "This is the final question of the interview.", "follow-up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FollowUpQuestion(3, tt.isFinal)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("prompt missing %q", tt.contains)
			}
			if strings.Contains(got, tt.excludes) {
				t.Errorf("prompt unexpectedly contains %q", tt.excludes)
			}
			if !strings.Contains(got, "Questions asked so far: 3") {
				t.Errorf("prompt missing question count")
			}
		})
	}
}

func TestCandidateContext(t *testing.T) {
	title := "Junior Developer"
	target := "Backend Engineer"
	years := 4

	tests := []struct {
		name string
		user models.User
		want []string
	}{
		{
			name: "empty profile",
			user: models.User{},
			want: []string{"No additional context provided."},
		},
		{
			name: "full profile",
			user: models.User{
				FullName:          "Aizhan Bekova",
				CurrentJobTitle:   &title,
				TargetJobRole:     &target,
				YearsOfExperience: &years,
			},
			want: []string{
				"Candidate: Aizhan Bekova",
				"Current Role: Junior Developer",
				"Target Role: Backend Engineer",
				"Experience: 4 years",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CandidateContext(&tt.user)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("context missing %q, got:\n%s", want, got)
				}
			}
		})
	}
}

func TestFormatTranscript(t *testing.T) {
	now := time.Now()
	history := []models.Turn{
		{Role: models.RoleInterviewer, Content: "Tell me about yourself.", Timestamp: now},
		{Role: models.RoleUser, Content: "I am a backend engineer.", Timestamp: now},
	}

	got := FormatTranscript(history)

	if !strings.Contains(got, "INTERVIEWER: Tell me about yourself.") {
		t.Errorf("missing interviewer line, got:\n%s", got)
	}
	if !strings.Contains(got, "CANDIDATE: I am a backend engineer.") {
		t.Errorf("missing candidate line, got:\n%s", got)
	}
	if strings.Index(got, "INTERVIEWER") > strings.Index(got, "CANDIDATE") {
		t.Errorf("transcript order wrong:\n%s", got)
	}
}

func TestFeedbackAnalysisEmbedsTranscriptAndSchema(t *testing.T) {
	history := []models.Turn{
		{Role: models.RoleInterviewer, Content: "Why this role?"},
		{Role: models.RoleUser, Content: "I love shipping products."},
	}

	got := FeedbackAnalysis(history, "Product Manager", models.DifficultyBeginner)

	for _, want := range []string{
		"Product Manager position",
		"CANDIDATE: I love shipping products.",
		`"overall_score"`,
		`"actionable_tips"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("feedback prompt missing %q", want)
		}
	}
}

func TestFallbackOpeningQuestion(t *testing.T) {
	got := FallbackOpeningQuestion("UX Designer")
	if !strings.Contains(got, "UX Designer position") {
		t.Errorf("fallback question missing category, got %q", got)
	}
	if !strings.Contains(got, "Tell me about yourself") {
		t.Errorf("fallback question missing opener, got %q", got)
	}
}
