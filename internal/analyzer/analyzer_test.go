package analyzer

import (
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/routing-engine/internal/types"
)

func createTestAnalyzer() *Analyzer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(DefaultConfig(), logger)
}

func TestAnalyzer_TaskClassification(t *testing.T) {
	a := createTestAnalyzer()

	tests := []struct {
		prompt string
		want   types.TaskType
	}{
		{"Write a function to reverse a string in Python", types.TaskCode},
		{"Debug this code:\n```\nfunc main() {}\n```", types.TaskCode},
		{"Prove that the sum of two even numbers is even, step by step", types.TaskReasoning},
		{"Write a story about a lighthouse keeper and a storm", types.TaskCreative},
		{"What is the capital of France?", types.TaskQA},
		{"Summarize the following article into key points", types.TaskSummarization},
		{"Translate this paragraph to English from German", types.TaskTranslation},
		{"asdf qwerty zxcv", types.TaskOther},
	}

	for _, tt := range tests {
		got := a.Analyze(tt.prompt)
		if got.TaskType != tt.want {
			t.Errorf("Analyze(%q).TaskType = %s, want %s", tt.prompt, got.TaskType, tt.want)
		}
	}
}

func TestAnalyzer_Deterministic(t *testing.T) {
	a := createTestAnalyzer()
	prompt := "Analyze the database schema and write a SQL migration. First add the column, then backfill it."

	first := a.Analyze(prompt)
	for i := 0; i < 10; i++ {
		if got := a.Analyze(prompt); !reflect.DeepEqual(got, first) {
			t.Fatalf("analysis not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestAnalyzer_DefaultOnUnusableInput(t *testing.T) {
	a := createTestAnalyzer()

	for _, prompt := range []string{"", "   \n\t  ", "abc\xff\xfe"} {
		got := a.Analyze(prompt)
		if got.TaskType != types.TaskOther {
			t.Errorf("Analyze(%q).TaskType = %s, want other", prompt, got.TaskType)
		}
		if got.Complexity != 0.5 {
			t.Errorf("Analyze(%q).Complexity = %v, want 0.5", prompt, got.Complexity)
		}
	}
}

func TestAnalyzer_ComplexityBounds(t *testing.T) {
	a := createTestAnalyzer()

	short := a.Analyze("Hi")
	long := a.Analyze("First, read the requirements. Then, design the schema. " +
		strings.Repeat("Consider edge cases, constraints, and tradeoffs. ", 60) +
		"1. Plan. 2. Implement. 3. Verify.")

	for _, c := range []float64{short.Complexity, long.Complexity} {
		if c < 0 || c > 1 {
			t.Fatalf("complexity %v out of [0,1]", c)
		}
	}
	if long.Complexity <= short.Complexity {
		t.Errorf("multi-step long prompt should score higher: %v vs %v", long.Complexity, short.Complexity)
	}
}

func TestAnalyzer_DomainTags(t *testing.T) {
	a := createTestAnalyzer()

	got := a.Analyze("Deploy the server with docker and configure the database network")
	found := false
	for _, tag := range got.DomainTags {
		if tag == "technical" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected technical domain tag, got %v", got.DomainTags)
	}

	// tags are sorted for deterministic output
	if !sortedStrings(got.DomainTags) {
		t.Errorf("domain tags not sorted: %v", got.DomainTags)
	}

	if tags := a.Analyze("hello there").DomainTags; len(tags) != 0 {
		t.Errorf("expected no domain tags for generic prompt, got %v", tags)
	}
}

func TestAnalyzer_TokenEstimate(t *testing.T) {
	a := createTestAnalyzer()

	if got := a.Analyze("x").EstimatedInputTokens; got != 1 {
		t.Errorf("single char should estimate 1 token, got %d", got)
	}
	if got := a.Analyze(strings.Repeat("a", 400)).EstimatedInputTokens; got != 100 {
		t.Errorf("400 chars should estimate 100 tokens, got %d", got)
	}
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
