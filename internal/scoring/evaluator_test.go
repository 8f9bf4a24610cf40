package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pavelanni/examdesk/internal/model"
)

func TestKeywordEvaluator(t *testing.T) {
	q := model.Question{
		Type:          model.QuestionEssay,
		CorrectAnswer: "Channels are typed conduits between goroutines.",
		Points:        2,
	}

	tests := []struct {
		name   string
		answer string
		want   float64
	}{
		{"empty", "   ", 0},
		{"all terms", "channels are TYPED conduits between goroutines", 2},
		// 2 of 6 terms: 0.33 * 2 = 0.67, floored to 0.5.
		{"some terms", "goroutines use channels", 0.5},
		{"no terms", "I do not know", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := KeywordEvaluator{}.EvaluateEssay(context.Background(), EssayInput{Question: q, StudentAnswer: tt.answer})
			if err != nil {
				t.Fatalf("EvaluateEssay: %v", err)
			}
			if ev.Points != tt.want {
				t.Errorf("points = %v, want %v", ev.Points, tt.want)
			}
			if ev.Points < 0 || ev.Points > q.Points {
				t.Errorf("points %v outside [0, %v]", ev.Points, q.Points)
			}
			if ev.Feedback == "" {
				t.Error("expected feedback")
			}
		})
	}
}

func TestKeywordEvaluatorDeterministic(t *testing.T) {
	in := EssayInput{
		Question:      model.Question{CorrectAnswer: "interfaces are satisfied implicitly", Points: 3},
		StudentAnswer: "interfaces are implicit",
	}
	first, _ := KeywordEvaluator{}.EvaluateEssay(context.Background(), in)
	for i := 0; i < 5; i++ {
		again, _ := KeywordEvaluator{}.EvaluateEssay(context.Background(), in)
		if again != first {
			t.Fatalf("evaluation changed between runs: %+v vs %+v", first, again)
		}
	}
}

func TestFallbackEvaluator(t *testing.T) {
	in := EssayInput{
		Question:      model.Question{ID: 1, CorrectAnswer: "goroutines", Points: 1},
		StudentAnswer: "goroutines",
	}

	primary := &fixedEvaluator{err: errors.New("LLM down")}
	ev, err := FallbackEvaluator{Primary: primary, Secondary: KeywordEvaluator{}}.EvaluateEssay(context.Background(), in)
	if err != nil {
		t.Fatalf("EvaluateEssay: %v", err)
	}
	if ev.Points != 1 {
		t.Errorf("expected fallback to award 1 point, got %v", ev.Points)
	}
	if !strings.Contains(ev.Feedback, "1/1") {
		t.Errorf("unexpected fallback feedback %q", ev.Feedback)
	}

	ok := &fixedEvaluator{points: 0.5}
	ev, _ = FallbackEvaluator{Primary: ok, Secondary: KeywordEvaluator{}}.EvaluateEssay(context.Background(), in)
	if ev.Points != 0.5 || ev.Feedback != "fixed" {
		t.Errorf("expected primary result, got %+v", ev)
	}
}

func TestUniqueTerms(t *testing.T) {
	got := uniqueTerms("Go, go! GO routines; a b", 2)
	want := []string{"go", "routines"}
	if len(got) != len(want) {
		t.Fatalf("uniqueTerms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("uniqueTerms[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
