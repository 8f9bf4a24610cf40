package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/pavelanni/examdesk/internal/model"
)

// EssayInput is what an evaluator needs to score one essay answer.
// The question's Points is the upper bound for the score.
type EssayInput struct {
	Question      model.Question
	StudentAnswer string
}

// Evaluation is an evaluator's verdict on one essay answer.
type Evaluation struct {
	Points   float64
	Feedback string
}

// EssayEvaluator scores free-text answers. Implementations should return
// points within [0, Question.Points]; the engine clamps anything else.
type EssayEvaluator interface {
	EvaluateEssay(ctx context.Context, in EssayInput) (Evaluation, error)
}

// KeywordEvaluator is a deterministic evaluator that awards points for the
// share of model-answer terms found in the student's answer, in half-point steps.
type KeywordEvaluator struct {
	// MinTermLength drops shorter words from the model answer. Defaults to 3.
	MinTermLength int
}

// EvaluateEssay implements EssayEvaluator.
func (k KeywordEvaluator) EvaluateEssay(_ context.Context, in EssayInput) (Evaluation, error) {
	minLen := k.MinTermLength
	if minLen <= 0 {
		minLen = 3
	}
	if strings.TrimSpace(in.StudentAnswer) == "" {
		return Evaluation{Points: 0, Feedback: "No answer provided."}, nil
	}

	terms := uniqueTerms(in.Question.CorrectAnswer, minLen)
	if len(terms) == 0 {
		return Evaluation{Points: 0, Feedback: "No model answer terms to compare against."}, nil
	}
	answered := make(map[string]struct{})
	for _, t := range uniqueTerms(in.StudentAnswer, 1) {
		answered[t] = struct{}{}
	}

	found := 0
	for _, t := range terms {
		if _, ok := answered[t]; ok {
			found++
		}
	}
	ratio := float64(found) / float64(len(terms))
	points := math.Floor(ratio*in.Question.Points*2) / 2
	return Evaluation{
		Points:   points,
		Feedback: fmt.Sprintf("Key terms matched: %d/%d. Points: %g/%g", found, len(terms), points, in.Question.Points),
	}, nil
}

// FallbackEvaluator tries Primary and, when it fails, scores with Secondary.
type FallbackEvaluator struct {
	Primary   EssayEvaluator
	Secondary EssayEvaluator
}

// EvaluateEssay implements EssayEvaluator.
func (f FallbackEvaluator) EvaluateEssay(ctx context.Context, in EssayInput) (Evaluation, error) {
	ev, err := f.Primary.EvaluateEssay(ctx, in)
	if err == nil {
		return ev, nil
	}
	slog.Warn("essay evaluator failed, using fallback", "question_id", in.Question.ID, "error", err)
	return f.Secondary.EvaluateEssay(ctx, in)
}

// uniqueTerms lowercases s, strips punctuation and returns distinct words of
// at least minLen runes in order of first appearance.
func uniqueTerms(s string, minLen int) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if len([]rune(w)) < minLen {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
