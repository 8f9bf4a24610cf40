// Package scoring turns a submission and its answer key into per-question
// points, feedback and totals.
package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/pavelanni/examdesk/internal/model"
)

// FeedbackText holds the fixed feedback attached to objective answers.
type FeedbackText struct {
	Correct   string
	Incorrect string
}

// DefaultFeedback is used when no localized text is configured.
var DefaultFeedback = FeedbackText{
	Correct:   "Correct answer!",
	Incorrect: "Incorrect answer.",
}

// Result is the outcome of scoring one submission.
type Result struct {
	Answers    []model.CorrectedAnswer
	TotalScore float64
	MaxScore   float64
}

// Engine scores submissions. Objective questions are scored by exact match,
// essay questions by the configured EssayEvaluator.
type Engine struct {
	evaluator EssayEvaluator
	feedback  FeedbackText
}

// Option configures an Engine.
type Option func(*Engine)

// WithFeedback overrides the objective feedback text.
func WithFeedback(f FeedbackText) Option { return func(e *Engine) { e.feedback = f } }

// NewEngine creates an Engine that delegates essay scoring to ev.
func NewEngine(ev EssayEvaluator, opts ...Option) *Engine {
	e := &Engine{evaluator: ev, feedback: DefaultFeedback}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Automatic scores every question of the exam, in exam order. A question the
// student skipped is scored as an empty answer.
func (e *Engine) Automatic(ctx context.Context, exam model.Exam, sub model.Submission) (Result, error) {
	res := Result{Answers: make([]model.CorrectedAnswer, 0, len(exam.Questions))}

	for _, q := range exam.Questions {
		answer := sub.AnswerFor(q.ID)
		res.MaxScore += q.Points

		var (
			points   float64
			feedback string
		)
		switch q.Type {
		case model.QuestionObjective:
			points, feedback = e.scoreObjective(q, answer)
		case model.QuestionEssay:
			if e.evaluator == nil {
				return Result{}, fmt.Errorf("question %d: no essay evaluator configured: %w", q.ID, model.ErrUpstream)
			}
			ev, err := e.evaluator.EvaluateEssay(ctx, EssayInput{Question: q, StudentAnswer: answer})
			if err != nil {
				return Result{}, fmt.Errorf("evaluate question %d: %w: %w", q.ID, model.ErrUpstream, err)
			}
			points, feedback = clamp(ev.Points, q.Points), ev.Feedback
		default:
			return Result{}, fmt.Errorf("question %d has unknown type %q: %w", q.ID, q.Type, model.ErrValidation)
		}

		res.TotalScore += points
		res.Answers = append(res.Answers, model.CorrectedAnswer{
			QuestionID:    q.ID,
			StudentAnswer: answer,
			CorrectAnswer: q.CorrectAnswer,
			QuestionType:  q.Type,
			Points:        points,
			Feedback:      feedback,
		})
	}
	return res, nil
}

// ManualOptions controls validation of human-entered scores.
type ManualOptions struct {
	// EnforceBounds rejects points outside [0, question points] and repeated
	// question ids instead of accepting them as entered.
	EnforceBounds bool
}

// Manual totals scores entered by a human corrector. Points and feedback are
// taken as given; blank answer-key fields are filled from the exam and the
// submission. The maximum always comes from the exam.
func (e *Engine) Manual(exam model.Exam, sub model.Submission, entries []model.CorrectedAnswer, opts ManualOptions) (Result, error) {
	byID := make(map[int64]model.Question, len(exam.Questions))
	for _, q := range exam.Questions {
		byID[q.ID] = q
	}

	seen := make(map[int64]bool, len(entries))

	res := Result{MaxScore: exam.MaxScore(), Answers: make([]model.CorrectedAnswer, 0, len(entries))}
	for i, a := range entries {
		q, known := byID[a.QuestionID]
		if opts.EnforceBounds {
			if !known {
				return Result{}, model.Invalid("ErrUnknownQuestion", map[string]any{"Question": a.QuestionID},
					"entry %d: question %d is not part of the exam", i, a.QuestionID)
			}
			if seen[a.QuestionID] {
				return Result{}, model.Invalid("ErrDuplicateQuestion", map[string]any{"Question": a.QuestionID},
					"entry %d: question %d is scored more than once", i, a.QuestionID)
			}
			seen[a.QuestionID] = true
			if a.Points < 0 || a.Points > q.Points || math.IsNaN(a.Points) {
				return Result{}, model.Invalid("ErrPointsOutOfRange", map[string]any{"Question": a.QuestionID, "Points": a.Points, "Max": q.Points},
					"entry %d: %v points outside [0, %v]", i, a.Points, q.Points)
			}
		}
		if known {
			if a.QuestionType == "" {
				a.QuestionType = q.Type
			}
			if a.CorrectAnswer == "" {
				a.CorrectAnswer = q.CorrectAnswer
			}
		}
		if a.StudentAnswer == "" {
			a.StudentAnswer = sub.AnswerFor(a.QuestionID)
		}
		res.TotalScore += a.Points
		res.Answers = append(res.Answers, a)
	}
	return res, nil
}

func (e *Engine) scoreObjective(q model.Question, answer string) (float64, string) {
	if answer == q.CorrectAnswer {
		return q.Points, e.feedback.Correct
	}
	return 0, e.feedback.Incorrect
}

func clamp(points, upper float64) float64 {
	if math.IsNaN(points) || points < 0 {
		return 0
	}
	if points > upper {
		return upper
	}
	return points
}
