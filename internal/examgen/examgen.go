// Package examgen validates exam definitions and drafts new exams from a
// topic, through an LLM when available and a deterministic template otherwise.
package examgen

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/pavelanni/examdesk/internal/model"
)

// Limits on generation requests.
const (
	MinQuestions        = 1
	MaxQuestions        = 20
	MaxSummaries        = 5
	MaxSummaryChars     = 100000
	GeneratedBy         = "AI"
	fallbackOptionCount = 4
)

// QuestionSource drafts questions for a topic.
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, topic string, summaries []string, n int) ([]model.Question, error)
}

// GenerateRequest asks for a new exam about Topic.
type GenerateRequest struct {
	Topic         string   `json:"topic"`
	Summaries     []string `json:"summaries"`
	QuestionCount int      `json:"questionCount"`
}

// Validate checks the request limits.
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return model.Invalid("ErrTopicRequired", nil, "exam topic is required")
	}
	if r.QuestionCount < MinQuestions || r.QuestionCount > MaxQuestions {
		return model.Invalid("ErrQuestionCount", map[string]any{"Min": MinQuestions, "Max": MaxQuestions},
			"question count must be between %d and %d", MinQuestions, MaxQuestions)
	}
	if len(r.Summaries) > MaxSummaries {
		return model.Invalid("ErrTooManySummaries", map[string]any{"Max": MaxSummaries},
			"at most %d summaries are allowed", MaxSummaries)
	}
	total := 0
	for _, s := range r.Summaries {
		total += utf8.RuneCountInString(s)
	}
	if total > MaxSummaryChars {
		return model.Invalid("ErrSummariesTooLong", map[string]any{"Total": total, "Max": MaxSummaryChars},
			"summaries total %d characters, limit is %d", total, MaxSummaryChars)
	}
	return nil
}

// Service drafts exams. A nil source always uses the fallback generator.
type Service struct {
	source QuestionSource
}

// NewService creates a Service.
func NewService(source QuestionSource) *Service {
	return &Service{source: source}
}

// Generate validates req and drafts an unsaved exam. Source failures and
// malformed questions fall back to Fallback.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (model.Exam, error) {
	if err := req.Validate(); err != nil {
		return model.Exam{}, err
	}
	topic := strings.TrimSpace(req.Topic)

	questions, err := s.fromSource(ctx, topic, req.Summaries, req.QuestionCount)
	if err != nil {
		slog.Warn("question generation failed, using fallback", "topic", topic, "error", err)
		questions = Fallback(topic, req.QuestionCount)
	}

	return model.Exam{
		Title:       "Exam about " + topic,
		Description: "Automatically generated exam on: " + topic,
		Questions:   questions,
		CreatedBy:   GeneratedBy,
	}, nil
}

func (s *Service) fromSource(ctx context.Context, topic string, summaries []string, n int) ([]model.Question, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no question source configured")
	}
	qs, err := s.source.GenerateQuestions(ctx, topic, summaries, n)
	if err != nil {
		return nil, err
	}
	if len(qs) > n {
		qs = qs[:n]
	}
	qs, err = NormalizeQuestions(qs)
	if err != nil {
		return nil, fmt.Errorf("generated questions: %w", err)
	}
	return qs, nil
}

// Fallback builds n template questions about topic, 70% objective and 30%
// essay, spread evenly. The output depends only on its arguments.
func Fallback(topic string, n int) []model.Question {
	qs := make([]model.Question, 0, n)
	for i := range n {
		num := i + 1
		if (i+1)*3/10 > i*3/10 {
			qs = append(qs, model.Question{
				Type:          model.QuestionEssay,
				Prompt:        fmt.Sprintf("Question %d: Explain %s in detail and why it matters.", num, topic),
				CorrectAnswer: "Model answer about " + topic,
				Points:        2,
			})
			continue
		}
		opts := make([]string, fallbackOptionCount)
		for j := range opts {
			opts[j] = fmt.Sprintf("Option %c about %s", 'A'+j, topic)
		}
		qs = append(qs, model.Question{
			Type:          model.QuestionObjective,
			Prompt:        fmt.Sprintf("Question %d: What is an important characteristic of %s?", num, topic),
			Options:       opts,
			CorrectAnswer: opts[0],
			Points:        1,
		})
	}
	return qs
}

// NormalizeExam trims and checks a manually entered exam.
func NormalizeExam(e model.Exam) (model.Exam, error) {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	if e.Title == "" {
		return e, model.Invalid("ErrTitleRequired", nil, "exam title is required")
	}
	qs, err := NormalizeQuestions(e.Questions)
	if err != nil {
		return e, err
	}
	e.Questions = qs
	return e, nil
}

// NormalizeQuestions returns a checked copy of qs. Missing points default to
// 1; essay questions drop their options.
func NormalizeQuestions(qs []model.Question) ([]model.Question, error) {
	if len(qs) == 0 {
		return nil, model.Invalid("ErrNoQuestions", nil, "an exam needs at least one question")
	}
	out := make([]model.Question, len(qs))
	for i, q := range qs {
		num := i + 1
		q.Prompt = strings.TrimSpace(q.Prompt)
		if q.Prompt == "" {
			return nil, model.Invalid("ErrQuestionText", map[string]any{"N": num}, "question %d has no text", num)
		}
		if !q.Type.Valid() {
			return nil, model.Invalid("ErrQuestionType", map[string]any{"N": num}, "question %d has unknown type %q", num, q.Type)
		}
		if q.Points == 0 {
			q.Points = 1
		}
		if q.Points < 0 {
			return nil, model.Invalid("ErrQuestionPoints", map[string]any{"N": num}, "question %d must be worth a positive number of points", num)
		}

		switch q.Type {
		case model.QuestionObjective:
			if len(q.Options) == 0 {
				return nil, model.Invalid("ErrQuestionOptions", map[string]any{"N": num}, "question %d needs options", num)
			}
			if !slices.Contains(q.Options, q.CorrectAnswer) {
				return nil, model.Invalid("ErrCorrectAnswerOption", map[string]any{"N": num},
					"question %d: correct answer must be one of the options", num)
			}
		case model.QuestionEssay:
			q.Options = nil
		}
		out[i] = q
	}
	return out, nil
}
