// Package correction builds and persists Correction records from scored
// submissions.
package correction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/scoring"
)

// Store is the persistence the service needs.
type Store interface {
	GetSubmission(ctx context.Context, id int64) (model.Submission, error)
	GetExam(ctx context.Context, id int64) (model.Exam, error)
	CreateCorrection(ctx context.Context, c model.Correction) (model.Correction, error)
	GetCorrection(ctx context.Context, id int64) (model.Correction, error)
	ListCorrections(ctx context.Context) ([]model.Correction, error)
	DeleteCorrection(ctx context.Context, id int64) error
}

// AutomaticRequest asks for a submission to be scored by the engine.
type AutomaticRequest struct {
	SubmissionID  int64
	EvaluatorName string
}

// ManualRequest carries scores entered by a human corrector.
type ManualRequest struct {
	SubmissionID  int64
	EvaluatorName string
	Answers       []model.CorrectedAnswer
}

// Service is the correction record builder.
type Service struct {
	store  Store
	engine *scoring.Engine
	manual scoring.ManualOptions
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithManualOptions sets how manual scores are validated.
func WithManualOptions(o scoring.ManualOptions) Option { return func(s *Service) { s.manual = o } }

// NewService creates a Service.
func NewService(st Store, engine *scoring.Engine, opts ...Option) *Service {
	s := &Service{store: st, engine: engine, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Automatic scores a pending submission and stores the correction.
func (s *Service) Automatic(ctx context.Context, req AutomaticRequest) (model.Correction, error) {
	evaluator, err := evaluatorName(req.EvaluatorName)
	if err != nil {
		return model.Correction{}, err
	}
	sub, exam, err := s.resolve(ctx, req.SubmissionID)
	if err != nil {
		return model.Correction{}, err
	}

	res, err := s.engine.Automatic(ctx, exam, sub)
	if err != nil {
		return model.Correction{}, fmt.Errorf("score submission %d: %w", sub.ID, err)
	}
	return s.save(ctx, exam, sub, res, evaluator, model.MethodAutomatic)
}

// Manual stores the scores entered by a corrector.
func (s *Service) Manual(ctx context.Context, req ManualRequest) (model.Correction, error) {
	evaluator, err := evaluatorName(req.EvaluatorName)
	if err != nil {
		return model.Correction{}, err
	}
	sub, exam, err := s.resolve(ctx, req.SubmissionID)
	if err != nil {
		return model.Correction{}, err
	}

	res, err := s.engine.Manual(exam, sub, req.Answers, s.manual)
	if err != nil {
		return model.Correction{}, fmt.Errorf("score submission %d: %w", sub.ID, err)
	}
	return s.save(ctx, exam, sub, res, evaluator, model.MethodManual)
}

// Get returns one correction.
func (s *Service) Get(ctx context.Context, id int64) (model.Correction, error) {
	return s.store.GetCorrection(ctx, id)
}

// List returns all corrections, newest first.
func (s *Service) List(ctx context.Context) ([]model.Correction, error) {
	return s.store.ListCorrections(ctx)
}

// Delete removes a correction. Its submission becomes pending again.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCorrection(ctx, id); err != nil {
		return err
	}
	slog.Info("correction deleted", "correction_id", id)
	return nil
}

func (s *Service) resolve(ctx context.Context, submissionID int64) (model.Submission, model.Exam, error) {
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return model.Submission{}, model.Exam{}, fmt.Errorf("load submission: %w", err)
	}
	if sub.Status != model.StatusPending {
		return model.Submission{}, model.Exam{}, fmt.Errorf("submission %d is already %s: %w", sub.ID, sub.Status, model.ErrConflict)
	}
	exam, err := s.store.GetExam(ctx, sub.ExamID)
	if err != nil {
		return model.Submission{}, model.Exam{}, fmt.Errorf("load exam for submission %d: %w", sub.ID, err)
	}
	return sub, exam, nil
}

func (s *Service) save(ctx context.Context, exam model.Exam, sub model.Submission, res scoring.Result, evaluator string, method model.CorrectionMethod) (model.Correction, error) {
	examID := exam.ID
	c := model.Correction{
		SubmissionID:     sub.ID,
		ExamID:           &examID,
		ExamTitle:        exam.Title,
		ExamDescription:  exam.Description,
		StudentName:      sub.StudentName,
		Answers:          res.Answers,
		TotalScore:       res.TotalScore,
		MaxScore:         res.MaxScore,
		CorrectedBy:      evaluator,
		CorrectedAt:      s.now().UTC(),
		CorrectionMethod: method,
	}
	saved, err := s.store.CreateCorrection(ctx, c)
	if err != nil {
		return model.Correction{}, fmt.Errorf("save correction: %w", err)
	}
	slog.Info("submission corrected",
		"submission_id", sub.ID,
		"correction_id", saved.ID,
		"method", method,
		"total", saved.TotalScore,
		"max", saved.MaxScore,
		"grade", scoring.Classify(saved.TotalScore, saved.MaxScore),
	)
	return saved, nil
}

func evaluatorName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", model.Invalid("ErrEvaluatorRequired", nil, "evaluator name is required")
	}
	return name, nil
}
