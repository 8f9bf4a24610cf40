package correction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/scoring"
	"github.com/pavelanni/examdesk/internal/store"
)

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("BRT", -3*60*60))

type fixture struct {
	store *store.Store
	svc   *Service
	exam  model.Exam
	sub   model.Submission
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	exam, err := st.CreateExam(ctx, model.Exam{
		Title:       "Concurrency",
		Description: "Goroutines and channels",
		CreatedBy:   "Teacher",
		Questions: []model.Question{
			{Type: model.QuestionObjective, Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Points: 1},
			{Type: model.QuestionEssay, Prompt: "What is a goroutine?", CorrectAnswer: "lightweight threads", Points: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	sub, err := st.CreateSubmission(ctx, model.Submission{
		ExamID:      exam.ID,
		StudentName: "Ana",
		Answers: []model.SubmittedAnswer{
			{QuestionID: exam.Questions[0].ID, Answer: "4"},
			{QuestionID: exam.Questions[1].ID, Answer: "they are threads"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewService(st, scoring.NewEngine(scoring.KeywordEvaluator{}), opts...)
	return fixture{store: st, svc: svc, exam: exam, sub: sub}
}

func TestAutomaticCorrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: "  Prof. Lima "})
	if err != nil {
		t.Fatalf("Automatic: %v", err)
	}

	if c.ID == 0 {
		t.Error("expected correction id")
	}
	if c.CorrectedBy != "Prof. Lima" {
		t.Errorf("corrected by = %q", c.CorrectedBy)
	}
	if c.CorrectionMethod != model.MethodAutomatic {
		t.Errorf("method = %s", c.CorrectionMethod)
	}
	if !c.CorrectedAt.Equal(fixedNow) || c.CorrectedAt.Location() != time.UTC {
		t.Errorf("corrected at = %v, want %v in UTC", c.CorrectedAt, fixedNow)
	}
	// Objective 1/1, essay matches 1 of 2 key terms: 1/2.
	if c.TotalScore != 2 || c.MaxScore != 3 {
		t.Errorf("score = %v/%v, want 2/3", c.TotalScore, c.MaxScore)
	}
	if c.ExamTitle != "Concurrency" || c.ExamDescription != "Goroutines and channels" {
		t.Errorf("exam snapshot missing: %q %q", c.ExamTitle, c.ExamDescription)
	}
	if c.ExamID == nil || *c.ExamID != f.exam.ID {
		t.Errorf("exam id = %v, want %d", c.ExamID, f.exam.ID)
	}

	sub, err := f.store.GetSubmission(ctx, f.sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if sub.Status != model.StatusCorrected {
		t.Errorf("submission status = %s, want corrected", sub.Status)
	}

	got, err := f.svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalScore != c.TotalScore || got.MaxScore != c.MaxScore || len(got.Answers) != len(c.Answers) {
		t.Fatalf("read back %+v, want %+v", got, c)
	}
	for i := range c.Answers {
		if got.Answers[i] != c.Answers[i] {
			t.Errorf("answer %d = %+v, want %+v", i, got.Answers[i], c.Answers[i])
		}
	}
}

func TestCorrectionRequiresEvaluatorName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"", "   "} {
		_, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: name})
		if !errors.Is(err, model.ErrValidation) {
			t.Errorf("Automatic(%q): expected ErrValidation, got %v", name, err)
		}
		_, err = f.svc.Manual(ctx, ManualRequest{SubmissionID: f.sub.ID, EvaluatorName: name})
		if !errors.Is(err, model.ErrValidation) {
			t.Errorf("Manual(%q): expected ErrValidation, got %v", name, err)
		}
	}
}

func TestCorrectionNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: 999, EvaluatorName: "Grader"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing submission: expected ErrNotFound, got %v", err)
	}

	if err := f.store.DeleteExam(ctx, f.exam.ID); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	_, err = f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: "Grader"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("deleted exam: expected ErrNotFound, got %v", err)
	}
}

func TestSecondCorrectionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: "Grader"}); err != nil {
		t.Fatalf("first Automatic: %v", err)
	}
	_, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: "Grader"})
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict on second correction, got %v", err)
	}

	list, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected exactly 1 correction, got %d", len(list))
	}
}

func TestManualCorrection(t *testing.T) {
	tests := []struct {
		name    string
		opts    scoring.ManualOptions
		points  float64
		wantErr error
		total   float64
	}{
		{"over max accepted by default", scoring.ManualOptions{}, 7, nil, 8},
		{"over max rejected when enforced", scoring.ManualOptions{EnforceBounds: true}, 7, model.ErrValidation, 0},
		{"within bounds", scoring.ManualOptions{EnforceBounds: true}, 1.5, nil, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, WithManualOptions(tt.opts))
			ctx := context.Background()

			c, err := f.svc.Manual(ctx, ManualRequest{
				SubmissionID:  f.sub.ID,
				EvaluatorName: "Grader",
				Answers: []model.CorrectedAnswer{
					{QuestionID: f.exam.Questions[0].ID, Points: 1, Feedback: "right"},
					{QuestionID: f.exam.Questions[1].ID, Points: tt.points, Feedback: "see notes"},
				},
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				sub, _ := f.store.GetSubmission(ctx, f.sub.ID)
				if sub.Status != model.StatusPending {
					t.Errorf("rejected correction changed status to %s", sub.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Manual: %v", err)
			}
			if c.TotalScore != tt.total || c.MaxScore != 3 {
				t.Errorf("score = %v/%v, want %v/3", c.TotalScore, c.MaxScore, tt.total)
			}
			if c.CorrectionMethod != model.MethodManual {
				t.Errorf("method = %s", c.CorrectionMethod)
			}
			if c.Answers[1].StudentAnswer != "they are threads" {
				t.Errorf("student answer not filled from submission: %q", c.Answers[1].StudentAnswer)
			}
		})
	}
}

func TestDeleteReopensSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: "Grader"})
	if err != nil {
		t.Fatalf("Automatic: %v", err)
	}
	if err := f.svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := f.svc.Delete(ctx, c.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	if _, err := f.svc.Automatic(ctx, AutomaticRequest{SubmissionID: f.sub.ID, EvaluatorName: "Grader"}); err != nil {
		t.Fatalf("re-correct after delete: %v", err)
	}
}
