package model

import (
	"errors"
	"testing"
)

func testExam() Exam {
	return Exam{
		ID:    1,
		Title: "Go",
		Questions: []Question{
			{ID: 1, Type: QuestionObjective, Prompt: "Keyword?", Options: []string{"go", "run"}, CorrectAnswer: "go", Points: 1},
			{ID: 2, Type: QuestionEssay, Prompt: "Explain channels", CorrectAnswer: "typed conduits", Points: 2.5},
		},
	}
}

func TestExamMaxScore(t *testing.T) {
	if got := testExam().MaxScore(); got != 3.5 {
		t.Errorf("MaxScore = %v, want 3.5", got)
	}
	if got := (Exam{}).MaxScore(); got != 0 {
		t.Errorf("empty MaxScore = %v, want 0", got)
	}
}

func TestExamPublic(t *testing.T) {
	e := testExam()
	pub := e.Public()

	for _, q := range pub.Questions {
		if q.CorrectAnswer != "" {
			t.Errorf("question %d still has an answer key", q.ID)
		}
	}
	if len(pub.Questions[0].Options) != 2 {
		t.Error("options should be kept")
	}
	if e.Questions[0].CorrectAnswer != "go" {
		t.Error("Public must not modify the source exam")
	}
}

func TestSubmissionAnswerFor(t *testing.T) {
	s := Submission{Answers: []SubmittedAnswer{{QuestionID: 2, Answer: "pipes"}}}
	if got := s.AnswerFor(2); got != "pipes" {
		t.Errorf("AnswerFor(2) = %q", got)
	}
	if got := s.AnswerFor(1); got != "" {
		t.Errorf("AnswerFor(1) = %q, want empty", got)
	}
}

func TestQuestionTypeValid(t *testing.T) {
	for typ, want := range map[QuestionType]bool{
		QuestionObjective: true,
		QuestionEssay:     true,
		"":                false,
		"Objective":       false,
	} {
		if got := typ.Valid(); got != want {
			t.Errorf("%q.Valid() = %v, want %v", typ, got, want)
		}
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("ErrQuestionText", map[string]any{"N": 3}, "question %d has no text", 3)
	if !errors.Is(err, ErrValidation) {
		t.Error("Invalid should wrap ErrValidation")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.MessageID != "ErrQuestionText" || ve.Data["N"] != 3 {
		t.Errorf("unexpected validation error %#v", err)
	}
	if err.Error() != "question 3 has no text" {
		t.Errorf("Error() = %q", err.Error())
	}
}
