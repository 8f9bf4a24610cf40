package handler

import (
	"net/http"

	"github.com/pavelanni/examdesk/internal/correction"
	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/report"
	"github.com/pavelanni/examdesk/internal/scoring"
)

type automaticRequest struct {
	StudentAnswerID int64  `json:"studentAnswerId" validate:"required,gt=0"`
	EvaluatorName   string `json:"evaluatorName"`
}

type manualEntry struct {
	QuestionID    int64              `json:"questionId" validate:"required,gt=0"`
	StudentAnswer string             `json:"studentAnswer"`
	CorrectAnswer string             `json:"correctAnswer"`
	QuestionType  model.QuestionType `json:"questionType"`
	Points        *float64           `json:"points" validate:"required"`
	Feedback      string             `json:"feedback"`
}

type manualRequest struct {
	StudentAnswerID int64         `json:"studentAnswerId" validate:"required,gt=0"`
	EvaluatorName   string        `json:"evaluatorName"`
	Corrections     []manualEntry `json:"corrections" validate:"required,min=1,dive"`
}

// correctionView adds the letter grade to a stored correction.
type correctionView struct {
	model.Correction
	Grade   scoring.Grade `json:"grade"`
	Percent float64       `json:"percentage"`
}

func viewOf(c model.Correction) correctionView {
	return correctionView{
		Correction: c,
		Grade:      scoring.Classify(c.TotalScore, c.MaxScore),
		Percent:    scoring.Percentage(c.TotalScore, c.MaxScore),
	}
}

func (h *Handler) handleAutomaticCorrection(w http.ResponseWriter, r *http.Request) {
	var req automaticRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	c, err := h.corrections.Automatic(r.Context(), correction.AutomaticRequest{
		SubmissionID:  req.StudentAnswerID,
		EvaluatorName: req.EvaluatorName,
	})
	if err != nil {
		writeError(w, r, err, "ErrSubmissionNotFound")
		return
	}
	writeOK(w, "correction", viewOf(c))
}

func (h *Handler) handleManualCorrection(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	answers := make([]model.CorrectedAnswer, len(req.Corrections))
	for i, e := range req.Corrections {
		answers[i] = model.CorrectedAnswer{
			QuestionID:    e.QuestionID,
			StudentAnswer: e.StudentAnswer,
			CorrectAnswer: e.CorrectAnswer,
			QuestionType:  e.QuestionType,
			Points:        *e.Points,
			Feedback:      e.Feedback,
		}
	}

	c, err := h.corrections.Manual(r.Context(), correction.ManualRequest{
		SubmissionID:  req.StudentAnswerID,
		EvaluatorName: req.EvaluatorName,
		Answers:       answers,
	})
	if err != nil {
		writeError(w, r, err, "ErrSubmissionNotFound")
		return
	}
	writeOK(w, "correction", viewOf(c))
}

func (h *Handler) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	list, err := h.corrections.List(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	views := make([]correctionView, len(list))
	for i, c := range list {
		views[i] = viewOf(c)
	}
	writeOK(w, "corrections", views)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	list, err := h.corrections.List(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, "dashboard", report.Build(list, h.report))
}

func (h *Handler) handleGetCorrection(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "correctionID")
	if !ok {
		return
	}
	c, err := h.corrections.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "ErrCorrectionNotFound")
		return
	}
	writeOK(w, "correction", viewOf(c))
}

func (h *Handler) handleDeleteCorrection(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "correctionID")
	if !ok {
		return
	}
	if err := h.corrections.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "ErrCorrectionNotFound")
		return
	}
	writeOK(w, "", nil)
}
