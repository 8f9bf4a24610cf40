package handler

import (
	"log/slog"
	"net/http"

	"github.com/pavelanni/examdesk/internal/examgen"
	"github.com/pavelanni/examdesk/internal/model"
)

// manualCreator is recorded as the author of hand-written exams.
const manualCreator = "Teacher"

type createExamRequest struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	Questions   []model.Question `json:"questions" validate:"required,min=1"`
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req createExamRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	exam, err := examgen.NormalizeExam(model.Exam{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
		CreatedBy:   manualCreator,
	})
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	exam, err = h.store.CreateExam(r.Context(), exam)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	slog.Info("exam created", "exam_id", exam.ID, "questions", len(exam.Questions))
	writeOK(w, "exam", exam)
}

func (h *Handler) handleGenerateExam(w http.ResponseWriter, r *http.Request) {
	var req examgen.GenerateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	exam, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	exam, err = h.store.CreateExam(r.Context(), exam)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	slog.Info("exam generated", "exam_id", exam.ID, "topic", req.Topic, "questions", len(exam.Questions))
	writeOK(w, "exam", exam)
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	public := make([]model.Exam, len(exams))
	for i, e := range exams {
		public[i] = e.Public()
	}
	writeOK(w, "exams", public)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	h.writeExam(w, r, false)
}

func (h *Handler) handleAnswerKey(w http.ResponseWriter, r *http.Request) {
	h.writeExam(w, r, true)
}

func (h *Handler) writeExam(w http.ResponseWriter, r *http.Request, withKey bool) {
	id, ok := idParam(w, r, "examID")
	if !ok {
		return
	}
	exam, err := h.store.GetExam(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "ErrExamNotFound")
		return
	}
	if !withKey {
		exam = exam.Public()
	}
	writeOK(w, "exam", exam)
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "examID")
	if !ok {
		return
	}
	if err := h.store.DeleteExam(r.Context(), id); err != nil {
		writeError(w, r, err, "ErrExamNotFound")
		return
	}
	slog.Info("exam deleted", "exam_id", id)
	writeOK(w, "", nil)
}
