package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/examdesk/internal/model"
)

type submitAnswer struct {
	QuestionID int64  `json:"questionId" validate:"required,gt=0"`
	Answer     string `json:"answer"`
}

type submitRequest struct {
	ExamID      int64          `json:"examId" validate:"required,gt=0"`
	StudentName string         `json:"studentName" validate:"required,max=200"`
	Answers     []submitAnswer `json:"answers" validate:"dive"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.StudentName)
	if name == "" {
		writeError(w, r, model.Invalid("ErrStudentNameRequired", nil, "student name is required"), "")
		return
	}

	exam, err := h.store.GetExam(r.Context(), req.ExamID)
	if err != nil {
		writeError(w, r, err, "ErrExamNotFound")
		return
	}
	types := make(map[int64]model.QuestionType, len(exam.Questions))
	for _, q := range exam.Questions {
		types[q.ID] = q.Type
	}

	sub := model.Submission{ExamID: exam.ID, StudentName: name}
	for _, a := range req.Answers {
		qt, ok := types[a.QuestionID]
		if !ok {
			writeError(w, r, model.Invalid("ErrAnswerUnknownQuestion", map[string]any{"Question": a.QuestionID},
				"question %d is not part of exam %d", a.QuestionID, exam.ID), "")
			return
		}
		sub.Answers = append(sub.Answers, model.SubmittedAnswer{QuestionID: a.QuestionID, Answer: a.Answer, QuestionType: qt})
	}

	sub, err = h.store.CreateSubmission(r.Context(), sub)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	slog.Info("answers submitted", "submission_id", sub.ID, "exam_id", exam.ID)
	writeOK(w, "studentAnswer", sub)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.ListPendingSubmissions(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, "pendingAnswers", pending)
}

// handleGetSubmission returns a submission with its exam, answer key
// included, for the grader. The exam is null once it has been deleted.
func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "submissionID")
	if !ok {
		return
	}
	sub, err := h.store.GetSubmission(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "ErrSubmissionNotFound")
		return
	}

	body := envelope{"success": true, "studentAnswer": sub, "exam": nil}
	exam, err := h.store.GetExam(r.Context(), sub.ExamID)
	switch {
	case err == nil:
		body["exam"] = exam
	case !errors.Is(err, model.ErrNotFound):
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleDeletePending(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "submissionID")
	if !ok {
		return
	}
	if err := h.store.DeletePendingSubmission(r.Context(), id); err != nil {
		writeError(w, r, err, "ErrSubmissionNotFound")
		return
	}
	writeOK(w, "", nil)
}
