package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examdesk/internal/correction"
	"github.com/pavelanni/examdesk/internal/examgen"
	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/report"
	"github.com/pavelanni/examdesk/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store       *store.Store
	corrections *correction.Service
	generator   *examgen.Service
	config      model.Config
	validate    *requestValidator
	report      report.Options
}

// New creates a new Handler.
func New(s *store.Store, cs *correction.Service, gen *examgen.Service, cfg model.Config) (*Handler, error) {
	rv, err := newRequestValidator(cfg.Lang)
	if err != nil {
		return nil, fmt.Errorf("set up request validation: %w", err)
	}
	return &Handler{
		store:       s,
		corrections: cs,
		generator:   gen,
		config:      cfg,
		validate:    rv,
		report:      report.Options{TopStudents: cfg.TopStudents},
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/setup-password", h.handleSetupPassword)
			r.Get("/check-password", h.handleCheckPassword)
			r.Post("/login", h.handleLogin)
			r.Post("/logout", h.handleLogout)
		})

		// Student-facing routes never expose answer keys.
		r.Get("/exams", h.handleListExams)
		r.Get("/exams/{examID}", h.handleGetExam)
		r.Post("/students/submit", h.handleSubmit)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/exams/create-manual", h.handleCreateExam)
			r.Post("/exams/generate-ai", h.handleGenerateExam)
			r.Post("/exams/import", h.handleImportExams)
			r.Get("/exams/{examID}/answer-key", h.handleAnswerKey)
			r.Delete("/exams/{examID}", h.handleDeleteExam)

			r.Get("/students/pending", h.handleListPending)
			r.Get("/students/{submissionID}", h.handleGetSubmission)
			r.Delete("/students/pending/{submissionID}", h.handleDeletePending)

			r.Post("/corrections/automatic", h.handleAutomaticCorrection)
			r.Post("/corrections/manual", h.handleManualCorrection)
			r.Get("/corrections/corrected", h.handleListCorrections)
			r.Get("/corrections/dashboard", h.handleDashboard)
			r.Get("/corrections/{correctionID}", h.handleGetCorrection)
			r.Delete("/corrections/{correctionID}", h.handleDeleteCorrection)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeError(w, r, err, "")
		return
	}
	writeOK(w, "status", "ok")
}
