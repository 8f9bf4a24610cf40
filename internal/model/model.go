package model

import (
	"context"
	"time"
)

// QuestionType distinguishes exact-match questions from free-text ones.
type QuestionType string

const (
	// QuestionObjective is a multiple-choice question scored by exact match.
	QuestionObjective QuestionType = "objective"
	// QuestionEssay is a free-text question scored by an evaluator or a human.
	QuestionEssay QuestionType = "essay"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	return t == QuestionObjective || t == QuestionEssay
}

// SubmissionStatus represents the correction state of a submission.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusCorrected SubmissionStatus = "corrected"
)

// CorrectionMethod records how a correction was produced.
type CorrectionMethod string

const (
	MethodAutomatic CorrectionMethod = "automatic"
	MethodManual    CorrectionMethod = "manual"
)

// Question is a single exam question together with its answer key.
type Question struct {
	ID            int64        `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Points        float64      `json:"points"`
}

// Exam owns its questions by value.
type Exam struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
}

// MaxScore returns the sum of question points.
func (e Exam) MaxScore() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// Public returns a copy of the exam with every answer key removed.
func (e Exam) Public() Exam {
	out := e
	out.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.CorrectAnswer = ""
		out.Questions[i] = q
	}
	return out
}

// SubmittedAnswer is a student's answer to one question.
type SubmittedAnswer struct {
	QuestionID   int64        `json:"questionId"`
	Answer       string       `json:"answer"`
	QuestionType QuestionType `json:"questionType,omitempty"`
}

// Submission is a student's set of answers to one exam.
type Submission struct {
	ID          int64             `json:"id"`
	ExamID      int64             `json:"examId"`
	StudentName string            `json:"studentName"`
	Answers     []SubmittedAnswer `json:"answers"`
	SubmittedAt time.Time         `json:"submittedAt"`
	Status      SubmissionStatus  `json:"status"`
}

// AnswerFor returns the submitted answer text for a question, or "" when the
// student left it out.
func (s Submission) AnswerFor(questionID int64) string {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a.Answer
		}
	}
	return ""
}

// PendingSubmission pairs a pending submission with the title of its exam.
// ExamTitle is empty when the exam no longer exists.
type PendingSubmission struct {
	Submission
	ExamTitle       string `json:"examTitle"`
	ExamDescription string `json:"examDescription"`
}

// CorrectedAnswer is the per-question outcome stored on a correction.
type CorrectedAnswer struct {
	QuestionID    int64        `json:"questionId"`
	StudentAnswer string       `json:"studentAnswer"`
	CorrectAnswer string       `json:"correctAnswer"`
	QuestionType  QuestionType `json:"questionType"`
	Points        float64      `json:"points"`
	Feedback      string       `json:"feedback"`
}

// Correction is the immutable, persisted result of scoring a submission.
// ExamID is nil once the source exam has been deleted; the title and
// description snapshot keep the record displayable.
type Correction struct {
	ID               int64             `json:"id"`
	SubmissionID     int64             `json:"studentAnswerId"`
	ExamID           *int64            `json:"examId"`
	ExamTitle        string            `json:"examTitle"`
	ExamDescription  string            `json:"examDescription"`
	StudentName      string            `json:"studentName"`
	Answers          []CorrectedAnswer `json:"answers"`
	TotalScore       float64           `json:"totalScore"`
	MaxScore         float64           `json:"maxScore"`
	CorrectedBy      string            `json:"correctedBy"`
	CorrectedAt      time.Time         `json:"correctedAt"`
	CorrectionMethod CorrectionMethod  `json:"correctionMethod"`
}

// AuthSession represents a grader login session.
type AuthSession struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type authCtxKey struct{}

// ContextWithAuthSession stores the authenticated session in the request context.
func ContextWithAuthSession(ctx context.Context, s *AuthSession) context.Context {
	return context.WithValue(ctx, authCtxKey{}, s)
}

// AuthSessionFromContext retrieves the authenticated session from context, or nil.
func AuthSessionFromContext(ctx context.Context) *AuthSession {
	s, _ := ctx.Value(authCtxKey{}).(*AuthSession)
	return s
}

type requestIDCtxKey struct{}

// ContextWithRequestID stores the request id in context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "" when not set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// Config holds runtime parameters set via CLI flags.
type Config struct {
	Lang               string   // message language for feedback and errors
	RequireAuth        bool     // guard grader routes with a session token
	SecureCookies      bool     // set Secure flag on the session cookie
	EnforceManualBound bool     // reject manual points outside [0, question points]
	CORSOrigins        []string // allowed origins for browser clients
	TopStudents        int      // per-student dashboard limit, 0 = all
}
