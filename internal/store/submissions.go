package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
)

// CreateSubmission stores a student's answers as a pending submission.
func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) (model.Submission, error) {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	sub.Status = model.StatusPending
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insertID(ctx, tx,
			`INSERT INTO submissions (exam_id, student_name, submitted_at, status) VALUES (?, ?, ?, ?)`,
			sub.ExamID, sub.StudentName, sub.SubmittedAt, sub.Status,
		)
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		sub.ID = id

		for _, a := range sub.Answers {
			_, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO submission_answers (submission_id, question_id, answer, question_type) VALUES (?, ?, ?, ?)`),
				id, a.QuestionID, a.Answer, a.QuestionType,
			)
			if err != nil {
				return fmt.Errorf("insert answer for question %d: %w", a.QuestionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// GetSubmission returns a submission with its answers.
func (s *Store) GetSubmission(ctx context.Context, id int64) (model.Submission, error) {
	return s.getSubmission(ctx, s.db, id)
}

func (s *Store) getSubmission(ctx context.Context, q queryer, id int64) (model.Submission, error) {
	var sub model.Submission
	err := q.QueryRowContext(ctx, s.rebind(
		`SELECT id, exam_id, student_name, submitted_at, status FROM submissions WHERE id = ?`), id,
	).Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.SubmittedAt, &sub.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, fmt.Errorf("submission %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return sub, err
	}
	sub.Answers, err = s.answersForSubmission(ctx, q, id)
	return sub, err
}

// ListPendingSubmissions returns submissions awaiting correction, oldest first,
// with the title of their exam when it still exists.
func (s *Store) ListPendingSubmissions(ctx context.Context) ([]model.PendingSubmission, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT s.id, s.exam_id, s.student_name, s.submitted_at, s.status,
		        COALESCE(e.title, ''), COALESCE(e.description, '')
		 FROM submissions s LEFT JOIN exams e ON e.id = s.exam_id
		 WHERE s.status = ?
		 ORDER BY s.submitted_at, s.id`), model.StatusPending,
	)
	if err != nil {
		return nil, err
	}
	pending := []model.PendingSubmission{}
	for rows.Next() {
		var p model.PendingSubmission
		if err := rows.Scan(&p.ID, &p.ExamID, &p.StudentName, &p.SubmittedAt, &p.Status,
			&p.ExamTitle, &p.ExamDescription); err != nil {
			rows.Close()
			return nil, err
		}
		pending = append(pending, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range pending {
		pending[i].Answers, err = s.answersForSubmission(ctx, s.db, pending[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// DeletePendingSubmission removes a submission that has not been corrected.
func (s *Store) DeletePendingSubmission(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(
			`DELETE FROM submissions WHERE id = ? AND status = ?`), id, model.StatusPending)
		if err != nil {
			return fmt.Errorf("delete submission: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("pending submission %d: %w", id, model.ErrNotFound)
		}
		_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM submission_answers WHERE submission_id = ?`), id)
		return err
	})
}

func (s *Store) answersForSubmission(ctx context.Context, q queryer, submissionID int64) ([]model.SubmittedAnswer, error) {
	rows, err := q.QueryContext(ctx, s.rebind(
		`SELECT question_id, answer, question_type FROM submission_answers WHERE submission_id = ? ORDER BY id`),
		submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.SubmittedAnswer{}
	for rows.Next() {
		var a model.SubmittedAnswer
		if err := rows.Scan(&a.QuestionID, &a.Answer, &a.QuestionType); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
