package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
)

// CreateExam stores an exam and its questions in one transaction.
// It returns the exam with IDs and creation time filled in.
func (s *Store) CreateExam(ctx context.Context, e model.Exam) (model.Exam, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insertID(ctx, tx,
			`INSERT INTO exams (title, description, created_at, created_by) VALUES (?, ?, ?, ?)`,
			e.Title, e.Description, e.CreatedAt, e.CreatedBy,
		)
		if err != nil {
			return fmt.Errorf("insert exam: %w", err)
		}
		e.ID = id

		questions := make([]model.Question, len(e.Questions))
		for i, q := range e.Questions {
			opts, err := json.Marshal(nonNil(q.Options))
			if err != nil {
				return fmt.Errorf("encode options: %w", err)
			}
			qID, err := s.insertID(ctx, tx,
				`INSERT INTO questions (exam_id, position, type, prompt, options, correct_answer, points)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, i, q.Type, q.Prompt, string(opts), q.CorrectAnswer, q.Points,
			)
			if err != nil {
				return fmt.Errorf("insert question %d: %w", i, err)
			}
			q.ID = qID
			questions[i] = q
		}
		e.Questions = questions
		return nil
	})
	if err != nil {
		return model.Exam{}, err
	}
	return e, nil
}

// GetExam returns an exam with its full answer key.
func (s *Store) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, title, description, created_at, created_by FROM exams WHERE id = ?`), id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.CreatedAt, &e.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("exam %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return e, err
	}
	e.Questions, err = s.questionsForExam(ctx, s.db, id)
	return e, err
}

// ListExams returns all exams, newest first, with their questions.
func (s *Store) ListExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, created_at, created_by FROM exams ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.CreatedAt, &e.CreatedBy); err != nil {
			rows.Close()
			return nil, err
		}
		exams = append(exams, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range exams {
		exams[i].Questions, err = s.questionsForExam(ctx, s.db, exams[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return exams, nil
}

// DeleteExam removes an exam and its questions. Corrections referencing the
// exam keep their snapshot and lose the reference.
func (s *Store) DeleteExam(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE corrections SET exam_id = NULL WHERE exam_id = ?`), id); err != nil {
			return fmt.Errorf("detach corrections: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM questions WHERE exam_id = ?`), id); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM exams WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete exam: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("exam %d: %w", id, model.ErrNotFound)
		}
		return nil
	})
}

// ExamCount returns the number of stored exams.
func (s *Store) ExamCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

func (s *Store) questionsForExam(ctx context.Context, q queryer, examID int64) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx, s.rebind(
		`SELECT id, type, prompt, options, correct_answer, points
		 FROM questions WHERE exam_id = ? ORDER BY position, id`), examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		var (
			qu   model.Question
			opts string
		)
		if err := rows.Scan(&qu.ID, &qu.Type, &qu.Prompt, &opts, &qu.CorrectAnswer, &qu.Points); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &qu.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", qu.ID, err)
		}
		if len(qu.Options) == 0 {
			qu.Options = nil
		}
		questions = append(questions, qu)
	}
	return questions, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
