package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pavelanni/examdesk/internal/model"
)

// CreateCorrection persists a correction and marks its submission corrected.
// Both writes share one transaction; a submission that is no longer pending
// yields model.ErrConflict and nothing is written.
func (s *Store) CreateCorrection(ctx context.Context, c model.Correction) (model.Correction, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var status model.SubmissionStatus
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT status FROM submissions WHERE id = ?`), c.SubmissionID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("submission %d: %w", c.SubmissionID, model.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if status != model.StatusPending {
			return fmt.Errorf("submission %d is %s: %w", c.SubmissionID, status, model.ErrConflict)
		}

		id, err := s.insertID(ctx, tx,
			`INSERT INTO corrections (submission_id, exam_id, exam_title, exam_description, student_name,
			                          total_score, max_score, corrected_by, corrected_at, correction_method)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.SubmissionID, nullableID(c.ExamID), c.ExamTitle, c.ExamDescription, c.StudentName,
			c.TotalScore, c.MaxScore, c.CorrectedBy, c.CorrectedAt, c.CorrectionMethod,
		)
		if err != nil {
			return fmt.Errorf("insert correction: %w", err)
		}
		c.ID = id

		for i, a := range c.Answers {
			_, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO correction_answers (correction_id, position, question_id, student_answer,
				                                 correct_answer, question_type, points, feedback)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				id, i, a.QuestionID, a.StudentAnswer, a.CorrectAnswer, a.QuestionType, a.Points, a.Feedback,
			)
			if err != nil {
				return fmt.Errorf("insert correction answer %d: %w", i, err)
			}
		}

		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE submissions SET status = ? WHERE id = ?`),
			model.StatusCorrected, c.SubmissionID)
		if err != nil {
			return fmt.Errorf("mark submission corrected: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Correction{}, err
	}
	return c, nil
}

const correctionColumns = `id, submission_id, exam_id, exam_title, exam_description, student_name,
	total_score, max_score, corrected_by, corrected_at, correction_method`

// GetCorrection returns a correction with its per-question answers.
func (s *Store) GetCorrection(ctx context.Context, id int64) (model.Correction, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+correctionColumns+` FROM corrections WHERE id = ?`), id)
	c, err := scanCorrection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("correction %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return c, err
	}
	c.Answers, err = s.answersForCorrection(ctx, id)
	return c, err
}

// ListCorrections returns every correction, most recently corrected first.
func (s *Store) ListCorrections(ctx context.Context) ([]model.Correction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+correctionColumns+` FROM corrections ORDER BY corrected_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	list := []model.Correction{}
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range list {
		list[i].Answers, err = s.answersForCorrection(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// DeleteCorrection removes a correction and returns its submission to pending
// so it can be corrected again.
func (s *Store) DeleteCorrection(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var submissionID int64
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT submission_id FROM corrections WHERE id = ?`), id).Scan(&submissionID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("correction %d: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM correction_answers WHERE correction_id = ?`), id); err != nil {
			return fmt.Errorf("delete correction answers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM corrections WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete correction: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE submissions SET status = ? WHERE id = ?`),
			model.StatusPending, submissionID)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCorrection(r rowScanner) (model.Correction, error) {
	var (
		c      model.Correction
		examID sql.NullInt64
	)
	err := r.Scan(&c.ID, &c.SubmissionID, &examID, &c.ExamTitle, &c.ExamDescription, &c.StudentName,
		&c.TotalScore, &c.MaxScore, &c.CorrectedBy, &c.CorrectedAt, &c.CorrectionMethod)
	if examID.Valid {
		id := examID.Int64
		c.ExamID = &id
	}
	return c, err
}

func (s *Store) answersForCorrection(ctx context.Context, correctionID int64) ([]model.CorrectedAnswer, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT question_id, student_answer, correct_answer, question_type, points, feedback
		 FROM correction_answers WHERE correction_id = ? ORDER BY position, id`), correctionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	answers := []model.CorrectedAnswer{}
	for rows.Next() {
		var a model.CorrectedAnswer
		if err := rows.Scan(&a.QuestionID, &a.StudentAnswer, &a.CorrectAnswer, &a.QuestionType, &a.Points, &a.Feedback); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
