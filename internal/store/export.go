package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/examdesk/internal/model"
)

// ExportCorrections returns corrections made at or after since, oldest first.
// A zero since exports everything.
func (s *Store) ExportCorrections(ctx context.Context, since time.Time) ([]model.Correction, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+correctionColumns+` FROM corrections WHERE corrected_at >= ? ORDER BY corrected_at, id`),
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
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
			return nil, fmt.Errorf("get answers of correction %d: %w", list[i].ID, err)
		}
	}
	return list, nil
}
