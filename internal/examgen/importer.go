package examgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/examdesk/internal/model"
)

// ImportStore is the persistence Import needs.
type ImportStore interface {
	CreateExam(ctx context.Context, e model.Exam) (model.Exam, error)
	GetImportedFileHash(ctx context.Context, path string) (string, error)
	SetImportedFileHash(ctx context.Context, path, hash string) error
}

// ImportResult reports what Import did.
type ImportResult struct {
	Imported  int    `json:"imported"`
	Duplicate bool   `json:"duplicate"`
	Hash      string `json:"hash"`
}

// Import loads a JSON array of exams. A file whose name and content match a
// previous import is skipped. Every exam is checked before any is stored.
func Import(ctx context.Context, st ImportStore, name string, data []byte, createdBy string) (ImportResult, error) {
	res := ImportResult{Hash: sha256sum(data)}

	stored, err := st.GetImportedFileHash(ctx, name)
	if err != nil {
		return res, fmt.Errorf("check import status for %s: %w", name, err)
	}
	if stored == res.Hash {
		res.Duplicate = true
		return res, nil
	}

	var exams []model.Exam
	if err := json.Unmarshal(data, &exams); err != nil {
		return res, fmt.Errorf("parse %s: %v: %w", name, err, model.ErrValidation)
	}
	for i := range exams {
		e, err := NormalizeExam(exams[i])
		if err != nil {
			return res, fmt.Errorf("exam %d in %s: %w", i+1, name, err)
		}
		if e.CreatedBy == "" {
			e.CreatedBy = createdBy
		}
		exams[i] = e
	}

	for _, e := range exams {
		if _, err := st.CreateExam(ctx, e); err != nil {
			return res, fmt.Errorf("insert exam %q from %s: %w", e.Title, name, err)
		}
		res.Imported++
	}

	if err := st.SetImportedFileHash(ctx, name, res.Hash); err != nil {
		return res, fmt.Errorf("record import for %s: %w", name, err)
	}
	slog.Info("imported exams", "source", name, "count", res.Imported)
	return res, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
