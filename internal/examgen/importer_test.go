package examgen

import (
	"context"
	"errors"
	"testing"

	"github.com/pavelanni/examdesk/internal/model"
)

type memImportStore struct {
	exams  []model.Exam
	hashes map[string]string
}

func (m *memImportStore) CreateExam(_ context.Context, e model.Exam) (model.Exam, error) {
	e.ID = int64(len(m.exams) + 1)
	m.exams = append(m.exams, e)
	return e, nil
}

func (m *memImportStore) GetImportedFileHash(_ context.Context, path string) (string, error) {
	return m.hashes[path], nil
}

func (m *memImportStore) SetImportedFileHash(_ context.Context, path, hash string) error {
	if m.hashes == nil {
		m.hashes = map[string]string{}
	}
	m.hashes[path] = hash
	return nil
}

const importFile = `[
	{"title": " Go basics ", "questions": [
		{"type": "objective", "question": "Keyword for goroutines?", "options": ["go", "run"], "correctAnswer": "go"}
	]},
	{"title": "Channels", "createdBy": "Ana", "questions": [
		{"type": "essay", "question": "What is a channel?", "correctAnswer": "a typed conduit", "points": 3}
	]}
]`

func TestImport(t *testing.T) {
	ctx := context.Background()
	st := &memImportStore{}

	res, err := Import(ctx, st, "exams.json", []byte(importFile), "Teacher")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 || res.Duplicate || res.Hash == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := st.exams[0]; got.Title != "Go basics" || got.CreatedBy != "Teacher" || got.Questions[0].Points != 1 {
		t.Errorf("first exam not normalized: %+v", got)
	}
	if got := st.exams[1].CreatedBy; got != "Ana" {
		t.Errorf("createdBy = %q, want Ana", got)
	}

	again, err := Import(ctx, st, "exams.json", []byte(importFile), "Teacher")
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if !again.Duplicate || again.Imported != 0 || len(st.exams) != 2 {
		t.Errorf("second import should be skipped: %+v, %d exams", again, len(st.exams))
	}

	other, err := Import(ctx, st, "copy.json", []byte(importFile), "Teacher")
	if err != nil {
		t.Fatalf("Import under another name: %v", err)
	}
	if other.Imported != 2 {
		t.Errorf("imported = %d, want 2", other.Imported)
	}
}

func TestImportRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"title": `},
		{"missing title", `[{"questions": [{"type": "essay", "question": "q"}]}]`},
		{"second exam bad", `[
			{"title": "ok", "questions": [{"type": "essay", "question": "q"}]},
			{"title": "bad", "questions": []}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &memImportStore{}
			_, err := Import(context.Background(), st, "bad.json", []byte(tt.data), "Teacher")
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(st.exams) != 0 || len(st.hashes) != 0 {
				t.Errorf("nothing should be stored: %d exams, %d hashes", len(st.exams), len(st.hashes))
			}
		})
	}
}
