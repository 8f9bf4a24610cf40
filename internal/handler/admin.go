package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/pavelanni/examdesk/internal/examgen"
	appI18n "github.com/pavelanni/examdesk/internal/i18n"
)

const maxUploadBytes = 10 << 20

// handleImportExams loads a JSON file of exams uploaded as the exams_file
// form field. Re-uploading an identical file is a no-op.
func (h *Handler) handleImportExams(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeFail(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrUploadInvalid"))
		return
	}

	file, header, err := r.FormFile("exams_file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrNoFile"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err, "")
		return
	}

	res, err := examgen.Import(r.Context(), h.store, "upload:"+header.Filename, data, manualCreator)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if res.Duplicate {
		slog.Info("exam upload unchanged, skipping", "filename", header.Filename)
	}
	writeOK(w, "import", res)
}
