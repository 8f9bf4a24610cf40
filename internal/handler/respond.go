package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/examdesk/internal/i18n"
	"github.com/pavelanni/examdesk/internal/model"
)

const maxBodyBytes = 1 << 20

// envelope is the JSON body every API route answers with.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("write response", "error", err)
	}
}

// writeOK answers {"success": true, key: value}. An empty key sends only
// the success flag.
func writeOK(w http.ResponseWriter, key string, value any) {
	body := envelope{"success": true}
	if key != "" {
		body[key] = value
	}
	writeJSON(w, http.StatusOK, body)
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"success": false, "error": msg})
}

// writeError maps err to a status code and a localized message. notFoundID
// names the message used for model.ErrNotFound.
func writeError(w http.ResponseWriter, r *http.Request, err error, notFoundID string) {
	ctx := r.Context()
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeFail(w, http.StatusBadRequest, appI18n.Td(ctx, ve.MessageID, ve.Data))
	case errors.Is(err, model.ErrValidation):
		writeFail(w, http.StatusBadRequest, appI18n.T(ctx, "ErrInvalidField"))
	case errors.Is(err, model.ErrUnauthorized):
		writeFail(w, http.StatusUnauthorized, appI18n.T(ctx, "ErrUnauthorized"))
	case errors.Is(err, model.ErrNotFound):
		if notFoundID == "" {
			notFoundID = "ErrNotFound"
		}
		writeFail(w, http.StatusNotFound, appI18n.T(ctx, notFoundID))
	case errors.Is(err, model.ErrConflict):
		writeFail(w, http.StatusConflict, appI18n.T(ctx, "ErrConflict"))
	case errors.Is(err, model.ErrUpstream):
		slog.Error("upstream failure", "path", r.URL.Path, "request_id", model.RequestIDFromContext(ctx), "error", err)
		writeFail(w, http.StatusBadGateway, appI18n.T(ctx, "ErrUpstream"))
	default:
		slog.Error("request failed", "path", r.URL.Path, "request_id", model.RequestIDFromContext(ctx), "error", err)
		writeFail(w, http.StatusInternalServerError, appI18n.T(ctx, "ErrInternal"))
	}
}

// decodeJSON reads the body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeFail(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrInvalidJSON"))
		return false
	}
	if msg := h.validate.check(dst); msg != "" {
		writeFail(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeFail(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrInvalidID"))
		return 0, false
	}
	return id, true
}
