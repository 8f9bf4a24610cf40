package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/examdesk/internal/i18n"
	"github.com/pavelanni/examdesk/internal/model"
)

const sessionCookieName = "session"

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

// requireAuth is middleware that checks for a valid session token in the
// session cookie or an Authorization: Bearer header. It is a no-op when
// authentication is disabled.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.config.RequireAuth {
			next.ServeHTTP(w, r)
			return
		}

		token := sessionToken(r)
		if token == "" {
			writeError(w, r, model.ErrUnauthorized, "")
			return
		}
		authSess, err := h.store.GetAuthSession(r.Context(), token)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			writeError(w, r, err, "")
			return
		}
		if authSess == nil {
			writeError(w, r, model.ErrUnauthorized, "")
			return
		}

		ctx := model.ContextWithAuthSession(r.Context(), authSess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *Handler) handleSetupPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, r, err, "")
		return
	}

	if err := h.store.SetPasswordHash(r.Context(), string(hash)); err != nil {
		if errors.Is(err, model.ErrConflict) {
			writeFail(w, http.StatusConflict, appI18n.T(r.Context(), "ErrPasswordAlreadySet"))
			return
		}
		writeError(w, r, err, "")
		return
	}
	writeOK(w, "", nil)
}

func (h *Handler) handleCheckPassword(w http.ResponseWriter, r *http.Request) {
	hash, createdAt, err := h.store.GetPasswordHash(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	body := envelope{"success": true, "hasPassword": hash != ""}
	if hash != "" {
		body["createdAt"] = createdAt
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	hash, _, err := h.store.GetPasswordHash(r.Context())
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if hash == "" {
		writeFail(w, http.StatusUnauthorized, appI18n.T(r.Context(), "ErrPasswordNotSet"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		slog.Warn("failed login attempt", "remote", r.RemoteAddr)
		writeFail(w, http.StatusUnauthorized, appI18n.T(r.Context(), "ErrWrongPassword"))
		return
	}

	token, err := h.store.CreateAuthSession(r.Context())
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		writeError(w, r, err, "")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	writeOK(w, "token", token)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.store.DeleteAuthSession(r.Context(), token); err != nil {
			slog.Warn("failed to delete auth session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	writeOK(w, "", nil)
}
