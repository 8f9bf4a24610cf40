package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pavelanni/examdesk/internal/model"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, reusing a well-formed incoming
// X-Request-ID header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(model.ContextWithRequestID(r.Context(), id)))
	})
}
