package i18n

import "net/http"

// Middleware picks the message language per request: the lang query
// parameter first, then Accept-Language, then lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := NewLocalizer(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), lang)
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}
