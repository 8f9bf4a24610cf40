package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		credentials bool
		wantErr     bool
		wantNil     bool
	}{
		{"no origins", nil, true, false, true},
		{"blank origins", []string{" "}, false, false, true},
		{"wildcard without credentials", []string{"*"}, false, false, false},
		{"wildcard with credentials", []string{"https://a.example", "*"}, true, true, false},
		{"explicit with credentials", []string{"https://a.example"}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := corsMiddleware(tt.origins, tt.credentials)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (mw == nil) != tt.wantNil {
				t.Errorf("middleware nil = %v, want %v", mw == nil, tt.wantNil)
			}
		})
	}
}

func TestCORSOnlyEchoesListedOrigins(t *testing.T) {
	mw, err := corsMiddleware([]string{"https://a.example"}, true)
	if err != nil {
		t.Fatalf("corsMiddleware: %v", err)
	}
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		origin string
		want   string
	}{
		{"https://a.example", "https://a.example"},
		{"https://evil.example", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/exams", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %s: allow-origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}
