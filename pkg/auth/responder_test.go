package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUnauthorized(t *testing.T) {
	tests := []struct {
		err       error
		wantRealm string
	}{
		{ErrNoToken, `Basic realm="Unauthorized: no token"`},
		{ErrInvalidToken, `Basic realm="Unauthorized: invalid token"`},
		{errors.New("expired"), `Basic realm="Unauthorized: expired"`},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			Unauthorized(rec, httptest.NewRequest("GET", "/", nil), tc.err)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if got := rec.Body.String(); got != "Login required" {
				t.Errorf("body = %q, want %q", got, "Login required")
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != tc.wantRealm {
				t.Errorf("WWW-Authenticate = %q, want %q", got, tc.wantRealm)
			}
			if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
				t.Errorf("Content-Type = %q, want text/plain", got)
			}
		})
	}
}
