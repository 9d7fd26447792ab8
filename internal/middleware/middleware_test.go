package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/urbanize/urbanize-backend/internal/middleware"
	"github.com/urbanize/urbanize-backend/internal/utils"
)

var ok200 = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// serve runs req through h and returns the recorded response.
func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestCORSMiddleware_AllowedOrigin verifies that an allow-listed origin is echoed back.
func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	h := middleware.CORSMiddleware([]string{"http://localhost:5173/"})(ok200)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := serve(t, h, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

// TestCORSMiddleware_UnknownOrigin verifies that other origins get no allow header.
func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	h := middleware.CORSMiddleware([]string{"http://localhost:5173"})(ok200)

	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := serve(t, h, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

// TestCORSMiddleware_Preflight verifies that OPTIONS short-circuits with 204.
func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := middleware.CORSMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := serve(t, h, httptest.NewRequest(http.MethodOptions, "/api/ai/chat", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if called {
		t.Error("preflight reached the inner handler")
	}
}

// TestUserIDMiddleware verifies that the user header lands in the request context.
func TestUserIDMiddleware(t *testing.T) {
	var got string
	h := middleware.UserIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = utils.GetUserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.UserHeader, "user-42")
	serve(t, h, req)

	if got != "user-42" {
		t.Errorf("user id = %q", got)
	}
}

// TestRateLimiter_RejectsOverBurst verifies the 429 path and that clients are
// bucketed separately.
func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)
	h := rl.Middleware(ok200)

	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/ai/chat", nil)
		r.RemoteAddr = ip + ":5555"
		return r
	}

	for i := 0; i < 2; i++ {
		if rec := serve(t, h, req("10.0.0.1")); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := serve(t, h, req("10.0.0.1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	if rec := serve(t, h, req("10.0.0.2")); rec.Code != http.StatusOK {
		t.Errorf("second client: expected 200, got %d", rec.Code)
	}
}

// TestClientKey verifies the identification order.
func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	if got := middleware.ClientKey(r); got != "ip:192.0.2.1" {
		t.Errorf("remote addr key = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := middleware.ClientKey(r); got != "ip:203.0.113.9" {
		t.Errorf("forwarded key = %q", got)
	}

	r = r.WithContext(utils.WithUserID(r.Context(), "u1"))
	if got := middleware.ClientKey(r); got != "user:u1" {
		t.Errorf("user key = %q", got)
	}
}
