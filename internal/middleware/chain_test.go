package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/internhub/internal/auth"
)

// newChainRouter は本番と同じ順序でミドルウェアを組んだルーターを返す。
func newChainRouter(t *testing.T, logBuf *bytes.Buffer) (*chi.Mux, *RateLimiter) {
	t.Helper()
	provider, _ := newTestProvider(t)
	rl := NewRateLimiter(testLimiterConfig(2, 10))
	t.Cleanup(rl.Stop)

	logger := slog.New(slog.NewJSONHandler(logBuf, nil))
	csrfConfig := CSRFConfig{}

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware(logger))
	r.Use(NewSecurityHeadersMiddleware(SecurityHeadersConfig{}))
	r.Use(NewCORSMiddleware("http://localhost:3000"))
	r.Use(NewBrowserSessionMiddleware(provider, BrowserCookieConfig{}))
	r.Use(NewLoggingMiddleware(logger))
	r.Use(rl.GeneralMiddleware())
	r.Use(NewCSRFMiddleware(csrfConfig))

	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		id, _ := BrowserIDFromContext(r.Context())
		WriteJSON(w, http.StatusOK, map[string]any{
			"browser_id": id,
			"logged_in":  auth.StateFromContext(r.Context()).LoggedIn(),
		})
	})
	r.Post("/mutate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	return r, rl
}

func TestMiddlewareChain_GETIssuesBrowserAndCSRFCookies(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if findCookie(resp, BrowserCookieName) == nil {
		t.Error("expected browser_id cookie")
	}
	if findCookie(resp, "csrf_token") == nil {
		t.Error("expected csrf_token cookie")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("expected security headers")
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["logged_in"] != false {
		t.Errorf("logged_in = %v, want false", body["logged_in"])
	}

	var entry map[string]any
	if err := json.Unmarshal(logBuf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["browser_id"] != body["browser_id"] {
		t.Errorf("log browser_id = %v, want %v", entry["browser_id"], body["browser_id"])
	}
}

func TestMiddlewareChain_POSTRequiresCSRF(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mutate", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestMiddlewareChain_RateLimitPerBrowser(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	cookie := findCookie(first.Result(), BrowserCookieName)
	if cookie == nil {
		t.Fatal("expected browser_id cookie")
	}

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}

func TestMiddlewareChain_RecoversPanic(t *testing.T) {
	var logBuf bytes.Buffer
	r, _ := newChainRouter(t, &logBuf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}
