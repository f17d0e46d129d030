package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/repository"
	"github.com/hitoshi/internhub/internal/session"
)

// newTestProvider はメモリストレージを使うProviderを生成する。
func newTestProvider(t *testing.T) (*auth.Provider, *session.Store) {
	t.Helper()
	store := session.NewStore(repository.NewMemoryBrowserStorageRepo(), time.Hour, nil)
	return auth.NewProvider(store, auth.ProviderConfig{CacheSize: 10, CacheTTL: time.Minute}), store
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestBrowserSession_IssuesCookieWhenMissing(t *testing.T) {
	provider, _ := newTestProvider(t)
	mw := NewBrowserSessionMiddleware(provider, BrowserCookieConfig{MaxAge: time.Hour, CookieSecure: true})

	var gotID string
	var hasContext bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = BrowserIDFromContext(r.Context())
		_, hasContext = auth.FromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if _, err := uuid.Parse(gotID); err != nil {
		t.Fatalf("expected a uuid browser id, got %q", gotID)
	}
	if !hasContext {
		t.Error("expected auth context in request context")
	}

	c := findCookie(w.Result(), BrowserCookieName)
	if c == nil {
		t.Fatal("expected browser_id cookie to be set")
	}
	if c.Value != gotID {
		t.Errorf("cookie value = %q, want %q", c.Value, gotID)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if !c.Secure {
		t.Error("expected Secure cookie")
	}
	if c.MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want 3600", c.MaxAge)
	}
}

func TestBrowserSession_ReusesValidCookie(t *testing.T) {
	provider, store := newTestProvider(t)
	id := uuid.NewString()
	if err := store.Save(context.Background(), id, "T1", false, &model.UserProfile{Name: "Jane", Email: "jane@x.com"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mw := NewBrowserSessionMiddleware(provider, BrowserCookieConfig{MaxAge: time.Hour})

	var state auth.State
	var gotID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = BrowserIDFromContext(r.Context())
		state = auth.StateFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: BrowserCookieName, Value: id})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID != id {
		t.Errorf("browser id = %q, want %q", gotID, id)
	}
	if !state.LoggedIn() || state.User.Token != "T1" {
		t.Errorf("expected restored session, got %+v", state)
	}
}

func TestBrowserSession_ReplacesInvalidCookie(t *testing.T) {
	provider, _ := newTestProvider(t)
	mw := NewBrowserSessionMiddleware(provider, BrowserCookieConfig{MaxAge: time.Hour})

	var gotID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = BrowserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: BrowserCookieName, Value: "../../etc/passwd"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID == "../../etc/passwd" {
		t.Fatal("invalid browser id must not be accepted")
	}
	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("expected a new uuid, got %q", gotID)
	}
}

func TestBrowserIDFromContext_Missing(t *testing.T) {
	if _, err := BrowserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing browser id")
	}
	ctx := ContextWithBrowserID(context.Background(), "b-1")
	if id, err := BrowserIDFromContext(ctx); err != nil || id != "b-1" {
		t.Errorf("got (%q, %v)", id, err)
	}
}
