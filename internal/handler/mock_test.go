package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/middleware"
	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/portal"
	"github.com/hitoshi/internhub/internal/repository"
	"github.com/hitoshi/internhub/internal/session"
)

const testBrowserID = "6f1c1f55-2d43-4c3b-9d61-2f5e3d1b7a10"

// --- モック定義 ---

type mockAuthClient struct {
	registerFn   func(ctx context.Context, req api.RegisterRequest) (string, error)
	loginFn      func(ctx context.Context, cred api.Credentials) (api.LoginResult, error)
	adminLoginFn func(ctx context.Context, cred api.Credentials) (api.AdminLoginResult, error)
}

func (m *mockAuthClient) Register(ctx context.Context, req api.RegisterRequest) (string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return "", nil
}

func (m *mockAuthClient) Login(ctx context.Context, cred api.Credentials) (api.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, cred)
	}
	return api.LoginResult{}, nil
}

func (m *mockAuthClient) AdminLogin(ctx context.Context, cred api.Credentials) (api.AdminLoginResult, error) {
	if m.adminLoginFn != nil {
		return m.adminLoginFn(ctx, cred)
	}
	return api.AdminLoginResult{}, nil
}

type mockPortalService struct {
	dashboardFn        func(ctx context.Context, state auth.State) (*portal.DashboardView, error)
	internshipDetailFn func(ctx context.Context, state auth.State, id string) (*portal.DetailView, error)
	projectDetailFn    func(ctx context.Context, state auth.State, id string) (*portal.DetailView, error)
	applyFn            func(ctx context.Context, state auth.State, kind model.Kind, targetID string, form portal.ApplyForm) (*portal.ApplyResult, error)
	submitWorkFn       func(ctx context.Context, state auth.State, kind model.Kind, applicationID string, form lifecycle.SubmissionForm) (*model.Application, error)
}

func (m *mockPortalService) Dashboard(ctx context.Context, state auth.State) (*portal.DashboardView, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, state)
	}
	return &portal.DashboardView{}, nil
}

func (m *mockPortalService) InternshipDetail(ctx context.Context, state auth.State, id string) (*portal.DetailView, error) {
	if m.internshipDetailFn != nil {
		return m.internshipDetailFn(ctx, state, id)
	}
	return &portal.DetailView{Kind: model.KindInternship}, nil
}

func (m *mockPortalService) ProjectDetail(ctx context.Context, state auth.State, id string) (*portal.DetailView, error) {
	if m.projectDetailFn != nil {
		return m.projectDetailFn(ctx, state, id)
	}
	return &portal.DetailView{Kind: model.KindProject}, nil
}

func (m *mockPortalService) Apply(ctx context.Context, state auth.State, kind model.Kind, targetID string, form portal.ApplyForm) (*portal.ApplyResult, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, state, kind, targetID, form)
	}
	return &portal.ApplyResult{}, nil
}

func (m *mockPortalService) SubmitWork(ctx context.Context, state auth.State, kind model.Kind, applicationID string, form lifecycle.SubmissionForm) (*model.Application, error) {
	if m.submitWorkFn != nil {
		return m.submitWorkFn(ctx, state, kind, applicationID, form)
	}
	return &model.Application{}, nil
}

type mockAdminService struct {
	adminDashboardFn   func(ctx context.Context, state auth.State, browserID string) (*portal.AdminView, error)
	adminTransitionFn  func(ctx context.Context, state auth.State, browserID string, kind model.Kind, applicationID string, action lifecycle.Action) (*portal.AdminApplicationRow, error)
	saveProjectFn      func(ctx context.Context, state auth.State, id string, p model.Project) (string, error)
	deleteProjectFn    func(ctx context.Context, state auth.State, id string) error
	saveInternshipFn   func(ctx context.Context, state auth.State, id string, in model.Internship) (string, error)
	deleteInternshipFn func(ctx context.Context, state auth.State, id string) error
}

func (m *mockAdminService) AdminDashboard(ctx context.Context, state auth.State, browserID string) (*portal.AdminView, error) {
	if m.adminDashboardFn != nil {
		return m.adminDashboardFn(ctx, state, browserID)
	}
	return &portal.AdminView{}, nil
}

func (m *mockAdminService) AdminTransition(ctx context.Context, state auth.State, browserID string, kind model.Kind, applicationID string, action lifecycle.Action) (*portal.AdminApplicationRow, error) {
	if m.adminTransitionFn != nil {
		return m.adminTransitionFn(ctx, state, browserID, kind, applicationID, action)
	}
	return &portal.AdminApplicationRow{}, nil
}

func (m *mockAdminService) SaveProject(ctx context.Context, state auth.State, id string, p model.Project) (string, error) {
	if m.saveProjectFn != nil {
		return m.saveProjectFn(ctx, state, id, p)
	}
	return id, nil
}

func (m *mockAdminService) DeleteProject(ctx context.Context, state auth.State, id string) error {
	if m.deleteProjectFn != nil {
		return m.deleteProjectFn(ctx, state, id)
	}
	return nil
}

func (m *mockAdminService) SaveInternship(ctx context.Context, state auth.State, id string, in model.Internship) (string, error) {
	if m.saveInternshipFn != nil {
		return m.saveInternshipFn(ctx, state, id, in)
	}
	return id, nil
}

func (m *mockAdminService) DeleteInternship(ctx context.Context, state auth.State, id string) error {
	if m.deleteInternshipFn != nil {
		return m.deleteInternshipFn(ctx, state, id)
	}
	return nil
}

type loginRecord struct {
	kind    string
	success bool
}

type mockMetrics struct {
	mu     sync.Mutex
	logins []loginRecord
}

func (m *mockMetrics) RecordUpstreamRequest(string, int, time.Duration) {}
func (m *mockMetrics) RecordTransition(string, string, string)          {}
func (m *mockMetrics) RecordRollback(string)                            {}
func (m *mockMetrics) RecordStorageCleaned(int64)                       {}

func (m *mockMetrics) RecordLogin(kind string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, loginRecord{kind: kind, success: success})
}

// --- ヘルパー ---

// newTestAuthContext はメモリストレージを使う初期化済みのAuth Contextを返す。
func newTestAuthContext(t *testing.T) (*auth.Context, *session.Store) {
	t.Helper()
	store := session.NewStore(repository.NewMemoryBrowserStorageRepo(), time.Hour, nil)
	ac := auth.NewContext(testBrowserID, store, "")
	ac.Init(context.Background())
	return ac, store
}

// withAuthContext はブラウザセッションミドルウェアと同じ値をリクエストに載せる。
func withAuthContext(r *http.Request, ac *auth.Context) *http.Request {
	ctx := middleware.ContextWithBrowserID(r.Context(), ac.BrowserID())
	ctx = auth.WithContext(ctx, ac)
	return r.WithContext(ctx)
}

// loggedInContext は利用者としてログイン済みのAuth Contextを返す。
func loggedInContext(t *testing.T, admin bool) *auth.Context {
	t.Helper()
	ac, _ := newTestAuthContext(t)
	err := ac.Login(context.Background(), auth.LoginOptions{
		Token:       "tok-1",
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		AdminStatus: admin,
	}, nil)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return ac
}
