package portal

import (
	"context"
	"time"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/model"
)

// mockBackend はテスト用のBackend。未設定の関数は空の結果を返す。
type mockBackend struct {
	listProjectsFn               func(ctx context.Context, token string) ([]model.Project, error)
	getProjectFn                 func(ctx context.Context, token, id string) (*model.Project, error)
	listInternshipsFn            func(ctx context.Context, token string) ([]model.Internship, error)
	myApplicationsFn             func(ctx context.Context, token string) ([]model.Application, error)
	applyInternshipFn            func(ctx context.Context, token string, in api.ApplyRequest) (string, error)
	applyProjectFn               func(ctx context.Context, token string, in api.ApplyRequest) (string, error)
	updateStatusFn               func(ctx context.Context, token string, kind model.Kind, id string, status model.ApplicationStatus) (model.ApplicationStatus, error)
	saveSubmissionFn             func(ctx context.Context, token string, kind model.Kind, id string, s model.Submission) error
	createProjectFn              func(ctx context.Context, token string, p model.Project) (string, error)
	updateProjectFn              func(ctx context.Context, token, id string, p model.Project) error
	deleteProjectFn              func(ctx context.Context, token, id string) error
	createInternshipFn           func(ctx context.Context, token string, i model.Internship) (string, error)
	updateInternshipFn           func(ctx context.Context, token, id string, i model.Internship) error
	deleteInternshipFn           func(ctx context.Context, token, id string) error
	listUsersFn                  func(ctx context.Context, token string) ([]model.Applicant, error)
	listInternshipApplicationsFn func(ctx context.Context, token string) ([]model.Application, error)
	listProjectApplicationsFn    func(ctx context.Context, token string) ([]model.Application, error)
}

func (m *mockBackend) ListProjects(ctx context.Context, token string) ([]model.Project, error) {
	if m.listProjectsFn != nil {
		return m.listProjectsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockBackend) GetProject(ctx context.Context, token, id string) (*model.Project, error) {
	if m.getProjectFn != nil {
		return m.getProjectFn(ctx, token, id)
	}
	return &model.Project{ID: id}, nil
}

func (m *mockBackend) ListInternships(ctx context.Context, token string) ([]model.Internship, error) {
	if m.listInternshipsFn != nil {
		return m.listInternshipsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockBackend) MyApplications(ctx context.Context, token string) ([]model.Application, error) {
	if m.myApplicationsFn != nil {
		return m.myApplicationsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockBackend) ApplyInternship(ctx context.Context, token string, in api.ApplyRequest) (string, error) {
	if m.applyInternshipFn != nil {
		return m.applyInternshipFn(ctx, token, in)
	}
	return "", nil
}

func (m *mockBackend) ApplyProject(ctx context.Context, token string, in api.ApplyRequest) (string, error) {
	if m.applyProjectFn != nil {
		return m.applyProjectFn(ctx, token, in)
	}
	return "", nil
}

func (m *mockBackend) UpdateStatus(ctx context.Context, token string, kind model.Kind, id string, status model.ApplicationStatus) (model.ApplicationStatus, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, token, kind, id, status)
	}
	return "", nil
}

func (m *mockBackend) SaveSubmission(ctx context.Context, token string, kind model.Kind, id string, s model.Submission) error {
	if m.saveSubmissionFn != nil {
		return m.saveSubmissionFn(ctx, token, kind, id, s)
	}
	return nil
}

func (m *mockBackend) CreateProject(ctx context.Context, token string, p model.Project) (string, error) {
	if m.createProjectFn != nil {
		return m.createProjectFn(ctx, token, p)
	}
	return "", nil
}

func (m *mockBackend) UpdateProject(ctx context.Context, token, id string, p model.Project) error {
	if m.updateProjectFn != nil {
		return m.updateProjectFn(ctx, token, id, p)
	}
	return nil
}

func (m *mockBackend) DeleteProject(ctx context.Context, token, id string) error {
	if m.deleteProjectFn != nil {
		return m.deleteProjectFn(ctx, token, id)
	}
	return nil
}

func (m *mockBackend) CreateInternship(ctx context.Context, token string, i model.Internship) (string, error) {
	if m.createInternshipFn != nil {
		return m.createInternshipFn(ctx, token, i)
	}
	return "", nil
}

func (m *mockBackend) UpdateInternship(ctx context.Context, token, id string, i model.Internship) error {
	if m.updateInternshipFn != nil {
		return m.updateInternshipFn(ctx, token, id, i)
	}
	return nil
}

func (m *mockBackend) DeleteInternship(ctx context.Context, token, id string) error {
	if m.deleteInternshipFn != nil {
		return m.deleteInternshipFn(ctx, token, id)
	}
	return nil
}

func (m *mockBackend) ListUsers(ctx context.Context, token string) ([]model.Applicant, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx, token)
	}
	return nil, nil
}

func (m *mockBackend) ListInternshipApplications(ctx context.Context, token string) ([]model.Application, error) {
	if m.listInternshipApplicationsFn != nil {
		return m.listInternshipApplicationsFn(ctx, token)
	}
	return nil, nil
}

func (m *mockBackend) ListProjectApplications(ctx context.Context, token string) ([]model.Application, error) {
	if m.listProjectApplicationsFn != nil {
		return m.listProjectApplicationsFn(ctx, token)
	}
	return nil, nil
}

// mockMetrics は記録内容を保持する。
type mockMetrics struct {
	transitions []string
	rollbacks   []string
}

func (m *mockMetrics) RecordUpstreamRequest(string, int, time.Duration) {}
func (m *mockMetrics) RecordLogin(string, bool)                         {}
func (m *mockMetrics) RecordTransition(kind, action, outcome string) {
	m.transitions = append(m.transitions, kind+"/"+action+"/"+outcome)
}
func (m *mockMetrics) RecordRollback(kind string) { m.rollbacks = append(m.rollbacks, kind) }
func (m *mockMetrics) RecordStorageCleaned(int64) {}

func loggedIn(token string) auth.State {
	return auth.State{
		User:        &auth.User{Token: token},
		UserProfile: &model.UserProfile{Name: "Jane", Email: "jane@x.com"},
	}
}

func adminState(token string) auth.State {
	s := loggedIn(token)
	s.IsAdmin = true
	return s
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}
