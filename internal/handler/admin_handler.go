package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/middleware"
	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/portal"
)

// AdminService は管理画面のハンドラーが必要とする画面処理。
type AdminService interface {
	AdminDashboard(ctx context.Context, state auth.State, browserID string) (*portal.AdminView, error)
	AdminTransition(ctx context.Context, state auth.State, browserID string, kind model.Kind, applicationID string, action lifecycle.Action) (*portal.AdminApplicationRow, error)
	SaveProject(ctx context.Context, state auth.State, id string, p model.Project) (string, error)
	DeleteProject(ctx context.Context, state auth.State, id string) error
	SaveInternship(ctx context.Context, state auth.State, id string, in model.Internship) (string, error)
	DeleteInternship(ctx context.Context, state auth.State, id string) error
}

var _ AdminService = (*portal.Service)(nil)

// AdminHandler は管理画面のHTTPハンドラー。
type AdminHandler struct {
	service AdminService
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

type idResponse struct {
	ID string `json:"id"`
}

// Dashboard は管理者ダッシュボードを返す。
// GET /admin-dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	browserID, ok := browserIDParam(w, r)
	if !ok {
		return
	}
	view, err := h.service.AdminDashboard(r.Context(), auth.StateFromContext(r.Context()), browserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// Approve は応募を承認する。
// POST /admin-dashboard/applications/{kind}/{applicationID}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.ActionApprove)
}

// Reject は応募を却下する。
// POST /admin-dashboard/applications/{kind}/{applicationID}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.ActionReject)
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, action lifecycle.Action) {
	browserID, ok := browserIDParam(w, r)
	if !ok {
		return
	}
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	row, err := h.service.AdminTransition(r.Context(), auth.StateFromContext(r.Context()), browserID, kind, chi.URLParam(r, "applicationID"), action)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, row)
}

// CreateProject はプロジェクトを作成する。
// POST /admin-dashboard/projects
func (h *AdminHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	h.saveProject(w, r, "", http.StatusCreated)
}

// UpdateProject はプロジェクトを更新する。
// PUT /admin-dashboard/projects/{id}
func (h *AdminHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	h.saveProject(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *AdminHandler) saveProject(w http.ResponseWriter, r *http.Request, id string, status int) {
	var p model.Project
	if !decodeJSON(w, r, &p) {
		return
	}
	saved, err := h.service.SaveProject(r.Context(), auth.StateFromContext(r.Context()), id, p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, status, idResponse{ID: saved})
}

// DeleteProject はプロジェクトを削除する。
// DELETE /admin-dashboard/projects/{id}
func (h *AdminHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProject(r.Context(), auth.StateFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateInternship はインターンシップを作成する。
// POST /admin-dashboard/internships
func (h *AdminHandler) CreateInternship(w http.ResponseWriter, r *http.Request) {
	h.saveInternship(w, r, "", http.StatusCreated)
}

// UpdateInternship はインターンシップを更新する。
// PUT /admin-dashboard/internships/{id}
func (h *AdminHandler) UpdateInternship(w http.ResponseWriter, r *http.Request) {
	h.saveInternship(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *AdminHandler) saveInternship(w http.ResponseWriter, r *http.Request, id string, status int) {
	var in model.Internship
	if !decodeJSON(w, r, &in) {
		return
	}
	saved, err := h.service.SaveInternship(r.Context(), auth.StateFromContext(r.Context()), id, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, status, idResponse{ID: saved})
}

// DeleteInternship はインターンシップを削除する。
// DELETE /admin-dashboard/internships/{id}
func (h *AdminHandler) DeleteInternship(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteInternship(r.Context(), auth.StateFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func browserIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := middleware.BrowserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("browser id is missing"))
		return "", false
	}
	return id, true
}
