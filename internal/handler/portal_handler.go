package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/middleware"
	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/portal"
)

// maxResumeSize は応募時に受け付ける履歴書ファイルの上限（10MB）。
const maxResumeSize = 10 << 20

// PortalService は利用者向け画面のハンドラーが必要とする画面処理。
type PortalService interface {
	Dashboard(ctx context.Context, state auth.State) (*portal.DashboardView, error)
	InternshipDetail(ctx context.Context, state auth.State, id string) (*portal.DetailView, error)
	ProjectDetail(ctx context.Context, state auth.State, id string) (*portal.DetailView, error)
	Apply(ctx context.Context, state auth.State, kind model.Kind, targetID string, form portal.ApplyForm) (*portal.ApplyResult, error)
	SubmitWork(ctx context.Context, state auth.State, kind model.Kind, applicationID string, form lifecycle.SubmissionForm) (*model.Application, error)
}

var _ PortalService = (*portal.Service)(nil)

// PortalHandler は利用者向け画面のHTTPハンドラー。
type PortalHandler struct {
	service PortalService
}

// NewPortalHandler はPortalHandlerを生成する。
func NewPortalHandler(service PortalService) *PortalHandler {
	return &PortalHandler{service: service}
}

// Dashboard は利用者ダッシュボードを返す。
// GET /dashboard
func (h *PortalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Dashboard(r.Context(), auth.StateFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// InternshipDetail はインターンシップ詳細を返す。ログインしていなくても閲覧できる。
// GET /internship/{id}
func (h *PortalHandler) InternshipDetail(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.InternshipDetail(r.Context(), auth.StateFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// ProjectDetail はプロジェクト詳細を返す。
// GET /project/{id}
func (h *PortalHandler) ProjectDetail(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ProjectDetail(r.Context(), auth.StateFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// ApplyInternship はインターンシップに応募する。
// POST /internship/{id}/apply (multipart/form-data: name, email, resume)
func (h *PortalHandler) ApplyInternship(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, model.KindInternship)
}

// ApplyProject はプロジェクトに応募する。
// POST /project/{id}/apply (multipart/form-data: name, email, resume)
func (h *PortalHandler) ApplyProject(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, model.KindProject)
}

func (h *PortalHandler) apply(w http.ResponseWriter, r *http.Request, kind model.Kind) {
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxResumeSize); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("multipart form with a resume file is required"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}()

	form := portal.ApplyForm{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
	}

	file, header, err := r.FormFile("resume")
	switch {
	case err == nil:
		defer file.Close()
		form.Resume = file
		form.ResumeName = header.Filename
	case !errors.Is(err, http.ErrMissingFile):
		slog.WarnContext(r.Context(), "履歴書ファイルの読み取りに失敗しました", slog.String("error", err.Error()))
	}

	res, err := h.service.Apply(r.Context(), auth.StateFromContext(r.Context()), kind, chi.URLParam(r, "id"), form)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, res)
}

// SaveSubmission は承認済みの応募に成果物を提出する。
// PUT /{kind}/applications/{applicationID}/submission
func (h *PortalHandler) SaveSubmission(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	var form lifecycle.SubmissionForm
	if !decodeJSON(w, r, &form) {
		return
	}

	app, err := h.service.SubmitWork(r.Context(), auth.StateFromContext(r.Context()), kind, chi.URLParam(r, "applicationID"), form)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, app)
}

// kindParam はURLパラメータ {kind} を応募種別として解釈する。
func kindParam(w http.ResponseWriter, r *http.Request) (model.Kind, bool) {
	kind := model.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("unknown application type"))
		return "", false
	}
	return kind, true
}
