package portal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/model"
)

// DetailView はインターンシップ・プロジェクト詳細画面のビューモデル。
// 未ログインの場合、応募に関するフラグはすべてfalseになる。
type DetailView struct {
	Kind               model.Kind               `json:"type"`
	Internship         *model.Internship        `json:"internship,omitempty"`
	Project            *model.Project           `json:"project,omitempty"`
	Application        *model.Application       `json:"application,omitempty"`
	Badge              *lifecycle.Badge         `json:"badge,omitempty"`
	HasApplied         bool                     `json:"hasApplied"`
	IsApproved         bool                     `json:"isApproved"`
	IsCompleted        bool                     `json:"isCompleted"`
	ShowSubmissionForm bool                     `json:"showSubmissionForm"`
	Submission         lifecycle.SubmissionForm `json:"submission"`
}

// InternshipDetail はインターンシップの詳細を返す。
// バックエンドに単体取得がないため一覧から探す。未ログインでも閲覧できる。
func (s *Service) InternshipDetail(ctx context.Context, state auth.State, id string) (*DetailView, error) {
	token := tokenOf(state)

	var (
		internships []model.Internship
		apps        []model.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		internships, err = s.backend.ListInternships(gctx, token)
		return err
	})
	if token != "" {
		g.Go(func() error {
			var err error
			apps, err = s.backend.MyApplications(gctx, token)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("インターンシップ詳細の取得に失敗しました: %w", err)
	}

	in, ok := findInternship(internships, id)
	if !ok {
		return nil, fmt.Errorf("internship %s: %w", id, ErrNotFound)
	}

	view := &DetailView{Kind: model.KindInternship, Internship: &in}
	applyFlags(view, apps, model.KindInternship, in.ID, in.Title)
	return view, nil
}

// ProjectDetail はプロジェクトの詳細を返す。ログインが必要。
func (s *Service) ProjectDetail(ctx context.Context, state auth.State, id string) (*DetailView, error) {
	token, err := requireToken(state)
	if err != nil {
		return nil, err
	}

	var (
		project *model.Project
		apps    []model.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = s.backend.GetProject(gctx, token, id)
		return err
	})
	g.Go(func() error {
		var err error
		apps, err = s.backend.MyApplications(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		if api.IsNotFound(err) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("プロジェクト詳細の取得に失敗しました: %w", err)
	}

	view := &DetailView{Kind: model.KindProject, Project: project}
	targetID := project.ID
	if targetID == "" {
		targetID = id
	}
	applyFlags(view, apps, model.KindProject, targetID, project.Name)
	return view, nil
}

// applyFlags は照合した応募から詳細画面のフラグを設定する。
func applyFlags(view *DetailView, apps []model.Application, kind model.Kind, targetID, title string) {
	a, ok := lifecycle.Match(apps, kind, targetID, title)
	if !ok {
		return
	}
	app := *a
	badge := lifecycle.BadgeFor(app.Status)
	status := lifecycle.Normalize(app.Status)

	view.Application = &app
	view.Badge = &badge
	view.HasApplied = true
	view.IsApproved = status == model.StatusApproved || status == model.StatusResubmit
	view.IsCompleted = status == model.StatusCompleted
	view.ShowSubmissionForm = lifecycle.CanSubmitWork(app.Status)
	view.Submission = lifecycle.FormFromSubmission(app.Submission)
}

func findInternship(list []model.Internship, id string) (model.Internship, bool) {
	for _, in := range list {
		if in.ID == id {
			return in, true
		}
	}
	return model.Internship{}, false
}
