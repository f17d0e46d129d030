package portal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/model"
)

// ApplicationCard はダッシュボードの応募カード。
type ApplicationCard struct {
	ID            string                  `json:"id"`
	Kind          model.Kind              `json:"type"`
	TargetID      string                  `json:"targetId"`
	Title         string                  `json:"title"`
	Status        model.ApplicationStatus `json:"status"`
	Badge         lifecycle.Badge         `json:"badge"`
	CanSubmitWork bool                    `json:"canSubmitWork"`
	Submission    *model.Submission       `json:"submission,omitempty"`
	AppliedAt     *time.Time              `json:"date,omitempty"`
}

// CatalogCard はカタログ一覧のカード。応募済みの場合はLabelが付く。
type CatalogCard struct {
	ID          string           `json:"id"`
	Kind        model.Kind       `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Duration    string           `json:"duration,omitempty"`
	Applied     bool             `json:"applied"`
	Label       *lifecycle.Badge `json:"label,omitempty"`
}

// DashboardView は応募者ダッシュボードのビューモデル。
type DashboardView struct {
	Profile      *model.UserProfile `json:"profile"`
	Applications []ApplicationCard  `json:"applications"`
	Internships  []CatalogCard      `json:"internships"`
	Projects     []CatalogCard      `json:"projects"`
}

// Dashboard はプロジェクト一覧・インターンシップ一覧・自分の応募一覧を並行に取得し、
// すべて揃ってからビューモデルを組み立てる。いずれかが失敗した場合はエラーを返す。
func (s *Service) Dashboard(ctx context.Context, state auth.State) (*DashboardView, error) {
	token, err := requireToken(state)
	if err != nil {
		return nil, err
	}

	var (
		projects    []model.Project
		internships []model.Internship
		apps        []model.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = s.backend.ListProjects(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		internships, err = s.backend.ListInternships(gctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		apps, err = s.backend.MyApplications(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ダッシュボードの取得に失敗しました: %w", err)
	}

	view := &DashboardView{
		Profile:      state.UserProfile,
		Applications: make([]ApplicationCard, 0, len(apps)),
		Internships:  make([]CatalogCard, 0, len(internships)),
		Projects:     make([]CatalogCard, 0, len(projects)),
	}
	for _, a := range apps {
		view.Applications = append(view.Applications, applicationCard(a))
	}
	for _, in := range internships {
		view.Internships = append(view.Internships, catalogCard(apps, model.KindInternship, in.ID, in.Title, in.Description, in.Duration))
	}
	for _, p := range projects {
		view.Projects = append(view.Projects, catalogCard(apps, model.KindProject, p.ID, p.Name, p.Description, p.Duration))
	}
	return view, nil
}

func applicationCard(a model.Application) ApplicationCard {
	return ApplicationCard{
		ID:            a.ID,
		Kind:          a.Kind,
		TargetID:      a.TargetID,
		Title:         a.TargetTitle,
		Status:        lifecycle.Normalize(a.Status),
		Badge:         lifecycle.BadgeFor(a.Status),
		CanSubmitWork: lifecycle.CanSubmitWork(a.Status),
		Submission:    a.Submission,
		AppliedAt:     a.AppliedAt,
	}
}

func catalogCard(apps []model.Application, kind model.Kind, id, title, description, duration string) CatalogCard {
	card := CatalogCard{
		ID:          id,
		Kind:        kind,
		Title:       title,
		Description: description,
		Duration:    duration,
	}
	if a, ok := lifecycle.Match(apps, kind, id, title); ok {
		label := lifecycle.CardLabel(a.Status)
		card.Applied = true
		card.Label = &label
	}
	return card
}
