package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/model"
)

// AdminApplicationRow は管理画面の応募一覧の1行。
type AdminApplicationRow struct {
	ID             string                  `json:"id"`
	Kind           model.Kind              `json:"type"`
	TargetID       string                  `json:"targetId"`
	TargetTitle    string                  `json:"targetTitle"`
	ApplicantName  string                  `json:"applicant"`
	ApplicantEmail string                  `json:"email"`
	ResumeRef      string                  `json:"resumeName,omitempty"`
	Status         model.ApplicationStatus `json:"status"`
	Badge          lifecycle.Badge         `json:"badge"`
	Actionable     bool                    `json:"actionable"`
	Submission     *model.Submission       `json:"submission,omitempty"`
	AppliedAt      *time.Time              `json:"date,omitempty"`
}

// AdminView は管理者ダッシュボードのビューモデル。
type AdminView struct {
	Users                  []model.Applicant     `json:"users"`
	Internships            []model.Internship    `json:"internships"`
	Projects               []model.Project       `json:"projects"`
	InternshipApplications []AdminApplicationRow `json:"internshipApplications"`
	ProjectApplications    []AdminApplicationRow `json:"projectApplications"`
}

// AdminDashboard は管理画面の5つの一覧を並行に取得する。
// 取得に失敗した一覧は空として扱い、ログに記録する。
// 応募一覧はブラウザごとのBoardに読み込まれ、以降のAdminTransitionで使われる。
func (s *Service) AdminDashboard(ctx context.Context, state auth.State, browserID string) (*AdminView, error) {
	token, err := requireToken(state)
	if err != nil {
		return nil, err
	}

	var (
		users       []model.Applicant
		internships []model.Internship
		projects    []model.Project
		inApps      []model.Application
		prApps      []model.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users = degradeList(s, gctx, "users", func() ([]model.Applicant, error) { return s.backend.ListUsers(gctx, token) })
		return nil
	})
	g.Go(func() error {
		internships = degradeList(s, gctx, "internships", func() ([]model.Internship, error) { return s.backend.ListInternships(gctx, token) })
		return nil
	})
	g.Go(func() error {
		projects = degradeList(s, gctx, "projects", func() ([]model.Project, error) { return s.backend.ListProjects(gctx, token) })
		return nil
	})
	g.Go(func() error {
		inApps = degradeList(s, gctx, "internship_applications", func() ([]model.Application, error) {
			return s.backend.ListInternshipApplications(gctx, token)
		})
		return nil
	})
	g.Go(func() error {
		prApps = degradeList(s, gctx, "project_applications", func() ([]model.Application, error) {
			return s.backend.ListProjectApplications(gctx, token)
		})
		return nil
	})
	_ = g.Wait()

	board := s.board(browserID)
	board.Load(model.KindInternship, inApps)
	board.Load(model.KindProject, prApps)

	return &AdminView{
		Users:                  users,
		Internships:            internships,
		Projects:               projects,
		InternshipApplications: adminRows(board.List(model.KindInternship)),
		ProjectApplications:    adminRows(board.List(model.KindProject)),
	}, nil
}

// degradeList は取得に失敗した一覧を空として扱い、ログに記録する。
func degradeList[T any](s *Service, ctx context.Context, name string, fetch func() ([]T, error)) []T {
	list, err := fetch()
	if err != nil {
		s.logger.WarnContext(ctx, "管理画面の一覧取得に失敗しました",
			slog.String("list", name),
			slog.String("error", err.Error()),
		)
		return []T{}
	}
	if list == nil {
		return []T{}
	}
	return list
}

// AdminTransition は応募を承認または却下する。
//
// ブラウザのBoardに楽観的に反映してからバックエンドへ送信し、失敗した場合は
// 元の状態へ戻す。Boardに対象の応募が無い場合や、保持している状態が古い可能性が
// ある場合は該当種別の一覧を取得し直す。
func (s *Service) AdminTransition(
	ctx context.Context,
	state auth.State,
	browserID string,
	kind model.Kind,
	applicationID string,
	action lifecycle.Action,
) (*AdminApplicationRow, error) {
	token, err := requireToken(state)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidInput)
	}

	board, err := s.boardFor(ctx, token, browserID, kind, applicationID, action)
	if err != nil {
		return nil, err
	}

	send := func(ctx context.Context, app model.Application, target model.ApplicationStatus) (model.ApplicationStatus, error) {
		return s.backend.UpdateStatus(ctx, token, kind, app.ID, target)
	}
	res, err := board.Transition(ctx, kind, applicationID, action, send)
	s.recordTransition(kind, action, res, err)
	if err != nil {
		if res.RolledBack {
			s.logger.Warn("状態変更の送信に失敗したため元に戻しました",
				slog.String("kind", string(kind)),
				slog.String("application_id", applicationID),
				slog.String("action", string(action)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	row := adminRow(res.Application)
	return &row, nil
}

func (s *Service) recordTransition(kind model.Kind, action lifecycle.Action, res lifecycle.TransitionResult, err error) {
	outcome := "changed"
	switch {
	case errors.Is(err, lifecycle.ErrTransitionNotAllowed):
		outcome = "refused"
	case errors.Is(err, lifecycle.ErrApplicationNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "failed"
	case res.Outcome == lifecycle.OutcomeNoop:
		outcome = "noop"
	}
	s.metrics.RecordTransition(string(kind), string(action), outcome)
	if res.RolledBack {
		s.metrics.RecordRollback(string(kind))
	}
}

// board はブラウザのBoardを返す。無ければ作成する。
func (s *Service) board(browserID string) *lifecycle.Board {
	s.boardsMu.Lock()
	defer s.boardsMu.Unlock()

	if b, ok := s.boards.Get(browserID); ok {
		return b
	}
	b := lifecycle.NewBoard()
	s.boards.Add(browserID, b)
	return b
}

// boardFor は対象の応募を含むBoardを返す。
// Boardに応募が無い場合、または保持している状態ではactionが変更にならない場合は、
// 該当種別の一覧を取得し直してから返す。応募者側の提出などで状態が進んでいることがある。
func (s *Service) boardFor(
	ctx context.Context,
	token, browserID string,
	kind model.Kind,
	applicationID string,
	action lifecycle.Action,
) (*lifecycle.Board, error) {
	b := s.board(browserID)
	app, found := b.Find(kind, applicationID)
	if found {
		if _, outcome, err := lifecycle.Decide(app.Status, action); err == nil && outcome == lifecycle.OutcomeChange {
			return b, nil
		}
	}

	var (
		apps []model.Application
		err  error
	)
	if kind == model.KindProject {
		apps, err = s.backend.ListProjectApplications(ctx, token)
	} else {
		apps, err = s.backend.ListInternshipApplications(ctx, token)
	}
	if err != nil {
		if found {
			s.logger.WarnContext(ctx, "応募一覧の再取得に失敗したため保持している状態で判定します",
				slog.String("kind", string(kind)),
				slog.String("application_id", applicationID),
				slog.String("error", err.Error()),
			)
			return b, nil
		}
		return nil, fmt.Errorf("応募一覧の取得に失敗しました: %w", err)
	}

	b.Load(kind, apps)
	return b, nil
}

func adminRows(apps []model.Application) []AdminApplicationRow {
	rows := make([]AdminApplicationRow, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, adminRow(a))
	}
	return rows
}

func adminRow(a model.Application) AdminApplicationRow {
	return AdminApplicationRow{
		ID:             a.ID,
		Kind:           a.Kind,
		TargetID:       a.TargetID,
		TargetTitle:    a.TargetTitle,
		ApplicantName:  a.ApplicantName,
		ApplicantEmail: a.ApplicantEmail,
		ResumeRef:      a.ResumeRef,
		Status:         lifecycle.Normalize(a.Status),
		Badge:          lifecycle.BadgeFor(a.Status),
		Actionable:     lifecycle.IsMutable(a.Status),
		Submission:     a.Submission,
		AppliedAt:      a.AppliedAt,
	}
}
