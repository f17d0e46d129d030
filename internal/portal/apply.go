package portal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/model"
)

// ApplyForm は応募フォームの入力値。NameとEmailが空の場合はプロフィールの値を使う。
type ApplyForm struct {
	Name       string
	Email      string
	ResumeName string
	Resume     io.Reader
}

// ApplyResult は応募の結果。
type ApplyResult struct {
	ApplicationID string     `json:"id"`
	Kind          model.Kind `json:"type"`
	TargetID      string     `json:"targetId"`
	TargetTitle   string     `json:"targetTitle"`
}

// Apply はカタログエンティティに応募する。
// 既存の応募と照合し、応募済みであれば送信せずに lifecycle.ErrAlreadyApplied を返す。
func (s *Service) Apply(ctx context.Context, state auth.State, kind model.Kind, targetID string, form ApplyForm) (*ApplyResult, error) {
	token, err := requireToken(state)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidInput)
	}

	form = fillFromProfile(form, state.UserProfile)
	if err := validateApplyForm(form); err != nil {
		return nil, err
	}

	var (
		title string
		apps  []model.Application
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		title, err = s.targetTitle(gctx, token, kind, targetID)
		return err
	})
	g.Go(func() error {
		var err error
		apps, err = s.backend.MyApplications(gctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if existing, ok := lifecycle.Match(apps, kind, targetID, title); ok {
		return nil, fmt.Errorf("%s %s (application %s): %w", kind, targetID, existing.ID, lifecycle.ErrAlreadyApplied)
	}

	req := api.ApplyRequest{
		TargetID:    targetID,
		TargetTitle: title,
		Name:        form.Name,
		Email:       form.Email,
		ResumeName:  form.ResumeName,
		Resume:      form.Resume,
	}
	var id string
	if kind == model.KindProject {
		id, err = s.backend.ApplyProject(ctx, token, req)
	} else {
		id, err = s.backend.ApplyInternship(ctx, token, req)
	}
	if err != nil {
		return nil, fmt.Errorf("応募の送信に失敗しました: %w", err)
	}

	s.logger.Info("応募を送信しました",
		slog.String("kind", string(kind)),
		slog.String("target_id", targetID),
		slog.String("application_id", id),
	)
	return &ApplyResult{ApplicationID: id, Kind: kind, TargetID: targetID, TargetTitle: title}, nil
}

// targetTitle は応募先のタイトルを取得する。存在しない場合はErrNotFoundを返す。
func (s *Service) targetTitle(ctx context.Context, token string, kind model.Kind, id string) (string, error) {
	if kind == model.KindProject {
		p, err := s.backend.GetProject(ctx, token, id)
		if err != nil {
			if api.IsNotFound(err) {
				return "", fmt.Errorf("project %s: %w", id, ErrNotFound)
			}
			return "", fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
		}
		return p.Name, nil
	}

	list, err := s.backend.ListInternships(ctx, token)
	if err != nil {
		return "", fmt.Errorf("インターンシップ一覧の取得に失敗しました: %w", err)
	}
	in, ok := findInternship(list, id)
	if !ok {
		return "", fmt.Errorf("internship %s: %w", id, ErrNotFound)
	}
	return in.Title, nil
}

func fillFromProfile(form ApplyForm, profile *model.UserProfile) ApplyForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	if profile != nil {
		if form.Name == "" {
			form.Name = profile.Name
		}
		if form.Email == "" {
			form.Email = profile.Email
		}
	}
	return form
}

func validateApplyForm(form ApplyForm) error {
	if form.Name == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(form.Email); err != nil {
		return fmt.Errorf("email %q is invalid: %w", form.Email, ErrInvalidInput)
	}
	if form.Resume == nil {
		return fmt.Errorf("resume is required: %w", ErrInvalidInput)
	}
	return nil
}
