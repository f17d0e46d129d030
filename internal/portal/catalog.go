package portal

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/model"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// ProjectSlug はプロジェクト名から新規作成時のIDを作る。
// 英数字以外をハイフンにまとめ、前後のハイフンを除く。
func ProjectSlug(name string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// InternshipSlug はインターンシップのタイトルから新規作成時のIDを作る。
func InternshipSlug(title string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "")
}

// SaveProject はプロジェクトを保存する。idが空なら新規作成し、作成されたIDを返す。
func (s *Service) SaveProject(ctx context.Context, state auth.State, id string, p model.Project) (string, error) {
	token, err := requireToken(state)
	if err != nil {
		return "", err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return "", fmt.Errorf("project name is required: %w", ErrInvalidInput)
	}

	p.Description = s.sanitizeHTML(p.Description)
	p.ImplementationGuide = s.sanitizeHTML(p.ImplementationGuide)

	if id == "" {
		p.ID = ProjectSlug(p.Name)
		if p.ID == "" {
			return "", fmt.Errorf("project name %q has no usable characters: %w", p.Name, ErrInvalidInput)
		}
		created, err := s.backend.CreateProject(ctx, token, p)
		if err != nil {
			return "", fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
		}
		if created == "" {
			created = p.ID
		}
		s.logger.Info("プロジェクトを作成しました", slog.String("project_id", created))
		return created, nil
	}

	p.ID = id
	if err := s.backend.UpdateProject(ctx, token, id, p); err != nil {
		return "", s.catalogError(err, model.KindProject, id, "プロジェクトの更新に失敗しました")
	}
	return id, nil
}

// DeleteProject はプロジェクトを削除する。
func (s *Service) DeleteProject(ctx context.Context, state auth.State, id string) error {
	token, err := requireToken(state)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteProject(ctx, token, id); err != nil {
		return s.catalogError(err, model.KindProject, id, "プロジェクトの削除に失敗しました")
	}
	s.logger.Info("プロジェクトを削除しました", slog.String("project_id", id))
	return nil
}

// SaveInternship はインターンシップを保存する。idが空なら新規作成し、作成されたIDを返す。
func (s *Service) SaveInternship(ctx context.Context, state auth.State, id string, in model.Internship) (string, error) {
	token, err := requireToken(state)
	if err != nil {
		return "", err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return "", fmt.Errorf("internship title is required: %w", ErrInvalidInput)
	}

	in.Description = s.sanitizeHTML(in.Description)
	in.ImplementationGuide = s.sanitizeHTML(in.ImplementationGuide)

	if id == "" {
		in.ID = InternshipSlug(in.Title)
		created, err := s.backend.CreateInternship(ctx, token, in)
		if err != nil {
			return "", fmt.Errorf("インターンシップの作成に失敗しました: %w", err)
		}
		if created == "" {
			created = in.ID
		}
		s.logger.Info("インターンシップを作成しました", slog.String("internship_id", created))
		return created, nil
	}

	in.ID = id
	if err := s.backend.UpdateInternship(ctx, token, id, in); err != nil {
		return "", s.catalogError(err, model.KindInternship, id, "インターンシップの更新に失敗しました")
	}
	return id, nil
}

// DeleteInternship はインターンシップを削除する。
func (s *Service) DeleteInternship(ctx context.Context, state auth.State, id string) error {
	token, err := requireToken(state)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteInternship(ctx, token, id); err != nil {
		return s.catalogError(err, model.KindInternship, id, "インターンシップの削除に失敗しました")
	}
	s.logger.Info("インターンシップを削除しました", slog.String("internship_id", id))
	return nil
}

func (s *Service) catalogError(err error, kind model.Kind, id, msg string) error {
	if api.IsNotFound(err) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *Service) sanitizeHTML(raw string) string {
	if s.sanitizer == nil {
		return raw
	}
	return s.sanitizer.SanitizeHTML(raw)
}
