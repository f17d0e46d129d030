package portal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/model"
)

// SubmitWork は承認済みの応募に成果物を提出する。
//
// GitHub URLとライブURLのどちらかが必要。提出できる状態（approved/resubmit）で
// なければ送信しない。戻り値の応募の状態はSubmissionPolicyに従う。
func (s *Service) SubmitWork(ctx context.Context, state auth.State, kind model.Kind, applicationID string, form lifecycle.SubmissionForm) (*model.Application, error) {
	token, err := requireToken(state)
	if err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	apps, err := s.backend.MyApplications(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗しました: %w", err)
	}
	app, ok := findApplication(apps, kind, applicationID)
	if !ok {
		return nil, fmt.Errorf("%s application %s: %w", kind, applicationID, lifecycle.ErrApplicationNotFound)
	}

	next, err := s.policy.AfterSubmission(kind, app.Status)
	if err != nil {
		return nil, err
	}

	submission := form.Normalize(s.sanitizer)
	if err := s.backend.SaveSubmission(ctx, token, kind, applicationID, submission); err != nil {
		return nil, fmt.Errorf("成果物の送信に失敗しました: %w", err)
	}

	submittedAt := s.now()
	submission.SubmittedAt = &submittedAt
	app.Submission = &submission
	app.Status = next

	s.logger.Info("成果物を提出しました",
		slog.String("kind", string(kind)),
		slog.String("application_id", applicationID),
		slog.String("status", string(next)),
	)
	return &app, nil
}

func findApplication(apps []model.Application, kind model.Kind, id string) (model.Application, bool) {
	for _, a := range apps {
		if a.Kind == kind && a.ID == id {
			return a, true
		}
	}
	return model.Application{}, false
}
