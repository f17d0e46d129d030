package lifecycle

import (
	"errors"
	"fmt"

	"github.com/hitoshi/internhub/internal/model"
)

var (
	// ErrTransitionNotAllowed は現在の状態から要求された遷移が許可されないことを示す。
	ErrTransitionNotAllowed = errors.New("lifecycle: transition not allowed")
	// ErrSubmissionNotAllowed は成果物を提出できない状態であることを示す。
	ErrSubmissionNotAllowed = errors.New("lifecycle: submission not allowed")
	// ErrSubmissionLinkRequired はGitHub URLとライブURLの両方が空であることを示す。
	ErrSubmissionLinkRequired = errors.New("lifecycle: github or live url required")
	// ErrAlreadyApplied は同じ応募先への応募が既に存在することを示す。
	ErrAlreadyApplied = errors.New("lifecycle: already applied")
	// ErrApplicationNotFound は対象の応募が一覧に存在しないことを示す。
	ErrApplicationNotFound = errors.New("lifecycle: application not found")
)

// Action は管理者による状態変更操作。
type Action string

const (
	// ActionApprove は承認。
	ActionApprove Action = "approve"
	// ActionReject は却下。
	ActionReject Action = "reject"
)

// Target は操作が目指す状態を返す。
func (a Action) Target() (model.ApplicationStatus, bool) {
	switch a {
	case ActionApprove:
		return model.StatusApproved, true
	case ActionReject:
		return model.StatusRejected, true
	default:
		return "", false
	}
}

// Outcome は遷移判定の結果。
type Outcome int

const (
	// OutcomeChange は状態が変わり、バックエンドへの送信が必要。
	OutcomeChange Outcome = iota
	// OutcomeNoop は既に目標状態にあり、何も送信しない。
	OutcomeNoop
)

// Decide は管理者操作による遷移先を判定する。
//
// pending/in_process/submitted からは approved または rejected へ遷移する。
// 既に目標状態にある場合は OutcomeNoop を返す（approve の再実行、reject の再実行）。
// それ以外（rejected への approve、approved への reject、completed、resubmit）は
// ErrTransitionNotAllowed を返し、一覧の状態を後退させない。
func Decide(current model.ApplicationStatus, action Action) (model.ApplicationStatus, Outcome, error) {
	target, ok := action.Target()
	if !ok {
		return "", 0, fmt.Errorf("unknown action %q: %w", action, ErrTransitionNotAllowed)
	}

	if Normalize(current) == target {
		return target, OutcomeNoop, nil
	}
	if !IsMutable(current) {
		return Normalize(current), 0, fmt.Errorf("%s from %q: %w", action, Normalize(current), ErrTransitionNotAllowed)
	}
	return target, OutcomeChange, nil
}

// SubmissionPolicy は成果物提出時に状態を submitted へ進めるかを種別ごとに定める。
//
// プロジェクトは submitted へ進み、インターンシップは状態を変えないのが既定。
// この非対称が意図したものかは未確定のため、設定で切り替えられるようにしている。
type SubmissionPolicy struct {
	AdvanceInternship bool
	AdvanceProject    bool
}

// DefaultSubmissionPolicy は既定の提出ポリシーを返す。
func DefaultSubmissionPolicy() SubmissionPolicy {
	return SubmissionPolicy{
		AdvanceInternship: false,
		AdvanceProject:    true,
	}
}

// AfterSubmission は提出後の状態を返す。
// 提出できない状態の場合は ErrSubmissionNotAllowed を返す。
func (p SubmissionPolicy) AfterSubmission(kind model.Kind, current model.ApplicationStatus) (model.ApplicationStatus, error) {
	if !CanSubmitWork(current) {
		return Normalize(current), fmt.Errorf("submit from %q: %w", Normalize(current), ErrSubmissionNotAllowed)
	}

	advance := p.AdvanceProject
	if kind == model.KindInternship {
		advance = p.AdvanceInternship
	}
	if advance {
		return model.StatusSubmitted, nil
	}
	return Normalize(current), nil
}
