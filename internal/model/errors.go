// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, application, catalog, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeAlreadyApplied         = "ALREADY_APPLIED"
	ErrCodeApplicationNotFound    = "APPLICATION_NOT_FOUND"
	ErrCodeCatalogNotFound        = "CATALOG_NOT_FOUND"
	ErrCodeSubmissionLinkRequired = "SUBMISSION_LINK_REQUIRED"
	ErrCodeSubmissionNotAllowed   = "SUBMISSION_NOT_ALLOWED"
	ErrCodeTransitionNotAllowed   = "TRANSITION_NOT_ALLOWED"
	ErrCodeUpstreamFailed         = "UPSTREAM_FAILED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeCSRFInvalid            = "CSRF_INVALID"
	ErrCodeRateLimited            = "RATE_LIMITED"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewUnauthenticatedError はセッションが存在しない場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "You are not logged in.",
		Category: "auth",
		Action:   "Log in and try again.",
	}
}

// NewInvalidCredentialsError はログイン失敗時のエラーを生成する。
func NewInvalidCredentialsError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  fmt.Sprintf("Login failed: %s", reason),
		Category: "auth",
		Action:   "Check your credentials.",
	}
}

// NewInvalidRequestError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Fix the highlighted fields and try again.",
	}
}

// NewAlreadyAppliedError は同じ応募先に応募済みの場合のエラーを生成する。
func NewAlreadyAppliedError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyApplied,
		Message:  fmt.Sprintf("You have already applied to %q.", title),
		Category: "application",
		Action:   "Check the status on your dashboard.",
	}
}

// NewApplicationNotFoundError は応募が見つからない場合のエラーを生成する。
func NewApplicationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("Application not found: %s", id),
		Category: "application",
		Action:   "Reload the page and try again.",
	}
}

// NewCatalogNotFoundError はインターンシップ・プロジェクトが見つからない場合のエラーを生成する。
func NewCatalogNotFoundError(kind Kind, id string) *APIError {
	return &APIError{
		Code:     ErrCodeCatalogNotFound,
		Message:  fmt.Sprintf("%s not found: %s", kind, id),
		Category: "catalog",
		Action:   "Go back to the dashboard and pick another entry.",
	}
}

// NewSubmissionLinkRequiredError は提出リンクが空の場合のエラーを生成する。
func NewSubmissionLinkRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionLinkRequired,
		Message:  "At least a GitHub or a live URL is required.",
		Category: "validation",
		Action:   "Enter a GitHub repository URL or a live demo URL.",
	}
}

// NewSubmissionNotAllowedError は提出不可の状態で提出しようとした場合のエラーを生成する。
func NewSubmissionNotAllowedError(status ApplicationStatus) *APIError {
	return &APIError{
		Code:     ErrCodeSubmissionNotAllowed,
		Message:  fmt.Sprintf("Work cannot be submitted while the application is %q.", status),
		Category: "application",
		Action:   "Wait for the application to be approved.",
	}
}

// NewTransitionNotAllowedError は許可されない状態遷移のエラーを生成する。
func NewTransitionNotAllowedError(from ApplicationStatus, action string) *APIError {
	return &APIError{
		Code:     ErrCodeTransitionNotAllowed,
		Message:  fmt.Sprintf("Cannot %s an application that is %q.", action, from),
		Category: "application",
		Action:   "Reload the dashboard to see the current status.",
	}
}

// NewUpstreamFailedError はバックエンドAPI呼び出しが失敗した場合のエラーを生成する。
func NewUpstreamFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  message,
		Category: "upstream",
		Action:   "Wait a moment and try again.",
	}
}

// NewForbiddenError は管理者権限が必要な操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Administrator access is required.",
		Category: "auth",
		Action:   "Log in with an administrator account.",
	}
}

// NewCSRFInvalidError はCSRFトークンの検証に失敗した場合のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "CSRF token validation failed.",
		Category: "auth",
		Action:   "Reload the page and try again.",
	}
}
