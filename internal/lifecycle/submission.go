package lifecycle

import (
	"strings"

	"github.com/hitoshi/internhub/internal/model"
)

// NotesSanitizer は提出メモをプレーンテキストに整える。
type NotesSanitizer interface {
	SanitizeText(s string) string
}

// SubmissionForm は成果物提出フォームの入力値。
type SubmissionForm struct {
	GithubURL string `json:"github_url"`
	LiveURL   string `json:"live_url"`
	DocsURL   string `json:"docs_url"`
	Notes     string `json:"notes"`
}

// Validate はGitHub URLとライブURLの少なくとも一方が空白以外であることを検証する。
func (f SubmissionForm) Validate() error {
	if strings.TrimSpace(f.GithubURL) == "" && strings.TrimSpace(f.LiveURL) == "" {
		return ErrSubmissionLinkRequired
	}
	return nil
}

// Normalize はリンクにスキームを補い、メモを整えたSubmissionを返す。
// sanitizerがnilの場合はメモの前後空白のみを除去する。
func (f SubmissionForm) Normalize(sanitizer NotesSanitizer) model.Submission {
	notes := strings.TrimSpace(f.Notes)
	if sanitizer != nil {
		notes = sanitizer.SanitizeText(notes)
	}
	return model.Submission{
		GithubURL: NormalizeURL(f.GithubURL),
		LiveURL:   NormalizeURL(f.LiveURL),
		DocsURL:   NormalizeURL(f.DocsURL),
		Notes:     notes,
	}
}

// FormFromSubmission は既存の提出内容からフォームの初期値を作る。
func FormFromSubmission(s *model.Submission) SubmissionForm {
	if s == nil {
		return SubmissionForm{}
	}
	return SubmissionForm{
		GithubURL: s.GithubURL,
		LiveURL:   s.LiveURL,
		DocsURL:   s.DocsURL,
		Notes:     s.Notes,
	}
}

// NormalizeURL はスキームのないURLに https:// を付与する。空白のみの場合は空文字列を返す。
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}
