// Package model はドメインモデルを定義する。
package model

import "time"

// Kind は応募先カタログエンティティの種別を表す。
type Kind string

const (
	// KindInternship はインターンシップへの応募。
	KindInternship Kind = "internship"
	// KindProject はプロジェクトへの応募。
	KindProject Kind = "project"
)

// Valid は既知の種別かどうかを返す。
func (k Kind) Valid() bool {
	return k == KindInternship || k == KindProject
}

// ApplicationStatus は応募のライフサイクル状態を表す。
// 値は大文字小文字を区別する。
type ApplicationStatus string

const (
	// StatusPending は初期状態。未設定・in_process・未知の値もこの状態として扱う。
	StatusPending ApplicationStatus = "pending"
	// StatusInProcess はバックエンドが応募作成時に保存する旧称。
	StatusInProcess ApplicationStatus = "in_process"
	// StatusSubmitted は成果物が提出された状態。
	StatusSubmitted ApplicationStatus = "submitted"
	// StatusApproved は管理者に承認された状態。
	StatusApproved ApplicationStatus = "approved"
	// StatusResubmit は再提出を求められた状態。外部でのみ設定される。
	StatusResubmit ApplicationStatus = "resubmit"
	// StatusRejected は管理者に却下された状態。
	StatusRejected ApplicationStatus = "rejected"
	// StatusCompleted は修了した状態。外部でのみ設定される。
	StatusCompleted ApplicationStatus = "completed"
)

// Submission は応募者が提出した成果物のリンクとメモ。
type Submission struct {
	GithubURL   string     `json:"githubUrl,omitempty"`
	LiveURL     string     `json:"liveUrl,omitempty"`
	DocsURL     string     `json:"docsUrl,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

// Empty は提出内容が一つも含まれていないかを返す。
func (s *Submission) Empty() bool {
	return s == nil || (s.GithubURL == "" && s.LiveURL == "" && s.DocsURL == "" && s.Notes == "")
}

// Application は一人の応募者による一つのカタログエンティティへの応募を表す。
// Statusは生の値を保持し、解釈はlifecycleパッケージで行う。
type Application struct {
	ID             string            `json:"id"`
	Kind           Kind              `json:"type"`
	TargetID       string            `json:"targetId,omitempty"`
	TargetTitle    string            `json:"targetTitle,omitempty"`
	ApplicantName  string            `json:"name,omitempty"`
	ApplicantEmail string            `json:"email,omitempty"`
	ResumeRef      string            `json:"resumeName,omitempty"`
	Status         ApplicationStatus `json:"status,omitempty"`
	Submission     *Submission       `json:"submission,omitempty"`
	AppliedAt      *time.Time        `json:"date,omitempty"`
}
