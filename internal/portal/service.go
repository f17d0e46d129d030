// Package portal は応募者画面と管理者画面のビューモデルを組み立てる。
//
// バックエンドAPIの呼び出しを並行に行い、lifecycleパッケージの規則で
// 状態表示・応募・成果物提出・承認/却下を処理する。
package portal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/internhub/internal/api"
	"github.com/hitoshi/internhub/internal/auth"
	"github.com/hitoshi/internhub/internal/lifecycle"
	"github.com/hitoshi/internhub/internal/metrics"
	"github.com/hitoshi/internhub/internal/model"
)

var (
	// ErrNotFound は指定されたカタログエンティティまたは応募が存在しないことを示す。
	ErrNotFound = errors.New("portal: not found")
	// ErrInvalidInput は入力値が不足または不正であることを示す。
	ErrInvalidInput = errors.New("portal: invalid input")
)

// Backend はportalが利用するバックエンドAPIの操作。
type Backend interface {
	ListProjects(ctx context.Context, token string) ([]model.Project, error)
	GetProject(ctx context.Context, token, id string) (*model.Project, error)
	ListInternships(ctx context.Context, token string) ([]model.Internship, error)
	MyApplications(ctx context.Context, token string) ([]model.Application, error)
	ApplyInternship(ctx context.Context, token string, in api.ApplyRequest) (string, error)
	ApplyProject(ctx context.Context, token string, in api.ApplyRequest) (string, error)
	UpdateStatus(ctx context.Context, token string, kind model.Kind, applicationID string, status model.ApplicationStatus) (model.ApplicationStatus, error)
	SaveSubmission(ctx context.Context, token string, kind model.Kind, applicationID string, s model.Submission) error
	CreateProject(ctx context.Context, token string, p model.Project) (string, error)
	UpdateProject(ctx context.Context, token, id string, p model.Project) error
	DeleteProject(ctx context.Context, token, id string) error
	CreateInternship(ctx context.Context, token string, i model.Internship) (string, error)
	UpdateInternship(ctx context.Context, token, id string, i model.Internship) error
	DeleteInternship(ctx context.Context, token, id string) error
	ListUsers(ctx context.Context, token string) ([]model.Applicant, error)
	ListInternshipApplications(ctx context.Context, token string) ([]model.Application, error)
	ListProjectApplications(ctx context.Context, token string) ([]model.Application, error)
}

var _ Backend = (*api.Client)(nil)

// Sanitizer は保存前の入力テキストを整える。
type Sanitizer interface {
	SanitizeText(s string) string
	SanitizeHTML(s string) string
}

// Config はServiceの設定。
type Config struct {
	Policy         lifecycle.SubmissionPolicy
	BoardCacheSize int           // 管理画面の作業領域を保持するブラウザ数
	BoardTTL       time.Duration // 作業領域の有効期間
}

// Service は画面処理のサービス層。
type Service struct {
	backend   Backend
	policy    lifecycle.SubmissionPolicy
	sanitizer Sanitizer
	boardsMu  sync.Mutex
	boards    *expirable.LRU[string, *lifecycle.Board]
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	backend Backend,
	sanitizer Sanitizer,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BoardCacheSize <= 0 {
		cfg.BoardCacheSize = 1000
	}
	if cfg.BoardTTL <= 0 {
		cfg.BoardTTL = 30 * time.Minute
	}
	return &Service{
		backend:   backend,
		policy:    cfg.Policy,
		sanitizer: sanitizer,
		boards:    expirable.NewLRU[string, *lifecycle.Board](cfg.BoardCacheSize, nil, cfg.BoardTTL),
		metrics:   mc,
		logger:    logger,
		now:       time.Now,
	}
}

// tokenOf は状態からトークンを取り出す。未ログインなら空文字列。
func tokenOf(state auth.State) string {
	if state.User == nil {
		return ""
	}
	return state.User.Token
}

// requireToken は未ログインの場合にapi.ErrNotAuthenticatedを返す。
func requireToken(state auth.State) (string, error) {
	token := tokenOf(state)
	if token == "" {
		return "", api.ErrNotAuthenticated
	}
	return token, nil
}
