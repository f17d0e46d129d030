// Package session はブラウザプロファイルごとのセッション（token・isAdmin・userProfile）の永続化を提供する。
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hitoshi/internhub/internal/model"
	"github.com/hitoshi/internhub/internal/repository"
)

// 永続化キー。ブラウザストレージ上の名前と一致させる。
const (
	KeyToken       = "token"
	KeyIsAdmin     = "isAdmin"
	KeyUserProfile = "userProfile"
)

var allKeys = []string{KeyToken, KeyIsAdmin, KeyUserProfile}

// Record は永続化されたセッション状態。
// Sessionがnilの場合はセッションなしを表す。
// Degradedはストレージの読み出しに失敗して空になったことを示し、再読み込みで回復しうる。
type Record struct {
	Session  *model.Session
	Profile  *model.UserProfile
	Degraded bool
}

// Empty はセッションがないかを返す。
func (r Record) Empty() bool {
	return r.Session == nil
}

// Store はBrowserStorageRepositoryの上にセッションの読み書きを提供する。
type Store struct {
	repo   repository.BrowserStorageRepository
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewStore はStoreを生成する。maxAgeは保存したエントリの有効期間。
func NewStore(repo repository.BrowserStorageRepository, maxAge time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// Save はtoken・isAdmin・userProfileの3キーを1回の書き込みで保存する。
// tokenの内容は検証しない。
func (s *Store) Save(ctx context.Context, browserID, token string, isAdmin bool, profile *model.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	items := map[string]string{
		KeyToken:       token,
		KeyIsAdmin:     strconv.FormatBool(isAdmin),
		KeyUserProfile: string(raw),
	}
	if err := s.repo.SetItems(ctx, browserID, items, s.expiresAt()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SaveProfile はuserProfileキーのみを書き換える。
func (s *Store) SaveProfile(ctx context.Context, browserID string, profile *model.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.repo.SetItems(ctx, browserID, map[string]string{KeyUserProfile: string(raw)}, s.expiresAt()); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Load は保存されたセッションを読み出す。
// 保存がない場合、読み出しに失敗した場合、プロファイルが壊れている場合は
// いずれも空のRecordを返す（失敗はログに記録する）。
// 読み出しの失敗時のみDegradedを立てる。壊れたプロファイルは恒久的な状態として扱う。
func (s *Store) Load(ctx context.Context, browserID string) Record {
	items, err := s.repo.GetItems(ctx, browserID)
	if err != nil {
		s.logger.Warn("failed to load session, treating as logged out",
			slog.String("browser_id", browserID),
			slog.String("error", err.Error()),
		)
		return Record{Degraded: true}
	}

	token := items[KeyToken]
	if token == "" {
		return Record{}
	}

	rec := Record{
		Session: &model.Session{
			Token:   token,
			IsAdmin: items[KeyIsAdmin] == "true",
		},
	}

	if raw, ok := items[KeyUserProfile]; ok && raw != "" {
		var profile *model.UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			s.logger.Warn("corrupt user profile in session storage, treating as logged out",
				slog.String("browser_id", browserID),
				slog.String("error", err.Error()),
			)
			return Record{}
		}
		rec.Profile = profile
	}
	return rec
}

// Clear は3キーを1回の削除で取り除く。
func (s *Store) Clear(ctx context.Context, browserID string) error {
	if err := s.repo.RemoveItems(ctx, browserID, allKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *Store) expiresAt() time.Time {
	return s.now().Add(s.maxAge)
}
