package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/internhub/internal/model"
)

// Sender は状態変更をバックエンドへ送信する関数。
// バックエンドが遷移後の状態を返した場合はそれを返す（空文字列なら目標状態を採用する）。
type Sender func(ctx context.Context, app model.Application, target model.ApplicationStatus) (model.ApplicationStatus, error)

// TransitionResult は Board.Transition の結果。
type TransitionResult struct {
	Application model.Application
	Outcome     Outcome
	RolledBack  bool
}

// Board は画面が保持する応募一覧のローカルコピー。
// 状態変更は楽観的に反映し、送信が失敗した場合は元の状態へ戻す。
type Board struct {
	mu   sync.Mutex
	apps map[model.Kind][]model.Application
}

// NewBoard は空のBoardを生成する。
func NewBoard() *Board {
	return &Board{apps: make(map[model.Kind][]model.Application)}
}

// Load は指定種別の一覧を置き換える。
func (b *Board) Load(kind model.Kind, apps []model.Application) {
	cp := make([]model.Application, len(apps))
	copy(cp, apps)
	for i := range cp {
		cp[i].Kind = kind
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.apps[kind] = cp
}

// List は指定種別の一覧のコピーを返す。
func (b *Board) List(kind model.Kind) []model.Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]model.Application, len(b.apps[kind]))
	copy(cp, b.apps[kind])
	return cp
}

// Find は指定IDの応募を返す。
func (b *Board) Find(kind model.Kind, id string) (model.Application, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexLocked(kind, id); i >= 0 {
		return b.apps[kind][i], true
	}
	return model.Application{}, false
}

// Transition は管理者操作を一覧に適用し、sendでバックエンドへ送信する。
//
//  1. Decideで遷移先を判定する。no-opや不許可の場合は何も送信しない。
//  2. 一覧を遷移先の状態に楽観的に更新する。
//  3. sendを呼び出す。失敗した場合は、他の更新で上書きされていなければ元の状態へ戻す。
//  4. 成功した場合、バックエンドが返した状態があればそれを採用する。
func (b *Board) Transition(ctx context.Context, kind model.Kind, id string, action Action, send Sender) (TransitionResult, error) {
	b.mu.Lock()
	i := b.indexLocked(kind, id)
	if i < 0 {
		b.mu.Unlock()
		return TransitionResult{}, fmt.Errorf("%s %s: %w", kind, id, ErrApplicationNotFound)
	}

	before := b.apps[kind][i]
	target, outcome, err := Decide(before.Status, action)
	if err != nil {
		b.mu.Unlock()
		return TransitionResult{Application: before}, err
	}
	if outcome == OutcomeNoop {
		b.mu.Unlock()
		return TransitionResult{Application: before, Outcome: OutcomeNoop}, nil
	}

	b.apps[kind][i].Status = target
	b.mu.Unlock()

	serverStatus, err := send(ctx, before, target)

	b.mu.Lock()
	defer b.mu.Unlock()

	i = b.indexLocked(kind, id)
	if err != nil {
		rolledBack := false
		if i >= 0 && b.apps[kind][i].Status == target {
			b.apps[kind][i].Status = before.Status
			rolledBack = true
		}
		return TransitionResult{Application: before, Outcome: OutcomeChange, RolledBack: rolledBack}, err
	}

	final := target
	if serverStatus != "" {
		final = serverStatus
	}
	after := before
	after.Status = final
	if i >= 0 {
		b.apps[kind][i].Status = final
		after = b.apps[kind][i]
	}
	return TransitionResult{Application: after, Outcome: OutcomeChange}, nil
}

// indexLocked は呼び出し元がロックを保持している前提で位置を返す。
func (b *Board) indexLocked(kind model.Kind, id string) int {
	for i, a := range b.apps[kind] {
		if a.ID == id {
			return i
		}
	}
	return -1
}
