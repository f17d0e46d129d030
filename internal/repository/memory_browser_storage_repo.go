package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	items     map[string]string
	expiresAt time.Time
}

// MemoryBrowserStorageRepo はプロセス内メモリを使用したブラウザストレージリポジトリ。
// テストおよび SESSION_STORE=memory で使用する。
type MemoryBrowserStorageRepo struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryBrowserStorageRepo はMemoryBrowserStorageRepoを生成する。
func NewMemoryBrowserStorageRepo() *MemoryBrowserStorageRepo {
	return &MemoryBrowserStorageRepo{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// SetItems は複数のキーをまとめて書き込み、有効期限を更新する。
func (r *MemoryBrowserStorageRepo) SetItems(_ context.Context, browserID string, items map[string]string, expiresAt time.Time) error {
	if len(items) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.liveLocked(browserID)
	if e == nil {
		e = &memoryEntry{items: make(map[string]string)}
		r.entries[browserID] = e
	}
	for k, v := range items {
		e.items[k] = v
	}
	e.expiresAt = expiresAt
	return nil
}

// GetItems は有効期限内の全キーのコピーを返す。
func (r *MemoryBrowserStorageRepo) GetItems(_ context.Context, browserID string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string)
	if e := r.liveLocked(browserID); e != nil {
		for k, v := range e.items {
			out[k] = v
		}
	}
	return out, nil
}

// RemoveItems は指定キーを削除する。
func (r *MemoryBrowserStorageRepo) RemoveItems(_ context.Context, browserID string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.liveLocked(browserID)
	if e == nil {
		return nil
	}
	for _, k := range keys {
		delete(e.items, k)
	}
	if len(e.items) == 0 {
		delete(r.entries, browserID)
	}
	return nil
}

// PurgeExpired は期限切れのエントリを削除し、削除したブラウザ数を返す。
func (r *MemoryBrowserStorageRepo) PurgeExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	now := r.now()
	for id, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// liveLocked は有効期限内のエントリを返す。期限切れの場合は削除してnilを返す。
func (r *MemoryBrowserStorageRepo) liveLocked(browserID string) *memoryEntry {
	e, ok := r.entries[browserID]
	if !ok {
		return nil
	}
	if !r.now().Before(e.expiresAt) {
		delete(r.entries, browserID)
		return nil
	}
	return e
}

// compile-time interface check
var _ BrowserStorageRepository = (*MemoryBrowserStorageRepo)(nil)
