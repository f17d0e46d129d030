// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"
)

// BrowserStorageRepository はブラウザプロファイルごとのキー・バリュー領域の永続化インターフェース。
// ブラウザのlocalStorageに相当する領域をサーバー側で保持する。
type BrowserStorageRepository interface {
	// SetItems は複数のキーをまとめて書き込む。すべて成功するか、いずれも書き込まれない。
	// expiresAt を過ぎたエントリは読み出されない。
	SetItems(ctx context.Context, browserID string, items map[string]string, expiresAt time.Time) error

	// GetItems は有効期限内の全キーを返す。存在しない場合は空のmapを返す。
	GetItems(ctx context.Context, browserID string) (map[string]string, error)

	// RemoveItems は指定キーをまとめて削除する。存在しないキーは無視する。
	RemoveItems(ctx context.Context, browserID string, keys ...string) error
}
