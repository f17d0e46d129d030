package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
)

// PostgresBrowserStorageRepo はPostgreSQLを使用したブラウザストレージリポジトリ。
type PostgresBrowserStorageRepo struct {
	db *sql.DB
}

// NewPostgresBrowserStorageRepo はPostgresBrowserStorageRepoを生成する。
func NewPostgresBrowserStorageRepo(db *sql.DB) *PostgresBrowserStorageRepo {
	return &PostgresBrowserStorageRepo{db: db}
}

// SetItems は複数のキーを同一トランザクションでUPSERTする。
func (r *PostgresBrowserStorageRepo) SetItems(ctx context.Context, browserID string, items map[string]string, expiresAt time.Time) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO browser_storage (browser_id, key, value, expires_at, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (browser_id, key)
			 DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`,
			browserID, k, items[k], expiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to set storage item %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetItems は有効期限内の全キーを取得する。
func (r *PostgresBrowserStorageRepo) GetItems(ctx context.Context, browserID string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value
		 FROM browser_storage
		 WHERE browser_id = $1 AND expires_at > now()`,
		browserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage items: %w", err)
	}
	defer rows.Close()

	items := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan storage item: %w", err)
		}
		items[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate storage items: %w", err)
	}
	return items, nil
}

// RemoveItems は指定キーを1回のDELETEで削除する。
func (r *PostgresBrowserStorageRepo) RemoveItems(ctx context.Context, browserID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM browser_storage WHERE browser_id = $1 AND key = ANY($2)`,
		browserID, pq.Array(keys),
	)
	if err != nil {
		return fmt.Errorf("failed to remove storage items: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BrowserStorageRepository = (*PostgresBrowserStorageRepo)(nil)
