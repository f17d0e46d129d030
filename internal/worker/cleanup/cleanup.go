// Package cleanup は期限切れのブラウザストレージを削除するジョブを提供する。
// Redisはキーの有効期限で自動的に失効するため、PostgreSQLとメモリストレージが対象。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/internhub/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Purger はメモリストレージの期限切れエントリを削除する。
type Purger interface {
	PurgeExpired() int
}

// CleanupJob は期限切れのブラウザストレージを削除するジョブ。
// 冪等であり、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	sweep   func(ctx context.Context) (int64, error)
	target  string
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewCleanupJob はPostgreSQLのbrowser_storageテーブルを対象とするCleanupJobを生成する。
func NewCleanupJob(db Executor, mc metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	return newJob("postgres", func(ctx context.Context) (int64, error) {
		result, err := db.ExecContext(ctx, `DELETE FROM browser_storage WHERE expires_at <= now()`)
		if err != nil {
			return 0, fmt.Errorf("期限切れストレージの削除に失敗: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
		}
		return n, nil
	}, mc, logger)
}

// NewMemoryCleanupJob はメモリストレージを対象とするCleanupJobを生成する。
func NewMemoryCleanupJob(p Purger, mc metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	return newJob("memory", func(context.Context) (int64, error) {
		return int64(p.PurgeExpired()), nil
	}, mc, logger)
}

func newJob(target string, sweep func(ctx context.Context) (int64, error), mc metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		sweep:   sweep,
		target:  target,
		metrics: mc,
		logger:  logger,
	}
}

// Run は期限切れのエントリを削除し、件数をメトリクスに記録する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sweep(ctx)
	if err != nil {
		j.logger.Error("ストレージクリーンアップジョブの実行に失敗しました",
			slog.String("target", j.target),
			slog.String("error", err.Error()),
		)
		return err
	}

	j.metrics.RecordStorageCleaned(deleted)
	j.logger.Info("ストレージクリーンアップジョブが完了しました",
		slog.String("target", j.target),
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
