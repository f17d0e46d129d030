package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule はクリーンアップの既定の実行間隔。
const DefaultSchedule = "@every 1h"

// Scheduler はcron式に従ってCleanupJobを実行する。
type Scheduler struct {
	cron   *cron.Cron
	job    *CleanupJob
	logger *slog.Logger
}

// NewScheduler はSchedulerを生成する。scheduleが空の場合はDefaultScheduleを使う。
// cron式が不正な場合はエラーを返す。
func NewScheduler(job *CleanupJob, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:    job,
		logger: logger,
	}
	_, err := s.cron.AddFunc(schedule, func() {
		// 失敗はRun内でログに記録済み
		_ = s.job.Run(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("クリーンアップのスケジュールが不正です %q: %w", schedule, err)
	}
	return s, nil
}

// Start は起動直後に1回ジョブを実行し、以降はスケジュールに従って実行する。
// ctxがキャンセルされるまでブロックし、実行中のジョブの終了を待ってから戻る。
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.job.Run(ctx); err != nil {
		s.logger.Warn("起動時のクリーンアップに失敗しました", slog.String("error", err.Error()))
	}

	s.cron.Start()
	s.logger.Info("クリーンアップスケジューラを開始しました", slog.Int("entries", len(s.cron.Entries())))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("クリーンアップスケジューラを停止しました")
}
