// Package cleanup は分析イベントの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過したanalytics_eventsを定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays は分析イベントの既定の保持日数。
const DefaultRetentionDays = 90

// EventPruner は古い分析イベントを削除するインターフェース。
// repository.AnalyticsRepositoryが満たす。
type EventPruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した分析イベントの自動削除ジョブ。
// 削除対象が無い場合もエラーにならないため、何度実行してもよい。
type CleanupJob struct {
	events        EventPruner
	logger        *slog.Logger
	now           func() time.Time
	RetentionDays int // イベントの保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionDaysが0以下の場合はDefaultRetentionDaysを使う。
func NewCleanupJob(events EventPruner, retentionDays int, logger *slog.Logger) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &CleanupJob{
		events:        events,
		logger:        logger,
		now:           time.Now,
		RetentionDays: retentionDays,
	}
}

// Run は保持期間を超過したイベントを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deleted, err := j.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("分析イベントのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("分析イベントのクリーンアップに失敗: %w", err)
	}

	j.logger.Info("分析イベントのクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回、その後interval毎にRunを実行する。ctxがキャンセルされるまでブロックする。
// 個々の実行の失敗はログに残して次回に持ち越す。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
