// Package refresh はカタログの定期再取得を提供する。
// 一時的な失敗は指数バックオフで再試行し、その間も現在のカタログを配信し続ける。
package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Refresher はカタログ再取得の実行インターフェース。
type Refresher interface {
	// Refresh は取得元から再取得し、失敗時は現在の集合を維持してエラーを返す。
	Refresh(ctx context.Context) error
}

// Scheduler はカタログの定期再取得を行う。
type Scheduler struct {
	refresher      Refresher
	logger         *slog.Logger
	timeout        time.Duration
	initialBackoff time.Duration

	failures int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// timeoutは1回の再取得に許す時間。
func NewScheduler(refresher Refresher, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scheduler{
		refresher:      refresher,
		logger:         logger,
		timeout:        timeout,
		initialBackoff: DefaultInitialBackoff,
	}
}

// Start はinterval間隔で再取得を繰り返す。起動時のロードは呼び出し元で済んでいる前提で、
// 最初の再取得はinterval経過後に行う。コンテキストがキャンセルされるまでブロックする。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("カタログ再取得スケジューラを開始しました", slog.Duration("interval", interval))

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("カタログ再取得スケジューラを停止しました")
			return
		case <-timer.C:
			timer.Reset(s.RunOnce(ctx, interval))
		}
	}
}

// RunOnce は1回再取得を行い、次回までの待機時間を返す。
func (s *Scheduler) RunOnce(ctx context.Context, interval time.Duration) time.Duration {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.refresher.Refresh(runCtx)
	cancel()

	result := Classify(err)
	switch result {
	case ResultOK:
		s.failures = 0
		s.logger.Info("カタログ再取得が完了しました",
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
		)
		return interval
	case ResultPersistent:
		s.failures = 0
		s.logger.Error("カタログ再取得に失敗しました",
			slog.String("result", result.String()),
			slog.String("error", err.Error()),
		)
		return interval
	default:
		s.failures++
		delay := CalculateBackoff(s.failures, s.initialBackoff, interval)
		s.logger.Warn("カタログ再取得に失敗したため再試行します",
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", s.failures),
			slog.Duration("retry_in", delay),
		)
		return delay
	}
}
