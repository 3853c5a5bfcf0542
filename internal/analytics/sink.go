package analytics

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/portalx/internal/model"
)

// EventWriter は分析イベントの永続化インターフェース。
// repository.AnalyticsRepositoryの部分集合として定義する。
type EventWriter interface {
	Insert(ctx context.Context, event *model.Event) error
}

// RepositorySink はイベントをデータベースに保存する。
type RepositorySink struct {
	repo EventWriter
}

// NewRepositorySink はRepositorySinkの新しいインスタンスを生成する。
func NewRepositorySink(repo EventWriter) *RepositorySink {
	return &RepositorySink{repo: repo}
}

// Save はイベントを保存する。
func (s *RepositorySink) Save(ctx context.Context, event *model.Event) error {
	return s.repo.Insert(ctx, event)
}

// LogSink はイベントを構造化ログとして出力する。
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink はLogSinkの新しいインスタンスを生成する。
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Save はイベントをINFOレベルで記録する。
func (s *LogSink) Save(ctx context.Context, event *model.Event) error {
	s.logger.InfoContext(ctx, "analytics event",
		slog.String("event_id", event.ID),
		slog.String("event", event.Name),
		slog.String("visitor_id", event.VisitorID),
		slog.Int64("listing_id", event.ListingID),
		slog.String("category", string(event.Category)),
		slog.Bool("is_premium", event.IsPremium),
		slog.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

// MultiSink は複数のSinkに順に配送する。
// 一部のSinkが失敗しても残りには配送し、エラーはまとめて返す。
type MultiSink []Sink

// Save は全てのSinkにイベントを配送する。
func (m MultiSink) Save(ctx context.Context, event *model.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
