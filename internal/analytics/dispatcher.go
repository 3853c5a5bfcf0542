// Package analytics は利用状況イベントの非同期配送を提供する。
// 配送は fire-and-forget であり、呼び出し元をブロックせず、失敗も呼び出し元に返さない。
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/portalx/internal/model"
)

// Tracker はイベント送信のインターフェース。
type Tracker interface {
	Track(ctx context.Context, event model.Event)
}

// Sink はイベントの保存先。
type Sink interface {
	Save(ctx context.Context, event *model.Event) error
}

// Recorder はイベント配送のメトリクス記録インターフェース。
type Recorder interface {
	RecordAnalyticsEvent(name string)
	RecordAnalyticsDropped(name string)
	RecordAnalyticsSinkFailure()
}

// DefaultBufferSize はイベントキューの既定サイズ。
const DefaultBufferSize = 1024

// Dispatcher はイベントをバッファ付きキューに積み、バックグラウンドでSinkに配送する。
// キューが満杯の場合はイベントを破棄する。
type Dispatcher struct {
	queue    chan model.Event
	sink     Sink
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// recorderはnilでもよい。配送を始めるにはRunを呼ぶ。
func NewDispatcher(bufferSize int, sink Sink, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		queue:    make(chan model.Event, bufferSize),
		sink:     sink,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Track はイベントをキューに積む。IDと発生時刻が未設定なら補完する。
// キューが満杯またはClose後はイベントを破棄する。
func (d *Dispatcher) Track(ctx context.Context, event model.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "closed")
		return
	}

	select {
	case d.queue <- event:
		if d.recorder != nil {
			d.recorder.RecordAnalyticsEvent(event.Name)
		}
	default:
		d.drop(event, "queue_full")
	}
}

func (d *Dispatcher) drop(event model.Event, reason string) {
	if d.recorder != nil {
		d.recorder.RecordAnalyticsDropped(event.Name)
	}
	d.logger.Warn("分析イベントを破棄しました",
		slog.String("event", event.Name),
		slog.String("reason", reason),
	)
}

// Run はキューのイベントをSinkに配送する。
// ctxのキャンセルまたはClose後、キューに残ったイベントを配送してから戻る。
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case event, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, &event)
		case <-ctx.Done():
			d.Close()
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	// 終了時の書き込みは元のctxがキャンセル済みのため独立したタイムアウトで行う
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for event := range d.queue {
		d.deliver(ctx, &event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event *model.Event) {
	if err := d.sink.Save(ctx, event); err != nil {
		if d.recorder != nil {
			d.recorder.RecordAnalyticsSinkFailure()
		}
		d.logger.Error("分析イベントの保存に失敗しました",
			slog.String("event", event.Name),
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Close は新しいイベントの受け付けを停止する。複数回呼んでもよい。
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Wait はRunが終了するまで待つ。
func (d *Dispatcher) Wait() {
	<-d.done
}

// Pending はキューに残っているイベント数を返す。
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Nop は何もしないTracker。
type Nop struct{}

// Track はイベントを破棄する。
func (Nop) Track(context.Context, model.Event) {}
