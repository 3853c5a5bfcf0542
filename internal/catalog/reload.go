package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultReloadWait は変更通知から再読み込みまでの待機時間。
const DefaultReloadWait = 2 * time.Second

// Reloader は連続する変更通知をまとめ、待機時間後に1回だけStoreを再読み込みする。
type Reloader struct {
	store     *Store
	debouncer *Debouncer
	timeout   time.Duration
}

// NewReloader はReloaderを生成する。timeoutは1回の再読み込みに許す時間。
func NewReloader(store *Store, wait, timeout time.Duration) *Reloader {
	if wait <= 0 {
		wait = DefaultReloadWait
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Reloader{store: store, debouncer: NewDebouncer(wait), timeout: timeout}
}

// Refresh は再読み込みを予約する。保留中の予約は置き換えられる。
func (r *Reloader) Refresh() {
	r.debouncer.Schedule(func(uint64) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.reload(ctx)
	})
}

// reload は取得元から再取得する。一時的な失敗では現在のカタログを維持する。
// 有効なレコードが0件になった場合と、合成データ配信中の場合のみLoadで合成データを再生成する。
func (r *Reloader) reload(ctx context.Context) {
	err := r.store.Refresh(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, ErrEmptyCatalog) || r.store.Origin() == OriginSynthetic {
		r.store.Load(ctx)
		return
	}
	r.store.logger.Warn("カタログの再読み込みに失敗したため現在のカタログを維持します",
		slog.String("error", err.Error()),
	)
}

// Flush は保留中の再読み込みを待機せずに実行する。
func (r *Reloader) Flush() bool {
	return r.debouncer.Flush()
}

// Stop は保留中の再読み込みを取り消す。
func (r *Reloader) Stop() {
	r.debouncer.Cancel()
}
