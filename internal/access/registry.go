package access

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/portalx/internal/analytics"
)

// RegistryConfig は訪問者ごとのController管理の設定。
type RegistryConfig struct {
	IdleTTL         time.Duration // 最終アクセスからこの時間を過ぎたControllerを破棄する
	CleanupInterval time.Duration
}

// DefaultRegistryConfig は既定の設定を返す。
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTTL:         30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

type visitorEntry struct {
	controller *Controller
	lastAccess time.Time
}

// Registry は訪問者IDごとにControllerを1つ保持する。
// バックグラウンドで一定時間アクセスの無いControllerを破棄する。
type Registry struct {
	config    RegistryConfig
	views     ViewCounter
	navigator Navigator
	tracker   analytics.Tracker
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitorEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRegistry はRegistryを生成し、クリーンアップを開始する。
func NewRegistry(config RegistryConfig, views ViewCounter, navigator Navigator, tracker analytics.Tracker, recorder Recorder, logger *slog.Logger) *Registry {
	r := &Registry{
		config:    config,
		views:     views,
		navigator: navigator,
		tracker:   tracker,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
		visitors:  make(map[string]*visitorEntry),
		stopCh:    make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go r.cleanupLoop()
	}

	return r
}

// Get は訪問者のControllerを取得する。存在しなければ作成する。
func (r *Registry) Get(visitorID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.visitors[visitorID]; ok {
		e.lastAccess = r.now()
		return e.controller
	}

	c := NewController(visitorID, r.views, r.navigator, r.tracker, r.recorder, r.logger)
	r.visitors[visitorID] = &visitorEntry{controller: c, lastAccess: r.now()}
	return c
}

// Len は保持しているController数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Stop はクリーンアップを停止する。複数回呼んでもよい。
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからIdleTTLを過ぎたControllerを削除する。
func (r *Registry) cleanup() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.visitors {
		if now.Sub(e.lastAccess) > r.config.IdleTTL {
			delete(r.visitors, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("アイドル状態の訪問者を破棄しました",
			slog.Int("removed", removed),
			slog.Int("remaining", len(r.visitors)),
		)
	}
	return removed
}
