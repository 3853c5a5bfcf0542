package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/portalx/internal/access"
	"github.com/hitoshi/portalx/internal/analytics"
	"github.com/hitoshi/portalx/internal/auth"
	"github.com/hitoshi/portalx/internal/catalog"
	"github.com/hitoshi/portalx/internal/channel"
	"github.com/hitoshi/portalx/internal/config"
	"github.com/hitoshi/portalx/internal/handler"
	"github.com/hitoshi/portalx/internal/metrics"
	"github.com/hitoshi/portalx/internal/middleware"
	"github.com/hitoshi/portalx/internal/repository"
	"github.com/hitoshi/portalx/internal/security"
	"github.com/hitoshi/portalx/internal/storage"
	"github.com/hitoshi/portalx/internal/user"
	"github.com/hitoshi/portalx/internal/worker/refresh"
)

const (
	uploadsPath            = "/uploads"
	rateLimitCleanup       = 5 * time.Minute
	visitorCleanupInterval = 5 * time.Minute
)

// server はserveモードで組み立てた依存関係を保持する。
type server struct {
	handler    http.Handler
	store      *catalog.Store
	reloader   *catalog.Reloader
	dispatcher *analytics.Dispatcher
	registry   *access.Registry
	limiter    *middleware.RateLimiter
}

// close はバックグラウンド処理を停止し、未配送の分析イベントを送り切る。
func (s *server) close() {
	s.reloader.Stop()
	s.registry.Stop()
	s.limiter.Stop()
	s.dispatcher.Close()
	s.dispatcher.Wait()
}

// buildServer はリポジトリ、ドメインサービス、カタログ、分析配送をワイヤリングしてルーターを構築する。
// ctxはバックグラウンド処理（分析イベント配送）の寿命になる。
func buildServer(ctx context.Context, cfg *config.Config, db *sql.DB, logger *slog.Logger) (*server, error) {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	channelRepo := repository.NewPostgresChannelRepo(db)
	analyticsRepo := repository.NewPostgresAnalyticsRepo(db)

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 3. 認証
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    cfg.Auth.JWTTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}
	authService := auth.NewService(userRepo, tokens, auth.ServiceConfig{
		AutoApprove: cfg.Auth.AutoApproveUsers,
	}, logger)
	if err := authService.SeedAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}

	// 4. カタログ
	store := catalog.NewStore(newCatalogSource(cfg.Catalog, channelRepo, logger), cfg.Catalog.Seed, collector, logger)
	reloader := catalog.NewReloader(store, cfg.Catalog.ReloadWait, cfg.Catalog.FetchTimeout)
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Catalog.FetchTimeout)
	store.Load(loadCtx)
	cancel()
	if cfg.Catalog.Source != config.CatalogSourceSynthetic && cfg.Catalog.RefreshInterval > 0 {
		go refresh.NewScheduler(store, cfg.Catalog.FetchTimeout, logger).Start(ctx, cfg.Catalog.RefreshInterval)
	}

	// 5. 画像ストレージとドメインサービス
	images, uploadsDir, err := newImageStore(ctx, cfg.Storage, cfg.Server.BaseURL)
	if err != nil {
		return nil, err
	}
	userService := user.NewService(userRepo, reloader, logger)
	channelService := channel.NewService(channelRepo, userRepo, images, security.NewTextSanitizer(), reloader, logger)

	// 6. 分析イベント配送
	sink := analytics.MultiSink{analytics.NewRepositorySink(analyticsRepo)}
	if cfg.Analytics.LogEvents {
		sink = append(sink, analytics.NewLogSink(logger))
	}
	dispatcher := analytics.NewDispatcher(cfg.Analytics.Buffer, sink, collector, logger)
	go dispatcher.Run(ctx)

	// 7. 訪問者ごとの詳細・アクセス制御
	controllers := access.NewRegistry(access.RegistryConfig{
		IdleTTL:         cfg.Catalog.VisitorTTL,
		CleanupInterval: visitorCleanupInterval,
	}, store, access.RedirectNavigator{}, dispatcher, collector, logger)

	limiter := middleware.NewRateLimiter(newRateLimiterConfig(cfg.RateLimit))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:              logger,
		HTTPRecorder:        collector,
		CORSAllowedOrigin:   cfg.Server.CORSAllowedOrigin,
		SecureCookies:       cfg.CookieSecure,
		RateLimiter:         limiter,
		Authenticator:       authService,
		AuthService:         authService,
		UserService:         userService,
		ChannelService:      channelService,
		ChannelConfig:       handler.ChannelHandlerConfig{MaxImageSize: cfg.Storage.MaxSize},
		AdminUserService:    userService,
		AdminChannelService: channelService,
		Analytics:           analyticsRepo,
		Catalog:             store,
		Controllers:         controllers,
		CatalogConfig:       handler.CatalogHandlerConfig{PerPage: cfg.Catalog.PerPage},
		Tracker:             dispatcher,
		DB:                  db,
		Version:             cfg.Server.Version,
		MetricsHandler:      metrics.Handler(registry),
		UploadsDir:          uploadsDir,
	})

	return &server{
		handler:    router,
		store:      store,
		reloader:   reloader,
		dispatcher: dispatcher,
		registry:   controllers,
		limiter:    limiter,
	}, nil
}

// newCatalogSource は設定に応じたカタログデータの取得元を返す。
// syntheticの場合はnilを返し、Storeは常に合成データを生成する。
func newCatalogSource(cfg config.CatalogConfig, channels catalog.ActiveChannelLister, logger *slog.Logger) catalog.Source {
	switch cfg.Source {
	case config.CatalogSourceHTTP:
		guard := security.NewSSRFGuard(cfg.AllowedHosts...)
		return catalog.NewHTTPSource(cfg.DataURL, guard, cfg.FetchTimeout, cfg.MaxSize, logger)
	case config.CatalogSourceChannels:
		return catalog.NewChannelSource(channels, cfg.NewWindow)
	default:
		return nil
	}
}

// newImageStore は設定に応じた画像ストレージを返す。
// ローカル保存の場合は/uploadsで配信するディレクトリも返す。
func newImageStore(ctx context.Context, cfg config.StorageConfig, baseURL string) (storage.ImageStore, string, error) {
	switch cfg.Backend {
	case config.StorageMinio:
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to object storage: %w", err)
		}
		return store, "", nil
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir, strings.TrimRight(baseURL, "/")+uploadsPath)
		if err != nil {
			return nil, "", err
		}
		return store, store.Dir(), nil
	}
}

// newRateLimiterConfig は「Window内にN回」の設定をトークンバケットに換算する。
func newRateLimiterConfig(cfg config.RateLimitConfig) middleware.RateLimiterConfig {
	return middleware.RateLimiterConfig{
		GeneralRate:     middleware.PerWindow(cfg.General, cfg.Window),
		GeneralBurst:    cfg.General,
		AuthRate:        middleware.PerWindow(cfg.Auth, cfg.Window),
		AuthBurst:       cfg.Auth,
		CleanupInterval: rateLimitCleanup,
	}
}
