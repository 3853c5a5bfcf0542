package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portalx/internal/analytics"
	"github.com/hitoshi/portalx/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HTTPRecorder      middleware.HTTPRecorder
	CORSAllowedOrigin string
	SecureCookies     bool
	RateLimiter       *middleware.RateLimiter
	Authenticator     middleware.TokenAuthenticator

	// 認証・ユーザー
	AuthService AuthServiceInterface
	UserService UserServiceInterface

	// チャンネル
	ChannelService ChannelServiceInterface
	ChannelConfig  ChannelHandlerConfig

	// 管理者
	AdminUserService    AdminUserServiceInterface
	AdminChannelService AdminChannelServiceInterface
	Analytics           AnalyticsSummarizer

	// カタログ
	Catalog       CatalogReader
	Controllers   ControllerProvider
	CatalogConfig CatalogHandlerConfig
	Tracker       analytics.Tracker

	// その他
	DB             Pinger
	Version        string
	MetricsHandler http.Handler
	// UploadsDir が空でない場合、/uploads/* でアップロード画像を配信する。
	UploadsDir string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → Visitor
//	/api 以下: OptionalAuth → RateLimit(General)
//
// 認証系エンドポイントには更に厳しいRateLimit(Auth)を重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewVisitorMiddleware(deps.SecureCookies))

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	channelHandler := NewChannelHandler(deps.ChannelService, deps.ChannelConfig)
	adminHandler := NewAdminHandler(deps.AdminUserService, deps.AdminChannelService, deps.Analytics)
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.Controllers, deps.CatalogConfig)
	siteHandler := NewSiteHandler(deps.Tracker, deps.DB, deps.Version, deps.SecureCookies)

	requireAuth := middleware.NewAuthMiddleware(deps.Authenticator)
	authLimit := deps.RateLimiter.AuthMiddleware()

	// --- 認証不要のルート ---
	r.Get("/health", siteHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewOptionalAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/health", siteHandler.Health)

		// 年齢確認
		r.Post("/age/verify", siteHandler.VerifyAge)
		r.Delete("/age/verify", siteHandler.ResetAge)

		// 分析ビーコン
		r.Post("/analytics", siteHandler.Beacon)

		// カタログ（年齢確認済みのみ）
		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.NewAgeGateMiddleware())

			r.Get("/", catalogHandler.List)
			r.Get("/categories", catalogHandler.Categories)
			r.Get("/search", catalogHandler.Search)
			r.Post("/listings/{id}/show", catalogHandler.Show)
			r.Post("/close", catalogHandler.Close)
			r.Post("/access", catalogHandler.Access)
			r.Get("/selection", catalogHandler.Selection)
		})

		// 登録・ログイン
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// チャンネル
		r.Route("/channels", func(r chi.Router) {
			r.Get("/all", channelHandler.ListAll)
			r.Get("/category/{category}", channelHandler.ListByCategory)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/user", channelHandler.ListMine)
				r.Post("/", channelHandler.Create)
				r.Put("/{id}", channelHandler.Update)
				r.Delete("/{id}", channelHandler.Delete)
			})
		})

		// ユーザー
		r.Route("/user", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/status", userHandler.Status)
			r.Delete("/me", userHandler.Withdraw)
		})

		// 管理者
		r.Route("/admin", func(r chi.Router) {
			r.With(authLimit).Post("/login", authHandler.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(middleware.NewAdminOnlyMiddleware())

				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users/{id}/approve", adminHandler.ApproveUser)
				r.Post("/users/{id}/reject", adminHandler.RejectUser)
				r.Get("/channels", adminHandler.ListChannels)
				r.Post("/channels/{id}/approve", adminHandler.ApproveChannel)
				r.Post("/channels/{id}/reject", adminHandler.RejectChannel)
				r.Get("/analytics", adminHandler.AnalyticsSummary)
			})
		})
	})

	return r
}
