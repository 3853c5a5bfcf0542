package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// カタログデータの取得元。
const (
	CatalogSourceChannels  = "channels"
	CatalogSourceHTTP      = "http"
	CatalogSourceSynthetic = "synthetic"
)

// 画像ストレージのバックエンド。
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Analytics AnalyticsConfig

	// CookieSecure はBaseURLがhttpsの場合にtrueになる。
	CookieSecure bool
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	Port              string        `env:"SERVER_PORT" env-default:"8080"`
	BaseURL           string        `env:"BASE_URL" env-default:"http://localhost:8080"`
	CORSAllowedOrigin string        `env:"CORS_ALLOWED_ORIGIN" env-default:"http://localhost:3000"`
	LogLevel          string        `env:"LOG_LEVEL" env-default:"info"`
	Version           string        `env:"APP_VERSION" env-default:"dev"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig はPostgreSQL接続の設定。
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" env-required:"true"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"30m"`
	// AutoMigrate がtrueの場合、serve起動時に未適用のマイグレーションを適用する。
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// AuthConfig はトークン発行とアカウント管理の設定。
type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET" env-required:"true"`
	JWTTTL           time.Duration `env:"JWT_TTL" env-default:"24h"`
	JWTIssuer        string        `env:"JWT_ISSUER" env-default:"portalx"`
	AutoApproveUsers bool          `env:"AUTO_APPROVE_USERS" env-default:"false"`
	AdminName        string        `env:"ADMIN_NAME" env-default:"Administrador"`
	AdminEmail       string        `env:"ADMIN_EMAIL"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
}

// CatalogConfig はカタログの読み込みと表示の設定。
type CatalogConfig struct {
	Source          string        `env:"CATALOG_SOURCE" env-default:"channels"`
	DataURL         string        `env:"CATALOG_DATA_URL"`
	AllowedHosts    []string      `env:"CATALOG_ALLOWED_HOSTS" env-separator:","`
	FetchTimeout    time.Duration `env:"CATALOG_FETCH_TIMEOUT" env-default:"10s"`
	MaxSize         int64         `env:"CATALOG_MAX_SIZE" env-default:"5242880"`
	Seed            uint64        `env:"CATALOG_SEED" env-default:"0"`
	PerPage         int           `env:"CATALOG_PER_PAGE" env-default:"12"`
	ReloadWait      time.Duration `env:"CATALOG_RELOAD_WAIT" env-default:"2s"`
	// RefreshInterval は取得元からの定期再取得の間隔。0で無効。
	RefreshInterval time.Duration `env:"CATALOG_REFRESH_INTERVAL" env-default:"15m"`
	NewWindow       time.Duration `env:"CATALOG_NEW_WINDOW" env-default:"168h"`
	VisitorTTL      time.Duration `env:"CATALOG_VISITOR_TTL" env-default:"30m"`
}

// RateLimitConfig はレート制限の設定。Windowあたりのリクエスト数で指定する。
type RateLimitConfig struct {
	General int           `env:"RATE_LIMIT_GENERAL" env-default:"100"`
	Auth    int           `env:"RATE_LIMIT_AUTH" env-default:"5"`
	Window  time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"15m"`
}

// StorageConfig はチャンネル画像の保存先の設定。
type StorageConfig struct {
	Backend     string `env:"STORAGE_BACKEND" env-default:"local"`
	UploadDir   string `env:"UPLOAD_DIR" env-default:"./uploads"`
	MaxSize     int64  `env:"UPLOAD_MAX_SIZE" env-default:"5242880"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" env-default:"portalx"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

// AnalyticsConfig は分析イベントの配送と保持の設定。
type AnalyticsConfig struct {
	Buffer          int           `env:"ANALYTICS_BUFFER" env-default:"1024"`
	RetentionDays   int           `env:"ANALYTICS_RETENTION_DAYS" env-default:"90"`
	CleanupInterval time.Duration `env:"ANALYTICS_CLEANUP_INTERVAL" env-default:"24h"`
	LogEvents       bool          `env:"ANALYTICS_LOG_EVENTS" env-default:"false"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や値の組み合わせが不正な場合はエラーを返す。
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.Server.BaseURL, "https://")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Catalog.Source {
	case CatalogSourceChannels, CatalogSourceSynthetic:
	case CatalogSourceHTTP:
		if c.Catalog.DataURL == "" {
			return fmt.Errorf("CATALOG_DATA_URL is required when CATALOG_SOURCE=%s", CatalogSourceHTTP)
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE: %q", c.Catalog.Source)
	}

	switch c.Storage.Backend {
	case StorageLocal:
	case StorageMinio:
		var missing []string
		if c.Storage.S3Endpoint == "" {
			missing = append(missing, "S3_ENDPOINT")
		}
		if c.Storage.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if c.Storage.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("required environment variables are not set: %v", missing)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %q", c.Storage.Backend)
	}

	if c.RateLimit.General <= 0 || c.RateLimit.Auth <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.Catalog.RefreshInterval < 0 {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must not be negative")
	}
	if c.Catalog.PerPage <= 0 {
		return fmt.Errorf("CATALOG_PER_PAGE must be positive")
	}
	return nil
}
