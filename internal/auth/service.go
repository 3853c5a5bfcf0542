// Package auth はメールアドレスとパスワードによる登録・ログインとベアラートークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/portalx/internal/model"
	"github.com/hitoshi/portalx/internal/repository"
)

const (
	DefaultMinPasswordLen = 6
	DefaultMinNameLen     = 2
	maxPasswordBytes      = 72
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	MinPasswordLen int
	MinNameLen     int
	BcryptCost     int
	// AutoApprove がtrueの場合、登録直後のユーザーを承認済みにする。
	AutoApprove bool
}

// RegisterInput は登録リクエストの入力値。
// PasswordConfirmationが空の場合は確認を行わない。
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Result はログイン成功時に返すトークンとユーザー。
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	users  repository.UserRepository
	tokens *TokenIssuer
	config ServiceConfig
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, tokens *TokenIssuer, config ServiceConfig, logger *slog.Logger) *Service {
	if config.MinPasswordLen <= 0 {
		config.MinPasswordLen = DefaultMinPasswordLen
	}
	if config.MinNameLen <= 0 {
		config.MinNameLen = DefaultMinNameLen
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, config: config, logger: logger}
}

// Register は入力を検証してユーザーを作成し、トークンを発行する。
// 入力が不正な場合はリポジトリを呼び出さずにAPIErrorを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)

	var missing []string
	if name == "" {
		missing = append(missing, "name")
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}

	if utf8.RuneCountInString(name) < s.config.MinNameLen {
		return nil, model.NewInvalidNameError(s.config.MinNameLen)
	}
	normEmail, err := NormalizeEmail(email)
	if err != nil {
		return nil, model.NewInvalidEmailError()
	}
	if utf8.RuneCountInString(in.Password) < s.config.MinPasswordLen || len(in.Password) > maxPasswordBytes {
		return nil, model.NewWeakPasswordError(s.config.MinPasswordLen)
	}
	if in.PasswordConfirmation != "" && in.PasswordConfirmation != in.Password {
		return nil, model.NewPasswordMismatchError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	status := model.UserStatusPending
	if s.config.AutoApprove {
		status = model.UserStatusApproved
	}
	user := &model.User{
		Name:         name,
		Email:        normEmail,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Status:       status,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("status", string(user.Status)),
	)
	return s.issue(user)
}

// Login は一般ユーザーとしてログインする。拒否されたユーザーはログインできない。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if user.Status == model.UserStatusRejected {
		s.logger.WarnContext(ctx, "rejected user login attempt", slog.Int64("user_id", user.ID))
		return nil, model.NewUserRejectedError()
	}
	return s.issue(user)
}

// AdminLogin は管理者としてログインする。管理者以外は資格情報が正しくても拒否する。
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsAdmin() {
		return nil, model.NewAdminDeniedError()
	}
	return s.issue(user)
}

// Authenticate はベアラートークンを検証して認証情報を返す。
func (s *Service) Authenticate(token string) (*model.Claims, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, model.NewInvalidTokenError()
	}
	return claims, nil
}

// SeedAdmin は管理者アカウントが存在しない場合に作成する。
// emailまたはpasswordが空の場合は何もしない。
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	normEmail, err := NormalizeEmail(email)
	if err != nil {
		return fmt.Errorf("invalid admin email: %w", err)
	}
	if name == "" {
		name = "Admin"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	created, err := s.users.EnsureAdmin(ctx, &model.User{
		Name:         name,
		Email:        normEmail,
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}
	if created {
		s.logger.InfoContext(ctx, "admin user created", slog.String("email", normEmail))
	}
	return nil
}

// authenticate はメールアドレスとパスワードを照合する。
// 一致しない場合は(nil, nil)を返す。
func (s *Service) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.NewMissingFieldsError("email", "password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return user, nil
}

func (s *Service) issue(user *model.User) (*Result, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// NormalizeEmail はメールアドレスの形式を検証し、小文字化して返す。
// 表示名付きの形式（"Nome <a@b.com>"）は受け付けない。
func NormalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", err
	}
	if addr.Address != email || addr.Name != "" {
		return "", errors.New("display names are not allowed")
	}
	at := strings.LastIndexByte(email, '@')
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return "", errors.New("domain must contain a dot")
	}
	return strings.ToLower(email), nil
}
