// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/portalx/internal/model"
	"github.com/hitoshi/portalx/internal/repository"
)

// CatalogRefresher は公開チャンネルが変化したことをカタログに通知する。
type CatalogRefresher interface {
	Refresh()
}

// Service はユーザー管理のサービス層。
// 承認状態の参照、管理者によるモデレーション、退会処理を提供する。
type Service struct {
	users     repository.UserRepository
	refresher CatalogRefresher
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。refresherはnilでもよい。
func NewService(users repository.UserRepository, refresher CatalogRefresher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, refresher: refresher, logger: logger}
}

// Get は指定ユーザーを返す。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Status はユーザーの承認状態を返す。
func (s *Service) Status(ctx context.Context, userID int64) (model.UserStatus, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Approve はユーザーを承認する。
func (s *Service) Approve(ctx context.Context, adminID, userID int64) error {
	return s.setStatus(ctx, adminID, userID, model.UserStatusApproved)
}

// Reject はユーザーを拒否する。拒否されたユーザーはログインできなくなる。
func (s *Service) Reject(ctx context.Context, adminID, userID int64) error {
	return s.setStatus(ctx, adminID, userID, model.UserStatusRejected)
}

// setStatus は承認状態を変更する。管理者アカウントの状態は変更できない。
func (s *Service) setStatus(ctx context.Context, adminID, userID int64, status model.UserStatus) error {
	target, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsAdmin() {
		return model.NewForbiddenError()
	}

	if err := s.users.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザー状態の更新に失敗しました: %w", err)
	}

	s.logger.InfoContext(ctx, "ユーザーの承認状態を変更しました",
		slog.Int64("admin_id", adminID),
		slog.Int64("user_id", userID),
		slog.String("from", string(target.Status)),
		slog.String("to", string(status)),
	)
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// 所有チャンネルはCASCADE削除されるため、削除後にカタログを再読み込みさせる。
func (s *Service) Withdraw(ctx context.Context, userID int64) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return model.NewForbiddenError()
	}

	if err := s.users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	s.logger.InfoContext(ctx, "退会処理が完了しました", slog.Int64("user_id", userID))
	if s.refresher != nil {
		s.refresher.Refresh()
	}
	return nil
}
