// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

var (
	// ErrNotFound は更新・削除の対象行が存在しないことを示す。
	// 取得系メソッドは見つからない場合にエラーではなくnilを返す。
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate は一意制約に違反したことを示す。
	ErrDuplicate = errors.New("repository: duplicate")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// メールアドレスは大文字小文字を区別しない。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDと作成日時をuserに設定する。
	// メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// EnsureAdmin は同じメールアドレスのユーザーが存在しない場合のみ管理者を作成する。
	// 作成した場合はtrueを返す。
	EnsureAdmin(ctx context.Context, user *model.User) (bool, error)

	// List は全ユーザーを作成日時の新しい順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// UpdateStatus はユーザーの承認状態を更新する。対象が無い場合はErrNotFoundを返す。
	UpdateStatus(ctx context.Context, id int64, status model.UserStatus) error

	// DeleteByID は指定IDのユーザーを削除する。対象が無い場合はErrNotFoundを返す。
	// 所有するchannelsはCASCADE削除される。
	DeleteByID(ctx context.Context, id int64) error
}

// ChannelRepository はチャンネルデータの永続化インターフェース。
type ChannelRepository interface {
	// FindByID は指定IDのチャンネルを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Channel, error)

	// Create はチャンネルを作成し、採番されたIDと作成日時をchannelに設定する。
	// Telegramリンクが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, channel *model.Channel) error

	// Update はチャンネルの編集可能な項目を更新する。対象が無い場合はErrNotFoundを返す。
	Update(ctx context.Context, channel *model.Channel) error

	// Delete は指定IDのチャンネルを削除する。対象が無い場合はErrNotFoundを返す。
	Delete(ctx context.Context, id int64) error

	// ListByOwner は所有者のチャンネルを作成日時の新しい順で返す。
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Channel, error)

	// ListByStatus は指定状態のチャンネルを閲覧数の多い順で返す。
	ListByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error)

	// ListActiveByCategory は公開中のチャンネルのうち指定カテゴリのものを閲覧数の多い順で返す。
	ListActiveByCategory(ctx context.Context, category model.Category) ([]*model.Channel, error)

	// UpdateStatus はチャンネルの公開状態を更新する。対象が無い場合はErrNotFoundを返す。
	UpdateStatus(ctx context.Context, id int64, status model.ChannelStatus) error
}

// EventCount はイベント名ごとの件数。
type EventCount struct {
	Name  string
	Count int64
}

// AnalyticsRepository は分析イベントの永続化インターフェース。
type AnalyticsRepository interface {
	// Insert はイベントを1件保存する。
	Insert(ctx context.Context, event *model.Event) error

	// CountSince はsince以降のイベント件数をイベント名ごとに件数の多い順で返す。
	CountSince(ctx context.Context, since time.Time) ([]EventCount, error)

	// DeleteBefore はbeforeより前に発生したイベントを削除し、削除件数を返す。
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
