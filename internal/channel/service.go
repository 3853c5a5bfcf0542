// Package channel はユーザーが投稿するチャンネルの登録・編集・削除と管理者による公開状態の変更を提供する。
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/portalx/internal/model"
	"github.com/hitoshi/portalx/internal/repository"
	"github.com/hitoshi/portalx/internal/security"
	"github.com/hitoshi/portalx/internal/storage"
)

// 入力項目の最大文字数。
const (
	MinNameLen        = 3
	MaxNameLen        = 100
	MaxCityLen        = 100
	MaxDescriptionLen = 1000
)

// CatalogRefresher は公開チャンネルが変化したことをカタログに通知する。
type CatalogRefresher interface {
	Refresh()
}

// Service はチャンネル管理のビジネスロジックを提供する。
type Service struct {
	channels  repository.ChannelRepository
	users     repository.UserRepository
	images    storage.ImageStore
	sanitizer security.TextSanitizer
	refresher CatalogRefresher
	logger    *slog.Logger
}

// NewService はServiceを生成する。imagesとrefresherはnilでもよい。
// imagesがnilの場合、画像付きの投稿はINVALID_IMAGEになる。
func NewService(
	channels repository.ChannelRepository,
	users repository.UserRepository,
	images storage.ImageStore,
	sanitizer security.TextSanitizer,
	refresher CatalogRefresher,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		channels:  channels,
		users:     users,
		images:    images,
		sanitizer: sanitizer,
		refresher: refresher,
		logger:    logger,
	}
}

// Create はチャンネルを登録する。
// 承認済みユーザーと管理者のチャンネルは即時公開され、承認待ちユーザーのものは確認待ちになる。
func (s *Service) Create(ctx context.Context, claims *model.Claims, in model.ChannelInput, image *storage.Image) (*model.Channel, error) {
	owner, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("所有者の取得に失敗しました: %w", err)
	}
	if owner == nil {
		return nil, model.NewUserNotFoundError()
	}
	if owner.Status == model.UserStatusRejected {
		return nil, model.NewUserRejectedError()
	}

	ch := &model.Channel{OwnerID: owner.ID}
	if err := s.apply(ch, in, true); err != nil {
		return nil, err
	}

	ch.Status = model.ChannelStatusPending
	if owner.IsAdmin() || owner.Status == model.UserStatusApproved {
		ch.Status = model.ChannelStatusActive
	}

	if image != nil {
		url, err := s.putImage(ctx, image)
		if err != nil {
			return nil, err
		}
		ch.ImageURL = url
	}

	if err := s.channels.Create(ctx, ch); err != nil {
		s.discardImage(ctx, ch.ImageURL)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewInvalidLinkError("Este link do Telegram já está cadastrado")
		}
		return nil, fmt.Errorf("チャンネルの作成に失敗しました: %w", err)
	}

	s.logger.InfoContext(ctx, "チャンネルを作成しました",
		slog.Int64("channel_id", ch.ID),
		slog.Int64("owner_id", ch.OwnerID),
		slog.String("status", string(ch.Status)),
	)
	s.refreshIf(ch.Status == model.ChannelStatusActive)
	return ch, nil
}

// Update はチャンネルを編集する。nilの項目は変更しない。
// 他のユーザーのチャンネルは存在しないものとして扱う。
func (s *Service) Update(ctx context.Context, claims *model.Claims, id int64, in model.ChannelInput, image *storage.Image) (*model.Channel, error) {
	ch, err := s.owned(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	if err := s.apply(ch, in, false); err != nil {
		return nil, err
	}

	oldImage := ch.ImageURL
	if image != nil {
		url, err := s.putImage(ctx, image)
		if err != nil {
			return nil, err
		}
		ch.ImageURL = url
	}

	if err := s.channels.Update(ctx, ch); err != nil {
		if image != nil {
			s.discardImage(ctx, ch.ImageURL)
		}
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewChannelNotFoundError(id)
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewInvalidLinkError("Este link do Telegram já está cadastrado")
		}
		return nil, fmt.Errorf("チャンネルの更新に失敗しました: %w", err)
	}
	if image != nil {
		s.discardImage(ctx, oldImage)
	}

	s.logger.InfoContext(ctx, "チャンネルを更新しました", slog.Int64("channel_id", ch.ID))
	s.refreshIf(ch.Status == model.ChannelStatusActive)
	return ch, nil
}

// Delete はチャンネルを削除する。他のユーザーのチャンネルは存在しないものとして扱う。
func (s *Service) Delete(ctx context.Context, claims *model.Claims, id int64) error {
	ch, err := s.owned(ctx, claims, id)
	if err != nil {
		return err
	}
	if err := s.channels.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewChannelNotFoundError(id)
		}
		return fmt.Errorf("チャンネルの削除に失敗しました: %w", err)
	}
	s.discardImage(ctx, ch.ImageURL)

	s.logger.InfoContext(ctx, "チャンネルを削除しました",
		slog.Int64("channel_id", id),
		slog.Int64("owner_id", ch.OwnerID),
	)
	s.refreshIf(ch.Status == model.ChannelStatusActive)
	return nil
}

// ListByOwner はユーザー自身のチャンネルを新しい順で返す。
func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Channel, error) {
	channels, err := s.channels.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("チャンネル一覧の取得に失敗しました: %w", err)
	}
	return channels, nil
}

// ListActive は公開中のチャンネルを閲覧数の多い順で返す。
func (s *Service) ListActive(ctx context.Context) ([]*model.Channel, error) {
	return s.ListByStatus(ctx, model.ChannelStatusActive)
}

// ListActiveByCategory は指定カテゴリの公開中チャンネルを閲覧数の多い順で返す。
func (s *Service) ListActiveByCategory(ctx context.Context, category string) ([]*model.Channel, error) {
	c := model.Category(strings.ToLower(strings.TrimSpace(category)))
	if !c.Valid() {
		return nil, model.NewInvalidCategoryError(category)
	}
	channels, err := s.channels.ListActiveByCategory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ別チャンネルの取得に失敗しました: %w", err)
	}
	return channels, nil
}

// ListByStatus は指定状態のチャンネルを返す。
func (s *Service) ListByStatus(ctx context.Context, status model.ChannelStatus) ([]*model.Channel, error) {
	if !status.Valid() {
		return nil, model.NewInvalidStatusError(string(status))
	}
	channels, err := s.channels.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("チャンネル一覧の取得に失敗しました: %w", err)
	}
	return channels, nil
}

// SetStatus は管理者がチャンネルの公開状態を変更する。
func (s *Service) SetStatus(ctx context.Context, adminID, id int64, status model.ChannelStatus) error {
	if !status.Valid() {
		return model.NewInvalidStatusError(string(status))
	}
	if err := s.channels.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewChannelNotFoundError(id)
		}
		return fmt.Errorf("チャンネル状態の更新に失敗しました: %w", err)
	}
	s.logger.InfoContext(ctx, "チャンネルの公開状態を変更しました",
		slog.Int64("admin_id", adminID),
		slog.Int64("channel_id", id),
		slog.String("status", string(status)),
	)
	s.refreshIf(true)
	return nil
}

// owned は所有者が一致するチャンネルを返す。一致しない場合はCHANNEL_NOT_FOUNDを返す。
func (s *Service) owned(ctx context.Context, claims *model.Claims, id int64) (*model.Channel, error) {
	ch, err := s.channels.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("チャンネルの取得に失敗しました: %w", err)
	}
	if ch == nil || ch.OwnerID != claims.UserID {
		return nil, model.NewChannelNotFoundError(id)
	}
	return ch, nil
}

// apply は入力を検証・正規化してchに反映する。
// creatingがtrueの場合は名前・カテゴリ・リンクの欠落を検出する。
// 検証はリポジトリ呼び出しの前に完了する。
func (s *Service) apply(ch *model.Channel, in model.ChannelInput, creating bool) error {
	if creating {
		var missing []string
		if blank(in.Name) {
			missing = append(missing, "name")
		}
		if blank(in.Category) {
			missing = append(missing, "category")
		}
		if blank(in.TelegramLink) && blank(in.WhatsAppLink) {
			missing = append(missing, "telegramLink")
		}
		if len(missing) > 0 {
			return model.NewMissingFieldsError(missing...)
		}
	}

	if in.Name != nil {
		name := s.sanitizer.Sanitize(*in.Name, MaxNameLen)
		if utf8.RuneCountInString(name) < MinNameLen {
			return model.NewInvalidNameError(MinNameLen)
		}
		ch.Name = name
	}
	if in.Category != nil {
		c := model.Category(strings.ToLower(strings.TrimSpace(*in.Category)))
		if !c.Valid() {
			return model.NewInvalidCategoryError(*in.Category)
		}
		ch.Category = c
	}
	if in.State != nil {
		state := strings.ToUpper(strings.TrimSpace(*in.State))
		if state != "" && !model.ValidState(state) {
			return model.NewInvalidStateError(*in.State)
		}
		ch.State = state
	}
	if in.City != nil {
		ch.City = s.sanitizer.Sanitize(*in.City, MaxCityLen)
	}
	if in.Description != nil {
		ch.Description = s.sanitizer.Sanitize(*in.Description, MaxDescriptionLen)
	}

	if in.TelegramLink != nil {
		link, err := normalizeOptionalLink(security.LinkTelegram, *in.TelegramLink)
		if err != nil {
			return model.NewInvalidLinkError("O link do Telegram deve ser https://t.me/...")
		}
		ch.TelegramLink = link
	}
	if in.WhatsAppLink != nil {
		link, err := normalizeOptionalLink(security.LinkWhatsApp, *in.WhatsAppLink)
		if err != nil {
			return model.NewInvalidLinkError("O link do WhatsApp deve ser https://chat.whatsapp.com/...")
		}
		ch.WhatsAppLink = link
	}
	if ch.TelegramLink == "" && ch.WhatsAppLink == "" {
		return model.NewMissingFieldsError("telegramLink")
	}
	return nil
}

func (s *Service) putImage(ctx context.Context, image *storage.Image) (string, error) {
	if s.images == nil {
		return "", model.NewInvalidImageError("O envio de imagens está desativado")
	}
	url, err := s.images.Put(ctx, image)
	if err != nil {
		return "", fmt.Errorf("画像の保存に失敗しました: %w", err)
	}
	return url, nil
}

// discardImage は不要になった画像を削除する。失敗はログに記録するのみ。
func (s *Service) discardImage(ctx context.Context, url string) {
	if url == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "画像の削除に失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) refreshIf(changed bool) {
	if changed && s.refresher != nil {
		s.refresher.Refresh()
	}
}

func normalizeOptionalLink(kind security.LinkKind, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return security.NormalizeLink(kind, raw)
}

func blank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
