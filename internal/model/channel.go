// Package model はドメインモデルを定義する。
package model

import "time"

// Channel はユーザーが投稿したグループ/チャンネルを表す。
// 承認済み（active）のチャンネルはカタログのListingとして公開される。
type Channel struct {
	ID           int64
	OwnerID      int64
	Name         string
	TelegramLink string
	WhatsAppLink string
	Category     Category
	State        string
	City         string
	Description  string
	ImageURL     string
	Views        int64
	Status       ChannelStatus
	CreatedAt    time.Time
}

// ChannelStatus はチャンネルの公開状態を表す。
type ChannelStatus string

const (
	// ChannelStatusActive は公開中。
	ChannelStatusActive ChannelStatus = "active"
	// ChannelStatusPending は管理者の確認待ち。
	ChannelStatusPending ChannelStatus = "pending"
	// ChannelStatusRejected は管理者により非公開にされた状態。
	ChannelStatusRejected ChannelStatus = "rejected"
)

// Valid はチャンネル状態が既知かを返す。
func (s ChannelStatus) Valid() bool {
	switch s {
	case ChannelStatusActive, ChannelStatusPending, ChannelStatusRejected:
		return true
	}
	return false
}

// Link はチャンネルの外部遷移先を返す。Telegramを優先する。
func (c *Channel) Link() string {
	if c.TelegramLink != "" {
		return c.TelegramLink
	}
	return c.WhatsAppLink
}

// ToListing はチャンネルをカタログ用のListingに変換する。
// 作成からnewWindow以内のチャンネルは新着として扱う。
func (c *Channel) ToListing(now time.Time, newWindow time.Duration) Listing {
	return Listing{
		ID:       c.ID,
		Name:     c.Name,
		Category: c.Category,
		State:    c.State,
		City:     c.City,
		Views:    c.Views,
		Image:    c.ImageURL,
		Link:     c.Link(),
		IsNew:    now.Sub(c.CreatedAt) < newWindow,
	}
}

// ChannelInput はチャンネル作成/更新時の入力値。
// 更新時はnilのフィールドを変更しない。
type ChannelInput struct {
	Name         *string
	TelegramLink *string
	WhatsAppLink *string
	Category     *string
	State        *string
	City         *string
	Description  *string
}
