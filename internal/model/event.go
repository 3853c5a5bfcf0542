// Package model はドメインモデルを定義する。
package model

import "time"

// 分析イベント名。
const (
	EventPageView    = "page_view"
	EventCardClick   = "card_click"
	EventGroupAccess = "group_access"
	EventClick       = "click"
	EventScrollDepth = "scroll_depth"
	EventTimeOnPage  = "time_on_page"
)

// Event は分析シンクに送られる1件のイベント。
// 配送は fire-and-forget であり、失敗してもカタログ状態には影響しない。
type Event struct {
	ID         string
	Name       string
	VisitorID  string
	SessionID  string
	URL        string
	Referrer   string
	ListingID  int64
	Category   Category
	IsPremium  bool
	Properties map[string]any
	OccurredAt time.Time
}
