// Package access はグループ詳細表示とアクセス確認の状態遷移を提供する。
//
// Controller は Idle と Selected(listing) の2状態を持ち、
// Show / Close / ConfirmAccess の遷移はいずれも失敗しない。
package access

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/portalx/internal/analytics"
	"github.com/hitoshi/portalx/internal/model"
)

// ViewCounter はListingの閲覧数加算インターフェース。
// catalog.Storeの部分集合として定義する。
type ViewCounter interface {
	IncrementViews(id int64, delta int64) (int64, bool)
}

// Navigator は外部リンクへの遷移を行う。
type Navigator interface {
	Open(ctx context.Context, link string) error
}

// Recorder はアクセス操作のメトリクス記録インターフェース。
type Recorder interface {
	RecordListingShown(found bool)
	RecordAccessConfirmed(category string, premium bool)
}

// State はControllerの状態。
type State int

const (
	// Idle は何も選択されていない状態。
	Idle State = iota
	// Selected はListingが選択されている状態。
	Selected
)

func (s State) String() string {
	if s == Selected {
		return "selected"
	}
	return "idle"
}

// Controller は現在選択中のListingを1件だけ保持する。
// Listingの閲覧数を変更するのはこのControllerのみ。
type Controller struct {
	visitorID string
	views     ViewCounter
	navigator Navigator
	tracker   analytics.Tracker
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *model.Listing
}

// NewController はControllerの新しいインスタンスを生成する。
// recorderはnilでもよい。
func NewController(visitorID string, views ViewCounter, navigator Navigator, tracker analytics.Tracker, recorder Recorder, logger *slog.Logger) *Controller {
	return &Controller{
		visitorID: visitorID,
		views:     views,
		navigator: navigator,
		tracker:   tracker,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Show はlistingを選択状態にし、閲覧数を1加算する。
// 同じListingを再度表示した場合も加算する。別のListingを選択中なら置き換える。
// Storeに存在しないListingでも選択は行い、加算のみ行わない。
func (c *Controller) Show(listing model.Listing) model.Listing {
	c.mu.Lock()
	defer c.mu.Unlock()

	views, found := c.views.IncrementViews(listing.ID, 1)
	if found {
		listing.Views = views
	}
	if c.recorder != nil {
		c.recorder.RecordListingShown(found)
	}
	c.current = &listing
	return listing
}

// Close は選択を解除する。
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// ConfirmAccess は選択中のListingへのアクセスを確定する。
// 分析イベントの送信、外部リンクへの遷移、選択解除の順に行う。
// Idleの場合は何もせずfalseを返す。
func (c *Controller) ConfirmAccess(ctx context.Context) (model.Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return model.Listing{}, false
	}
	listing := *c.current

	c.tracker.Track(ctx, model.Event{
		Name:       model.EventGroupAccess,
		VisitorID:  c.visitorID,
		ListingID:  listing.ID,
		Category:   listing.Category,
		IsPremium:  listing.IsPremium,
		URL:        listing.Link,
		OccurredAt: c.now(),
	})

	if err := c.navigator.Open(ctx, listing.Link); err != nil {
		c.logger.Warn("外部リンクへの遷移に失敗しました",
			slog.String("visitor_id", c.visitorID),
			slog.Int64("listing_id", listing.ID),
			slog.String("error", err.Error()),
		)
	}

	if c.recorder != nil {
		c.recorder.RecordAccessConfirmed(string(listing.Category), listing.IsPremium)
	}
	c.current = nil
	return listing, true
}

// Current は選択中のListingを返す。
func (c *Controller) Current() (model.Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return model.Listing{}, false
	}
	return *c.current, true
}

// State は現在の状態を返す。
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Idle
	}
	return Selected
}

// VisitorID はこのControllerを所有する訪問者IDを返す。
func (c *Controller) VisitorID() string {
	return c.visitorID
}
