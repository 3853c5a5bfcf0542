package analytics

import (
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/portalx/internal/model"
)

// ビーコンで受け付けるイベントの制約。
const (
	maxProperties    = 20
	maxPropertyKey   = 64
	maxStringValue   = 512
	maxURLLength     = 2048
	maxSessionLength = 128
)

var knownEvents = map[string]bool{
	model.EventPageView:    true,
	model.EventCardClick:   true,
	model.EventGroupAccess: true,
	model.EventClick:       true,
	model.EventScrollDepth: true,
	model.EventTimeOnPage:  true,
}

// KnownEvent はイベント名が受け付け対象かを返す。
func KnownEvent(name string) bool {
	return knownEvents[name]
}

// Beacon はクライアントから送られる分析イベントのペイロード。
type Beacon struct {
	Event      string         `json:"event"`
	SessionID  string         `json:"sessionId"`
	URL        string         `json:"url"`
	Referrer   string         `json:"referrer"`
	ListingID  int64          `json:"groupId"`
	Category   string         `json:"category"`
	IsPremium  bool           `json:"isPremium"`
	Properties map[string]any `json:"properties"`
}

// ToEvent はビーコンを検証してイベントに変換する。
// 未知のイベント名はfalseを返す。長すぎる値は切り詰め、入れ子のプロパティは捨てる。
func (b Beacon) ToEvent(visitorID string) (model.Event, bool) {
	name := strings.TrimSpace(b.Event)
	if !KnownEvent(name) {
		return model.Event{}, false
	}

	e := model.Event{
		Name:      name,
		VisitorID: visitorID,
		SessionID: truncate(b.SessionID, maxSessionLength),
		URL:       truncate(b.URL, maxURLLength),
		Referrer:  truncate(b.Referrer, maxURLLength),
		ListingID: max(b.ListingID, 0),
		IsPremium: b.IsPremium,
	}
	if c := model.Category(strings.ToLower(b.Category)); c.Valid() {
		e.Category = c
	}

	if len(b.Properties) > 0 {
		e.Properties = make(map[string]any)
		for k, v := range b.Properties {
			if len(e.Properties) >= maxProperties {
				break
			}
			if k == "" || len(k) > maxPropertyKey {
				continue
			}
			switch val := v.(type) {
			case string:
				e.Properties[k] = truncate(val, maxStringValue)
			case float64, bool, nil:
				e.Properties[k] = val
			}
		}
	}
	return e, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
