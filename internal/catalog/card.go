package catalog

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/portalx/internal/model"
)

// hotViewsThreshold を超えるviewsのカードには hot バッジを付ける。
const hotViewsThreshold = 5000

// カードのバッジ。
const (
	BadgeNew     = "new"
	BadgePremium = "premium"
	BadgeHot     = "hot"
)

// Card はカード表示用のビューモデル。
type Card struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	CategoryLabel  string   `json:"categoryLabel"`
	State          string   `json:"state"`
	City           string   `json:"city"`
	Location       string   `json:"location"`
	Views          int64    `json:"views"`
	ViewsShort     string   `json:"viewsShort"`
	ViewsFormatted string   `json:"viewsFormatted"`
	Image          string   `json:"image"`
	IsNew          bool     `json:"isNew"`
	IsPremium      bool     `json:"isPremium"`
	Badges         []string `json:"badges"`
}

// NewCard はListingからカードを生成する。リンクは含めない（アクセス確認後にのみ渡す）。
func NewCard(l model.Listing) Card {
	badges := []string{}
	if l.IsNew {
		badges = append(badges, BadgeNew)
	}
	if l.IsPremium {
		badges = append(badges, BadgePremium)
	}
	if l.Views > hotViewsThreshold {
		badges = append(badges, BadgeHot)
	}

	location := l.City
	if l.State != "" {
		location = fmt.Sprintf("%s - %s", l.City, l.State)
	}

	return Card{
		ID:             l.ID,
		Name:           l.Name,
		Category:       string(l.Category),
		CategoryLabel:  l.Category.Label(),
		State:          l.State,
		City:           l.City,
		Location:       location,
		Views:          l.Views,
		ViewsShort:     FormatViews(l.Views),
		ViewsFormatted: FormatNumber(l.Views),
		Image:          l.Image,
		IsNew:          l.IsNew,
		IsPremium:      l.IsPremium,
		Badges:         badges,
	}
}

// NewCards はListingのスライスをカードに変換する。
func NewCards(listings []model.Listing) []Card {
	cards := make([]Card, len(listings))
	for i, l := range listings {
		cards[i] = NewCard(l)
	}
	return cards
}

// FormatViews はviewsを短縮表記にする（1.2M, 3.4K, 999）。
func FormatViews(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatNumber はブラジルポルトガル語の桁区切りで整数を整形する（12.345）。
func FormatNumber(n int64) string {
	return message.NewPrinter(language.BrazilianPortuguese).Sprintf("%d", n)
}
