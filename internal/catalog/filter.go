package catalog

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hitoshi/portalx/internal/model"
)

// hotNewBonus はhotスコアで新着に加算するボーナス。
const hotNewBonus = 1000

// collationTag は名前順ソートに使うロケール。
var collationTag = language.BrazilianPortuguese

// Apply はフィルタ状態に従ってListingを絞り込み、並び替えた新しいスライスを返す。
// 入力スライスとそのレコードは変更しない。
func Apply(listings []model.Listing, f model.FilterState) []model.Listing {
	search := model.NormalizeSearch(f.Search)
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if matches(l, f, search) {
			out = append(out, l)
		}
	}
	sortListings(out, f.Sort)
	return out
}

// matches は各ファセットの条件をすべて満たすかを返す。
func matches(l model.Listing, f model.FilterState, search string) bool {
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, l.Category) {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, l.State) {
		return false
	}
	if search != "" && !strings.Contains(strings.ToLower(l.Name), search) {
		return false
	}
	switch f.PriceRange {
	case model.PriceFree:
		return !l.IsPremium
	case model.PricePremium:
		return l.IsPremium
	}
	return true
}

func sortListings(listings []model.Listing, mode model.SortMode) {
	switch mode {
	case model.SortNew:
		slices.SortStableFunc(listings, func(a, b model.Listing) int {
			if a.IsNew != b.IsNew {
				if a.IsNew {
					return -1
				}
				return 1
			}
			return cmp.Compare(b.ID, a.ID)
		})
	case model.SortHot:
		slices.SortStableFunc(listings, func(a, b model.Listing) int {
			if c := cmp.Compare(hotScore(b), hotScore(a)); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
	case model.SortAlpha:
		// collate.Collatorは並行利用できないため呼び出しごとに生成する
		col := collate.New(collationTag)
		slices.SortStableFunc(listings, func(a, b model.Listing) int {
			if c := col.CompareString(a.Name, b.Name); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	default:
		slices.SortStableFunc(listings, func(a, b model.Listing) int {
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
	}
}

func hotScore(l model.Listing) int64 {
	if l.IsNew {
		return l.Views + hotNewBonus
	}
	return l.Views
}

// ResetFilters は初期状態のフィルタを返す。
func ResetFilters() model.FilterState {
	return model.DefaultFilterState()
}
