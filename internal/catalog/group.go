package catalog

import "github.com/hitoshi/portalx/internal/model"

// Group はカテゴリ別表示の1グループ。
type Group struct {
	Category model.Category
	Label    string
	Listings []model.Listing
}

// GroupByCategory はListingをカテゴリの宣言順にまとめる。
// グループ内の順序は入力順を保つ。空のグループと未知のカテゴリは含めない。
func GroupByCategory(listings []model.Listing) []Group {
	buckets := make(map[model.Category][]model.Listing)
	for _, l := range listings {
		if !l.Category.Valid() {
			continue
		}
		buckets[l.Category] = append(buckets[l.Category], l)
	}

	groups := make([]Group, 0, len(buckets))
	for _, c := range model.Categories() {
		if items := buckets[c]; len(items) > 0 {
			groups = append(groups, Group{Category: c, Label: c.Label(), Listings: items})
		}
	}
	return groups
}
