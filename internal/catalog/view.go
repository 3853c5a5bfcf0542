package catalog

import "github.com/hitoshi/portalx/internal/model"

// View はフィルタ適用・ページング済みのカタログ表示データ。
type View struct {
	Page
	// Groups はカテゴリ・州ファセットが未指定のときだけ設定される。
	Groups []Group
	// Empty は絞り込み結果が0件であることを示す。フィルタのリセットで回復できる。
	Empty  bool
	Filter model.FilterState
}

// BuildView はフィルタ適用、ページング、カテゴリ別グルーピングを順に行う。
// グルーピングは表示範囲に対してのみ行う。
func BuildView(listings []model.Listing, f model.FilterState, page, perPage int) View {
	filtered := Apply(listings, f)
	p := Paginate(filtered, page, perPage)
	v := View{
		Page:   p,
		Empty:  len(filtered) == 0,
		Filter: f,
	}
	if f.IsGrouped() {
		v.Groups = GroupByCategory(p.Visible)
	}
	return v
}
