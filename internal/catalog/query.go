package catalog

import (
	"net/url"
	"slices"
	"strings"

	"github.com/hitoshi/portalx/internal/model"
)

// URLクエリのパラメータ名。
const (
	ParamCategory = "cat"
	ParamState    = "state"
	ParamSort     = "sort"
	ParamSearch   = "q"
	ParamPrice    = "price"
)

// EncodeQuery はフィルタ状態をURLクエリに変換する。
// 配列はカンマ区切りで、既定値（sort=views, price=all, 空の検索語）は省略する。
func EncodeQuery(f model.FilterState) url.Values {
	v := url.Values{}
	if len(f.Categories) > 0 {
		parts := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			parts[i] = string(c)
		}
		v.Set(ParamCategory, strings.Join(parts, ","))
	}
	if len(f.States) > 0 {
		v.Set(ParamState, strings.Join(f.States, ","))
	}
	if f.Sort != "" && f.Sort != model.SortViews {
		v.Set(ParamSort, string(f.Sort))
	}
	if f.Search != "" {
		v.Set(ParamSearch, f.Search)
	}
	if f.PriceRange != "" && f.PriceRange != model.PriceAll {
		v.Set(ParamPrice, string(f.PriceRange))
	}
	return v
}

// ParseQuery はURLクエリからフィルタ状態を復元する。
// 未知のカテゴリ・州・ソート・価格帯はAPIErrorを返す。重複値は1つにまとめる。
func ParseQuery(v url.Values) (model.FilterState, error) {
	f := model.DefaultFilterState()

	for _, raw := range splitList(v.Get(ParamCategory)) {
		c := model.Category(strings.ToLower(raw))
		if !c.Valid() {
			return model.FilterState{}, model.NewInvalidCategoryError(raw)
		}
		if !slices.Contains(f.Categories, c) {
			f.Categories = append(f.Categories, c)
		}
	}

	for _, raw := range splitList(v.Get(ParamState)) {
		s := strings.ToUpper(raw)
		if !model.ValidState(s) {
			return model.FilterState{}, model.NewInvalidStateError(raw)
		}
		if !slices.Contains(f.States, s) {
			f.States = append(f.States, s)
		}
	}

	if raw := strings.TrimSpace(v.Get(ParamSort)); raw != "" {
		s := model.SortMode(strings.ToLower(raw))
		if !s.Valid() {
			return model.FilterState{}, model.NewInvalidFilterError(ParamSort + "=" + raw)
		}
		f.Sort = s
	}

	f.SetSearch(v.Get(ParamSearch))

	if raw := strings.TrimSpace(v.Get(ParamPrice)); raw != "" {
		p := model.PriceRange(strings.ToLower(raw))
		if !p.Valid() {
			return model.FilterState{}, model.NewInvalidFilterError(ParamPrice + "=" + raw)
		}
		f.PriceRange = p
	}

	return f, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
