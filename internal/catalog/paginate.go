package catalog

import (
	"slices"

	"github.com/hitoshi/portalx/internal/model"
)

// DefaultPerPage は1ページあたりの既定件数。
const DefaultPerPage = 12

// Page はページングの結果。Visibleは先頭からpage*perPage件の接頭辞。
type Page struct {
	Visible []model.Listing
	HasMore bool
	Page    int
	PerPage int
	Total   int
}

// Paginate は並び替え済みListingから表示範囲を切り出す。
// page < 1 は1、perPage <= 0 は既定値として扱う。
func Paginate(listings []model.Listing, page, perPage int) Page {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	n := min(visibleCount(page, perPage, len(listings)), len(listings))
	return Page{
		Visible: slices.Clone(listings[:n]),
		HasMore: n < len(listings),
		Page:    page,
		PerPage: perPage,
		Total:   len(listings),
	}
}

// visibleCount はpage*perPageを計算する。totalを超える場合はオーバーフローを避けてtotalを返す。
func visibleCount(page, perPage, total int) int {
	if page > total/perPage+1 {
		return total
	}
	return page * perPage
}

// Cursor はセッション内のページ位置を表す。
// フィルタ状態が変わると1ページ目に戻り、それ以外で自動的に戻ることはない。
type Cursor struct {
	Page    int
	PerPage int

	filter   model.FilterState
	observed bool
}

// NewCursor は1ページ目を指すCursorを生成する。
func NewCursor(perPage int) Cursor {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return Cursor{Page: 1, PerPage: perPage}
}

// VisibleCount は現在の表示件数上限（Page*PerPage）を返す。
func (c Cursor) VisibleCount() int {
	return c.Page * c.PerPage
}

// Next は「もっと見る」で1ページ進める。
func (c *Cursor) Next() {
	c.Page++
}

// Reset は1ページ目に戻す。
func (c *Cursor) Reset() {
	c.Page = 1
}

// Observe は現在のフィルタ状態を記録し、前回と異なればページを1に戻す。
// ページが戻った場合はtrueを返す。
func (c *Cursor) Observe(f model.FilterState) bool {
	changed := c.observed && !c.filter.Equal(f)
	c.filter = model.FilterState{
		Categories: slices.Clone(f.Categories),
		States:     slices.Clone(f.States),
		Sort:       f.Sort,
		Search:     f.Search,
		PriceRange: f.PriceRange,
	}
	c.observed = true
	if changed {
		c.Reset()
	}
	return changed
}
