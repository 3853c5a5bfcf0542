// Package model はドメインモデルを定義する。
package model

import (
	"slices"
	"strings"
)

// Listing はカタログに掲載されるグループ1件を表す。
// JSONタグはカタログデータエンドポイントのワイヤーフォーマットに合わせている。
type Listing struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	State     string   `json:"state"`
	City      string   `json:"city"`
	Views     int64    `json:"views"`
	Image     string   `json:"image"`
	Link      string   `json:"link"`
	IsNew     bool     `json:"isNew"`
	IsPremium bool     `json:"isPremium"`
}

// Category はグループのカテゴリを表す。固定の閉じた集合。
type Category string

const (
	CategoryUniversitarias Category = "universitarias"
	CategoryCornos         Category = "cornos"
	CategoryAmadoras       Category = "amadoras"
	CategoryFamosas        Category = "famosas"
	CategoryVazadas        Category = "vazadas"
)

// categoryOrder は表示用の宣言順。アルファベット順ではない。
var categoryOrder = []Category{
	CategoryUniversitarias,
	CategoryCornos,
	CategoryAmadoras,
	CategoryFamosas,
	CategoryVazadas,
}

var categoryLabels = map[Category]string{
	CategoryUniversitarias: "Universitárias",
	CategoryCornos:         "Cornos",
	CategoryAmadoras:       "Amadoras",
	CategoryFamosas:        "Famosas",
	CategoryVazadas:        "Vazadas",
}

// Categories は宣言順のカテゴリ一覧のコピーを返す。
func Categories() []Category {
	return slices.Clone(categoryOrder)
}

// Valid はカテゴリが既知の集合に含まれるかを返す。
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label はカテゴリの表示名を返す。未知のカテゴリはそのまま返す。
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Index は宣言順でのカテゴリ位置を返す。未知のカテゴリは-1。
func (c Category) Index() int {
	return slices.Index(categoryOrder, c)
}

// StateCode はブラジルの州コードを表す。
type StateCode = string

// stateNames は扱う州コードとその表示名。
var stateNames = map[StateCode]string{
	"SP": "São Paulo",
	"RJ": "Rio de Janeiro",
	"MG": "Minas Gerais",
	"SC": "Santa Catarina",
	"RS": "Rio Grande do Sul",
	"PR": "Paraná",
	"BA": "Bahia",
	"PE": "Pernambuco",
	"CE": "Ceará",
	"GO": "Goiás",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
}

var stateOrder = []StateCode{"SP", "RJ", "MG", "SC", "RS", "PR", "BA", "PE", "CE", "GO", "DF", "ES"}

// States は宣言順の州コード一覧のコピーを返す。
func States() []StateCode {
	return slices.Clone(stateOrder)
}

// ValidState は州コードが既知かを返す。大文字小文字は区別する。
func ValidState(code string) bool {
	_, ok := stateNames[code]
	return ok
}

// StateName は州コードの表示名を返す。
func StateName(code string) string {
	if n, ok := stateNames[code]; ok {
		return n
	}
	return code
}

// SortMode はカタログの並び順を表す。
type SortMode string

const (
	// SortViews は閲覧数の降順。
	SortViews SortMode = "views"
	// SortNew は新着を先頭にし、その後IDの降順。
	SortNew SortMode = "new"
	// SortHot は閲覧数に新着ボーナスを加えたスコアの降順。
	SortHot SortMode = "hot"
	// SortAlpha は名前のロケール順（昇順）。
	SortAlpha SortMode = "alpha"
)

// Valid はソートモードが既知かを返す。
func (s SortMode) Valid() bool {
	switch s {
	case SortViews, SortNew, SortHot, SortAlpha:
		return true
	}
	return false
}

// PriceRange は無料/プレミアムの絞り込みを表す。
type PriceRange string

const (
	PriceAll     PriceRange = "all"
	PriceFree    PriceRange = "free"
	PricePremium PriceRange = "premium"
)

// Valid は価格帯が既知かを返す。
func (p PriceRange) Valid() bool {
	switch p {
	case PriceAll, PriceFree, PricePremium:
		return true
	}
	return false
}

// FilterState はカタログに適用中のフィルタ状態を表す。
// トグル/セット操作でのみ変更する。
type FilterState struct {
	Categories []Category
	States     []StateCode
	Sort       SortMode
	Search     string // 正規化済み（trim + 小文字）
	PriceRange PriceRange
}

// DefaultFilterState は初期状態のフィルタを返す。
func DefaultFilterState() FilterState {
	return FilterState{
		Sort:       SortViews,
		PriceRange: PriceAll,
	}
}

// ToggleCategory はカテゴリが含まれていれば外し、含まれていなければ末尾に追加する。
func (f *FilterState) ToggleCategory(c Category) {
	f.Categories = toggle(f.Categories, c)
}

// ToggleState は州コードが含まれていれば外し、含まれていなければ末尾に追加する。
func (f *FilterState) ToggleState(s StateCode) {
	f.States = toggle(f.States, s)
}

// SetSort はソートモードを設定する。未知の値は無視する。
func (f *FilterState) SetSort(s SortMode) {
	if s.Valid() {
		f.Sort = s
	}
}

// SetSearch は検索語を正規化して設定する。
func (f *FilterState) SetSearch(q string) {
	f.Search = NormalizeSearch(q)
}

// SetPriceRange は価格帯を設定する。未知の値は無視する。
func (f *FilterState) SetPriceRange(p PriceRange) {
	if p.Valid() {
		f.PriceRange = p
	}
}

// Reset はフィルタを初期状態に戻す。
func (f *FilterState) Reset() {
	*f = DefaultFilterState()
}

// IsGrouped はカテゴリ別表示を行うか（カテゴリ・州ファセットが未指定か）を返す。
func (f FilterState) IsGrouped() bool {
	return len(f.Categories) == 0 && len(f.States) == 0
}

// Equal はフィルタ状態が同一かを返す。ページリセット判定に使う。
func (f FilterState) Equal(o FilterState) bool {
	return slices.Equal(f.Categories, o.Categories) &&
		slices.Equal(f.States, o.States) &&
		f.Sort == o.Sort &&
		f.Search == o.Search &&
		f.PriceRange == o.PriceRange
}

// NormalizeSearch は検索語をtrimして小文字化する。
func NormalizeSearch(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func toggle[T comparable](items []T, v T) []T {
	if i := slices.Index(items, v); i >= 0 {
		return slices.Delete(slices.Clone(items), i, i+1)
	}
	return append(slices.Clone(items), v)
}
