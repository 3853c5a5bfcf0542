package handler

import (
	"net/http"
	"strconv"

	"github.com/hitoshi/portalx/internal/access"
	"github.com/hitoshi/portalx/internal/catalog"
	"github.com/hitoshi/portalx/internal/middleware"
	"github.com/hitoshi/portalx/internal/model"
)

const (
	defaultMaxPerPage  = 100
	defaultSearchLimit = 10
)

// CatalogReader はカタログの読み取りインターフェース。catalog.Storeの部分集合。
type CatalogReader interface {
	All() []model.Listing
	Find(id int64) (model.Listing, bool)
	CountsByCategory() map[model.Category]int
}

// ControllerProvider は訪問者ごとのアクセスControllerを返す。
type ControllerProvider interface {
	Get(visitorID string) *access.Controller
}

// CatalogHandlerConfig はカタログハンドラーの設定。
type CatalogHandlerConfig struct {
	PerPage     int
	MaxPerPage  int
	SearchLimit int
}

// CatalogHandler はカタログ閲覧とグループ詳細・アクセス確認のHTTPハンドラー。
type CatalogHandler struct {
	store       CatalogReader
	controllers ControllerProvider
	config      CatalogHandlerConfig
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(store CatalogReader, controllers ControllerProvider, config CatalogHandlerConfig) *CatalogHandler {
	if config.PerPage <= 0 {
		config.PerPage = catalog.DefaultPerPage
	}
	if config.MaxPerPage <= 0 {
		config.MaxPerPage = defaultMaxPerPage
	}
	if config.SearchLimit <= 0 {
		config.SearchLimit = defaultSearchLimit
	}
	return &CatalogHandler{store: store, controllers: controllers, config: config}
}

type groupResponse struct {
	Category string         `json:"category"`
	Label    string         `json:"label"`
	Items    []catalog.Card `json:"items"`
}

type filtersResponse struct {
	Categories []string `json:"categories"`
	States     []string `json:"states"`
	Sort       string   `json:"sort"`
	Search     string   `json:"search"`
	PriceRange string   `json:"priceRange"`
}

type catalogResponse struct {
	Items   []catalog.Card  `json:"items"`
	Groups  []groupResponse `json:"groups,omitempty"`
	HasMore bool            `json:"hasMore"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
	Empty   bool            `json:"empty"`
	Filters filtersResponse `json:"filters"`
	Query   string          `json:"query"`
}

type categoryCountResponse struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
}

type searchResponse struct {
	Query string         `json:"query"`
	Items []catalog.Card `json:"items"`
}

type selectionResponse struct {
	State string       `json:"state"`
	Item  catalog.Card `json:"item"`
}

type accessResponse struct {
	Redirect string       `json:"redirect"`
	Item     catalog.Card `json:"item"`
}

// List はフィルタ・並び替え・ページングを適用したカタログを返す。
// GET /api/catalog?cat=a,b&state=SP&sort=hot&q=term&price=free&page=2&perPage=12
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := catalog.ParseQuery(query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	page, err := intParam(query.Get("page"), 1)
	if err != nil || page < 1 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError("page="+query.Get("page")))
		return
	}
	perPage, err := intParam(query.Get("perPage"), h.config.PerPage)
	if err != nil || perPage < 1 || perPage > h.config.MaxPerPage {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFilterError("perPage="+query.Get("perPage")))
		return
	}

	view := catalog.BuildView(h.store.All(), filter, page, perPage)

	resp := catalogResponse{
		Items:   catalog.NewCards(view.Visible),
		HasMore: view.HasMore,
		Total:   view.Total,
		Page:    view.Page.Page,
		PerPage: view.PerPage,
		Empty:   view.Empty,
		Filters: toFiltersResponse(view.Filter),
		Query:   catalog.EncodeQuery(view.Filter).Encode(),
	}
	for _, g := range view.Groups {
		resp.Groups = append(resp.Groups, groupResponse{
			Category: string(g.Category),
			Label:    g.Label,
			Items:    catalog.NewCards(g.Listings),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Categories はカテゴリごとの掲載数を宣言順で返す。
// GET /api/catalog/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	counts := h.store.CountsByCategory()
	resp := make([]categoryCountResponse, 0, len(model.Categories()))
	for _, c := range model.Categories() {
		resp = append(resp, categoryCountResponse{
			Category: string(c),
			Label:    c.Label(),
			Count:    counts[c],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search はクイック検索の上位結果を返す。
// GET /api/catalog/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get(catalog.ParamSearch)
	results := catalog.QuickSearch(h.store.All(), q, h.config.SearchLimit)
	writeJSON(w, http.StatusOK, searchResponse{
		Query: model.NormalizeSearch(q),
		Items: catalog.NewCards(results),
	})
}

// Show はグループを選択し、閲覧数を1加算する。
// POST /api/catalog/listings/{id}/show
func (h *CatalogHandler) Show(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewListingNotFoundError)
	if !ok {
		return
	}

	listing, found := h.store.Find(id)
	if !found {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewListingNotFoundError(id))
		return
	}

	shown := controller.Show(listing)
	writeJSON(w, http.StatusOK, selectionResponse{
		State: access.Selected.String(),
		Item:  catalog.NewCard(shown),
	})
}

// Close は選択を解除する。
// POST /api/catalog/close
func (h *CatalogHandler) Close(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}
	controller.Close()
	w.WriteHeader(http.StatusNoContent)
}

// Access は選択中のグループへのアクセスを確定し、遷移先を返す。
// 何も選択されていない場合は204を返す。
// POST /api/catalog/access
func (h *CatalogHandler) Access(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}

	ctx, redirect := access.WithRedirect(r.Context())
	listing, confirmed := controller.ConfirmAccess(ctx)
	if !confirmed {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, accessResponse{
		Redirect: redirect.Link,
		Item:     catalog.NewCard(listing),
	})
}

// Selection は選択中のグループを返す。未選択の場合は204を返す。
// GET /api/catalog/selection
func (h *CatalogHandler) Selection(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}

	listing, selected := controller.Current()
	if !selected {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{
		State: access.Selected.String(),
		Item:  catalog.NewCard(listing),
	})
}

// controller はリクエストの訪問者に対応するControllerを返す。
func (h *CatalogHandler) controller(w http.ResponseWriter, r *http.Request) (*access.Controller, bool) {
	visitorID := middleware.VisitorIDFromContext(r.Context())
	if visitorID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return nil, false
	}
	return h.controllers.Get(visitorID), true
}

func toFiltersResponse(f model.FilterState) filtersResponse {
	categories := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		categories[i] = string(c)
	}
	states := make([]string, len(f.States))
	copy(states, f.States)
	return filtersResponse{
		Categories: categories,
		States:     states,
		Sort:       string(f.Sort),
		Search:     f.Search,
		PriceRange: string(f.PriceRange),
	}
}

// intParam は空ならdefを、それ以外は整数として解釈した値を返す。
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
