package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hitoshi/portalx/internal/access"
	"github.com/hitoshi/portalx/internal/catalog"
	"github.com/hitoshi/portalx/internal/model"
)

// staticSource は固定のListingを返すcatalog.Source。
type staticSource []model.Listing

func (s staticSource) Fetch(ctx context.Context) ([]model.Listing, error) {
	return append([]model.Listing(nil), s...), nil
}

// recordingTracker は送信されたイベントを記録するanalytics.Tracker。
type recordingTracker struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingTracker) Track(ctx context.Context, event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTracker) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testListings() []model.Listing {
	return []model.Listing{
		{ID: 1, Name: "Amadoras Real SP", Category: model.CategoryAmadoras, State: "SP", City: "São Paulo", Views: 900, Link: "https://t.me/exemplo1"},
		{ID: 2, Name: "Famosas Premium RJ", Category: model.CategoryFamosas, State: "RJ", City: "Niterói", Views: 7000, Link: "https://t.me/exemplo2", IsPremium: true},
		{ID: 3, Name: "Flagras de Santos", Category: model.CategoryAmadoras, State: "SP", City: "Santos", Views: 300, Link: "https://t.me/exemplo3", IsNew: true},
		{ID: 4, Name: "Vazados Curitiba 18+", Category: model.CategoryVazadas, State: "PR", City: "Curitiba", Views: 5200, Link: "https://t.me/exemplo4"},
	}
}

type catalogFixture struct {
	store    *catalog.Store
	registry *access.Registry
	tracker  *recordingTracker
	handler  *CatalogHandler
}

func newCatalogFixture(t *testing.T, config CatalogHandlerConfig) *catalogFixture {
	t.Helper()
	logger := discardLogger()
	store := catalog.NewStore(staticSource(testListings()), 1, nil, logger)
	store.Load(context.Background())

	tracker := &recordingTracker{}
	registry := access.NewRegistry(access.RegistryConfig{}, store, access.RedirectNavigator{}, tracker, nil, logger)
	t.Cleanup(registry.Stop)

	return &catalogFixture{
		store:    store,
		registry: registry,
		tracker:  tracker,
		handler:  NewCatalogHandler(store, registry, config),
	}
}

// --- GET /api/catalog テスト ---

func TestCatalogHandler_List_FiltersAndPaginates(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/catalog?cat=amadoras&sort=views&perPage=1", nil)
	w := httptest.NewRecorder()
	f.handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	var resp catalogResponse
	decodeBody(t, w, &resp)

	if resp.Total != 2 || !resp.HasMore || resp.Page != 1 || resp.PerPage != 1 {
		t.Errorf("page = {total:%d hasMore:%v page:%d perPage:%d}", resp.Total, resp.HasMore, resp.Page, resp.PerPage)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != 1 {
		t.Errorf("items = %+v, want [id 1]", resp.Items)
	}
	if resp.Groups != nil {
		t.Error("カテゴリ指定時はグルーピングしない")
	}
	if resp.Query != "cat=amadoras" {
		t.Errorf("query = %q, want %q", resp.Query, "cat=amadoras")
	}
}

func TestCatalogHandler_List_GroupsWithoutFacets(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
	w := httptest.NewRecorder()
	f.handler.List(w, req)

	var resp catalogResponse
	decodeBody(t, w, &resp)
	if len(resp.Items) != 4 || resp.HasMore {
		t.Errorf("items = %d, hasMore = %v", len(resp.Items), resp.HasMore)
	}
	if len(resp.Groups) == 0 {
		t.Fatal("ファセット未指定時はカテゴリ別グループを返すべき")
	}
	seen := 0
	for _, g := range resp.Groups {
		seen += len(g.Items)
	}
	if seen != len(resp.Items) {
		t.Errorf("グループ内の件数合計 = %d, want %d", seen, len(resp.Items))
	}
}

func TestCatalogHandler_List_EmptyResult(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/catalog?q=inexistente", nil)
	w := httptest.NewRecorder()
	f.handler.List(w, req)

	var resp catalogResponse
	decodeBody(t, w, &resp)
	if !resp.Empty || resp.Total != 0 || len(resp.Items) != 0 {
		t.Errorf("empty = %v, total = %d, items = %d", resp.Empty, resp.Total, len(resp.Items))
	}
}

func TestCatalogHandler_List_InvalidParams(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{MaxPerPage: 50})

	tests := []struct {
		query    string
		wantCode string
	}{
		{"cat=inexistente", model.ErrCodeInvalidCategory},
		{"state=XX", model.ErrCodeInvalidState},
		{"sort=random", model.ErrCodeInvalidFilter},
		{"page=0", model.ErrCodeInvalidFilter},
		{"page=abc", model.ErrCodeInvalidFilter},
		{"perPage=51", model.ErrCodeInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/catalog?"+tt.query, nil)
			w := httptest.NewRecorder()
			f.handler.List(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if got := parseAPIErrorResponse(t, w)["code"]; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

// --- GET /api/catalog/categories, /search テスト ---

func TestCatalogHandler_Categories_DeclarationOrder(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	w := httptest.NewRecorder()
	f.handler.Categories(w, httptest.NewRequest(http.MethodGet, "/api/catalog/categories", nil))

	var resp []categoryCountResponse
	decodeBody(t, w, &resp)
	categories := model.Categories()
	if len(resp) != len(categories) {
		t.Fatalf("len = %d, want %d", len(resp), len(categories))
	}
	for i, c := range categories {
		if resp[i].Category != string(c) {
			t.Errorf("resp[%d] = %q, want %q", i, resp[i].Category, c)
		}
		if c == model.CategoryAmadoras && resp[i].Count != 2 {
			t.Errorf("amadoras count = %d, want 2", resp[i].Count)
		}
	}
}

func TestCatalogHandler_Search(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	w := httptest.NewRecorder()
	f.handler.Search(w, httptest.NewRequest(http.MethodGet, "/api/catalog/search?q=SANTOS", nil))

	var resp searchResponse
	decodeBody(t, w, &resp)
	if resp.Query != "santos" {
		t.Errorf("query = %q, want santos", resp.Query)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != 3 {
		t.Errorf("items = %+v", resp.Items)
	}

	w = httptest.NewRecorder()
	f.handler.Search(w, httptest.NewRequest(http.MethodGet, "/api/catalog/search?q=s", nil))
	decodeBody(t, w, &resp)
	if len(resp.Items) != 0 {
		t.Errorf("2文字未満の検索語は結果なし: %d件", len(resp.Items))
	}
}

// --- 詳細・アクセス確認テスト ---

func TestCatalogHandler_ShowAccessFlow(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})
	const visitor = "0b5c7d9e-1111-4222-8333-444455556666"

	// Show は閲覧数を1加算する
	req := withChiURLParam(withVisitor(httptest.NewRequest(http.MethodPost, "/api/catalog/listings/2/show", nil), visitor), "id", "2")
	w := httptest.NewRecorder()
	f.handler.Show(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("show status = %d, want %d", w.Code, http.StatusOK)
	}
	var shown selectionResponse
	decodeBody(t, w, &shown)
	if shown.Item.Views != 7001 || shown.State != "selected" {
		t.Errorf("shown = %+v", shown)
	}

	// Selection は選択中のグループを返す
	w = httptest.NewRecorder()
	f.handler.Selection(w, withVisitor(httptest.NewRequest(http.MethodGet, "/api/catalog/selection", nil), visitor))
	if w.Code != http.StatusOK {
		t.Errorf("selection status = %d, want %d", w.Code, http.StatusOK)
	}

	// Access はリンクを返し、分析イベントを1件送ってIdleに戻る
	w = httptest.NewRecorder()
	f.handler.Access(w, withVisitor(httptest.NewRequest(http.MethodPost, "/api/catalog/access", nil), visitor))
	if w.Code != http.StatusOK {
		t.Fatalf("access status = %d, want %d", w.Code, http.StatusOK)
	}
	var accessed accessResponse
	decodeBody(t, w, &accessed)
	if accessed.Redirect != "https://t.me/exemplo2" {
		t.Errorf("redirect = %q", accessed.Redirect)
	}
	events := f.tracker.Events()
	if len(events) != 1 || events[0].Name != model.EventGroupAccess || events[0].ListingID != 2 || !events[0].IsPremium {
		t.Errorf("events = %+v", events)
	}
	if got, _ := f.store.Find(2); got.Views != 7001 {
		t.Errorf("アクセス確認で閲覧数を変更すべきではない: %d", got.Views)
	}

	w = httptest.NewRecorder()
	f.handler.Selection(w, withVisitor(httptest.NewRequest(http.MethodGet, "/api/catalog/selection", nil), visitor))
	if w.Code != http.StatusNoContent {
		t.Errorf("access後のselection status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestCatalogHandler_Access_IdleIsNoop(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	w := httptest.NewRecorder()
	f.handler.Access(w, withVisitor(httptest.NewRequest(http.MethodPost, "/api/catalog/access", nil), "v-idle"))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if n := len(f.tracker.Events()); n != 0 {
		t.Errorf("Idleでは分析イベントを送らない: %d件", n)
	}
}

func TestCatalogHandler_Close_ReturnsToIdle(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})
	const visitor = "v-close"

	req := withChiURLParam(withVisitor(httptest.NewRequest(http.MethodPost, "/", nil), visitor), "id", "1")
	f.handler.Show(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	f.handler.Close(w, withVisitor(httptest.NewRequest(http.MethodPost, "/api/catalog/close", nil), visitor))
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if state := f.registry.Get(visitor).State(); state != access.Idle {
		t.Errorf("state = %v, want idle", state)
	}
	if got, _ := f.store.Find(1); got.Views != 901 {
		t.Errorf("Closeで閲覧数を戻すべきではない: %d", got.Views)
	}
}

func TestCatalogHandler_Show_UnknownListing(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	req := withChiURLParam(withVisitor(httptest.NewRequest(http.MethodPost, "/", nil), "v1"), "id", "999")
	w := httptest.NewRecorder()
	f.handler.Show(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if f.registry.Get("v1").State() != access.Idle {
		t.Error("存在しないグループでは選択状態にしない")
	}
}

func TestCatalogHandler_VisitorsAreIsolated(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	req := withChiURLParam(withVisitor(httptest.NewRequest(http.MethodPost, "/", nil), "v-a"), "id", "1")
	f.handler.Show(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	f.handler.Selection(w, withVisitor(httptest.NewRequest(http.MethodGet, "/", nil), "v-b"))
	if w.Code != http.StatusNoContent {
		t.Errorf("他の訪問者の選択が見えている: status = %d", w.Code)
	}
}

func TestCatalogHandler_MissingVisitor(t *testing.T) {
	f := newCatalogFixture(t, CatalogHandlerConfig{})

	w := httptest.NewRecorder()
	f.handler.Selection(w, httptest.NewRequest(http.MethodGet, "/api/catalog/selection", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
