package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/portalx/internal/model"
)

func TestBuildView_TwentyListingsGroupedAcrossTwoPages(t *testing.T) {
	listings := makeListings(20) // 5カテゴリに4件ずつ、views = ID*100
	f := model.FilterState{Sort: model.SortViews, PriceRange: model.PriceAll}

	page1 := BuildView(listings, f, 1, 12)

	if diff := cmp.Diff([]int64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9}, ids(page1.Visible)); diff != "" {
		t.Errorf("1ページ目はviews上位12件であるべき (-want +got):\n%s", diff)
	}
	if !page1.HasMore {
		t.Error("1ページ目の HasMore は true であるべき")
	}
	if page1.Empty {
		t.Error("Empty は false であるべき")
	}

	var gotOrder []model.Category
	var flattened []int64
	for _, g := range page1.Groups {
		gotOrder = append(gotOrder, g.Category)
		flattened = append(flattened, ids(g.Listings)...)
	}
	if diff := cmp.Diff(model.Categories(), gotOrder); diff != "" {
		t.Errorf("グループはカテゴリの宣言順であるべき (-want +got):\n%s", diff)
	}
	if len(flattened) != 12 {
		t.Errorf("グループ内の合計件数 = %d, want 12", len(flattened))
	}
	// universitarias は ID 1,6,11,16 のうち表示範囲の 16,11 をviews順で持つ
	if diff := cmp.Diff([]int64{16, 11}, ids(page1.Groups[0].Listings)); diff != "" {
		t.Errorf("universitarias グループ (-want +got):\n%s", diff)
	}

	page2 := BuildView(listings, f, 2, 12)
	if len(page2.Visible) != 20 {
		t.Errorf("2ページ目で全20件が表示されるべき: got %d", len(page2.Visible))
	}
	if page2.HasMore {
		t.Error("2ページ目の HasMore は false であるべき")
	}
}

func TestBuildView_NoResultsThenReset(t *testing.T) {
	listings := makeListings(20)
	f := model.DefaultFilterState()
	f.SetSearch("nenhum grupo com este nome")

	v := BuildView(listings, f, 1, 12)
	if !v.Empty {
		t.Error("一致なしでは Empty は true であるべき")
	}
	if len(v.Visible) != 0 || v.HasMore || v.Total != 0 {
		t.Errorf("一致なしの結果: visible=%d hasMore=%v total=%d", len(v.Visible), v.HasMore, v.Total)
	}
	if len(v.Groups) != 0 {
		t.Errorf("一致なしではグループも空であるべき: %d", len(v.Groups))
	}

	f.Reset()
	v = BuildView(listings, f, 1, len(listings))
	if v.Empty || v.Total != 20 {
		t.Errorf("リセット後は全件に戻るべき: empty=%v total=%d", v.Empty, v.Total)
	}
	if diff := cmp.Diff(ids(Apply(listings, model.DefaultFilterState())), ids(v.Visible)); diff != "" {
		t.Errorf("リセット後は既定の並び順であるべき (-want +got):\n%s", diff)
	}
}

func TestBuildView_NotGroupedWithFacets(t *testing.T) {
	listings := makeListings(20)
	f := model.DefaultFilterState()
	f.ToggleState("SP")

	v := BuildView(listings, f, 1, 12)
	if v.Groups != nil {
		t.Errorf("州ファセット指定時はグループ化しないべき: %+v", v.Groups)
	}
	for _, l := range v.Visible {
		if l.State != "SP" {
			t.Errorf("州SP以外が含まれている: %+v", l)
		}
	}
}
