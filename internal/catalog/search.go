package catalog

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/hitoshi/portalx/internal/model"
)

// クイック検索の制約。
const (
	QuickSearchMinLen = 2
	QuickSearchLimit  = 10
)

// QuickSearch はヘッダー検索用に名前・カテゴリ・州・都市を横断して検索する。
// 検索語が2文字未満なら結果は空。名前への一致度が高いものを優先し、次にviewsの降順。
func QuickSearch(listings []model.Listing, query string, limit int) []model.Listing {
	q := model.NormalizeSearch(query)
	if len([]rune(q)) < QuickSearchMinLen {
		return nil
	}
	if limit <= 0 {
		limit = QuickSearchLimit
	}

	type hit struct {
		listing model.Listing
		rank    int
	}
	var hits []hit
	for _, l := range listings {
		haystack := strings.ToLower(strings.Join([]string{l.Name, string(l.Category), l.State, l.City}, " "))
		if !strings.Contains(haystack, q) {
			continue
		}
		rank := fuzzy.RankMatchNormalizedFold(q, l.Name)
		if rank < 0 {
			rank = math.MaxInt // 名前以外での一致は後ろに回す
		}
		hits = append(hits, hit{listing: l, rank: rank})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.rank, b.rank); c != 0 {
			return c
		}
		if c := cmp.Compare(b.listing.Views, a.listing.Views); c != 0 {
			return c
		}
		return cmp.Compare(a.listing.ID, b.listing.ID)
	})

	out := make([]model.Listing, 0, min(limit, len(hits)))
	for _, h := range hits[:min(limit, len(hits))] {
		out = append(out, h.listing)
	}
	return out
}
