package catalog

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"github.com/hitoshi/portalx/internal/model"
)

// 合成データ生成のパラメータ。
const (
	inclusionThreshold = 0.3 // これを超えた組み合わせを採用する（約70%）
	newThreshold       = 0.8 // 約20%
	premiumThreshold   = 0.7 // 約30%
	minViews           = 500
	viewsSpan          = 8000 // views は [500, 8500)
)

// cities は州ごとの合成データ用都市リスト。
var cities = map[model.StateCode][]string{
	"SP": {"São Paulo", "Campinas", "Santos", "Guarulhos"},
	"RJ": {"Rio de Janeiro", "Niterói", "Petrópolis"},
	"MG": {"Belo Horizonte", "Uberlândia", "Juiz de Fora"},
	"SC": {"Florianópolis", "Joinville", "Blumenau"},
	"RS": {"Porto Alegre", "Caxias do Sul", "Pelotas"},
	"PR": {"Curitiba", "Londrina", "Maringá"},
	"BA": {"Salvador", "Feira de Santana", "Vitória da Conquista"},
	"PE": {"Recife", "Olinda", "Caruaru"},
	"CE": {"Fortaleza", "Caucaia", "Juazeiro do Norte"},
	"GO": {"Goiânia", "Aparecida de Goiânia", "Anápolis"},
	"DF": {"Brasília", "Taguatinga", "Ceilândia"},
	"ES": {"Vitória", "Vila Velha", "Serra"},
}

// Cities は州の合成データ用都市リストを返す。
func Cities(state model.StateCode) []string {
	return append([]string(nil), cities[state]...)
}

var nameTemplates = []func(category model.Category, state, city string) string{
	func(_ model.Category, _, city string) string { return fmt.Sprintf("Flagras de %s 🔥", city) },
	func(c model.Category, state, _ string) string { return fmt.Sprintf("%s %s Premium", c.Label(), state) },
	func(_ model.Category, _, city string) string { return fmt.Sprintf("Vazados %s 18+", city) },
	func(_ model.Category, _, city string) string { return fmt.Sprintf("Grupo Secreto %s", city) },
	func(c model.Category, state, _ string) string { return fmt.Sprintf("%s Real %s", c.Label(), state) },
}

var imageColors = []string{"dc2626", "991b1b"}

type triple struct {
	category model.Category
	state    model.StateCode
	city     string
}

// Generate はカテゴリ×州×都市の直積から合成カタログを生成する。
// 同じシードのrngからは同一のカタログが得られる。
// 直積が空でなければ結果も空にならない。
func Generate(rng *rand.Rand) []model.Listing {
	var all []triple
	for _, c := range model.Categories() {
		for _, st := range model.States() {
			for _, city := range cities[st] {
				all = append(all, triple{category: c, state: st, city: city})
			}
		}
	}
	return generateFrom(rng, all)
}

func generateFrom(rng *rand.Rand, triples []triple) []model.Listing {
	listings := make([]model.Listing, 0, len(triples))
	for _, t := range triples {
		if rng.Float64() <= inclusionThreshold {
			continue
		}
		listings = append(listings, synthesize(rng, int64(len(listings)+1), t))
	}
	if len(listings) == 0 && len(triples) > 0 {
		listings = append(listings, synthesize(rng, 1, triples[0]))
	}
	return listings
}

func synthesize(rng *rand.Rand, id int64, t triple) model.Listing {
	name := nameTemplates[rng.IntN(len(nameTemplates))](t.category, t.state, t.city)
	return model.Listing{
		ID:        id,
		Name:      name,
		Category:  t.category,
		State:     t.state,
		City:      t.city,
		Views:     int64(rng.IntN(viewsSpan) + minViews),
		Image:     placeholderImage(imageColors[rng.IntN(len(imageColors))], name),
		Link:      fmt.Sprintf("https://t.me/exemplo%d", id),
		IsNew:     rng.Float64() > newThreshold,
		IsPremium: rng.Float64() > premiumThreshold,
	}
}

// placeholderImage は単色背景にイニシャルを描いたSVGのdata URIを返す。
func placeholderImage(color, name string) string {
	initial := "?"
	if r := []rune(strings.TrimSpace(name)); len(r) > 0 {
		initial = strings.ToUpper(string(r[0]))
	}
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300"><rect width="100%%" height="100%%" fill="#%s"/><text x="50%%" y="50%%" font-size="96" fill="#fff" text-anchor="middle" dominant-baseline="middle">%s</text></svg>`,
		color, initial,
	)
	return "data:image/svg+xml;charset=utf-8," + url.PathEscape(svg)
}
