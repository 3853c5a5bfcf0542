// Package catalog はグループ一覧（カタログ）の保持と絞り込み・並び替え・ページングを提供する。
//
// Store がListingの正本を保持し、Apply/Paginate/GroupByCategory は
// 入力を変更しない純粋関数として派生ビューを生成する。
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

// Source はカタログデータの取得元。
type Source interface {
	Fetch(ctx context.Context) ([]model.Listing, error)
}

// LoadRecorder はカタログロード結果のメトリクス記録インターフェース。
type LoadRecorder interface {
	RecordCatalogLoad(origin string, count int)
	RecordCatalogFallback(reason string)
}

// ロード結果の取得元ラベル。
const (
	OriginSource    = "source"
	OriginSynthetic = "synthetic"
)

var (
	// ErrNoSource はデータ取得元が設定されていないことを示す。
	ErrNoSource = errors.New("カタログデータの取得元が設定されていません")
	// ErrEmptyCatalog は正規化後に有効なレコードが1件も残らなかったことを示す。
	ErrEmptyCatalog = errors.New("有効なカタログレコードがありません")
)

// Store はカタログのListing集合を保持する。
// ListingのviewsはIncrementViews経由でのみ変更される。
type Store struct {
	mu       sync.RWMutex
	listings []model.Listing
	index    map[int64]int
	counts   map[model.Category]int
	origin   string
	loadedAt time.Time

	source   Source
	seed     uint64
	recorder LoadRecorder
	logger   *slog.Logger
}

// NewStore はStoreの新しいインスタンスを生成する。
// seedが0の場合、合成データ生成のたびにランダムなシードを使う。
// recorderはnilでもよい。
func NewStore(source Source, seed uint64, recorder LoadRecorder, logger *slog.Logger) *Store {
	return &Store{
		index:    make(map[int64]int),
		counts:   make(map[model.Category]int),
		source:   source,
		seed:     seed,
		recorder: recorder,
		logger:   logger,
	}
}

// Load はデータ取得元からカタログを読み込む。
// 取得失敗時（通信エラー、非2xx、不正なJSON、有効レコード0件）は
// 合成データ生成にフォールバックする。エラーは返さない。
func (s *Store) Load(ctx context.Context) []model.Listing {
	listings, err := s.fetch(ctx)
	origin := OriginSource
	if err != nil {
		s.logger.Warn("カタログデータの取得に失敗したため合成データを使用します",
			slog.String("error", err.Error()),
		)
		if s.recorder != nil {
			s.recorder.RecordCatalogFallback(fallbackReason(err))
		}
		listings = Generate(s.newRand())
		origin = OriginSynthetic
	}

	s.mu.Lock()
	s.replace(listings, origin)
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordCatalogLoad(origin, len(listings))
	}
	s.logger.Info("カタログを読み込みました",
		slog.String("origin", origin),
		slog.Int("count", len(listings)),
	)

	return s.All()
}

// Refresh はデータ取得元からカタログを再取得する。
// Loadと異なり、取得に失敗した場合は現在のListing集合を維持してエラーを返す。
func (s *Store) Refresh(ctx context.Context) error {
	listings, err := s.fetch(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.replace(listings, OriginSource)
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordCatalogLoad(OriginSource, len(listings))
	}
	s.logger.Info("カタログを再取得しました", slog.Int("count", len(listings)))
	return nil
}

func (s *Store) fetch(ctx context.Context) (listings []model.Listing, err error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	defer func() {
		if r := recover(); r != nil {
			listings = nil
			err = fmt.Errorf("データ取得元でpanicが発生しました: %v", r)
		}
	}()

	raw, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	valid, rejected := Normalize(raw)
	if rejected > 0 {
		s.logger.Warn("不正なカタログレコードを除外しました",
			slog.Int("rejected", rejected),
			slog.Int("accepted", len(valid)),
		)
	}
	if len(valid) == 0 {
		return nil, ErrEmptyCatalog
	}
	return valid, nil
}

func (s *Store) newRand() *rand.Rand {
	seed := s.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// replace はListing集合と派生データを置き換える。呼び出し元でロックを保持すること。
// 同じ取得元からの再読み込みでは、既存IDのviewsを減らさない。
// 取得元が変わった場合（合成データ⇔取得元）はIDが別レコードを指すため引き継がない。
func (s *Store) replace(listings []model.Listing, origin string) {
	prev, prevIndex := s.listings, s.index
	if s.origin != origin {
		prevIndex = nil
	}
	s.listings = slices.Clone(listings)
	s.index = make(map[int64]int, len(listings))
	s.counts = make(map[model.Category]int)
	for i, l := range s.listings {
		if j, ok := prevIndex[l.ID]; ok && prev[j].Views > l.Views {
			s.listings[i].Views = prev[j].Views
		}
		s.index[l.ID] = i
		s.counts[l.Category]++
	}
	s.origin = origin
	s.loadedAt = time.Now()
}

// All はListing集合のスナップショットを返す。
func (s *Store) All() []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.listings)
}

// Find はIDに対応するListingを返す。
func (s *Store) Find(id int64) (model.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Listing{}, false
	}
	return s.listings[i], true
}

// Len は保持しているListing数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings)
}

// Origin は直近のロードの取得元（source / synthetic）を返す。
func (s *Store) Origin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin
}

// LoadedAt は直近のロード時刻を返す。
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// CountsByCategory はカテゴリごとのListing数を返す。
// 未知のカテゴリもそのまま集計される。
func (s *Store) CountsByCategory() map[model.Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[model.Category]int, len(s.counts))
	for c, n := range s.counts {
		counts[c] = n
	}
	return counts
}

// IncrementViews は指定IDのListingのviewsにdeltaを加算し、加算後の値を返す。
// 未知のIDまたはdelta <= 0 の場合は何もしない。
func (s *Store) IncrementViews(id int64, delta int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return 0, false
	}
	if delta > 0 {
		s.listings[i].Views += delta
	}
	return s.listings[i].Views, true
}

func fallbackReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrNoSource):
		return "no_source"
	case errors.Is(err, ErrEmptyCatalog):
		return "empty"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	default:
		return "transport"
	}
}
