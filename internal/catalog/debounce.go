package catalog

import (
	"sync"
	"time"

	"github.com/hitoshi/portalx/internal/model"
)

// DefaultDebounceWait は入力中検索の待機時間。
const DefaultDebounceWait = 300 * time.Millisecond

// Debouncer は取り消し可能な遅延実行を提供する。
// Scheduleのたびに保留中の処理を取り消し、最後に予約された処理だけが実行される。
// 各予約は世代番号を持ち、実行される処理には自身の世代番号が渡される。
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending func(gen uint64)
}

// NewDebouncer は待機時間waitのDebouncerを生成する。
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Schedule は保留中の処理を取り消し、wait経過後にfnを実行するよう予約する。
// 予約の世代番号を返す。
func (d *Debouncer) Schedule(fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
	return gen
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn(gen)
}

// Cancel は保留中の処理を取り消す。実行中の処理の世代も最新ではなくなる。
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = nil
}

// Flush は保留中の処理があれば待機せずに実行する。実行した場合はtrueを返す。
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn, gen := d.pending, d.gen
	d.pending = nil
	d.mu.Unlock()

	fn(gen)
	return true
}

// IsCurrent は世代番号genが最新の予約かを返す。
func (d *Debouncer) IsCurrent(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

// LiveSearch は入力中検索の再計算を遅延実行する。
// 古い入力による再計算結果が新しい入力の結果を上書きすることはない。
type LiveSearch struct {
	debouncer *Debouncer
	listings  func() []model.Listing
	onResult  func(query string, results []model.Listing)

	mu     sync.Mutex
	filter model.FilterState
}

// NewLiveSearch はLiveSearchを生成する。listingsは再計算のたびに呼ばれる。
func NewLiveSearch(wait time.Duration, base model.FilterState, listings func() []model.Listing, onResult func(string, []model.Listing)) *LiveSearch {
	return &LiveSearch{
		debouncer: NewDebouncer(wait),
		listings:  listings,
		onResult:  onResult,
		filter:    base,
	}
}

// Input は検索語の入力を受け付け、再計算を予約する。
func (s *LiveSearch) Input(query string) {
	s.mu.Lock()
	f := s.filter
	s.mu.Unlock()
	f.SetSearch(query)

	s.debouncer.Schedule(func(gen uint64) {
		results := Apply(s.listings(), f)
		s.publish(gen, f.Search, results)
	})
}

func (s *LiveSearch) publish(gen uint64, query string, results []model.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 計算中に新しい入力があった場合は結果を捨てる
	if !s.debouncer.IsCurrent(gen) {
		return
	}
	s.filter.Search = query
	s.onResult(query, results)
}

// Query は最後に反映された検索語を返す。
func (s *LiveSearch) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Search
}

// Flush は保留中の再計算を即座に実行する。
func (s *LiveSearch) Flush() bool {
	return s.debouncer.Flush()
}

// Stop は保留中の再計算を取り消す。
func (s *LiveSearch) Stop() {
	s.debouncer.Cancel()
}
