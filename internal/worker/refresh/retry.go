package refresh

import (
	"errors"
	"net/http"
	"time"

	"github.com/hitoshi/portalx/internal/catalog"
)

// Result は再取得結果の分類。
type Result int

const (
	// ResultOK は再取得成功。
	ResultOK Result = iota
	// ResultPersistent は再試行しても直らない可能性が高い失敗（404/410/401/403、不正なデータ）。
	// 通常間隔で再試行する。
	ResultPersistent
	// ResultBackoff は一時的な失敗（429/5xx、通信エラー）。指数バックオフで再試行する。
	ResultBackoff
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultPersistent:
		return "persistent"
	default:
		return "backoff"
	}
}

const (
	// DefaultInitialBackoff は指数バックオフの初回遅延。
	DefaultInitialBackoff = 30 * time.Second
)

// ClassifyHTTPStatus はデータ取得元のHTTPステータスコードを分類する。
func ClassifyHTTPStatus(statusCode int) Result {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ResultOK
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return ResultPersistent
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ResultPersistent
	case statusCode == http.StatusTooManyRequests:
		return ResultBackoff
	case statusCode >= 500:
		return ResultBackoff
	default:
		return ResultPersistent
	}
}

// Classify はStore.Refreshのエラーを分類する。
func Classify(err error) Result {
	if err == nil {
		return ResultOK
	}
	var statusErr *catalog.StatusError
	switch {
	case errors.As(err, &statusErr):
		return ClassifyHTTPStatus(statusErr.StatusCode)
	case errors.Is(err, catalog.ErrMalformedPayload), errors.Is(err, catalog.ErrEmptyCatalog), errors.Is(err, catalog.ErrNoSource):
		return ResultPersistent
	default:
		return ResultBackoff
	}
}

// CalculateBackoff は連続失敗回数に基づいて指数バックオフ遅延を計算する。
// initialから2倍ずつ増加し、maxDelayで頭打ちになる。
func CalculateBackoff(consecutiveFailures int, initial, maxDelay time.Duration) time.Duration {
	delay := initial
	for i := 1; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
