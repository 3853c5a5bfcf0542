// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portalx"

// MetricsCollector はメトリクス収集のインターフェース。
// カタログ、アクセス制御、分析イベント、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordCatalogLoad(origin string, count int)
	RecordCatalogFallback(reason string)
	RecordListingShown(found bool)
	RecordAccessConfirmed(category string, premium bool)
	RecordAnalyticsEvent(name string)
	RecordAnalyticsDropped(name string)
	RecordAnalyticsSinkFailure()
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(route string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	catalogLoads     *prometheus.CounterVec
	catalogFallbacks *prometheus.CounterVec
	catalogSize      prometheus.Gauge
	listingsShown    *prometheus.CounterVec
	accessConfirmed  *prometheus.CounterVec
	analyticsEvents  *prometheus.CounterVec
	analyticsDropped *prometheus.CounterVec
	analyticsFailed  prometheus.Counter
	httpStatus       *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		catalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "取得元別のカタログ読み込み回数",
		}, []string{"origin"}),
		catalogFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fallbacks_total",
			Help:      "理由別の合成データへのフォールバック回数",
		}, []string{"reason"}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_listings",
			Help:      "直近に読み込んだListing数",
		}),
		listingsShown: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_shown_total",
			Help:      "詳細表示の回数",
		}, []string{"found"}),
		accessConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_confirmed_total",
			Help:      "カテゴリ別のアクセス確定回数",
		}, []string{"category", "premium"}),
		analyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "受け付けた分析イベント数",
		}, []string{"event"}),
		analyticsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_dropped_total",
			Help:      "バッファ溢れなどで破棄した分析イベント数",
		}, []string{"event"}),
		analyticsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_sink_failures_total",
			Help:      "分析イベントの保存失敗数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_status_total",
			Help:      "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "ルート別のリクエスト処理時間（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.catalogLoads,
		c.catalogFallbacks,
		c.catalogSize,
		c.listingsShown,
		c.accessConfirmed,
		c.analyticsEvents,
		c.analyticsDropped,
		c.analyticsFailed,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// RecordCatalogLoad はカタログの読み込みを記録する。
func (c *Collector) RecordCatalogLoad(origin string, count int) {
	c.catalogLoads.WithLabelValues(origin).Inc()
	c.catalogSize.Set(float64(count))
}

// RecordCatalogFallback は合成データへのフォールバックを記録する。
func (c *Collector) RecordCatalogFallback(reason string) {
	c.catalogFallbacks.WithLabelValues(reason).Inc()
}

// RecordListingShown は詳細表示を記録する。
func (c *Collector) RecordListingShown(found bool) {
	c.listingsShown.WithLabelValues(strconv.FormatBool(found)).Inc()
}

// RecordAccessConfirmed はアクセス確定を記録する。
func (c *Collector) RecordAccessConfirmed(category string, premium bool) {
	c.accessConfirmed.WithLabelValues(category, strconv.FormatBool(premium)).Inc()
}

// RecordAnalyticsEvent は分析イベントの受け付けを記録する。
func (c *Collector) RecordAnalyticsEvent(name string) {
	c.analyticsEvents.WithLabelValues(name).Inc()
}

// RecordAnalyticsDropped は分析イベントの破棄を記録する。
func (c *Collector) RecordAnalyticsDropped(name string) {
	c.analyticsDropped.WithLabelValues(name).Inc()
}

// RecordAnalyticsSinkFailure は分析イベントの保存失敗を記録する。
func (c *Collector) RecordAnalyticsSinkFailure() {
	c.analyticsFailed.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はルート別の処理時間を記録する。
func (c *Collector) RecordHTTPLatency(route string, duration time.Duration) {
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
