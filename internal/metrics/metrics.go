// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ポーリング結果のラベル値。
const (
	ResultNotified = "notified"
	ResultNoChange = "no_change"
	ResultFailed   = "failed"
)

// 通知種別のラベル値。
const (
	KindStatus      = "status"
	KindErrorReport = "error_report"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ポーリングワーカーから利用する。
type MetricsCollector interface {
	RecordPoll(result string)
	RecordPollError(kind string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordNotification(kind string)
	RecordDeliveryFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	polls            *prometheus.CounterVec
	pollErrors       *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	notifications    *prometheus.CounterVec
	deliveryFailures prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwnotify_poll_total",
			Help: "結果別のポーリングサイクル数",
		}, []string{"result"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwnotify_poll_errors_total",
			Help: "エラー種別ごとのポーリング失敗数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwnotify_http_status_total",
			Help: "レビューAPIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hwnotify_fetch_latency_seconds",
			Help:    "レビューAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hwnotify_notifications_total",
			Help: "種別ごとの送信済み通知数",
		}, []string{"kind"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hwnotify_delivery_failures_total",
			Help: "Telegramへの送信失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.polls,
		c.pollErrors,
		c.httpStatus,
		c.fetchLatency,
		c.notifications,
		c.deliveryFailures,
	)

	return c
}

// RecordPoll はポーリングサイクルの結果を記録する。
func (c *Collector) RecordPoll(result string) {
	c.polls.WithLabelValues(result).Inc()
}

// RecordPollError はエラーコード別にポーリング失敗を記録する。
func (c *Collector) RecordPollError(kind string) {
	c.pollErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordNotification は送信成功した通知を記録する。
func (c *Collector) RecordNotification(kind string) {
	c.notifications.WithLabelValues(kind).Inc()
}

// RecordDeliveryFailure は送信失敗を記録する。
func (c *Collector) RecordDeliveryFailure() {
	c.deliveryFailures.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。
// メトリクスを無効にした場合やテストで使用する。
type NopCollector struct{}

func (NopCollector) RecordPoll(string) {}
func (NopCollector) RecordPollError(string) {}
func (NopCollector) RecordHTTPStatus(int) {}
func (NopCollector) RecordFetchLatency(time.Duration) {}
func (NopCollector) RecordNotification(string) {}
func (NopCollector) RecordDeliveryFailure() {}
