// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// エッジサーバーのミドルウェアとAPIクライアントから利用する。
type MetricsCollector interface {
	RecordGuardRedirect(layer string)
	ObserveUpstream(endpoint string, status int, duration time.Duration)
	RecordChatFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordRateLimited(route string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	guardRedirects  *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	chatFailures    *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kamitori_guard_redirects_total",
			Help: "ルートガードによるログイン画面へのリダイレクト数",
		}, []string{"layer"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kamitori_upstream_requests_total",
			Help: "APIサーバー呼び出しのエンドポイント・ステータス別の合計数",
		}, []string{"endpoint", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kamitori_upstream_latency_seconds",
			Help:    "APIサーバー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		chatFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kamitori_chat_failures_total",
			Help: "コンシェルジュチャット失敗の合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kamitori_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kamitori_rate_limited_total",
			Help: "レート制限で拒否したリクエスト数",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.guardRedirects,
		c.upstreamCalls,
		c.upstreamLatency,
		c.chatFailures,
		c.httpStatus,
		c.rateLimited,
	)

	return c
}

// RecordGuardRedirect はガードのリダイレクトを記録する。layerはedgeまたはview。
func (c *Collector) RecordGuardRedirect(layer string) {
	c.guardRedirects.WithLabelValues(layer).Inc()
}

// ObserveUpstream はAPIサーバー呼び出しの結果を記録する。statusが0の場合は通信エラー。
func (c *Collector) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	c.upstreamCalls.WithLabelValues(endpoint, code).Inc()
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordChatFailure はチャット失敗を記録する。
func (c *Collector) RecordChatFailure(reason string) {
	c.chatFailures.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
