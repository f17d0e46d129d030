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
// APIクライアント、画面処理、ワーカーから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration)
	RecordLogin(kind string, success bool)
	RecordTransition(kind, action, outcome string)
	RecordRollback(kind string)
	RecordStorageCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	logins           *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	rollbacks        *prometheus.CounterVec
	storageCleaned   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_upstream_requests_total",
			Help: "バックエンドAPI呼び出しの合計数",
		}, []string{"endpoint", "status_class"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "internhub_upstream_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_logins_total",
			Help: "ログイン試行の合計数",
		}, []string{"kind", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_transitions_total",
			Help: "管理者による応募状態変更の合計数",
		}, []string{"kind", "action", "outcome"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internhub_transition_rollbacks_total",
			Help: "送信失敗により取り消された状態変更の合計数",
		}, []string{"kind"}),
		storageCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "internhub_storage_cleaned_total",
			Help: "期限切れで削除されたブラウザストレージの合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.logins,
		c.transitions,
		c.rollbacks,
		c.storageCleaned,
	)

	return c
}

// StatusClass はステータスコードを "2xx" 形式に丸める。0は通信エラーとして "error" を返す。
func StatusClass(statusCode int) string {
	if statusCode <= 0 {
		return "error"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// RecordUpstreamRequest はバックエンドAPI呼び出しを記録する。
func (c *Collector) RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(endpoint, StatusClass(statusCode)).Inc()
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(kind string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(kind, result).Inc()
}

// RecordTransition は状態変更を記録する。
func (c *Collector) RecordTransition(kind, action, outcome string) {
	c.transitions.WithLabelValues(kind, action, outcome).Inc()
}

// RecordRollback は状態変更の取り消しを記録する。
func (c *Collector) RecordRollback(kind string) {
	c.rollbacks.WithLabelValues(kind).Inc()
}

// RecordStorageCleaned は削除された期限切れエントリ数を記録する。
func (c *Collector) RecordStorageCleaned(count int64) {
	c.storageCleaned.Add(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type NopCollector struct{}

func (NopCollector) RecordUpstreamRequest(string, int, time.Duration) {}
func (NopCollector) RecordLogin(string, bool)                         {}
func (NopCollector) RecordTransition(string, string, string)          {}
func (NopCollector) RecordRollback(string)                            {}
func (NopCollector) RecordStorageCleaned(int64)                       {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// 収集時のエラーは500で返さず、取得できたメトリクスだけを出力する。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
